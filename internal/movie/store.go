package movie

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/haydenm/screenvault/internal/database"
)

var ErrMovieNotFound = errors.New("movie does not exist")

type (
	// Movie is the metadata record for one uploaded item. MovieFile and
	// SubtitleFile hold generated storage keys, never user-supplied names;
	// the sanitized original filenames survive only as display metadata.
	Movie struct {
		ID           uuid.UUID      `db:"id"`
		Title        string         `db:"title"`
		Description  string         `db:"description"`
		MovieFile    string         `db:"movie_file"`
		MovieName    string         `db:"movie_name"`
		SubtitleFile sql.NullString `db:"subtitle_file"`
		SubtitleName sql.NullString `db:"subtitle_name"`
		CreatedAt    time.Time      `db:"created_at"`
		DeletedAt    sql.NullTime   `db:"deleted_at"`
	}

	Store struct{}
)

func NewStore() *Store {
	return &Store{}
}

// List returns every live movie record. The ordering (insertion order) is
// stable but carries no meaning beyond that.
func (store *Store) List(db database.Queryable) ([]*Movie, error) {
	query, args, err := selectMovieBuilder().OrderBy("created_at", "id").ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to construct list movies query: %w", err)
	}

	results := make([]*Movie, 0)
	if err := db.Select(&results, db.Rebind(query), args...); err != nil {
		return nil, err
	}

	return results, nil
}

func (store *Store) Get(db database.Queryable, id uuid.UUID) (*Movie, error) {
	query, args, err := selectMovieBuilder().Where("id=?", id).ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to construct select movie query: %w", err)
	}

	var result Movie
	if err := db.Get(&result, db.Rebind(query), args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrMovieNotFound
		}

		return nil, err
	}

	return &result, nil
}

// Insert persists the provided movie. A zero ID is replaced with a freshly
// generated one; CreatedAt is always stamped by the store.
func (store *Store) Insert(db database.Queryable, movie *Movie) error {
	if movie.ID == uuid.Nil {
		movie.ID = uuid.New()
	}
	movie.CreatedAt = time.Now().UTC()

	_, err := db.NamedExec(`
		INSERT INTO movies(id, title, description, movie_file, movie_name, subtitle_file, subtitle_name, created_at, deleted_at)
		VALUES (:id, :title, :description, :movie_file, :movie_name, :subtitle_file, :subtitle_name, :created_at, NULL)
	`, movie)
	if err != nil {
		return fmt.Errorf("failed to insert movie: %w", err)
	}

	return nil
}

// Tombstone marks the record deleted without removing the row. Tombstoned
// records are invisible to List/Get, which keeps a half-finished delete from
// ever rendering a movie whose files are already gone.
func (store *Store) Tombstone(db database.Queryable, id uuid.UUID) error {
	result, err := db.Exec(`UPDATE movies SET deleted_at=? WHERE id=? AND deleted_at IS NULL`, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("failed to tombstone movie %s: %w", id, err)
	}

	if affected, err := result.RowsAffected(); err == nil && affected == 0 {
		return ErrMovieNotFound
	}

	return nil
}

// Purge removes the row entirely. Purging an unknown id is a no-op as the
// record may already be gone from an earlier partial delete.
func (store *Store) Purge(db database.Queryable, id uuid.UUID) error {
	if _, err := db.Exec(`DELETE FROM movies WHERE id=?`, id); err != nil {
		return fmt.Errorf("failed to purge movie %s: %w", id, err)
	}

	return nil
}

func selectMovieBuilder() squirrel.SelectBuilder {
	return squirrel.
		Select("*").
		From("movies").
		Where("deleted_at IS NULL")
}
