package library

import (
	"database/sql"
	"errors"
	"fmt"
	"io"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/haydenm/screenvault/internal/database"
	"github.com/haydenm/screenvault/internal/movie"
	"github.com/haydenm/screenvault/internal/uploads"
	"github.com/haydenm/screenvault/pkg/logger"
	"github.com/jmoiron/sqlx"
)

var (
	ErrValidation          = errors.New("movie details are invalid")
	ErrExtensionNotAllowed = errors.New("file type is not allowed")

	log = logger.Get("Library")
)

type (
	MovieStore interface {
		List(database.Queryable) ([]*movie.Movie, error)
		Get(database.Queryable, uuid.UUID) (*movie.Movie, error)
		Insert(database.Queryable, *movie.Movie) error
		Tombstone(database.Queryable, uuid.UUID) error
		Purge(database.Queryable, uuid.UUID) error
	}

	FileStore interface {
		Stage(originalName string, src io.Reader) (*uploads.Staged, error)
		Publish(*uploads.Staged) error
		Discard(*uploads.Staged)
		Remove(key string) error
	}

	// NewMovie carries one admin upload. Subtitle is optional; when nil the
	// record is created without a subtitle reference.
	NewMovie struct {
		Title        string `validate:"required,max=150"`
		Description  string `validate:"required,max=500"`
		MovieName    string `validate:"required"`
		Movie        io.Reader
		SubtitleName string
		Subtitle     io.Reader
	}

	// Service coordinates the movie store and the file store so that a
	// movie's files and metadata appear and disappear together. The stores
	// beneath it are deliberately dumb; sequencing lives here.
	Service struct {
		db                database.Manager
		movies            MovieStore
		files             FileStore
		validate          *validator.Validate
		allowedExtensions map[string]struct{}
	}
)

func New(db database.Manager, movies MovieStore, files FileStore, allowedExtensions []string) *Service {
	allowed := make(map[string]struct{}, len(allowedExtensions))
	for _, ext := range allowedExtensions {
		allowed[ext] = struct{}{}
	}

	return &Service{
		db:                db,
		movies:            movies,
		files:             files,
		validate:          validator.New(),
		allowedExtensions: allowed,
	}
}

func (service *Service) ListMovies() ([]*movie.Movie, error) {
	return service.movies.List(service.db.GetSqlxDb())
}

func (service *Service) GetMovie(id uuid.UUID) (*movie.Movie, error) {
	return service.movies.Get(service.db.GetSqlxDb(), id)
}

// AddMovie creates a movie record together with its file(s). The files are
// staged first, the record committed second, and the staged files published
// by rename last; a failure (or crash) in between never leaves a visible
// record whose files are missing.
func (service *Service) AddMovie(params NewMovie) (*movie.Movie, error) {
	if err := service.validate.Struct(params); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrValidation, err)
	}

	if !service.extensionAllowed(params.MovieName) {
		return nil, fmt.Errorf("%w: %s", ErrExtensionNotAllowed, params.MovieName)
	}
	if params.Subtitle != nil && !service.extensionAllowed(params.SubtitleName) {
		return nil, fmt.Errorf("%w: %s", ErrExtensionNotAllowed, params.SubtitleName)
	}

	movieStaged, err := service.files.Stage(params.MovieName, params.Movie)
	if err != nil {
		return nil, fmt.Errorf("failed to stage movie file: %w", err)
	}
	staged := []*uploads.Staged{movieStaged}

	record := &movie.Movie{
		ID:          uuid.New(),
		Title:       params.Title,
		Description: params.Description,
		MovieFile:   movieStaged.Key,
		MovieName:   movieStaged.DisplayName,
	}

	if params.Subtitle != nil {
		subtitleStaged, err := service.files.Stage(params.SubtitleName, params.Subtitle)
		if err != nil {
			service.discardAll(staged)
			return nil, fmt.Errorf("failed to stage subtitle file: %w", err)
		}

		staged = append(staged, subtitleStaged)
		record.SubtitleFile = sql.NullString{String: subtitleStaged.Key, Valid: true}
		record.SubtitleName = sql.NullString{String: subtitleStaged.DisplayName, Valid: true}
	}

	if err := service.db.WrapTx(func(tx *sqlx.Tx) error {
		return service.movies.Insert(tx, record)
	}); err != nil {
		service.discardAll(staged)
		return nil, err
	}

	published := make([]string, 0, len(staged))
	for _, stagedFile := range staged {
		if err := service.files.Publish(stagedFile); err != nil {
			service.rollbackCreate(record.ID, published, staged)
			return nil, err
		}

		published = append(published, stagedFile.Key)
	}

	log.Emit(logger.NEW, "Movie '%s' added to library (%s)\n", record.Title, record.ID)
	return record, nil
}

// DeleteMovie removes a movie's files and record. The record is tombstoned
// before any file is touched, so a partial failure cannot leave a visible
// record pointing at removed files; the row is purged once cleanup is done.
func (service *Service) DeleteMovie(id uuid.UUID) error {
	record, err := service.movies.Get(service.db.GetSqlxDb(), id)
	if err != nil {
		return err
	}

	if err := service.db.WrapTx(func(tx *sqlx.Tx) error {
		return service.movies.Tombstone(tx, id)
	}); err != nil {
		return err
	}

	if err := service.files.Remove(record.MovieFile); err != nil {
		return err
	}
	if record.SubtitleFile.Valid {
		if err := service.files.Remove(record.SubtitleFile.String); err != nil {
			return err
		}
	}

	if err := service.movies.Purge(service.db.GetSqlxDb(), id); err != nil {
		return err
	}

	log.Emit(logger.REMOVE, "Movie '%s' deleted from library (%s)\n", record.Title, id)
	return nil
}

func (service *Service) extensionAllowed(name string) bool {
	ext := uploads.Extension(name)
	if ext == "" {
		return false
	}

	_, ok := service.allowedExtensions[ext]
	return ok
}

func (service *Service) discardAll(staged []*uploads.Staged) {
	for _, stagedFile := range staged {
		service.files.Discard(stagedFile)
	}
}

// rollbackCreate unwinds a creation that failed mid-publish: the committed
// record is purged and any file material (published or still staged) is
// removed, best effort.
func (service *Service) rollbackCreate(id uuid.UUID, published []string, staged []*uploads.Staged) {
	if err := service.movies.Purge(service.db.GetSqlxDb(), id); err != nil {
		log.Errorf("Failed to purge record %s while rolling back creation: %v\n", id, err)
	}

	for _, key := range published {
		if err := service.files.Remove(key); err != nil {
			log.Errorf("Failed to remove published file %s while rolling back creation: %v\n", key, err)
		}
	}

	service.discardAll(staged)
}
