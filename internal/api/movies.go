package api

import (
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/haydenm/screenvault/internal/library"
	"github.com/haydenm/screenvault/internal/movie"
	"github.com/labstack/echo/v4"
)

var errMovieNotFound = echo.NewHTTPError(http.StatusNotFound, "Movie not found")

type (
	Library interface {
		ListMovies() ([]*movie.Movie, error)
		GetMovie(uuid.UUID) (*movie.Movie, error)
		AddMovie(library.NewMovie) (*movie.Movie, error)
		DeleteMovie(uuid.UUID) error
	}

	FileResolver interface {
		Resolve(key string) (path string, err error)
	}

	// moviesController serves the anonymous surface: the catalog list, the
	// detail page, and the raw stored files. None of it is session guarded;
	// the catalog is public by design.
	moviesController struct {
		library Library
		files   FileResolver
	}
)

func newMoviesController(library Library, files FileResolver) *moviesController {
	return &moviesController{library: library, files: files}
}

func (controller *moviesController) SetRoutes(eg *echo.Group) {
	eg.GET("/", controller.list)
	eg.GET("/movie/:id", controller.detail)
	eg.GET("/uploads/:filename", controller.serveFile)
}

func (controller *moviesController) list(ec echo.Context) error {
	movies, err := controller.library.ListMovies()
	if err != nil {
		return err
	}

	return ec.Render(http.StatusOK, "movie_list.html", pageData{
		Title:  "Movies",
		Flash:  popFlash(ec),
		Movies: movies,
	})
}

func (controller *moviesController) detail(ec echo.Context) error {
	id, err := uuid.Parse(ec.Param("id"))
	if err != nil {
		return errMovieNotFound
	}

	result, err := controller.library.GetMovie(id)
	if err != nil {
		if errors.Is(err, movie.ErrMovieNotFound) {
			return errMovieNotFound
		}

		return err
	}

	return ec.Render(http.StatusOK, "movie_detail.html", pageData{
		Title: result.Title,
		Flash: popFlash(ec),
		Movie: result,
	})
}

func (controller *moviesController) serveFile(ec echo.Context) error {
	path, err := controller.files.Resolve(ec.Param("filename"))
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "File not found")
	}

	return ec.File(path)
}
