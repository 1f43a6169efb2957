package api

import (
	"errors"
	"mime/multipart"
	"net/http"

	"github.com/google/uuid"
	"github.com/haydenm/screenvault/internal/library"
	"github.com/haydenm/screenvault/internal/movie"
	"github.com/labstack/echo/v4"
)

// adminController owns the session-guarded admin surface: the panel with its
// upload form, and movie deletion. The guard itself is applied by the
// gateway on the route group.
type adminController struct {
	library Library
}

func newAdminController(library Library) *adminController {
	return &adminController{library: library}
}

func (controller *adminController) SetRoutes(eg *echo.Group) {
	eg.GET("", controller.panel)
	eg.POST("", controller.upload)
	eg.POST("/delete/:id", controller.delete)
}

func (controller *adminController) panel(ec echo.Context) error {
	movies, err := controller.library.ListMovies()
	if err != nil {
		return err
	}

	return ec.Render(http.StatusOK, "admin.html", pageData{
		Title:  "Admin",
		Flash:  popFlash(ec),
		Movies: movies,
	})
}

func (controller *adminController) upload(ec echo.Context) error {
	movieFile, err := ec.FormFile("movie_file")
	if err != nil || movieFile.Filename == "" {
		setFlash(ec, flashError, "No movie file uploaded")
		return ec.Redirect(http.StatusSeeOther, "/admin")
	}

	movieSrc, err := movieFile.Open()
	if err != nil {
		return err
	}
	defer movieSrc.Close()

	params := library.NewMovie{
		Title:       ec.FormValue("title"),
		Description: ec.FormValue("description"),
		MovieName:   movieFile.Filename,
		Movie:       movieSrc,
	}

	if subtitleFile := optionalFormFile(ec, "subtitle_file"); subtitleFile != nil {
		subtitleSrc, err := subtitleFile.Open()
		if err != nil {
			return err
		}
		defer subtitleSrc.Close()

		params.SubtitleName = subtitleFile.Filename
		params.Subtitle = subtitleSrc
	}

	if _, err := controller.library.AddMovie(params); err != nil {
		switch {
		case errors.Is(err, library.ErrExtensionNotAllowed):
			setFlash(ec, flashError, "File type is not allowed")
		case errors.Is(err, library.ErrValidation):
			setFlash(ec, flashError, "Invalid movie details")
		default:
			return err
		}

		return ec.Redirect(http.StatusSeeOther, "/admin")
	}

	setFlash(ec, flashSuccess, "Movie uploaded successfully")
	return ec.Redirect(http.StatusSeeOther, "/admin")
}

func (controller *adminController) delete(ec echo.Context) error {
	id, err := uuid.Parse(ec.Param("id"))
	if err != nil {
		return errMovieNotFound
	}

	if err := controller.library.DeleteMovie(id); err != nil {
		if errors.Is(err, movie.ErrMovieNotFound) {
			return errMovieNotFound
		}

		return err
	}

	setFlash(ec, flashSuccess, "Movie and associated files deleted successfully")
	return ec.Redirect(http.StatusSeeOther, "/admin")
}

// optionalFormFile fetches a file part that the form may legitimately omit.
// Browsers submit an empty part for an untouched file input, so an empty
// filename counts as absent too.
func optionalFormFile(ec echo.Context, name string) *multipart.FileHeader {
	header, err := ec.FormFile(name)
	if err != nil || header == nil || header.Filename == "" {
		return nil
	}

	return header
}
