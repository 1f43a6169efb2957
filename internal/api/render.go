package api

import (
	"embed"
	"html/template"
	"io"

	"github.com/haydenm/screenvault/internal/movie"
	"github.com/labstack/echo/v4"
)

//go:embed templates/*.html
var templateFS embed.FS

type (
	// htmlRenderer satisfies echo's Renderer interface using the templates
	// embedded in this package.
	htmlRenderer struct {
		templates *template.Template
	}

	// pageData is the single view-model shared by every page template;
	// templates pick out the fields they care about.
	pageData struct {
		Title  string
		Flash  *flash
		Movies []*movie.Movie
		Movie  *movie.Movie
	}
)

func newRenderer() (*htmlRenderer, error) {
	templates, err := template.ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, err
	}

	return &htmlRenderer{templates: templates}, nil
}

func (renderer *htmlRenderer) Render(w io.Writer, name string, data interface{}, _ echo.Context) error {
	return renderer.templates.ExecuteTemplate(w, name, data)
}
