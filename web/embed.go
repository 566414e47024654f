package web

import (
	"embed"
	"html/template"
	"io"
	"io/fs"
	"net/http"
	"path"

	"github.com/labstack/echo/v4"
)

//go:embed templates/*.html
var templateFS embed.FS

// TemplateRenderer is the html/template renderer for Echo. Each page is
// parsed on its own so pages can define the same block names.
type TemplateRenderer struct {
	templates map[string]*template.Template
}

// NewTemplateRenderer parses every page under templates/
func NewTemplateRenderer() (*TemplateRenderer, error) {
	pages, err := fs.Glob(templateFS, "templates/*.html")
	if err != nil {
		return nil, err
	}

	templates := make(map[string]*template.Template, len(pages))
	for _, page := range pages {
		tmpl, err := template.ParseFS(templateFS, page)
		if err != nil {
			return nil, err
		}
		templates[path.Base(page)] = tmpl
	}
	return &TemplateRenderer{templates: templates}, nil
}

// Render renders a template document
func (t *TemplateRenderer) Render(w io.Writer, name string, data interface{}, c echo.Context) error {
	tmpl, ok := t.templates[name]
	if !ok {
		return echo.NewHTTPError(http.StatusInternalServerError, "Template not found: "+name)
	}
	return tmpl.Execute(w, data)
}
