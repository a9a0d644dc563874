package httpcontroller

import (
	"bytes"
	"embed"
	"html/template"
	"io"

	"github.com/labstack/echo/v4"
)

// Embed the views directory.
//
//go:embed views
var ViewsFs embed.FS

// TemplateRenderer is a custom HTML template renderer for Echo framework.
type TemplateRenderer struct {
	templates *template.Template
}

// Render renders a template with the given data.
func (t *TemplateRenderer) Render(w io.Writer, name string, data interface{}, c echo.Context) error {
	// Render into a buffer first so a template error never produces a
	// half-written response
	var buf bytes.Buffer
	if err := t.templates.ExecuteTemplate(&buf, name, data); err != nil {
		c.Logger().Errorf("Error executing template %s: %v", name, err)
		return err
	}

	_, err := buf.WriteTo(w)
	return err
}

// setupTemplateRenderer configures the template renderer for the server
func (s *Server) setupTemplateRenderer() {
	funcMap := template.FuncMap{
		"add": func(a, b int) int { return a + b },
		"sub": func(a, b int) int { return a - b },
	}

	tmpl, err := template.New("").Funcs(funcMap).ParseFS(ViewsFs, "views/*.html")
	if err != nil {
		s.Echo.Logger.Fatal(err)
	}

	s.Echo.Renderer = &TemplateRenderer{templates: tmpl}
}
