package report

import (
	"embed"
	"errors"
	"fmt"
	"html/template"
	"io/fs"
	"sort"
	"strings"
	"time"

	"github.com/nao1215/photobox/internal/model"
)

// ErrUnknownTemplate is returned when no template has the requested name.
var ErrUnknownTemplate = errors.New("unknown report template")

//go:embed templates/*.html.tmpl
var templateFS embed.FS

const templateSuffix = ".html.tmpl"

// Renderer turns a report model into an HTML document.
type Renderer interface {
	// Render executes the template called name against m.
	Render(name string, m *model.ReportModel) (string, error)
}

// TemplateRenderer renders the embedded html/template report templates.
type TemplateRenderer struct {
	templates map[string]*template.Template
}

// NewTemplateRenderer parses the built-in templates.
func NewTemplateRenderer() (*TemplateRenderer, error) {
	return newTemplateRenderer(templateFS, "templates")
}

func newTemplateRenderer(fsys fs.FS, dir string) (*TemplateRenderer, error) {
	funcs := template.FuncMap{
		"formatTime": func(t time.Time) string {
			return t.Format(time.RFC1123)
		},
	}

	matches, err := fs.Glob(fsys, dir+"/*"+templateSuffix)
	if err != nil {
		return nil, fmt.Errorf("failed to list report templates: %w", err)
	}

	r := &TemplateRenderer{templates: make(map[string]*template.Template, len(matches))}
	for _, path := range matches {
		name := strings.TrimSuffix(path[strings.LastIndex(path, "/")+1:], templateSuffix)
		tmpl, err := template.New(name).Funcs(funcs).ParseFS(fsys, path)
		if err != nil {
			return nil, fmt.Errorf("failed to parse report template %s: %w", name, err)
		}
		r.templates[name] = tmpl
	}
	return r, nil
}

// Names returns the available template names in sorted order.
func (r *TemplateRenderer) Names() []string {
	names := make([]string, 0, len(r.templates))
	for name := range r.templates {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Render implements Renderer.
func (r *TemplateRenderer) Render(name string, m *model.ReportModel) (string, error) {
	tmpl, ok := r.templates[name]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownTemplate, name)
	}

	var b strings.Builder
	if err := tmpl.ExecuteTemplate(&b, name+templateSuffix, m); err != nil {
		return "", fmt.Errorf("failed to render report template %s: %w", name, err)
	}
	return b.String(), nil
}
