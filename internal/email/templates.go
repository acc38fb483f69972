package email

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
)

const (
	TemplatePasswordReset  = "password-reset"
	TemplateUserInvitation = "user-invitation"
)

//go:embed templates/*.html
var templateFS embed.FS

// Templates renderiza los cuerpos HTML embebidos.
type Templates struct {
	set *template.Template
}

func NewTemplates() (*Templates, error) {
	set, err := template.ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse email templates: %w", err)
	}
	return &Templates{set: set}, nil
}

// Render ejecuta el template name (sin extension) con data.
func (t *Templates) Render(name string, data any) (string, error) {
	tmpl := t.set.Lookup(name + ".html")
	if tmpl == nil {
		return "", fmt.Errorf("email template %q not found", name)
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("render %s: %w", name, err)
	}
	return buf.String(), nil
}
