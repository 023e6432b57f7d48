package generator

import (
	"embed"
	"fmt"
	"html/template"

	"github.com/craftcv/craftcv-api/internal/domain/model"
)

//go:embed templates/*.html.tmpl
var templateFS embed.FS

var templateIDs = []string{
	model.TemplateModern,
	model.TemplateProfessional,
	model.TemplateATSOptimized,
	model.TemplateExecutive,
}

// loadTemplates parses every embedded template once at startup.
func loadTemplates() (map[string]*template.Template, error) {
	templates := make(map[string]*template.Template, len(templateIDs))
	for _, id := range templateIDs {
		name := id + ".html.tmpl"
		tmpl, err := template.New(name).ParseFS(templateFS, "templates/"+name)
		if err != nil {
			return nil, fmt.Errorf("parse template %s: %w", name, err)
		}
		templates[id] = tmpl
	}
	return templates, nil
}
