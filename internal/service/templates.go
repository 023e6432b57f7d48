package service

import (
	"github.com/craftcv/craftcv-api/internal/domain/model"
	"github.com/craftcv/craftcv-api/internal/domain/resume"
	apperrors "github.com/craftcv/craftcv-api/internal/errors"
)

// TemplateService exposes the catalog of resume templates available to
// generate jobs. The catalog is static; templates ship with the binary.
type TemplateService struct {
	catalog []resume.TemplateInfo
}

// NewTemplateService constructs a TemplateService with the built-in catalog.
func NewTemplateService() *TemplateService {
	return &TemplateService{
		catalog: []resume.TemplateInfo{
			{
				ID:          model.TemplateModern,
				Name:        "Modern",
				Description: "Clean two-column layout with a skills sidebar",
				BestFor:     []string{"tech", "startups", "creative roles"},
				PreviewPath: "/api/templates/modern/preview",
			},
			{
				ID:          model.TemplateProfessional,
				Name:        "Professional",
				Description: "Traditional single-column layout with serif headings",
				BestFor:     []string{"corporate", "finance", "legal"},
				PreviewPath: "/api/templates/professional/preview",
			},
			{
				ID:          model.TemplateATSOptimized,
				Name:        "ATS Optimized",
				Description: "Plain structure tuned for applicant tracking systems",
				BestFor:     []string{"online applications", "large companies", "job boards"},
				PreviewPath: "/api/templates/ats-optimized/preview",
			},
			{
				ID:          model.TemplateExecutive,
				Name:        "Executive",
				Description: "Spacious layout emphasising leadership summary and impact",
				BestFor:     []string{"senior management", "executive roles"},
				PreviewPath: "/api/templates/executive/preview",
			},
		},
	}
}

// List returns every available template.
func (s *TemplateService) List() []resume.TemplateInfo {
	out := make([]resume.TemplateInfo, len(s.catalog))
	copy(out, s.catalog)
	return out
}

// Get returns one template by id.
func (s *TemplateService) Get(id string) (*resume.TemplateInfo, error) {
	for i := range s.catalog {
		if s.catalog[i].ID == id {
			info := s.catalog[i]
			return &info, nil
		}
	}
	return nil, apperrors.NotFound("Template")
}
