package model

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// Focus areas accepted by improve jobs.
const (
	FocusBulletPoints = "bullet_points"
	FocusSummary      = "summary"
	FocusKeywords     = "keywords"
)

// Template identifiers accepted by generate jobs.
const (
	TemplateModern       = "modern"
	TemplateProfessional = "professional"
	TemplateATSOptimized = "ats-optimized"
	TemplateExecutive    = "executive"
)

// ValidTemplateID returns true for a known generation template.
func ValidTemplateID(id string) bool {
	switch id {
	case TemplateModern, TemplateProfessional, TemplateATSOptimized, TemplateExecutive:
		return true
	}
	return false
}

// ValidFocusArea returns true for a known improvement focus area.
func ValidFocusArea(area string) bool {
	switch area {
	case FocusBulletPoints, FocusSummary, FocusKeywords:
		return true
	}
	return false
}

// AnalyzePayload is the input for analyze jobs. Exactly one of ResumeURL or
// ResumeText must be provided.
type AnalyzePayload struct {
	ResumeURL  string `json:"resume_url,omitempty"`
	ResumeText string `json:"resume_text,omitempty"`
}

// Validate checks the analyze payload schema.
func (p *AnalyzePayload) Validate() error {
	hasURL := strings.TrimSpace(p.ResumeURL) != ""
	hasText := strings.TrimSpace(p.ResumeText) != ""
	if hasURL == hasText {
		return errors.New("exactly one of resume_url or resume_text is required")
	}
	if hasURL {
		u, err := url.Parse(p.ResumeURL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return errors.New("resume_url must be an absolute http(s) URL")
		}
	}
	return nil
}

// ImprovePayload is the input for improve jobs.
type ImprovePayload struct {
	Content    map[string]any `json:"content"`
	FocusAreas []string       `json:"focus_areas,omitempty"`
}

// Validate checks the improve payload schema.
func (p *ImprovePayload) Validate() error {
	if len(p.Content) == 0 {
		return errors.New("content is required")
	}
	for _, area := range p.FocusAreas {
		if !ValidFocusArea(area) {
			return fmt.Errorf("unknown focus area %q", area)
		}
	}
	return nil
}

// NormalizedFocusAreas returns the requested focus areas, defaulting to all
// when none were given.
func (p *ImprovePayload) NormalizedFocusAreas() []string {
	if len(p.FocusAreas) == 0 {
		return []string{FocusBulletPoints, FocusSummary, FocusKeywords}
	}
	return p.FocusAreas
}

// GeneratePayload is the input for generate jobs.
type GeneratePayload struct {
	TemplateID string         `json:"template_id"`
	Content    map[string]any `json:"content"`
}

// Validate checks the generate payload schema.
func (p *GeneratePayload) Validate() error {
	if !ValidTemplateID(p.TemplateID) {
		return fmt.Errorf("unknown template_id %q", p.TemplateID)
	}
	if len(p.Content) == 0 {
		return errors.New("content is required")
	}
	return nil
}

// ValidatePayload validates raw payload bytes against the schema of the given
// job type. Unknown fields are rejected so typos surface at submission time
// rather than deep inside a worker.
func ValidatePayload(jobType JobType, payload json.RawMessage) error {
	switch jobType {
	case JobTypeAnalyze:
		var p AnalyzePayload
		if err := decodeStrict(payload, &p); err != nil {
			return err
		}
		return p.Validate()
	case JobTypeImprove:
		var p ImprovePayload
		if err := decodeStrict(payload, &p); err != nil {
			return err
		}
		return p.Validate()
	case JobTypeGenerate:
		var p GeneratePayload
		if err := decodeStrict(payload, &p); err != nil {
			return err
		}
		return p.Validate()
	default:
		return fmt.Errorf("invalid JobType: %q", jobType)
	}
}

func decodeStrict(payload json.RawMessage, dst any) error {
	dec := json.NewDecoder(strings.NewReader(string(payload)))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("malformed payload: %w", err)
	}
	return nil
}
