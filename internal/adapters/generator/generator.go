// Package generator renders resume content through HTML templates and stores
// the artifact for download.
package generator

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"html/template"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/craftcv/craftcv-api/config"
	"github.com/craftcv/craftcv-api/internal/core"
	"github.com/craftcv/craftcv-api/internal/domain/model"
	"github.com/craftcv/craftcv-api/internal/domain/resume"
	apperrors "github.com/craftcv/craftcv-api/internal/errors"
)

const artifactContentType = "text/html; charset=utf-8"

// templateData is what each template receives during rendering.
type templateData struct {
	Resume        resume.ParsedResume
	GeneratedDate string
}

// Generator implements core.ResumeGenerator. Artifacts are rendered HTML;
// download URLs stay valid until the document row expires and the sweeper
// removes it.
type Generator struct {
	documents core.DocumentRepository
	templates map[string]*template.Template
	baseURL   string
	ttl       time.Duration
	logger    *slog.Logger
}

// NewGenerator parses the embedded templates and wires the document store.
func NewGenerator(documents core.DocumentRepository, cfg config.GeneratorConfig, logger *slog.Logger) (*Generator, error) {
	cfg.Sanitize()
	if logger == nil {
		logger = slog.Default()
	}

	templates, err := loadTemplates()
	if err != nil {
		return nil, err
	}
	return &Generator{
		documents: documents,
		templates: templates,
		baseURL:   cfg.ArtifactBaseURL,
		ttl:       cfg.DocumentTTL,
		logger:    logger,
	}, nil
}

// Generate renders the content with the requested template and persists the
// artifact. The returned reference carries the download URL and expiry
// window.
func (g *Generator) Generate(ctx context.Context, jobID string, payload model.GeneratePayload) (*resume.FileReference, error) {
	tmpl, ok := g.templates[payload.TemplateID]
	if !ok {
		return nil, apperrors.Permanentf("unknown template %q", payload.TemplateID)
	}

	parsed, err := decodeContent(payload.Content)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	data := templateData{
		Resume:        *parsed,
		GeneratedDate: time.Now().UTC().Format("January 2006"),
	}
	if err := tmpl.Execute(&buf, data); err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodePermanent, "render resume template")
	}

	doc := &model.Document{
		ID:          uuid.NewString(),
		JobID:       jobID,
		TemplateID:  payload.TemplateID,
		FileName:    artifactFileName(payload.TemplateID, jobID),
		ContentType: artifactContentType,
		Data:        buf.Bytes(),
		FileSize:    int64(buf.Len()),
		ExpiresAt:   time.Now().UTC().Add(g.ttl),
	}

	created, err := g.documents.Create(ctx, doc)
	if err != nil {
		return nil, err
	}

	g.logger.InfoContext(ctx, "generated resume document",
		"job_id", jobID,
		"template", payload.TemplateID,
		"document_id", created.ID,
		"bytes", created.FileSize,
	)

	return &resume.FileReference{
		DocumentID:  created.ID,
		TemplateID:  created.TemplateID,
		FileURL:     g.baseURL + "/" + created.ID,
		FileName:    created.FileName,
		FileSize:    created.FileSize,
		GeneratedAt: created.CreatedAt,
	}, nil
}

// decodeContent converts the opaque content map into the structured resume
// shape the templates consume.
func decodeContent(content map[string]any) (*resume.ParsedResume, error) {
	raw, err := json.Marshal(content)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodePermanent, "encode resume content")
	}
	var parsed resume.ParsedResume
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodePermanent, "resume content does not match the expected shape")
	}
	return &parsed, nil
}

// artifactFileName mirrors the naming scheme downloads historically used,
// with the first eight characters of the job id as a discriminator.
func artifactFileName(templateID, jobID string) string {
	short := jobID
	if len(short) > 8 {
		short = short[:8]
	}
	return fmt.Sprintf("resume_improved_%s_%s.html", templateID, short)
}
