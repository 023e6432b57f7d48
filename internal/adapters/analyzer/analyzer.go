// Package analyzer fetches, parses, and scores resumes for analyze jobs.
package analyzer

import (
	"context"
	"encoding/json"
	"log/slog"

	apperrors "github.com/craftcv/craftcv-api/internal/errors"

	"github.com/craftcv/craftcv-api/internal/domain/model"
	"github.com/craftcv/craftcv-api/internal/domain/resume"
)

// Analyzer implements core.ResumeAnalyzer.
type Analyzer struct {
	fetcher *Fetcher
	scorer  *Scorer
	logger  *slog.Logger
}

// NewAnalyzer wires the fetcher and scorer into an analyzer.
func NewAnalyzer(fetcher *Fetcher, logger *slog.Logger) *Analyzer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Analyzer{
		fetcher: fetcher,
		scorer:  NewScorer(),
		logger:  logger,
	}
}

// Analyze resolves the resume text, parses it into structured content, and
// scores it. URL fetch failures and unparseable text surface as execution
// errors so the job layer can decide between retry and terminal failure.
func (a *Analyzer) Analyze(ctx context.Context, payload model.AnalyzePayload) (*resume.ScoreReport, error) {
	text := payload.ResumeText
	if payload.ResumeURL != "" {
		fetched, err := a.fetcher.Fetch(ctx, payload.ResumeURL)
		if err != nil {
			return nil, err
		}
		text = fetched
	}

	parsed, err := ParseResumeText(text)
	if err != nil {
		return nil, err
	}

	content, err := contentMap(parsed)
	if err != nil {
		return nil, err
	}

	report := a.scorer.Score(content)
	report.Content = parsed

	a.logger.InfoContext(ctx, "scored resume",
		"overall", report.Scores.OverallScore,
		"grade", report.Grade,
		"issues", len(report.Issues),
	)
	return report, nil
}

// contentMap flattens the parsed resume into the opaque map shape the scorer
// reads, the same shape improve and generate jobs accept from clients.
func contentMap(parsed *resume.ParsedResume) (map[string]any, error) {
	raw, err := json.Marshal(parsed)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodePermanent, "encode parsed resume")
	}
	var content map[string]any
	if err := json.Unmarshal(raw, &content); err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodePermanent, "decode parsed resume")
	}
	return content, nil
}
