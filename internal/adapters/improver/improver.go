package improver

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	jmespath "github.com/jmespath-community/go-jmespath"

	"github.com/craftcv/craftcv-api/internal/domain/model"
	"github.com/craftcv/craftcv-api/internal/domain/resume"
)

const (
	// maxBulletRewrites bounds LLM calls per job.
	maxBulletRewrites = 10

	// minSummaryLength under which the summary gets rewritten.
	minSummaryLength = 50

	// maxKeywordSuggestions bounds the keyword improvement.
	maxKeywordSuggestions = 8

	// scorePerImprovement feeds the estimated score increase heuristic,
	// capped at maxScoreIncrease.
	scorePerImprovement = 1.5
	maxScoreIncrease    = 25.0
)

var (
	exprSummary     = mustCompile("summary")
	exprSkills      = mustCompile("skills")
	exprTitles      = mustCompile("experiences[].title")
	exprBulletLists = mustCompile("experiences[].responsibilities")
)

func mustCompile(expr string) jmespath.JMESPath {
	compiled, err := jmespath.Compile(expr)
	if err != nil {
		panic(fmt.Sprintf("compile jmespath %q: %v", expr, err))
	}
	return compiled
}

// Improver implements core.ResumeImprover on top of a Rewriter.
type Improver struct {
	rewriter Rewriter
	logger   *slog.Logger
}

// NewImprover wires the rewriter into an improver.
func NewImprover(rewriter Rewriter, logger *slog.Logger) *Improver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Improver{rewriter: rewriter, logger: logger}
}

// Improve walks the requested focus areas and collects improvements. Bullet
// and summary rewrites go through the LLM; keyword suggestions are computed
// locally. A rewriter failure aborts the job so the retry machinery can
// decide its fate.
func (imp *Improver) Improve(ctx context.Context, payload model.ImprovePayload) (*resume.ImprovementResult, error) {
	focus := payload.NormalizedFocusAreas()
	view := newContentView(payload.Content)

	result := &resume.ImprovementResult{
		Improvements: []resume.Improvement{},
		FocusAreas:   focus,
	}

	for _, area := range focus {
		switch area {
		case model.FocusBulletPoints:
			improvements, err := imp.improveBullets(ctx, view)
			if err != nil {
				return nil, err
			}
			result.Improvements = append(result.Improvements, improvements...)
		case model.FocusSummary:
			improvements, err := imp.improveSummary(ctx, view)
			if err != nil {
				return nil, err
			}
			result.Improvements = append(result.Improvements, improvements...)
		case model.FocusKeywords:
			result.Improvements = append(result.Improvements, suggestKeywords(view)...)
		}
	}

	increase := float64(len(result.Improvements)) * scorePerImprovement
	if increase > maxScoreIncrease {
		increase = maxScoreIncrease
	}
	result.EstimatedScoreIncrease = increase

	imp.logger.InfoContext(ctx, "generated improvements",
		"focus_areas", focus,
		"improvements", len(result.Improvements),
	)
	return result, nil
}

// contentView is the improver's flattened read of the opaque content map.
type contentView struct {
	Summary     string
	Skills      []string
	Titles      []string
	BulletLists [][]string
}

func newContentView(content map[string]any) contentView {
	return contentView{
		Summary:     searchString(exprSummary, content),
		Skills:      searchStrings(exprSkills, content),
		Titles:      searchStrings(exprTitles, content),
		BulletLists: searchStringLists(exprBulletLists, content),
	}
}

// improveBullets rewrites weak bullets, skipping those that already lead with
// an action verb, carry a metric, and sit in a good length band.
func (imp *Improver) improveBullets(ctx context.Context, view contentView) ([]resume.Improvement, error) {
	var improvements []resume.Improvement

	rewrites := 0
	for i, bullets := range view.BulletLists {
		title := ""
		if i < len(view.Titles) {
			title = view.Titles[i]
		}
		for _, bullet := range bullets {
			if resume.IsStrongBullet(bullet) {
				continue
			}
			if rewrites >= maxBulletRewrites {
				return improvements, nil
			}

			improved, err := imp.rewriter.Rewrite(ctx, bulletPrompt(bullet, title))
			if err != nil {
				return nil, err
			}
			rewrites++

			if improved == "" || improved == bullet {
				continue
			}
			improvements = append(improvements, resume.Improvement{
				Kind:     resume.ImprovementBullet,
				Original: bullet,
				Improved: improved,
			})
		}
	}
	return improvements, nil
}

// improveSummary rewrites the summary only when it is missing or too thin to
// carry a value proposition.
func (imp *Improver) improveSummary(ctx context.Context, view contentView) ([]resume.Improvement, error) {
	summary := strings.TrimSpace(view.Summary)
	if len(summary) >= minSummaryLength {
		return nil, nil
	}

	improved, err := imp.rewriter.Rewrite(ctx, summaryPrompt(view))
	if err != nil {
		return nil, err
	}
	if improved == "" {
		return nil, nil
	}
	return []resume.Improvement{{
		Kind:     resume.ImprovementSummary,
		Original: summary,
		Improved: improved,
	}}, nil
}

// suggestKeywords lists VA keywords the content does not mention yet. No LLM
// call: presence is a plain substring check over the flattened content.
func suggestKeywords(view contentView) []resume.Improvement {
	parts := []string{view.Summary}
	parts = append(parts, view.Titles...)
	parts = append(parts, view.Skills...)
	for _, bullets := range view.BulletLists {
		parts = append(parts, bullets...)
	}
	text := strings.ToLower(strings.Join(parts, " "))

	var missing []string
	for _, kw := range resume.VAKeywords {
		if !strings.Contains(text, kw) {
			missing = append(missing, kw)
			if len(missing) >= maxKeywordSuggestions {
				break
			}
		}
	}
	if len(missing) == 0 {
		return nil
	}
	return []resume.Improvement{{
		Kind:      resume.ImprovementKeywords,
		Suggested: missing,
	}}
}

func bulletPrompt(bullet, jobTitle string) string {
	if jobTitle == "" {
		jobTitle = "Virtual Assistant"
	}
	return fmt.Sprintf(`You are an expert resume writer specializing in Virtual Assistant roles.

Improve this bullet point from a %s position:
%q

Requirements:
- Start with a strong action verb
- Add specific metrics or quantifiable achievements where logical
- Keep it concise (under 150 characters)
- Make it impactful and results-oriented
- Focus on VA-relevant skills (calendar management, email, admin, communication)

Return ONLY the improved bullet point, nothing else.`, jobTitle, bullet)
}

func summaryPrompt(view contentView) string {
	title := "Virtual Assistant"
	if len(view.Titles) > 0 && view.Titles[0] != "" {
		title = view.Titles[0]
	}
	skills := view.Skills
	if len(skills) > 5 {
		skills = skills[:5]
	}
	return fmt.Sprintf(`You are an expert resume writer specializing in Virtual Assistant roles.

Create a compelling professional summary (2-3 sentences, max 250 characters) for a %s with:
- Experience: %d positions
- Key skills: %s

Requirements:
- Start with years of experience or standout qualification
- Highlight 2-3 key strengths or achievements
- Include VA-relevant skills
- End with value proposition
- Professional but engaging tone

Return ONLY the summary, nothing else.`, title, len(view.Titles), strings.Join(skills, ", "))
}

func searchString(expr jmespath.JMESPath, data any) string {
	v, err := expr.Search(data)
	if err != nil {
		return ""
	}
	s, _ := v.(string)
	return s
}

func searchStrings(expr jmespath.JMESPath, data any) []string {
	v, err := expr.Search(data)
	if err != nil {
		return nil
	}
	items, ok := v.([]any)
	if !ok {
		return nil
	}
	var out []string
	for _, item := range items {
		if s, ok := item.(string); ok && strings.TrimSpace(s) != "" {
			out = append(out, s)
		}
	}
	return out
}

func searchStringLists(expr jmespath.JMESPath, data any) [][]string {
	v, err := expr.Search(data)
	if err != nil {
		return nil
	}
	lists, ok := v.([]any)
	if !ok {
		return nil
	}
	out := make([][]string, 0, len(lists))
	for _, list := range lists {
		items, ok := list.([]any)
		if !ok {
			continue
		}
		var inner []string
		for _, item := range items {
			if s, ok := item.(string); ok && strings.TrimSpace(s) != "" {
				inner = append(inner, s)
			}
		}
		out = append(out, inner)
	}
	return out
}
