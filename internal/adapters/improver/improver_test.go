package improver

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/craftcv/craftcv-api/internal/domain/model"
	"github.com/craftcv/craftcv-api/internal/domain/resume"
	apperrors "github.com/craftcv/craftcv-api/internal/errors"
)

// stubRewriter replays canned rewrites and records the prompts it saw.
type stubRewriter struct {
	reply   string
	err     error
	prompts []string
}

func (s *stubRewriter) Rewrite(_ context.Context, prompt string) (string, error) {
	s.prompts = append(s.prompts, prompt)
	if s.err != nil {
		return "", s.err
	}
	return s.reply, nil
}

const strongBullet = "Managed 15+ executive calendars across regions, cutting conflicts by 40% weekly"

func improveContent() map[string]any {
	return map[string]any{
		"summary": "Helps with office stuff.",
		"skills":  []any{"Typing", "Filing"},
		"experiences": []any{
			map[string]any{
				"title": "Executive Assistant",
				"responsibilities": []any{
					strongBullet,
					"Helped with scheduling",
				},
			},
		},
	}
}

func TestImproverRewritesWeakBullets(t *testing.T) {
	rewriter := &stubRewriter{reply: "Coordinated scheduling for 12 executives, reducing conflicts by 30%"}
	imp := NewImprover(rewriter, nil)

	result, err := imp.Improve(context.Background(), model.ImprovePayload{
		Content:    improveContent(),
		FocusAreas: []string{model.FocusBulletPoints},
	})
	require.NoError(t, err)

	require.Len(t, result.Improvements, 1)
	got := result.Improvements[0]
	assert.Equal(t, resume.ImprovementBullet, got.Kind)
	assert.Equal(t, "Helped with scheduling", got.Original)
	assert.Equal(t, rewriter.reply, got.Improved)
	assert.InDelta(t, 1.5, result.EstimatedScoreIncrease, 0.001)

	// The strong bullet never reached the rewriter.
	require.Len(t, rewriter.prompts, 1)
	assert.Contains(t, rewriter.prompts[0], "Helped with scheduling")
	assert.Contains(t, rewriter.prompts[0], "Executive Assistant")
}

func TestImproverRewritesThinSummary(t *testing.T) {
	rewriter := &stubRewriter{reply: "Seasoned Virtual Assistant with five years supporting executives."}
	imp := NewImprover(rewriter, nil)

	result, err := imp.Improve(context.Background(), model.ImprovePayload{
		Content:    improveContent(),
		FocusAreas: []string{model.FocusSummary},
	})
	require.NoError(t, err)

	require.Len(t, result.Improvements, 1)
	assert.Equal(t, resume.ImprovementSummary, result.Improvements[0].Kind)
	assert.Equal(t, "Helps with office stuff.", result.Improvements[0].Original)
}

func TestImproverKeepsHealthySummary(t *testing.T) {
	rewriter := &stubRewriter{reply: "unused"}
	imp := NewImprover(rewriter, nil)

	content := improveContent()
	content["summary"] = "Detail-oriented virtual assistant with five years of administrative support experience."

	result, err := imp.Improve(context.Background(), model.ImprovePayload{
		Content:    content,
		FocusAreas: []string{model.FocusSummary},
	})
	require.NoError(t, err)
	assert.Empty(t, result.Improvements)
	assert.Empty(t, rewriter.prompts)
}

func TestImproverSuggestsMissingKeywords(t *testing.T) {
	imp := NewImprover(&stubRewriter{}, nil)

	result, err := imp.Improve(context.Background(), model.ImprovePayload{
		Content:    improveContent(),
		FocusAreas: []string{model.FocusKeywords},
	})
	require.NoError(t, err)

	require.Len(t, result.Improvements, 1)
	got := result.Improvements[0]
	assert.Equal(t, resume.ImprovementKeywords, got.Kind)
	require.NotEmpty(t, got.Suggested)
	assert.LessOrEqual(t, len(got.Suggested), maxKeywordSuggestions)
	// Mentioned terms never come back as suggestions.
	assert.NotContains(t, got.Suggested, "scheduling")
}

func TestImproverDefaultsToAllFocusAreas(t *testing.T) {
	rewriter := &stubRewriter{reply: "Implemented inbox triage for 3 teams, halving response times"}
	imp := NewImprover(rewriter, nil)

	result, err := imp.Improve(context.Background(), model.ImprovePayload{Content: improveContent()})
	require.NoError(t, err)

	assert.Equal(t, []string{model.FocusBulletPoints, model.FocusSummary, model.FocusKeywords}, result.FocusAreas)
	assert.NotEmpty(t, result.Improvements)
}

func TestImproverCapsBulletRewrites(t *testing.T) {
	bullets := make([]any, maxBulletRewrites+5)
	for i := range bullets {
		bullets[i] = "Did some things around the office every day"
	}
	content := map[string]any{
		"experiences": []any{
			map[string]any{"title": "Assistant", "responsibilities": bullets},
		},
	}

	rewriter := &stubRewriter{reply: "Organized office operations for 4 departments daily"}
	imp := NewImprover(rewriter, nil)

	result, err := imp.Improve(context.Background(), model.ImprovePayload{
		Content:    content,
		FocusAreas: []string{model.FocusBulletPoints},
	})
	require.NoError(t, err)
	assert.Len(t, rewriter.prompts, maxBulletRewrites)
	assert.Len(t, result.Improvements, maxBulletRewrites)
}

func TestImproverPropagatesRewriterErrors(t *testing.T) {
	rewriter := &stubRewriter{err: apperrors.Transient("rate limited")}
	imp := NewImprover(rewriter, nil)

	_, err := imp.Improve(context.Background(), model.ImprovePayload{
		Content:    improveContent(),
		FocusAreas: []string{model.FocusBulletPoints},
	})
	require.Error(t, err)
	assert.True(t, apperrors.IsTransient(err))
}

func TestHandlerExecute(t *testing.T) {
	rewriter := &stubRewriter{reply: "Streamlined calendar coverage for 6 executives, cutting conflicts 25%"}
	h := NewHandler(NewImprover(rewriter, nil), nil)
	assert.Equal(t, model.JobTypeImprove, h.Type())

	payload, err := json.Marshal(model.ImprovePayload{
		Content:    improveContent(),
		FocusAreas: []string{model.FocusBulletPoints, model.FocusKeywords},
	})
	require.NoError(t, err)

	raw, err := h.Execute(context.Background(), &model.Job{
		ID:           "job-1",
		Type:         model.JobTypeImprove,
		InputPayload: payload,
	})
	require.NoError(t, err)

	var result resume.ImprovementResult
	require.NoError(t, json.Unmarshal(raw, &result))
	assert.Len(t, result.Improvements, 2)
	assert.Equal(t, []string{model.FocusBulletPoints, model.FocusKeywords}, result.FocusAreas)
}

func TestHandlerExecuteRejectsCorruptPayload(t *testing.T) {
	h := NewHandler(NewImprover(&stubRewriter{}, nil), nil)

	for name, payload := range map[string]json.RawMessage{
		"malformed json": json.RawMessage(`{"content":`),
		"empty content":  json.RawMessage(`{"content":{}}`),
	} {
		t.Run(name, func(t *testing.T) {
			_, err := h.Execute(context.Background(), &model.Job{
				ID:           "job-1",
				Type:         model.JobTypeImprove,
				InputPayload: payload,
			})
			require.Error(t, err)
			assert.True(t, apperrors.IsPermanent(err))
		})
	}
}
