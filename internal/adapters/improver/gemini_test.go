package improver

import (
	"context"
	"errors"
	"testing"

	"github.com/google/generative-ai-go/genai"
	"github.com/stretchr/testify/assert"
	"google.golang.org/api/googleapi"

	apperrors "github.com/craftcv/craftcv-api/internal/errors"
)

func TestClassifyGeminiError(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		transient bool
	}{
		{"rate limit", &googleapi.Error{Code: 429}, true},
		{"server error", &googleapi.Error{Code: 503}, true},
		{"bad request", &googleapi.Error{Code: 400}, false},
		{"invalid key", &googleapi.Error{Code: 403}, false},
		{"deadline", context.DeadlineExceeded, true},
		{"canceled", context.Canceled, true},
		{"network", errors.New("connection reset"), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := classifyGeminiError(tt.err)
			assert.Equal(t, tt.transient, apperrors.IsTransient(got))
			assert.Equal(t, !tt.transient, apperrors.IsPermanent(got))
		})
	}
}

func TestFirstCandidateText(t *testing.T) {
	resp := &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{
			{Content: nil},
			{Content: &genai.Content{Parts: []genai.Part{genai.Text("   ")}}},
			{Content: &genai.Content{Parts: []genai.Part{genai.Text("  Improved bullet  ")}}},
		},
	}
	assert.Equal(t, "Improved bullet", firstCandidateText(resp))

	assert.Empty(t, firstCandidateText(&genai.GenerateContentResponse{}))
}
