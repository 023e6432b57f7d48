// Package improver rewrites weak resume content for improve jobs using the
// Gemini API.
package improver

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"github.com/craftcv/craftcv-api/config"
	apperrors "github.com/craftcv/craftcv-api/internal/errors"
)

// Rewriter produces a rewritten text for a prompt. The improve handler only
// depends on this interface so tests can stub out the Gemini client.
type Rewriter interface {
	Rewrite(ctx context.Context, prompt string) (string, error)
}

// GeminiRewriter calls the Gemini generate-content API.
type GeminiRewriter struct {
	client  *genai.Client
	model   string
	timeout time.Duration
	logger  *slog.Logger
}

// NewGeminiRewriter builds a rewriter from config. It fails when no API key
// is configured; improve jobs cannot run without one.
func NewGeminiRewriter(ctx context.Context, cfg config.GeminiConfig, logger *slog.Logger) (*GeminiRewriter, error) {
	cfg.Sanitize()
	if !cfg.IsConfigured() {
		return nil, apperrors.Permanent("gemini api key not configured")
	}
	if logger == nil {
		logger = slog.Default()
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(cfg.APIKey))
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeInternal, "create gemini client")
	}
	return &GeminiRewriter{
		client:  client,
		model:   cfg.Model,
		timeout: cfg.Timeout,
		logger:  logger,
	}, nil
}

// Rewrite sends the prompt and returns the first non-empty candidate text.
func (g *GeminiRewriter) Rewrite(ctx context.Context, prompt string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	model := g.client.GenerativeModel(g.model)
	resp, err := model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", classifyGeminiError(err)
	}

	if resp.PromptFeedback != nil && resp.PromptFeedback.BlockReason != genai.BlockReasonUnspecified {
		return "", apperrors.Permanentf("gemini blocked prompt: %s", resp.PromptFeedback.BlockReason)
	}

	text := firstCandidateText(resp)
	if text == "" {
		return "", apperrors.Permanent("gemini returned no usable text")
	}

	g.logger.DebugContext(ctx, "gemini rewrite", "model", g.model, "prompt_len", len(prompt), "reply_len", len(text))
	return text, nil
}

// Close releases the underlying client.
func (g *GeminiRewriter) Close() error {
	return g.client.Close()
}

// classifyGeminiError splits API failures into retryable and terminal ones.
// Rate limits, server errors, and timeouts clear on retry; everything else
// (bad request, invalid key, safety rejection) will not.
func classifyGeminiError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return apperrors.Wrap(err, apperrors.ErrCodeTransient, "gemini request timed out")
	}

	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		if apiErr.Code == http.StatusTooManyRequests || apiErr.Code >= 500 {
			return apperrors.Wrap(err, apperrors.ErrCodeTransient, "gemini request failed")
		}
		return apperrors.Wrap(err, apperrors.ErrCodePermanent, "gemini rejected request")
	}

	// Anything unrecognized is treated as a network-level failure.
	return apperrors.Wrap(err, apperrors.ErrCodeTransient, "gemini request failed")
}

func firstCandidateText(resp *genai.GenerateContentResponse) string {
	for _, cand := range resp.Candidates {
		if cand.Content == nil {
			continue
		}
		for _, part := range cand.Content.Parts {
			if t, ok := part.(genai.Text); ok {
				if text := strings.TrimSpace(string(t)); text != "" {
					return text
				}
			}
		}
	}
	return ""
}
