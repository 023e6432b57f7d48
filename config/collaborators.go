package config

import (
	"strings"
	"time"
)

// CollaboratorsConfig groups configuration for the outbound collaborators the
// job handlers depend on: the resume fetcher, the Gemini rewrite client, and
// the document generator.
type CollaboratorsConfig struct {
	Fetcher   FetcherConfig   `envPrefix:"FETCHER_"`
	Gemini    GeminiConfig    `envPrefix:"GEMINI_"`
	Generator GeneratorConfig `envPrefix:"GENERATOR_"`
}

// Sanitize applies guardrails to collaborator sub-configs.
func (c *CollaboratorsConfig) Sanitize() {
	c.Fetcher.Sanitize()
	c.Gemini.Sanitize()
	c.Generator.Sanitize()
}

// FetcherConfig controls outbound resume fetches.
type FetcherConfig struct {
	// Timeout bounds a single fetch request.
	Timeout time.Duration `env:"TIMEOUT" envDefault:"30s"`

	// MaxBodyBytes caps the fetched resume size.
	MaxBodyBytes int64 `env:"MAX_BODY_BYTES" envDefault:"10485760"` // 10 MiB

	// UserAgent is sent on outbound fetch requests.
	UserAgent string `env:"USER_AGENT" envDefault:"craftcv-fetcher/1.0"`
}

// Sanitize applies guardrails to fetcher configuration values.
func (f *FetcherConfig) Sanitize() {
	if f.Timeout <= 0 {
		f.Timeout = 30 * time.Second
	}
	if f.MaxBodyBytes < 1024 {
		f.MaxBodyBytes = 1024
	}
	if strings.TrimSpace(f.UserAgent) == "" {
		f.UserAgent = "craftcv-fetcher/1.0"
	}
}

// GeminiConfig controls the Gemini rewrite client used by the improve handler.
type GeminiConfig struct {
	// APIKey authenticates against the Gemini API. Required for the improve
	// job type; the handler fails permanently without it.
	APIKey string `env:"API_KEY" envDefault:""`

	// Model is the generative model name.
	Model string `env:"MODEL" envDefault:"gemini-1.5-flash"`

	// Timeout bounds a single rewrite call.
	Timeout time.Duration `env:"TIMEOUT" envDefault:"60s"`
}

// Sanitize applies guardrails to Gemini configuration values.
func (g *GeminiConfig) Sanitize() {
	g.APIKey = strings.TrimSpace(g.APIKey)
	if strings.TrimSpace(g.Model) == "" {
		g.Model = "gemini-1.5-flash"
	}
	if g.Timeout <= 0 {
		g.Timeout = 60 * time.Second
	}
}

// IsConfigured returns true when an API key is present.
func (g *GeminiConfig) IsConfigured() bool {
	return g.APIKey != ""
}

// GeneratorConfig controls generated resume documents.
type GeneratorConfig struct {
	// ArtifactBaseURL prefixes download URLs returned by the generate handler.
	ArtifactBaseURL string `env:"ARTIFACT_BASE_URL" envDefault:"http://localhost:8080/api/documents"`

	// DocumentTTL is how long a generated document stays downloadable.
	DocumentTTL time.Duration `env:"DOCUMENT_TTL" envDefault:"1h"`
}

// Sanitize applies guardrails to generator configuration values.
func (g *GeneratorConfig) Sanitize() {
	g.ArtifactBaseURL = strings.TrimRight(strings.TrimSpace(g.ArtifactBaseURL), "/")
	if g.ArtifactBaseURL == "" {
		g.ArtifactBaseURL = "http://localhost:8080/api/documents"
	}
	if g.DocumentTTL < time.Minute {
		g.DocumentTTL = time.Minute
	}
}
