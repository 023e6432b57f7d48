package config

import (
	"testing"
	"time"

	env "github.com/caarlos0/env/v11"

	"github.com/craftcv/craftcv-api/internal/domain/model"
)

func TestParseServices(t *testing.T) {
	tests := []struct {
		name        string
		input       string
		expected    map[ServiceMode]bool
		expectError bool
	}{
		{
			name:  "single service - api",
			input: "api",
			expected: map[ServiceMode]bool{
				ServiceModeAPI: true,
			},
			expectError: false,
		},
		{
			name:  "single service - worker",
			input: "worker",
			expected: map[ServiceMode]bool{
				ServiceModeWorker: true,
			},
			expectError: false,
		},
		{
			name:  "single service - reaper",
			input: "reaper",
			expected: map[ServiceMode]bool{
				ServiceModeReaper: true,
			},
			expectError: false,
		},
		{
			name:  "multiple services - api and worker",
			input: "api,worker",
			expected: map[ServiceMode]bool{
				ServiceModeAPI:    true,
				ServiceModeWorker: true,
			},
			expectError: false,
		},
		{
			name:  "all services",
			input: "api,worker,reaper",
			expected: map[ServiceMode]bool{
				ServiceModeAPI:    true,
				ServiceModeWorker: true,
				ServiceModeReaper: true,
			},
			expectError: false,
		},
		{
			name:  "services with spaces",
			input: " api , worker , reaper ",
			expected: map[ServiceMode]bool{
				ServiceModeAPI:    true,
				ServiceModeWorker: true,
				ServiceModeReaper: true,
			},
			expectError: false,
		},
		{
			name:  "duplicate services",
			input: "api,api,worker",
			expected: map[ServiceMode]bool{
				ServiceModeAPI:    true,
				ServiceModeWorker: true,
			},
			expectError: false,
		},
		{
			name:        "empty string",
			input:       "",
			expected:    nil,
			expectError: true,
		},
		{
			name:        "only spaces and commas",
			input:       " , , ",
			expected:    nil,
			expectError: true,
		},
		{
			name:        "invalid service name",
			input:       "api,invalid-service",
			expected:    nil,
			expectError: true,
		},
		{
			name:        "mixed valid and invalid",
			input:       "api,worker,invalid",
			expected:    nil,
			expectError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := ParseServices(tt.input)

			if tt.expectError {
				if err == nil {
					t.Errorf("expected error but got none")
				}
				return
			}

			if err != nil {
				t.Errorf("unexpected error: %v", err)
				return
			}

			if len(result) != len(tt.expected) {
				t.Errorf("expected %d services, got %d", len(tt.expected), len(result))
				return
			}

			for service, expected := range tt.expected {
				if result[service] != expected {
					t.Errorf("expected service %s to be %v, got %v", service, expected, result[service])
				}
			}
		})
	}
}

func TestConfig_ServiceEnabledMethods(t *testing.T) {
	tests := []struct {
		name           string
		services       string
		expectedAPI    bool
		expectedWorker bool
		expectedReaper bool
	}{
		{
			name:        "default - api only",
			services:    "api",
			expectedAPI: true,
		},
		{
			name:           "api and worker",
			services:       "api,worker",
			expectedAPI:    true,
			expectedWorker: true,
		},
		{
			name:           "all services",
			services:       "api,worker,reaper",
			expectedAPI:    true,
			expectedWorker: true,
			expectedReaper: true,
		},
		{
			name:           "worker only",
			services:       "worker",
			expectedWorker: true,
		},
		{
			name:           "reaper only",
			services:       "reaper",
			expectedReaper: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := AppConfig{Services: tt.services}

			if cfg.IsAPIServerEnabled() != tt.expectedAPI {
				t.Errorf("IsAPIServerEnabled(): expected %v, got %v", tt.expectedAPI, cfg.IsAPIServerEnabled())
			}

			if cfg.IsWorkerEnabled() != tt.expectedWorker {
				t.Errorf("IsWorkerEnabled(): expected %v, got %v", tt.expectedWorker, cfg.IsWorkerEnabled())
			}

			if cfg.IsReaperEnabled() != tt.expectedReaper {
				t.Errorf("IsReaperEnabled(): expected %v, got %v", tt.expectedReaper, cfg.IsReaperEnabled())
			}
		})
	}
}

func TestConfig_ServiceEnabledMethodsWithInvalidConfig(t *testing.T) {
	cfg := AppConfig{Services: "invalid-service"}

	// All methods should return false when configuration is invalid
	if cfg.IsAPIServerEnabled() {
		t.Errorf("IsAPIServerEnabled() with invalid config: expected false, got true")
	}

	if cfg.IsWorkerEnabled() {
		t.Errorf("IsWorkerEnabled() with invalid config: expected false, got true")
	}

	if cfg.IsReaperEnabled() {
		t.Errorf("IsReaperEnabled() with invalid config: expected false, got true")
	}
}

func TestValidServiceModes(t *testing.T) {
	modes := ValidServiceModes()
	expected := []ServiceMode{
		ServiceModeAPI,
		ServiceModeWorker,
		ServiceModeReaper,
	}

	if len(modes) != len(expected) {
		t.Errorf("expected %d service modes, got %d", len(expected), len(modes))
	}

	for i, mode := range modes {
		if mode != expected[i] {
			t.Errorf("expected service mode %s at index %d, got %s", expected[i], i, mode)
		}
	}
}

func TestAppConfig_ParseCollaboratorsEnv(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", " key-123 ")
	t.Setenv("GEMINI_MODEL", "gemini-1.5-pro")
	t.Setenv("FETCHER_TIMEOUT", "10s")
	t.Setenv("GENERATOR_ARTIFACT_BASE_URL", "https://cdn.example.com/documents/")

	var cfg AppConfig
	if err := env.Parse(&cfg); err != nil {
		t.Fatalf("parse config: %v", err)
	}
	cfg.Sanitize()

	if cfg.Collaborators.Gemini.APIKey != "key-123" {
		t.Fatalf("expected trimmed api key, got %q", cfg.Collaborators.Gemini.APIKey)
	}
	if !cfg.Collaborators.Gemini.IsConfigured() {
		t.Fatal("expected gemini to be configured")
	}
	if cfg.Collaborators.Gemini.Model != "gemini-1.5-pro" {
		t.Fatalf("unexpected model: %q", cfg.Collaborators.Gemini.Model)
	}
	if cfg.Collaborators.Fetcher.Timeout != 10*time.Second {
		t.Fatalf("unexpected fetcher timeout: %v", cfg.Collaborators.Fetcher.Timeout)
	}
	if cfg.Collaborators.Generator.ArtifactBaseURL != "https://cdn.example.com/documents" {
		t.Fatalf("expected trailing slash to be trimmed, got %q", cfg.Collaborators.Generator.ArtifactBaseURL)
	}
}

func TestWorkerConfig_Sanitize(t *testing.T) {
	cfg := WorkerConfig{
		Concurrency:      0,
		ExecutionTimeout: time.Second,
		Lease:            -time.Minute,
	}

	cfg.Sanitize()

	if cfg.Concurrency != 1 {
		t.Fatalf("expected concurrency to be clamped to 1, got %d", cfg.Concurrency)
	}
	if cfg.ExecutionTimeout != 5*time.Second {
		t.Fatalf("expected timeout floor of 5s, got %v", cfg.ExecutionTimeout)
	}
	if cfg.Lease != 0 {
		t.Fatalf("expected negative lease to reset to 0, got %v", cfg.Lease)
	}

	// A non-zero lease shorter than the timeout is stretched past it.
	cfg = WorkerConfig{
		Concurrency:      4,
		ExecutionTimeout: time.Minute,
		Lease:            10 * time.Second,
	}
	cfg.Sanitize()
	if cfg.Lease <= cfg.ExecutionTimeout {
		t.Fatalf("expected lease to outlive timeout, got lease=%v timeout=%v", cfg.Lease, cfg.ExecutionTimeout)
	}
}

func TestWorkerConfig_ParseJobTypes(t *testing.T) {
	cfg := WorkerConfig{JobTypes: "analyze, improve ,analyze"}
	types, err := cfg.ParseJobTypes()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	expected := []model.JobType{model.JobTypeAnalyze, model.JobTypeImprove}
	if len(types) != len(expected) {
		t.Fatalf("expected %d types, got %d", len(expected), len(types))
	}
	for i, jt := range types {
		if jt != expected[i] {
			t.Fatalf("expected %s at index %d, got %s", expected[i], i, jt)
		}
	}

	cfg = WorkerConfig{JobTypes: "analyze,bogus"}
	if _, err := cfg.ParseJobTypes(); err == nil {
		t.Fatal("expected error for invalid job type")
	}

	cfg = WorkerConfig{JobTypes: " , "}
	if _, err := cfg.ParseJobTypes(); err == nil {
		t.Fatal("expected error when no job types specified")
	}
}

func TestReaperConfig_Sanitize(t *testing.T) {
	cfg := ReaperConfig{
		Interval:       time.Second,
		QueuedMaxAge:   time.Minute,
		CompleteMaxAge: time.Minute,
		FailedMaxAge:   time.Minute,
		BatchSize:      0,
	}

	cfg.Sanitize()

	if cfg.Interval != time.Minute {
		t.Fatalf("expected interval floor of 1m, got %v", cfg.Interval)
	}
	if cfg.QueuedMaxAge != 5*time.Minute {
		t.Fatalf("expected queued max age floor of 5m, got %v", cfg.QueuedMaxAge)
	}
	if cfg.CompleteMaxAge != time.Hour {
		t.Fatalf("expected complete max age floor of 1h, got %v", cfg.CompleteMaxAge)
	}
	if cfg.FailedMaxAge != time.Hour {
		t.Fatalf("expected failed max age floor of 1h, got %v", cfg.FailedMaxAge)
	}
	if cfg.BatchSize != 1 {
		t.Fatalf("expected batch size floor of 1, got %d", cfg.BatchSize)
	}

	cfg = ReaperConfig{BatchSize: 50000}
	cfg.Sanitize()
	if cfg.BatchSize != 10000 {
		t.Fatalf("expected batch size ceiling of 10000, got %d", cfg.BatchSize)
	}
}

func TestObservabilityMetricsConfig_Sanitize(t *testing.T) {
	cfg := ObservabilityMetricsConfig{
		Enabled:       true,
		StatsdAddress: " ",
	}

	cfg.Sanitize()

	if cfg.Enabled {
		t.Fatalf("expected enabled to be false when address is empty")
	}

	cfg = ObservabilityMetricsConfig{
		Enabled:       true,
		StatsdAddress: " statsd:1234 ",
	}

	cfg.Sanitize()

	if !cfg.IsEnabled() {
		t.Fatalf("expected metrics to remain enabled")
	}
	if cfg.StatsdAddress != "statsd:1234" {
		t.Fatalf("expected address to be trimmed, got %q", cfg.StatsdAddress)
	}
}

func TestObservabilityNotificationsConfig_Sanitize(t *testing.T) {
	cfg := ObservabilityNotificationsConfig{
		Enabled:    true,
		Timeout:    0,
		RetryLimit: -1,
		Slack: SlackNotificationConfig{
			Enabled:    true,
			WebhookURL: " ",
			Channel:    "  ",
			Username:   "",
		},
		PagerDuty: PagerDutyNotificationConfig{
			Enabled:    true,
			RoutingKey: " ",
			Source:     "",
			Component:  "",
		},
	}

	cfg.Sanitize()

	if cfg.Timeout <= 0 {
		t.Fatalf("expected timeout to fall back to default, got %v", cfg.Timeout)
	}
	if cfg.RetryLimit < 0 {
		t.Fatalf("expected retry limit to be clamped to >= 0, got %d", cfg.RetryLimit)
	}
	if cfg.Slack.Enabled {
		t.Fatal("expected slack to be disabled without a webhook url")
	}
	if cfg.PagerDuty.Enabled {
		t.Fatal("expected pagerduty to be disabled without a routing key")
	}
	if cfg.PagerDuty.Source != "craftcv" {
		t.Fatalf("expected pagerduty source default, got %q", cfg.PagerDuty.Source)
	}
	if cfg.PagerDuty.Component != "craftcv" {
		t.Fatalf("expected pagerduty component default, got %q", cfg.PagerDuty.Component)
	}

	// Disabled top-level should disable child sinks.
	cfg = ObservabilityNotificationsConfig{
		Enabled: false,
		Slack: SlackNotificationConfig{
			Enabled:    true,
			WebhookURL: "https://hooks.slack.com/services/test",
		},
		PagerDuty: PagerDutyNotificationConfig{
			Enabled:    true,
			RoutingKey: "abc",
		},
	}
	cfg.Sanitize()

	if cfg.Slack.Enabled {
		t.Fatal("expected slack to be disabled when top-level notifications disabled")
	}
	if cfg.PagerDuty.Enabled {
		t.Fatal("expected pagerduty to be disabled when top-level notifications disabled")
	}
}
