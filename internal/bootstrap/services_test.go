package bootstrap

import (
	"testing"

	"github.com/craftcv/craftcv-api/config"
)

func TestErrorChannelBufferSize(t *testing.T) {
	tests := []struct {
		name    string
		modes   []config.ServiceMode
		workers int
		want    int
	}{
		{
			name: "no services enabled",
			want: 1,
		},
		{
			name:  "api only",
			modes: []config.ServiceMode{config.ServiceModeAPI},
			want:  2,
		},
		{
			name:    "worker with three job types",
			modes:   []config.ServiceMode{config.ServiceModeWorker},
			workers: 3,
			want:    4,
		},
		{
			name:    "all services enabled",
			modes:   []config.ServiceMode{config.ServiceModeAPI, config.ServiceModeWorker, config.ServiceModeReaper},
			workers: 2,
			want:    5,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			enabled := make(map[config.ServiceMode]bool, len(tt.modes))
			for _, mode := range tt.modes {
				enabled[mode] = true
			}

			if got := errorChannelBufferSize(enabled, tt.workers); got != tt.want {
				t.Fatalf("errorChannelBufferSize(%v, %d) = %d, want %d", tt.modes, tt.workers, got, tt.want)
			}
		})
	}
}

func TestGetEnabledServices(t *testing.T) {
	cfg := &config.AppConfig{Services: "api,worker,reaper"}
	names := GetEnabledServices(cfg)
	if len(names) != 3 {
		t.Fatalf("expected 3 services, got %v", names)
	}
	seen := make(map[string]bool, len(names))
	for _, name := range names {
		seen[name] = true
	}
	for _, want := range []string{"api", "worker", "reaper"} {
		if !seen[want] {
			t.Fatalf("missing service %q in %v", want, names)
		}
	}

	if got := GetEnabledServices(nil); len(got) != 0 {
		t.Fatalf("expected no services for nil config, got %v", got)
	}
}

func TestValidateServiceConfig(t *testing.T) {
	if err := ValidateServiceConfig(nil); err == nil {
		t.Fatal("expected error for nil config")
	}
	if err := ValidateServiceConfig(&config.AppConfig{Services: "api"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := ValidateServiceConfig(&config.AppConfig{Services: "sorcery"}); err == nil {
		t.Fatal("expected error for unknown service")
	}
}
