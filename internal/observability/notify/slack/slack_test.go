package slack

import (
	"strings"
	"testing"
	"time"

	"github.com/craftcv/craftcv-api/internal/observability/notify"
)

func TestNewClientValidation(t *testing.T) {
	if _, err := NewClient(Config{}); err == nil {
		t.Fatal("expected error when webhook url missing")
	}
}

func TestFormatMessageIncludesFields(t *testing.T) {
	client, err := NewClient(Config{
		WebhookURL: "https://hooks.slack.com/services/test",
		Channel:    "#alerts",
		Username:   "bot",
		Timeout:    time.Second,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	msg := client.formatMessage(notify.JobFailurePayload{
		JobID:      "123",
		JobType:    "analyze",
		Error:      "boom",
		ErrorKind:  "timeout",
		Attempts:   4,
		MaxRetries: 3,
	})

	if msg["username"] != "bot" {
		t.Fatalf("expected username to be preserved, got %v", msg["username"])
	}
	if msg["channel"] != "#alerts" {
		t.Fatalf("expected channel to be set, got %v", msg["channel"])
	}

	text, ok := msg["text"].(string)
	if !ok {
		t.Fatalf("expected text field")
	}
	if !containsAll(
		text,
		[]string{"Job failure alert", "123", "analyze", "boom", "timeout", "4 of 4"},
	) {
		t.Fatalf("message text missing fields: %s", text)
	}
}

func TestFormatMessageJobLink(t *testing.T) {
	client, err := NewClient(Config{
		WebhookURL:   "https://hooks.slack.com/services/test",
		JobURLPrefix: "https://app.craftcv.local/jobs",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	msg := client.formatMessage(notify.JobFailurePayload{
		JobID: "job-123",
	})

	text, ok := msg["text"].(string)
	if !ok {
		t.Fatalf("expected text field")
	}

	expected := "<https://app.craftcv.local/jobs/job-123|job-123>"
	if !strings.Contains(text, expected) {
		t.Fatalf("expected job link %q in text: %s", expected, text)
	}
}

func TestFormatJobValuePermutations(t *testing.T) {
	tcs := []struct {
		name   string
		jobID  string
		prefix string
		want   string
	}{
		{
			name:   "id with link",
			jobID:  "job-1",
			prefix: "https://app.example/jobs",
			want:   "<https://app.example/jobs/job-1|job-1>",
		},
		{
			name:   "invalid prefix falls back to bare id",
			jobID:  "job-2",
			prefix: "not a url",
			want:   "job-2",
		},
		{
			name:   "no prefix",
			jobID:  "job-3",
			want:   "job-3",
		},
		{
			name:   "empty id",
			prefix: "https://app.example/jobs",
			want:   "",
		},
	}

	for _, tc := range tcs {
		t.Run(tc.name, func(t *testing.T) {
			client, err := NewClient(Config{
				WebhookURL:   "https://hooks.slack.com/services/test",
				JobURLPrefix: tc.prefix,
			})
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			got := client.formatJobValue(tc.jobID)
			if got != tc.want {
				t.Fatalf("formatJobValue(%q) = %q, want %q", tc.jobID, got, tc.want)
			}
		})
	}
}

func containsAll(text string, substrs []string) bool {
	for _, s := range substrs {
		if !strings.Contains(text, s) {
			return false
		}
	}
	return true
}
