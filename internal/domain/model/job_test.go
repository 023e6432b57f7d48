//revive:disable-next-line:var-naming // legacy package name widely used across the project
package model

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJobType_Valid(t *testing.T) {
	assert.True(t, JobTypeAnalyze.Valid())
	assert.True(t, JobTypeImprove.Valid())
	assert.True(t, JobTypeGenerate.Valid())
	assert.False(t, JobType("unknown").Valid())
}

func TestJobType_UnmarshalText(t *testing.T) {
	var jt JobType
	err := jt.UnmarshalText([]byte(" Improve "))
	require.NoError(t, err)
	assert.Equal(t, JobTypeImprove, jt)

	err = jt.UnmarshalText([]byte("browser"))
	require.Error(t, err)
}

func TestJobStatus_Terminal(t *testing.T) {
	assert.False(t, JobStatusQueued.Terminal())
	assert.False(t, JobStatusInProgress.Terminal())
	assert.True(t, JobStatusComplete.Terminal())
	assert.True(t, JobStatusFailed.Terminal())
}

func TestSubmitJobRequest_Validate_Analyze(t *testing.T) {
	req := &SubmitJobRequest{
		Type:    JobTypeAnalyze,
		Payload: json.RawMessage(`{"resume_url":"https://example.com/resume.txt"}`),
	}
	assert.NoError(t, req.Validate())
}

func TestSubmitJobRequest_Validate_JobID(t *testing.T) {
	tests := []struct {
		name        string
		jobID       *string
		expectError bool
	}{
		{name: "nil job id (allowed)", jobID: nil},
		{name: "empty job id (allowed)", jobID: stringPtr("")},
		{name: "valid UUID", jobID: stringPtr("550e8400-e29b-41d4-a716-446655440000")},
		{name: "invalid UUID", jobID: stringPtr("not-a-uuid"), expectError: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := &SubmitJobRequest{
				JobID:   tt.jobID,
				Type:    JobTypeAnalyze,
				Payload: json.RawMessage(`{"resume_text":"some resume"}`),
			}
			err := req.Validate()
			if tt.expectError {
				require.Error(t, err)
				assert.Contains(t, err.Error(), "job_id must be a valid UUID")
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestSubmitJobRequest_Validate_MaxRetries(t *testing.T) {
	negative := -1
	tooMany := MaxRetriesCeiling + 1
	ok := 3

	req := &SubmitJobRequest{
		Type:    JobTypeAnalyze,
		Payload: json.RawMessage(`{"resume_text":"some resume"}`),
	}

	req.MaxRetries = &negative
	require.Error(t, req.Validate())

	req.MaxRetries = &tooMany
	require.Error(t, req.Validate())

	req.MaxRetries = &ok
	assert.NoError(t, req.Validate())
}

func TestSubmitJobRequest_Validate_RejectsMissingPayload(t *testing.T) {
	req := &SubmitJobRequest{Type: JobTypeImprove}
	require.Error(t, req.Validate())
}

func stringPtr(s string) *string {
	return &s
}
