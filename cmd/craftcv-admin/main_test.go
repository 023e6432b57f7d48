package main

import (
	"io"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/craftcv/craftcv-api/internal/domain/model"
)

func captureStdout(t *testing.T, f func() error) string {
	t.Helper()

	oldStdout := os.Stdout
	r, w, err := os.Pipe()
	require.NoError(t, err)
	defer func() {
		os.Stdout = oldStdout
	}()

	os.Stdout = w
	runErr := f()
	require.NoError(t, w.Close())
	os.Stdout = oldStdout
	require.NoError(t, runErr)

	output, err := io.ReadAll(r)
	require.NoError(t, err)
	require.NoError(t, r.Close())
	return string(output)
}

func TestPrintQueueStatsListsAllTypes(t *testing.T) {
	stats := &model.QueueStats{
		Total: model.JobStats{Queued: 3, InProgress: 1, Failed: 2},
		ByType: map[model.JobType]model.JobStats{
			model.JobTypeAnalyze: {Queued: 3, InProgress: 1},
			model.JobTypeImprove: {Failed: 2},
		},
	}

	out := captureStdout(t, func() error {
		return printQueueStats(os.Stdout, stats)
	})

	require.Contains(t, out, "analyze")
	require.Contains(t, out, "improve")
	require.Contains(t, out, "generate")
	require.Contains(t, out, "total")
}

func TestPrintJobRowsRendersErrorKind(t *testing.T) {
	kind := model.ErrorKindTimeout
	rows := []*model.Job{
		{
			ID:         "0a3c9973-6f2e-4b1a-9a55-1f1f6a1a0001",
			Type:       model.JobTypeAnalyze,
			Status:     model.JobStatusFailed,
			RetryCount: 2,
			MaxRetries: 2,
			EnqueuedAt: time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC),
			ErrorKind:  &kind,
		},
	}

	out := captureStdout(t, func() error {
		return printJobRows(os.Stdout, rows)
	})

	require.Contains(t, out, "0a3c9973-6f2e-4b1a-9a55-1f1f6a1a0001")
	require.Contains(t, out, "timeout")
	require.Contains(t, out, "Total: 1")
}

func TestPrintJobRowsEmpty(t *testing.T) {
	out := captureStdout(t, func() error {
		return printJobRows(os.Stdout, nil)
	})
	require.Contains(t, out, "no jobs found")
}

func TestParseJobsListFlagsValidation(t *testing.T) {
	_, err := parseJobsListFlags([]string{"-status", "sleeping"})
	require.Error(t, err)

	_, err = parseJobsListFlags([]string{"-limit", "0"})
	require.Error(t, err)

	opts, err := parseJobsListFlags([]string{"-status", "failed", "-type", "improve", "-limit", "10"})
	require.NoError(t, err)
	require.Equal(t, "failed", opts.Status)
	require.Equal(t, "improve", opts.Type)
	require.Equal(t, 10, opts.Limit)
}

func TestParseClearJobCacheFlags(t *testing.T) {
	_, err := parseClearJobCacheFlags(nil)
	require.Error(t, err)

	_, err = parseClearJobCacheFlags([]string{"-all", "-job-id", "abc"})
	require.Error(t, err)

	opts, err := parseClearJobCacheFlags([]string{"-all", "-dry-run"})
	require.NoError(t, err)
	require.True(t, opts.All)
	require.True(t, opts.DryRun)
}
