package analyzer

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/craftcv/craftcv-api/config"
	apperrors "github.com/craftcv/craftcv-api/internal/errors"
)

func newTestFetcher() *Fetcher {
	return NewFetcher(config.FetcherConfig{
		MaxBodyBytes: 1024,
		UserAgent:    "craftcv-test/1.0",
	}, nil)
}

func TestFetcherFetch(t *testing.T) {
	var gotUserAgent string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUserAgent = r.Header.Get("User-Agent")
		_, _ = w.Write([]byte("  Jane Smith\nExecutive Assistant  "))
	}))
	defer server.Close()

	text, err := newTestFetcher().Fetch(context.Background(), server.URL)
	require.NoError(t, err)
	assert.Equal(t, "Jane Smith\nExecutive Assistant", text)
	assert.Equal(t, "craftcv-test/1.0", gotUserAgent)
}

func TestFetcherStatusClassification(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		transient bool
	}{
		{"server error retries", http.StatusInternalServerError, true},
		{"rate limit retries", http.StatusTooManyRequests, true},
		{"not found is permanent", http.StatusNotFound, false},
		{"forbidden is permanent", http.StatusForbidden, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
			}))
			defer server.Close()

			_, err := newTestFetcher().Fetch(context.Background(), server.URL)
			require.Error(t, err)
			assert.Equal(t, tt.transient, apperrors.IsTransient(err))
			assert.Equal(t, !tt.transient, apperrors.IsPermanent(err))
		})
	}
}

func TestFetcherRejectsBadURLs(t *testing.T) {
	f := newTestFetcher()

	for _, rawURL := range []string{
		"",
		"not a url",
		"ftp://example.com/resume.txt",
		"/relative/path",
		"http://localhost/resume.txt",
	} {
		_, err := f.Fetch(context.Background(), rawURL)
		require.Error(t, err, "url %q", rawURL)
		assert.True(t, apperrors.IsPermanent(err), "url %q", rawURL)
	}
}

func TestFetcherBodyLimits(t *testing.T) {
	t.Run("oversize body", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(strings.Repeat("a", 2048)))
		}))
		defer server.Close()

		_, err := newTestFetcher().Fetch(context.Background(), server.URL)
		require.Error(t, err)
		assert.True(t, apperrors.IsPermanent(err))
		assert.Contains(t, err.Error(), "maximum size")
	})

	t.Run("empty body", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte("   \n  "))
		}))
		defer server.Close()

		_, err := newTestFetcher().Fetch(context.Background(), server.URL)
		require.Error(t, err)
		assert.True(t, apperrors.IsPermanent(err))
	})
}

func TestFetcherConnectionFailureIsTransient(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	_, err := newTestFetcher().Fetch(context.Background(), url)
	require.Error(t, err)
	assert.True(t, apperrors.IsTransient(err))
}
