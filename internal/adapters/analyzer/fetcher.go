package analyzer

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"golang.org/x/net/publicsuffix"

	"github.com/craftcv/craftcv-api/config"
	apperrors "github.com/craftcv/craftcv-api/internal/errors"
)

// Fetcher downloads resume documents over HTTP. Single-label hosts without a
// registrable public suffix (localhost, bare internal names) are rejected
// before any request goes out.
type Fetcher struct {
	client    *http.Client
	maxBody   int64
	userAgent string
	logger    *slog.Logger
}

// NewFetcher constructs a fetcher from config.
func NewFetcher(cfg config.FetcherConfig, logger *slog.Logger) *Fetcher {
	cfg.Sanitize()
	if logger == nil {
		logger = slog.Default()
	}
	return &Fetcher{
		client:    &http.Client{Timeout: cfg.Timeout},
		maxBody:   cfg.MaxBodyBytes,
		userAgent: cfg.UserAgent,
		logger:    logger,
	}
}

// Fetch downloads the document at rawURL and returns its body as text.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return "", apperrors.Permanentf("resume url %q is not an absolute http(s) URL", rawURL)
	}
	if err := checkHost(u.Hostname()); err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", apperrors.Wrap(err, apperrors.ErrCodePermanent, "create fetch request")
	}
	req.Header.Set("User-Agent", f.userAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		// Network failures and client timeouts may clear on retry.
		return "", apperrors.Wrap(err, apperrors.ErrCodeTransient, "fetch resume")
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", classifyFetchStatus(resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBody+1))
	if err != nil {
		return "", apperrors.Wrap(err, apperrors.ErrCodeTransient, "read resume body")
	}
	if int64(len(body)) > f.maxBody {
		return "", apperrors.Permanentf("resume exceeds maximum size of %d bytes", f.maxBody)
	}

	text := strings.TrimSpace(string(body))
	if text == "" {
		return "", apperrors.Permanent("fetched resume is empty")
	}

	f.logger.DebugContext(ctx, "fetched resume", "url", rawURL, "bytes", len(body))
	return text, nil
}

// checkHost requires the host to carry a registrable public suffix.
func checkHost(host string) error {
	host = strings.ToLower(strings.TrimSpace(host))
	if host == "" {
		return apperrors.Permanent("resume url has no host")
	}
	if _, err := publicsuffix.EffectiveTLDPlusOne(host); err != nil {
		return apperrors.Permanentf("resume url host %q has no registrable public suffix", host)
	}
	return nil
}

func classifyFetchStatus(status int) error {
	msg := fmt.Sprintf("resume fetch returned %d", status)
	if status == http.StatusTooManyRequests || status >= 500 {
		return apperrors.Transient(msg)
	}
	return apperrors.Permanent(msg)
}
