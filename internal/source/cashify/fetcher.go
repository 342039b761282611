package cashify

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/url"
	"time"

	"price_tracker/internal/domain"
)

// Config holds fetcher configuration.
type Config struct {
	Timeout   time.Duration
	UserAgent string
}

// Fetcher retrieves raw product pages. It does not retry; retry and
// backoff belong to the sweep so failure accounting stays in one
// place.
type Fetcher struct {
	httpClient *http.Client
	userAgent  string
}

func NewFetcher(cfg Config) *Fetcher {
	return &Fetcher{
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		userAgent: cfg.UserAgent,
	}
}

// Fetch returns the raw markup for productURL or a *domain.FetchError.
func (f *Fetcher) Fetch(ctx context.Context, productURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, productURL, nil)
	if err != nil {
		return nil, &domain.FetchError{Kind: domain.FetchNetwork, URL: productURL, Err: err}
	}

	// Browser identity, the site filters obvious bots.
	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, &domain.FetchError{Kind: classifyFetchErr(err), URL: productURL, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &domain.FetchError{Kind: domain.FetchBadStatus, URL: productURL, StatusCode: resp.StatusCode}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &domain.FetchError{Kind: classifyFetchErr(err), URL: productURL, Err: err}
	}

	return body, nil
}

func classifyFetchErr(err error) domain.FetchErrorKind {
	if errors.Is(err, context.DeadlineExceeded) {
		return domain.FetchTimeout
	}
	var urlErr *url.Error
	if errors.As(err, &urlErr) && urlErr.Timeout() {
		return domain.FetchTimeout
	}
	return domain.FetchNetwork
}
