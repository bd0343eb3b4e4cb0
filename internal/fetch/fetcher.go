package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/jonesrussell/crawlsched/internal/apperr"
)

// Fetcher retrieves the raw body for a URL. cmd/fetcher and cmd/discovery
// each provide a concrete implementation so this package stays free of any
// particular HTTP client choice.
type Fetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// DefaultHTTPTimeout bounds a single outbound fetch, per the discovery
// worker's 3s outbound HTTP budget.
const DefaultHTTPTimeout = 3 * time.Second

// HTTPFetcher is a plain net/http GET implementation of Fetcher, shared by
// cmd/fetcher and cmd/discovery.
type HTTPFetcher struct {
	client *http.Client
}

// NewHTTPFetcher constructs an HTTPFetcher with DefaultHTTPTimeout.
func NewHTTPFetcher() *HTTPFetcher {
	return NewHTTPFetcherWithTimeout(DefaultHTTPTimeout)
}

// NewHTTPFetcherWithTimeout constructs an HTTPFetcher with an explicit
// per-request timeout, for binaries that source it from configuration.
func NewHTTPFetcherWithTimeout(timeout time.Duration) *HTTPFetcher {
	return &HTTPFetcher{client: &http.Client{Timeout: timeout}}
}

// Fetch performs a GET request and returns the response body, mapping
// transport and status failures onto the apperr error taxonomy.
func (f *HTTPFetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, apperr.BadRequest(fmt.Sprintf("invalid url %q", url))
	}

	resp, err := f.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, apperr.Timeout(fmt.Sprintf("fetch %q timed out", url))
		}
		return nil, apperr.ServiceUnavailable(fmt.Sprintf("fetch %q: %v", url, err))
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusInternalServerError {
		return nil, apperr.BadGateway(fmt.Sprintf("fetch %q: upstream status %d", url, resp.StatusCode))
	}
	if resp.StatusCode >= http.StatusBadRequest {
		return nil, apperr.BadRequest(fmt.Sprintf("fetch %q: upstream status %d", url, resp.StatusCode))
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, apperr.Internal(fmt.Sprintf("read body from %q", url), err)
	}
	return body, nil
}
