package polymarket

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/alanyoungcy/polyarb/internal/domain"
)

// DefaultTimeout bounds every request made by the Gamma and CLOB clients.
const DefaultTimeout = 30 * time.Second

// Limiter throttles outbound requests sharing a key. domain.RateLimiter
// satisfies it.
type Limiter interface {
	Wait(ctx context.Context, key string) error
}

// Option customises a Gamma or CLOB client.
type Option func(*restClient)

// WithHTTPClient replaces the default *http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(r *restClient) {
		if hc != nil {
			r.httpClient = hc
		}
	}
}

// WithTimeout sets the per-request timeout of the default client.
func WithTimeout(d time.Duration) Option {
	return func(r *restClient) {
		if d > 0 {
			r.httpClient.Timeout = d
		}
	}
}

// WithLimiter makes every request wait on the limiter first.
func WithLimiter(l Limiter, key string) Option {
	return func(r *restClient) {
		r.limiter = l
		r.limiterKey = key
	}
}

// restClient is the unauthenticated JSON GET transport shared by both APIs.
type restClient struct {
	baseURL    string
	httpClient *http.Client
	limiter    Limiter
	limiterKey string
}

func newRestClient(baseURL, defaultKey string, opts []Option) restClient {
	r := restClient{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: DefaultTimeout},
		limiterKey: defaultKey,
	}
	for _, opt := range opts {
		opt(&r)
	}
	return r
}

// doGet sends a GET request and returns the body of a 2xx response.
func (r *restClient) doGet(ctx context.Context, path string) ([]byte, error) {
	if r.limiter != nil {
		if err := r.limiter.Wait(ctx, r.limiterKey); err != nil {
			return nil, fmt.Errorf("rate limit: %w", err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if err := checkHTTPStatus(resp.StatusCode, body); err != nil {
		return nil, err
	}

	return body, nil
}

// checkHTTPStatus maps non-2xx status codes to domain errors.
func checkHTTPStatus(statusCode int, body []byte) error {
	if statusCode >= 200 && statusCode < 300 {
		return nil
	}

	bodyStr := string(body)
	if len(bodyStr) > 256 {
		bodyStr = bodyStr[:256]
	}
	switch statusCode {
	case http.StatusNotFound:
		return fmt.Errorf("%w: %s", domain.ErrNotFound, bodyStr)
	case http.StatusUnauthorized, http.StatusForbidden:
		return fmt.Errorf("%w: %s", domain.ErrUnauthorized, bodyStr)
	case http.StatusTooManyRequests:
		return fmt.Errorf("%w: %s", domain.ErrRateLimited, bodyStr)
	default:
		return fmt.Errorf("HTTP %d: %s", statusCode, bodyStr)
	}
}
