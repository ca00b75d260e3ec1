package dispatch

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/jdziat/resumable-jobs/pkg/core"
)

// TokenHeader carries the shared secret authenticating a continuation.
const TokenHeader = "X-Dispatch-Token"

// DefaultRequestTimeout bounds a single delivery attempt.
const DefaultRequestTimeout = 5 * time.Second

// HTTPOption configures an HTTPDispatcher.
type HTTPOption func(*HTTPDispatcher)

// WithHTTPClient sets the client used for delivery.
func WithHTTPClient(c *http.Client) HTTPOption {
	return func(d *HTTPDispatcher) { d.client = c }
}

// WithRetry sets the delivery retry policy.
func WithRetry(cfg RetryConfig) HTTPOption {
	return func(d *HTTPDispatcher) { d.retry = cfg }
}

// WithLogger sets a custom logger.
func WithLogger(l *slog.Logger) HTTPOption {
	return func(d *HTTPDispatcher) { d.logger = l }
}

// HTTPDispatcher fires a self-addressed POST that triggers an invocation on
// whichever instance serves url. Delivery happens in the background with
// retries; a continuation that is never delivered is recovered by the
// health check.
type HTTPDispatcher struct {
	url    string
	token  string
	client *http.Client
	retry  RetryConfig
	logger *slog.Logger
	wg     sync.WaitGroup
}

var _ core.Dispatcher = (*HTTPDispatcher)(nil)

// NewHTTP creates a dispatcher posting to url with the shared token.
func NewHTTP(url, token string, opts ...HTTPOption) *HTTPDispatcher {
	d := &HTTPDispatcher{
		url:    url,
		token:  token,
		client: &http.Client{Timeout: DefaultRequestTimeout},
		retry:  DefaultRetryConfig(),
		logger: slog.Default(),
	}
	for _, o := range opts {
		o(d)
	}
	return d
}

// Dispatch starts delivery and returns immediately.
func (d *HTTPDispatcher) Dispatch(ctx context.Context) error {
	sendCtx := context.WithoutCancel(ctx)
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		err := retryWithBackoff(sendCtx, d.retry, func() error {
			return d.post(sendCtx)
		})
		if err != nil {
			d.logger.Warn("continuation not delivered", "url", d.url, "error", err)
		}
	}()
	return nil
}

// Wait blocks until in-flight deliveries have finished.
func (d *HTTPDispatcher) Wait() {
	d.wg.Wait()
}

func (d *HTTPDispatcher) post(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.url, http.NoBody)
	if err != nil {
		return permanent(err)
	}
	req.Header.Set(TokenHeader, d.token)

	resp, err := d.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode < 300:
		return nil
	case resp.StatusCode >= 500:
		return fmt.Errorf("jobs: continuation rejected: %s", resp.Status)
	default:
		return permanent(fmt.Errorf("jobs: continuation rejected: %s", resp.Status))
	}
}
