package fetcher

import (
	"net/http"
	"time"

	"github.com/DRSN-tech/shop-backend/pkg/logger"
)

// NewHTTPClient создаёт именованный клиент с логированием исходящих запросов.
func NewHTTPClient(name string, timeout time.Duration, log logger.Logger) *http.Client {
	return &http.Client{
		Timeout: timeout,
		Transport: &loggingTransport{
			RoundTripper: http.DefaultTransport,
			name:         name,
			logger:       log,
		},
	}
}

type loggingTransport struct {
	http.RoundTripper
	name   string
	logger logger.Logger
}

func (t *loggingTransport) RoundTrip(r *http.Request) (*http.Response, error) {
	start := time.Now()

	resp, err := t.RoundTripper.RoundTrip(r)
	duration := time.Since(start)

	if err != nil {
		t.logger.Warnf("http_client=%s method=%s url=%s outcome=error duration_ms=%d error=%v",
			t.name, r.Method, r.URL.Redacted(), duration.Milliseconds(), err)
		return nil, err
	}

	t.logger.Debugf("http_client=%s method=%s url=%s status=%d duration_ms=%d",
		t.name, r.Method, r.URL.Redacted(), resp.StatusCode, duration.Milliseconds())

	return resp, nil
}
