package dispatch

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"time"
)

// Executor performs exactly one network call. Retry policy lives entirely
// in the failover controller.
type Executor interface {
	Execute(ctx context.Context, url string, headers map[string]string, body []byte, timeout time.Duration) RawOutcome
}

type HTTPExecutor struct {
	client *http.Client
}

func NewHTTPExecutor() *HTTPExecutor {
	// Timeouts are applied per call via context; the client itself stays
	// unbounded so a config change never requires a new client.
	return &HTTPExecutor{client: &http.Client{}}
}

// Execute posts the body once and reports the raw outcome verbatim.
func (e *HTTPExecutor) Execute(ctx context.Context, url string, headers map[string]string, body []byte, timeout time.Duration) RawOutcome {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return RawOutcome{NetworkErr: err}
	}

	for key, value := range headers {
		req.Header.Set(key, value)
	}

	resp, err := e.client.Do(req)
	if err != nil {
		return RawOutcome{NetworkErr: err}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return RawOutcome{NetworkErr: err}
	}

	return RawOutcome{StatusCode: resp.StatusCode, Body: respBody}
}
