package probe

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/pkg/errors"
)

const defaultProbeTimeout = 500 * time.Millisecond

type httpChecker struct {
	url    string
	client *http.Client
}

func newHTTPChecker(t Target) (*httpChecker, error) {
	url := t.URL
	if url == "" {
		url = t.Address
	}
	if url == "" {
		return nil, errors.New("http probe missing url")
	}
	return &httpChecker{
		url:    url,
		client: &http.Client{Timeout: probeTimeout(t)},
	}, nil
}

func (c *httpChecker) Describe() string {
	return "http " + c.url
}

// Check treats any 2xx status as Ready. Services that answer 503 while
// warming up stay NotReady until they flip to 200.
func (c *httpChecker) Check(ctx context.Context) Result {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return notReady(err)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return notReady(err)
	}
	_ = resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return Result{Status: StatusReady, Reason: "status " + strconv.Itoa(resp.StatusCode)}
	}
	return Result{Status: StatusNotReady, Reason: "status " + strconv.Itoa(resp.StatusCode)}
}

func probeTimeout(t Target) time.Duration {
	if t.TimeoutMs > 0 {
		return time.Duration(t.TimeoutMs) * time.Millisecond
	}
	return defaultProbeTimeout
}
