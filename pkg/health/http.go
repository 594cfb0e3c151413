package health

import (
	"context"
	"fmt"
	"net/http"
	"time"
)

// HTTPChecker performs a single HTTP-based health check against a
// workspace service endpoint (editor, desktop, or web).
type HTTPChecker struct {
	// URL is the full HTTP URL to check (e.g., "http://host/editor/{id}").
	URL string

	// Method is the HTTP method to use.
	Method string

	// ExpectedStatusMin and ExpectedStatusMax bound the acceptable status
	// code range, inclusive.
	ExpectedStatusMin int
	ExpectedStatusMax int

	// Client is the HTTP client to use, shared across checks by the Monitor.
	Client *http.Client
}

// Check performs the HTTP health check.
func (h *HTTPChecker) Check(ctx context.Context) Result {
	start := time.Now()

	req, err := http.NewRequestWithContext(ctx, h.Method, h.URL, nil)
	if err != nil {
		return Result{
			Healthy:   false,
			Message:   fmt.Sprintf("failed to create request: %v", err),
			CheckedAt: start,
			Duration:  time.Since(start),
		}
	}

	resp, err := h.Client.Do(req)
	if err != nil {
		return Result{
			Healthy:   false,
			Message:   fmt.Sprintf("request failed: %v", err),
			CheckedAt: start,
			Duration:  time.Since(start),
		}
	}
	defer resp.Body.Close()

	healthy := resp.StatusCode >= h.ExpectedStatusMin && resp.StatusCode <= h.ExpectedStatusMax

	message := fmt.Sprintf("HTTP %d %s", resp.StatusCode, http.StatusText(resp.StatusCode))
	if !healthy {
		message = fmt.Sprintf("%s (expected %d-%d)", message, h.ExpectedStatusMin, h.ExpectedStatusMax)
	}

	return Result{
		Healthy:   healthy,
		Message:   message,
		CheckedAt: start,
		Duration:  time.Since(start),
	}
}
