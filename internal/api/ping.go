package api

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// Ping checks that a TaskMaster API answers at baseURL. It sends an
// unauthenticated GET /auth/me; any response below 500 (normally 401)
// means the server is reachable.
func Ping(ctx context.Context, baseURL string, timeout time.Duration) error {
	target := strings.TrimRight(baseURL, "/") + "/auth/me"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	hc := &http.Client{Timeout: timeout}
	resp, err := hc.Do(req)
	if err != nil {
		return fmt.Errorf("contacting %s: %w", baseURL, err)
	}
	resp.Body.Close()

	if resp.StatusCode >= http.StatusInternalServerError {
		return &APIError{StatusCode: resp.StatusCode, Method: http.MethodGet, Path: "/auth/me"}
	}
	return nil
}
