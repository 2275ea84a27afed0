package adapters

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cordlesssteve/topolop/internal/model"
)

const httpMaxRetries = 3

// getJSON performs one authenticated GET against a vendor API: the local
// request window is charged first, then the call retries on transient
// failures. Auth and vendor rate-limit responses map onto fabric error kinds
// so the harness can record them without string matching.
func getJSON(ctx context.Context, client *http.Client, tool, url string, headers map[string]string, window *requestWindow) ([]byte, error) {
	var body []byte
	err := retry(ctx, httpMaxRetries, time.Second, func() error {
		if err := window.Allow(); err != nil {
			return err
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return err
		}
		req.Header.Set("Accept", "application/json")
		for k, v := range headers {
			req.Header.Set(k, v)
		}
		resp, err := client.Do(req)
		if err != nil {
			return model.NewError(model.KindUnavailable, tool, "request failed", err)
		}
		defer resp.Body.Close()

		switch {
		case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
			return model.AuthFailed(tool, fmt.Errorf("status %d", resp.StatusCode))
		case resp.StatusCode == http.StatusTooManyRequests:
			return model.RateLimited(tool, "vendor returned 429")
		case resp.StatusCode >= 300:
			return model.NewError(model.KindUnavailable, tool, fmt.Sprintf("status %d", resp.StatusCode), nil)
		}
		body, err = io.ReadAll(resp.Body)
		return err
	})
	return body, err
}
