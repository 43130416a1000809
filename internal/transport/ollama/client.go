// Package ollama adapts a local Ollama server to the embedding and completion contracts.
package ollama

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"github.com/ollama/ollama/api"
)

// NewClient creates an Ollama API client for host (e.g. http://localhost:11434).
func NewClient(host string) (*api.Client, error) {
	u, err := url.Parse(host)
	if err != nil {
		return nil, fmt.Errorf("parse ollama host %q: %w", host, err)
	}
	return api.NewClient(u, &http.Client{}), nil
}

// healthCheck pings the server root.
func healthCheck(ctx context.Context, client *api.Client) error {
	if err := client.Heartbeat(ctx); err != nil {
		return fmt.Errorf("ollama heartbeat: %w", err)
	}
	return nil
}

// parseAPIError wraps an Ollama failure with the provider sentinel.
func parseAPIError(kind string, err error, sentinel error) error {
	var statusErr api.StatusError
	if errors.As(err, &statusErr) {
		msg := statusErr.ErrorMessage
		if msg == "" {
			msg = statusErr.Status
		}
		return fmt.Errorf("ollama %s error %d: %s: %w", kind, statusErr.StatusCode, msg, sentinel)
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("ollama %s request timed out: %w: %w", kind, sentinel, context.DeadlineExceeded)
	}
	return fmt.Errorf("ollama %s request failed: %v: %w", kind, err, sentinel)
}
