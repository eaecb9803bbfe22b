// Package clients holds the synchronous HTTP adapters for the downstream
// capabilities. Every call goes through a bounded request timeout and a
// per-capability circuit breaker; the orchestrator itself never retries.
package clients

import (
	"time"

	"github.com/go-resty/resty/v2"
	"order-fulfillment/internal/config"
)

// DefaultTimeout is the per-request timeout applied to every capability call.
const DefaultTimeout = 3 * time.Second

// newHTTPClient builds a resty client with the configured timeout and no
// automatic retries; retry policy belongs to the broker side of the system.
func newHTTPClient(cfg config.ServicesConfig) *resty.Client {
	timeout := DefaultTimeout
	if cfg.TimeoutSeconds > 0 {
		timeout = time.Duration(cfg.TimeoutSeconds) * time.Second
	}
	return resty.New().
		SetTimeout(timeout).
		SetRetryCount(0).
		SetHeader("Content-Type", "application/json")
}
