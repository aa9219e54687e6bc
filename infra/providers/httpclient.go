// Package providers contains the HTTP clients behind the engine's provider
// contracts: Calendarific for holidays, WorldTime for timezones and Geoapify
// for routing. Every call retries transient failures with exponential backoff
// and jitter, treats HTTP 4xx as permanent, and reports its outcome to the
// metrics sink.
package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/codeGROOVE-dev/retry"

	"github.com/kilianp07/fieldsched/core/metrics"
)

const (
	defaultTimeout  = 10 * time.Second
	defaultAttempts = 3
	baseDelay       = 200 * time.Millisecond
	maxDelay        = 2 * time.Second
)

// client wraps an http.Client with the shared retry and metrics policy.
type client struct {
	http       *http.Client
	attempts   uint
	capability string
	provider   string
	rec        metrics.ProviderCallRecorder
}

func newClient(timeout time.Duration, attempts uint, capability, provider string, rec metrics.ProviderCallRecorder) client {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	if attempts == 0 {
		attempts = defaultAttempts
	}
	return client{
		http:       &http.Client{Timeout: timeout},
		attempts:   attempts,
		capability: capability,
		provider:   provider,
		rec:        rec,
	}
}

// getJSON fetches url and decodes the body into out. Responses with a 4xx
// status abort the retry loop: the request will not get better by repeating
// it.
func (c client) getJSON(ctx context.Context, url string, out any) error {
	return c.do(ctx, func() (*http.Request, error) {
		return http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	}, out)
}

// postJSON sends body as JSON to url and decodes the response into out.
func (c client) postJSON(ctx context.Context, url string, body []byte, out any) error {
	return c.do(ctx, func() (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		return req, nil
	}, out)
}

func (c client) do(ctx context.Context, build func() (*http.Request, error), out any) error {
	started := time.Now()
	err := retry.Do(
		func() error {
			req, err := build()
			if err != nil {
				return retry.Unrecoverable(err)
			}
			resp, err := c.http.Do(req)
			if err != nil {
				return err
			}
			defer resp.Body.Close()

			switch {
			case resp.StatusCode >= 500:
				return fmt.Errorf("%s: server error %d", c.provider, resp.StatusCode)
			case resp.StatusCode >= 400:
				return retry.Unrecoverable(fmt.Errorf("%s: request rejected with %d", c.provider, resp.StatusCode))
			}

			body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
			if err != nil {
				return err
			}
			if err := json.Unmarshal(body, out); err != nil {
				return retry.Unrecoverable(fmt.Errorf("%s: decode response: %w", c.provider, err))
			}
			return nil
		},
		retry.Context(ctx),
		retry.Attempts(c.attempts),
		retry.Delay(baseDelay),
		retry.MaxDelay(maxDelay),
		retry.DelayType(retry.CombineDelay(retry.BackOffDelay, retry.RandomDelay)),
		retry.LastErrorOnly(true),
	)

	if c.rec != nil {
		_ = c.rec.RecordProviderCall(metrics.ProviderCallRecord{
			Capability: c.capability,
			Provider:   c.provider,
			Success:    err == nil,
			Latency:    time.Since(started),
			Time:       started,
		})
	}
	return err
}
