// Package gateway implements the externally-facing API gateway: it
// authenticates callers with a local decode, re-mints a short-lived internal
// token, and forwards the request to the owning downstream service.
package gateway

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/rs/zerolog"

	"github.com/microgate/platform/internal/api/metrics"
	"github.com/microgate/platform/internal/core/domain"
	"github.com/microgate/platform/internal/token"
)

const (
	forwardTimeout = 15 * time.Second
	retryBackoff   = 100 * time.Millisecond
)

// Result is a downstream response: on non-2xx the status and body are
// propagated verbatim to the caller.
type Result struct {
	Status      int
	ContentType string
	Body        []byte
}

// Forwarder issues downstream calls on behalf of authenticated callers.
type Forwarder struct {
	client *http.Client
	codec  *token.Codec
	log    zerolog.Logger
}

func NewForwarder(codec *token.Codec, log zerolog.Logger) *Forwarder {
	return &Forwarder{
		client: &http.Client{Timeout: forwardTimeout},
		codec:  codec,
		log:    log,
	}
}

// Forward re-signs a token for the authenticated claims, attaches it as a
// bearer credential and issues the downstream call. The re-minted token's
// expiry never exceeds the original token's, so forwarding cannot widen the
// caller's trust window. Transport failures are retried once with a short
// backoff, then surfaced as ErrUpstreamUnavailable.
func (f *Forwarder) Forward(ctx context.Context, service string, cl token.Claims, method, rawURL string, query url.Values, body []byte, contentType string) (*Result, error) {
	signed, err := f.codec.Remint(cl)
	if err != nil {
		return nil, err
	}
	return f.send(ctx, service, signed, method, rawURL, query, body, contentType)
}

// ForwardAnonymous issues a downstream call without credentials; used for the
// register/login pass-through where the caller has no token yet.
func (f *Forwarder) ForwardAnonymous(ctx context.Context, service, method, rawURL string, query url.Values, body []byte, contentType string) (*Result, error) {
	return f.send(ctx, service, "", method, rawURL, query, body, contentType)
}

func (f *Forwarder) send(ctx context.Context, service, bearer, method, rawURL string, query url.Values, body []byte, contentType string) (*Result, error) {
	start := time.Now()
	defer func() {
		metrics.ForwardDuration.WithLabelValues(service).Observe(time.Since(start).Seconds())
	}()

	res, err := f.do(ctx, method, rawURL, query, body, contentType, bearer)
	if err != nil {
		select {
		case <-ctx.Done():
			metrics.ForwardsTotal.WithLabelValues(service, "unavailable").Inc()
			return nil, domain.ErrUpstreamUnavailable
		case <-time.After(retryBackoff):
		}
		res, err = f.do(ctx, method, rawURL, query, body, contentType, bearer)
	}
	if err != nil {
		f.log.Error().Err(err).Str("service", service).Str("url", rawURL).Msg("downstream unreachable")
		metrics.ForwardsTotal.WithLabelValues(service, "unavailable").Inc()
		return nil, domain.ErrUpstreamUnavailable
	}

	if res.Status >= 200 && res.Status < 300 {
		metrics.ForwardsTotal.WithLabelValues(service, "ok").Inc()
	} else {
		metrics.ForwardsTotal.WithLabelValues(service, "downstream_error").Inc()
	}
	return res, nil
}

func (f *Forwarder) do(ctx context.Context, method, rawURL string, query url.Values, body []byte, contentType, bearer string) (*Result, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, rawURL, reader)
	if err != nil {
		return nil, err
	}
	if len(query) > 0 {
		req.URL.RawQuery = query.Encode()
	}
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	return &Result{
		Status:      resp.StatusCode,
		ContentType: resp.Header.Get("Content-Type"),
		Body:        payload,
	}, nil
}
