package rpc

import (
	"context"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	authv1 "github.com/microgate/platform/api/gen/go/auth/v1"
	"github.com/microgate/platform/internal/api/metrics"
	"github.com/microgate/platform/internal/core/domain"
)

const (
	callTimeout  = 3 * time.Second
	retryBackoff = 100 * time.Millisecond
)

// Client is a pooled gRPC client for the token validator. One Client (one
// underlying connection) serves a whole process; each validation is exactly
// one RPC, retried at most once on transport failure.
type Client struct {
	conn *grpc.ClientConn
	svc  authv1.AuthServiceClient
}

// Dial creates a client with sensible defaults (insecure transport, as the
// validator listens on an internal plaintext port).
func Dial(ctx context.Context, target string, opts ...grpc.DialOption) (*Client, error) {
	if len(opts) == 0 {
		opts = append(opts, grpc.WithTransportCredentials(insecure.NewCredentials()))
	}
	conn, err := grpc.DialContext(ctx, target, opts...)
	if err != nil {
		return nil, err
	}
	return &Client{conn: conn, svc: authv1.NewAuthServiceClient(conn)}, nil
}

// NewClient wraps an existing connection; used by tests with bufconn.
func NewClient(conn *grpc.ClientConn) *Client {
	return &Client{conn: conn, svc: authv1.NewAuthServiceClient(conn)}
}

// Close closes the underlying connection.
func (c *Client) Close() error {
	if c == nil || c.conn == nil {
		return nil
	}
	return c.conn.Close()
}

// ValidateToken calls the remote validator. Transport failures (unreachable,
// timeout) are retried once with a short backoff, then surfaced as
// ErrAuthBackendUnavailable so callers can distinguish an auth outage from a
// bad token. Credential rejections are never retried: they arrive as a
// verdict, not an error.
func (c *Client) ValidateToken(ctx context.Context, token string) (domain.Verdict, error) {
	start := time.Now()
	defer func() {
		metrics.ValidationRPCDuration.Observe(time.Since(start).Seconds())
	}()

	resp, err := c.call(ctx, token)
	if err != nil {
		select {
		case <-ctx.Done():
			metrics.ValidationRPCFailuresTotal.Inc()
			return domain.Verdict{}, domain.ErrAuthBackendUnavailable
		case <-time.After(retryBackoff):
		}
		resp, err = c.call(ctx, token)
	}
	if err != nil {
		metrics.ValidationRPCFailuresTotal.Inc()
		return domain.Verdict{}, domain.ErrAuthBackendUnavailable
	}

	return domain.Verdict{
		Valid:    resp.GetValid(),
		Username: resp.GetUsername(),
		Role:     resp.GetRole(),
		Error:    resp.GetError(),
	}, nil
}

func (c *Client) call(ctx context.Context, token string) (*authv1.ValidateTokenResponse, error) {
	callCtx, cancel := context.WithTimeout(ctx, callTimeout)
	defer cancel()
	return c.svc.ValidateToken(callCtx, &authv1.ValidateTokenRequest{Token: token})
}
