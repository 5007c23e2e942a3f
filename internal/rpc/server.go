// Package rpc carries the internal ValidateToken contract: the gRPC server
// exposed by the auth service and the pooled client used by every other
// service. Only the auth service holds verification authority for
// cross-service calls; everyone else delegates through this channel.
package rpc

import (
	"context"
	"fmt"
	"net"

	"github.com/rs/zerolog"
	"google.golang.org/grpc"

	authv1 "github.com/microgate/platform/api/gen/go/auth/v1"
	"github.com/microgate/platform/internal/core/ports"
)

// Server exposes the token validator over gRPC.
type Server struct {
	authv1.UnimplementedAuthServiceServer

	validator ports.TokenValidator
	log       zerolog.Logger
}

func NewServer(validator ports.TokenValidator, log zerolog.Logger) *Server {
	return &Server{validator: validator, log: log}
}

// ValidateToken verifies the request token and returns a verdict. Invalid
// tokens are a response payload with valid=false; transport-level errors are
// reserved for the validator's own backend failing.
func (s *Server) ValidateToken(ctx context.Context, req *authv1.ValidateTokenRequest) (*authv1.ValidateTokenResponse, error) {
	verdict, err := s.validator.ValidateToken(ctx, req.GetToken())
	if err != nil {
		s.log.Error().Err(err).Msg("token validation backend failure")
		return nil, err
	}
	return &authv1.ValidateTokenResponse{
		Valid:    verdict.Valid,
		Username: verdict.Username,
		Role:     verdict.Role,
		Error:    verdict.Error,
	}, nil
}

// Serve registers the server and blocks serving on addr until ctx is
// cancelled, then stops gracefully.
func (s *Server) Serve(ctx context.Context, addr string) error {
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("rpc listen %s: %w", addr, err)
	}

	grpcServer := grpc.NewServer()
	authv1.RegisterAuthServiceServer(grpcServer, s)

	go func() {
		<-ctx.Done()
		grpcServer.GracefulStop()
	}()

	s.log.Info().Str("addr", addr).Msg("token validator RPC listening")
	return grpcServer.Serve(lis)
}
