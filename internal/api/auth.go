package api

import (
	"context"
	"strings"
	"time"

	"consultbook/internal/auth"
	"consultbook/internal/models"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/peer"
	"google.golang.org/grpc/status"
)

const (
	authorizationMetadataKey = "authorization"
	requestIDMetadataKey     = "x-request-id"
	clientKeyUnknown         = "unknown"
)

// AuthInterceptor verifies bearer tokens and applies per-client rate limits.
type AuthInterceptor struct {
	issuer  *auth.Issuer
	limiter *rateLimiter
}

func NewAuthInterceptor(issuer *auth.Issuer, limiter *rateLimiter) *AuthInterceptor {
	return &AuthInterceptor{issuer: issuer, limiter: limiter}
}

func (a *AuthInterceptor) Unary() grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		if isInfraMethod(info.FullMethod) {
			return handler(ctx, req)
		}

		actor, err := a.checkAuth(ctx)
		if err != nil {
			return nil, err
		}
		ctx = auth.WithActor(ctx, actor)

		if !a.limiter.allow("actor:" + actor.ID) {
			return nil, status.Error(codes.ResourceExhausted, "rate limit exceeded")
		}

		return handler(ctx, req)
	}
}

// isInfraMethod reports health and reflection calls, which need no session.
func isInfraMethod(fullMethod string) bool {
	return strings.HasPrefix(fullMethod, "/grpc.health.v1.") || strings.HasPrefix(fullMethod, "/grpc.reflection.")
}

func (a *AuthInterceptor) checkAuth(ctx context.Context) (actor models.Actor, err error) {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return actor, status.Error(codes.Unauthenticated, "missing metadata")
	}

	raw, err := auth.BearerToken(first(md.Get(authorizationMetadataKey)))
	if err != nil {
		return actor, status.Error(codes.Unauthenticated, err.Error())
	}

	actor, err = a.issuer.Verify(raw)
	if err != nil {
		return actor, status.Error(codes.Unauthenticated, auth.ErrInvalidToken.Error())
	}
	return actor, nil
}

func first(vals []string) string {
	if len(vals) == 0 {
		return ""
	}
	return strings.TrimSpace(vals[0])
}

func LoggingUnaryInterceptor(logger *zerolog.Logger) grpc.UnaryServerInterceptor {
	base := zerolog.Nop()
	if logger != nil {
		base = logger.With().Str("component", "grpc").Logger()
	}

	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		requestID := requestIDFromMetadata(ctx)
		_ = grpc.SetHeader(ctx, metadata.Pairs(requestIDMetadataKey, requestID))

		start := time.Now()
		resp, err := handler(ctx, req)
		dur := time.Since(start)

		code := codes.OK
		if err != nil {
			code = status.Code(err)
		}

		remote := clientKeyUnknown
		if p, ok := peer.FromContext(ctx); ok && p.Addr != nil {
			remote = p.Addr.String()
		}

		base.Info().
			Str("request_id", requestID).
			Str("method", info.FullMethod).
			Str("remote", remote).
			Str("code", code.String()).
			Dur("duration", dur).
			Msg("grpc request")

		return resp, err
	}
}

func requestIDFromMetadata(ctx context.Context) string {
	md, ok := metadata.FromIncomingContext(ctx)
	if ok {
		if vals := md.Get(requestIDMetadataKey); len(vals) > 0 {
			if id := strings.TrimSpace(vals[0]); id != "" {
				return id
			}
		}
	}
	return uuid.NewString()
}
