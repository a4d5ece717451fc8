package server

import (
	"context"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"github.com/oggyb/matchmaker/internal/config"
	svcErr "github.com/oggyb/matchmaker/internal/errors"
	"github.com/oggyb/matchmaker/internal/logger"
	"github.com/oggyb/matchmaker/internal/session"
)

const (
	HeaderRequestID  = "x-request-id"
	HeaderAdminID    = "x-admin-id"
	HeaderAdminToken = "x-admin-token"
)

// RequestLogging tags each call with a request id (propagated from the caller or
// generated), stores a request-scoped logger in the context and logs the outcome.
func RequestLogging(base *slog.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		requestID := firstValue(ctx, HeaderRequestID)
		if requestID == "" {
			requestID = uuid.NewString()
		}
		_ = grpc.SetHeader(ctx, metadata.Pairs(HeaderRequestID, requestID))

		log := base.With("request_id", requestID, "method", info.FullMethod)
		ctx = logger.IntoContext(ctx, log)

		start := time.Now()
		resp, err := handler(ctx, req)
		code := status.Code(err)
		if err != nil {
			log.Warn("rpc failed", "code", code.String(), "duration", time.Since(start), "err", err)
		} else {
			log.Debug("rpc done", "code", code.String(), "duration", time.Since(start))
		}
		return resp, err
	}
}

// AdminAuth guards every method whose full name starts with one of prefixes.
// The caller must present an x-admin-id listed in config and an x-admin-token
// matching the configured bcrypt hash; the verified identity is attached as session.Admin.
func AdminAuth(cfg *config.Config, prefixes ...string) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		if !guarded(info.FullMethod, prefixes) {
			return handler(ctx, req)
		}

		adminID, err := strconv.ParseInt(firstValue(ctx, HeaderAdminID), 10, 64)
		if err != nil || adminID == 0 {
			return nil, svcErr.Unauthenticated("admin id required")
		}
		token := firstValue(ctx, HeaderAdminToken)
		if cfg.Admin.TokenHash == "" || token == "" ||
			bcrypt.CompareHashAndPassword([]byte(cfg.Admin.TokenHash), []byte(token)) != nil {
			return nil, svcErr.Unauthenticated("invalid admin token")
		}
		if !cfg.IsAdmin(adminID) {
			return nil, svcErr.PermissionDenied("not a moderator")
		}

		ctx = session.WithAdmin(ctx, session.Admin{ExternalID: adminID, Mode: true})
		ctx = logger.WithModerator(ctx, nil, adminID)
		return handler(ctx, req)
	}
}

func guarded(method string, prefixes []string) bool {
	for _, p := range prefixes {
		if strings.HasPrefix(method, p) {
			return true
		}
	}
	return false
}

func firstValue(ctx context.Context, key string) string {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return ""
	}
	if vals := md.Get(key); len(vals) > 0 {
		return vals[0]
	}
	return ""
}
