package middleware

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"clinic-scheduling-api/internal/model"
)

// TokenHeader carries the access token on HTTP requests and gRPC metadata.
const TokenHeader = "x-access-token"

type ctxKey string

const userKey ctxKey = "user"

// Verifier resolves an access token to its user.
type Verifier interface {
	Verify(ctx context.Context, raw string) (*model.User, error)
}

func ContextWithUser(ctx context.Context, u *model.User) context.Context {
	return context.WithValue(ctx, userKey, u)
}

// UserFromContext returns the caller set by Auth or AuthInterceptor.
func UserFromContext(ctx context.Context) (*model.User, bool) {
	u, ok := ctx.Value(userKey).(*model.User)
	return u, ok && u != nil
}

// Auth rejects requests without a valid x-access-token header.
func Auth(v Verifier) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			u, err := v.Verify(r.Context(), r.Header.Get(TokenHeader))
			if err != nil {
				if model.KindOf(err) == model.KindAuth {
					writeMessage(w, http.StatusUnauthorized, model.Message(err))
					return
				}
				slog.ErrorContext(r.Context(), "token verification failed", slog.Any("error", err))
				writeMessage(w, http.StatusInternalServerError, model.Message(err))
				return
			}
			if info := infoFrom(r.Context()); info != nil {
				info.userID = u.ID
			}
			next.ServeHTTP(w, r.WithContext(ContextWithUser(r.Context(), u)))
		})
	}
}

// AuthInterceptor guards every unary method except the ones listed in open.
func AuthInterceptor(v Verifier, open ...string) grpc.UnaryServerInterceptor {
	skip := make(map[string]bool, len(open))
	for _, m := range open {
		skip[m] = true
	}
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, next grpc.UnaryHandler) (any, error) {
		if skip[info.FullMethod] {
			return next(ctx, req)
		}

		raw := ""
		if md, ok := metadata.FromIncomingContext(ctx); ok {
			if vals := md.Get(TokenHeader); len(vals) > 0 {
				raw = vals[0]
			}
		}

		u, err := v.Verify(ctx, raw)
		if err != nil {
			if model.KindOf(err) == model.KindAuth {
				return nil, status.Error(codes.Unauthenticated, model.Message(err))
			}
			slog.ErrorContext(ctx, "token verification failed", slog.Any("error", err))
			return nil, status.Error(codes.Internal, model.Message(err))
		}
		return next(ContextWithUser(ctx, u), req)
	}
}

func writeMessage(w http.ResponseWriter, code int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(map[string]string{"message": msg})
}
