package api

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/erazemk/findme/internal/access"
	"github.com/erazemk/findme/internal/auth"
	"github.com/erazemk/findme/internal/model"
	"github.com/erazemk/findme/internal/store"
)

type contextKey string

const (
	userKey   contextKey = "user"
	claimsKey contextKey = "claims"
)

// Authenticate resolves the bearer token to a user and attaches both the
// user and the token claims to the request context. Revoked tokens are
// treated like invalid ones.
func Authenticate(db *sql.DB, issuer *auth.Issuer, log *zap.Logger) func(http.Handler) http.Handler {
	rs := responder{log: log}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, claims, err := resolveUser(r, db, issuer)
			if err != nil {
				rs.fail(w, r, err)
				return
			}
			ctx := context.WithValue(r.Context(), userKey, user)
			ctx = context.WithValue(ctx, claimsKey, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func resolveUser(r *http.Request, db *sql.DB, issuer *auth.Issuer) (*model.User, *auth.Claims, error) {
	token, err := auth.BearerToken(r.Header.Get("Authorization"))
	if err != nil {
		return nil, nil, err
	}
	claims, err := issuer.Validate(token)
	if err != nil {
		return nil, nil, err
	}

	revoked, err := store.IsTokenRevoked(r.Context(), db, claims.ID)
	if err != nil {
		return nil, nil, err
	}
	if revoked {
		return nil, nil, fmt.Errorf("%w: revoked", auth.ErrInvalidToken)
	}

	id, err := claims.UserID()
	if err != nil {
		return nil, nil, err
	}
	user, err := store.GetUser(r.Context(), db, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, nil, fmt.Errorf("%w: user %d", errUserNotFound, id)
	}
	if err != nil {
		return nil, nil, err
	}
	return user, claims, nil
}

// Require rejects callers whose role is not allowed to perform op. It must
// run after Authenticate. Rules with an ownership clause are completed by
// the handler.
func Require(policy access.Policy, op access.Operation, log *zap.Logger) func(http.Handler) http.Handler {
	rs := responder{log: log}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if err := policy.CheckRole(op, CurrentUser(r.Context())); err != nil {
				rs.fail(w, r, err)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// CurrentUser returns the authenticated user, or nil.
func CurrentUser(ctx context.Context) *model.User {
	user, _ := ctx.Value(userKey).(*model.User)
	return user
}

// CurrentClaims returns the claims of the authenticated token, or nil.
func CurrentClaims(ctx context.Context) *auth.Claims {
	claims, _ := ctx.Value(claimsKey).(*auth.Claims)
	return claims
}

// RequestLogger logs method, path, status, size and duration of every
// request along with its request id.
func RequestLogger(log *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			log.Info("request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.RequestURI()),
				zap.Int("status", status),
				zap.Int("bytes", ww.BytesWritten()),
				zap.Duration("duration", time.Since(start).Round(time.Millisecond)),
				zap.String("remote", r.RemoteAddr),
				zap.String("request_id", middleware.GetReqID(r.Context())),
			)
		})
	}
}
