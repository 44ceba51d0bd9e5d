package middleware

import (
	"net/http"
	"strings"

	"github.com/nvasquez/stagefront-backend/api/responses"
	pkgauth "github.com/nvasquez/stagefront-backend/pkg/auth"
	"github.com/nvasquez/stagefront-backend/pkg/config"
	pkgerrors "github.com/nvasquez/stagefront-backend/pkg/errors"
	"github.com/nvasquez/stagefront-backend/pkg/logger"
)

const guestIDHeader = "X-Guest-Id"

// Session resolves the caller identity and cart owner key. A bearer token is
// validated when present; without one the request runs as a guest keyed by
// the X-Guest-Id header. A present-but-invalid token is rejected, never
// silently downgraded to guest.
func Session(cfg config.JWTConfig, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			raw := strings.TrimSpace(r.Header.Get("Authorization"))
			if raw != "" {
				token := raw
				if strings.HasPrefix(strings.ToLower(token), "bearer ") {
					token = strings.TrimSpace(token[7:])
				}
				claims, err := pkgauth.ParseSessionToken(cfg, token)
				if err != nil {
					responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid token"))
					return
				}
				ctx = WithUserID(ctx, claims.UserID)
				ctx = WithCartOwner(ctx, "user:"+claims.UserID)
				if logg != nil {
					ctx = logg.WithUserID(ctx, claims.UserID)
				}
				next.ServeHTTP(w, r.WithContext(ctx))
				return
			}

			if guestID := strings.TrimSpace(r.Header.Get(guestIDHeader)); guestID != "" {
				ctx = WithCartOwner(ctx, "guest:"+guestID)
				if logg != nil {
					ctx = logg.WithCartOwner(ctx, "guest:"+guestID)
				}
			}

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireUser rejects requests without an authenticated user.
func RequireUser(logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if UserIDFromContext(r.Context()) == "" {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
