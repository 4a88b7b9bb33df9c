package auth

import (
	"context"
	"errors"
	"net/http"

	"github.com/alexedwards/scs/v2"
	"github.com/tventura/storefront/api/web"
	"github.com/tventura/storefront/api/weberr"
	"github.com/tventura/storefront/core/claims"
)

// LoadAndSave adapts the scs middleware to the web.Handler chain. Every
// request below it runs with the session loaded into the context.
func LoadAndSave(session *scs.SessionManager) web.Middleware {
	m := func(handler web.Handler) web.Handler {
		h := func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
			var err error

			sh := session.LoadAndSave(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				err = handler(r.Context(), w, r)
			}))
			sh.ServeHTTP(w, r.WithContext(ctx))

			return err
		}
		return h
	}
	return m
}

// Authenticate requires a logged-in user and threads the identity into the
// context as explicit claims.
func Authenticate(session *scs.SessionManager) web.Middleware {
	m := func(handler web.Handler) web.Handler {
		h := func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
			userID := session.GetString(ctx, claims.SessionUserID)
			if userID == "" {
				return weberr.NotAuthorized(errors.New("user not authenticated"))
			}

			clm := claims.Claims{
				UserID: userID,
				Role:   session.GetString(ctx, claims.SessionRole),
			}

			return handler(claims.Set(ctx, clm), w, r)
		}
		return h
	}
	return m
}

// Admin requires an authenticated user with the admin role.
func Admin(session *scs.SessionManager) web.Middleware {
	m := func(handler web.Handler) web.Handler {
		h := func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
			userID := session.GetString(ctx, claims.SessionUserID)
			if userID == "" {
				return weberr.NotAuthorized(errors.New("user not authenticated"))
			}

			role := session.GetString(ctx, claims.SessionRole)
			if role != claims.RoleAdmin {
				return weberr.Forbidden(errors.New("user is not an admin"))
			}

			clm := claims.Claims{UserID: userID, Role: role}

			return handler(claims.Set(ctx, clm), w, r)
		}
		return h
	}
	return m
}
