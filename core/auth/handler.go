package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/alexedwards/scs/v2"
	"github.com/jmoiron/sqlx"
	"github.com/tventura/storefront/api/web"
	"github.com/tventura/storefront/api/weberr"
	"github.com/tventura/storefront/core/cart"
	"github.com/tventura/storefront/core/claims"
	"github.com/tventura/storefront/core/user"
	"github.com/tventura/storefront/validate"
	"golang.org/x/crypto/bcrypt"
)

func HandleSignup(db *sqlx.DB) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		var us user.UserSignup
		if err := web.Decode(w, r, &us); err != nil {
			return weberr.BadRequest(fmt.Errorf("decoding signup: %w", err))
		}

		if err := validate.Check(us); err != nil {
			return weberr.NewError(err, err.Error(), http.StatusUnprocessableEntity)
		}

		hash, err := bcrypt.GenerateFromPassword([]byte(us.Password), bcrypt.DefaultCost)
		if err != nil {
			return fmt.Errorf("hashing password: %w", err)
		}

		now := time.Now().UTC()
		u := user.User{
			ID:           validate.GenerateID(),
			Name:         us.Name,
			Email:        us.Email,
			Role:         claims.RoleUser,
			PasswordHash: hash,
			CreatedAt:    now,
			UpdatedAt:    now,
		}

		if err := user.Create(ctx, db, u); err != nil {
			return fmt.Errorf("creating user: %w", err)
		}

		return web.Respond(ctx, w, u, http.StatusCreated)
	}
}

// HandleLogin authenticates the user and folds any guest cart carried by
// the session into the user's cart.
func HandleLogin(db *sqlx.DB, session *scs.SessionManager) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		var ul user.UserLogin
		if err := web.Decode(w, r, &ul); err != nil {
			return weberr.BadRequest(fmt.Errorf("decoding login: %w", err))
		}

		if err := validate.Check(ul); err != nil {
			return weberr.NewError(err, err.Error(), http.StatusUnprocessableEntity)
		}

		u, err := user.FetchByEmail(ctx, db, ul.Email)
		if err != nil {
			if errors.Is(err, user.ErrNotFound) {
				return weberr.NotAuthorized(errors.New("wrong credentials"))
			}
			return fmt.Errorf("fetching user by email: %w", err)
		}

		if err := bcrypt.CompareHashAndPassword(u.PasswordHash, []byte(ul.Password)); err != nil {
			return weberr.NotAuthorized(errors.New("wrong credentials"))
		}

		if err := session.RenewToken(ctx); err != nil {
			return fmt.Errorf("renewing session token: %w", err)
		}

		session.Put(ctx, claims.SessionUserID, u.ID)
		session.Put(ctx, claims.SessionRole, u.Role)

		if token := session.GetString(ctx, claims.SessionCartToken); token != "" {
			if _, err := cart.Merge(ctx, db, token, u.ID); err != nil {
				return fmt.Errorf("merging guest cart: %w", err)
			}
			session.Remove(ctx, claims.SessionCartToken)
		}

		return web.Respond(ctx, w, u, http.StatusOK)
	}
}

func HandleLogout(session *scs.SessionManager) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		if err := session.Destroy(ctx); err != nil {
			return fmt.Errorf("destroying session: %w", err)
		}

		return web.Respond(ctx, w, nil, http.StatusNoContent)
	}
}
