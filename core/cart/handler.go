package cart

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/alexedwards/scs/v2"
	"github.com/jmoiron/sqlx"
	"github.com/tventura/storefront/api/web"
	"github.com/tventura/storefront/api/weberr"
	"github.com/tventura/storefront/config"
	"github.com/tventura/storefront/core/claims"
	"github.com/tventura/storefront/core/product"
	"github.com/tventura/storefront/validate"
)

// resolve finds the caller's cart: the user cart when the session carries a
// logged-in user, otherwise the guest cart bound to the session's token.
// A guest without a token gets one minted and stored in the session.
func resolve(ctx context.Context, db *sqlx.DB, session *scs.SessionManager, cfg config.Cart) (Cart, error) {
	if userID := session.GetString(ctx, claims.SessionUserID); userID != "" {
		return GetOrCreateUser(ctx, db, userID)
	}

	token := session.GetString(ctx, claims.SessionCartToken)

	c, err := GetOrCreateGuest(ctx, db, token, cfg.GuestTTL)
	if err != nil {
		return Cart{}, err
	}

	if token == "" {
		session.Put(ctx, claims.SessionCartToken, *c.SessionID)
	}
	return c, nil
}

func HandleShow(db *sqlx.DB, session *scs.SessionManager, cfg config.Cart) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		c, err := resolve(ctx, db, session, cfg)
		if err != nil {
			return fmt.Errorf("resolving cart: %w", err)
		}

		return web.Respond(ctx, w, c, http.StatusOK)
	}
}

func HandleClear(db *sqlx.DB, session *scs.SessionManager, cfg config.Cart) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		c, err := resolve(ctx, db, session, cfg)
		if err != nil {
			return fmt.Errorf("resolving cart: %w", err)
		}

		if err := Clear(ctx, db, c.ID); err != nil {
			return fmt.Errorf("clearing cart[%s]: %w", c.ID, err)
		}

		return web.Respond(ctx, w, nil, http.StatusNoContent)
	}
}

func HandleCreateItem(db *sqlx.DB, session *scs.SessionManager, cfg config.Cart) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		var in ItemNew
		if err := web.Decode(w, r, &in); err != nil {
			return weberr.BadRequest(fmt.Errorf("decoding item: %w", err))
		}

		if err := validate.Check(in); err != nil {
			return weberr.NewError(err, err.Error(), http.StatusUnprocessableEntity)
		}

		c, err := resolve(ctx, db, session, cfg)
		if err != nil {
			return fmt.Errorf("resolving cart: %w", err)
		}

		if err := AddItem(ctx, db, c.ID, in); err != nil {
			return itemError(err)
		}

		c, err = load(ctx, db, c)
		if err != nil {
			return err
		}

		return web.Respond(ctx, w, c, http.StatusOK)
	}
}

func HandleUpdateItem(db *sqlx.DB, session *scs.SessionManager, cfg config.Cart) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		itemID := web.Param(r, "id")
		if err := validate.CheckID(itemID); err != nil {
			return weberr.BadRequest(err)
		}

		var up ItemUp
		if err := web.Decode(w, r, &up); err != nil {
			return weberr.BadRequest(fmt.Errorf("decoding item update: %w", err))
		}

		if err := validate.Check(up); err != nil {
			return weberr.NewError(err, err.Error(), http.StatusUnprocessableEntity)
		}

		c, err := resolve(ctx, db, session, cfg)
		if err != nil {
			return fmt.Errorf("resolving cart: %w", err)
		}

		if err := UpdateItem(ctx, db, c.ID, itemID, up.Quantity); err != nil {
			return itemError(err)
		}

		c, err = load(ctx, db, c)
		if err != nil {
			return err
		}

		return web.Respond(ctx, w, c, http.StatusOK)
	}
}

func HandleDeleteItem(db *sqlx.DB, session *scs.SessionManager, cfg config.Cart) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		itemID := web.Param(r, "id")
		if err := validate.CheckID(itemID); err != nil {
			return weberr.BadRequest(err)
		}

		c, err := resolve(ctx, db, session, cfg)
		if err != nil {
			return fmt.Errorf("resolving cart: %w", err)
		}

		if err := RemoveItem(ctx, db, c.ID, itemID); err != nil {
			return itemError(err)
		}

		return web.Respond(ctx, w, nil, http.StatusNoContent)
	}
}

func itemError(err error) error {
	switch {
	case errors.Is(err, product.ErrNotFound), errors.Is(err, ErrItemNotFound):
		return weberr.NotFound(err)
	case errors.Is(err, product.ErrUnavailable):
		return weberr.NewError(err, "product is not available", http.StatusUnprocessableEntity)
	case errors.Is(err, product.ErrInsufficientStock):
		return weberr.NewError(err, "insufficient stock", http.StatusUnprocessableEntity)
	}
	return err
}
