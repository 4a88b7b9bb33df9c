package order

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/jmoiron/sqlx"
	"github.com/tventura/storefront/api/web"
	"github.com/tventura/storefront/api/weberr"
	"github.com/tventura/storefront/core/cart"
	"github.com/tventura/storefront/core/claims"
	"github.com/tventura/storefront/core/product"
	"github.com/tventura/storefront/validate"
)

func HandleCheckout(db *sqlx.DB) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		clm, err := claims.Get(ctx)
		if err != nil {
			return weberr.NotAuthorized(errors.New("user not authenticated"))
		}

		var cn CheckoutNew
		if err := web.Decode(w, r, &cn); err != nil {
			return weberr.BadRequest(fmt.Errorf("decoding checkout: %w", err))
		}

		if err := validate.Check(cn); err != nil {
			return weberr.NewError(err, err.Error(), http.StatusUnprocessableEntity)
		}

		ord, err := Checkout(ctx, db, clm.UserID, cn)
		if err != nil {
			switch {
			case errors.Is(err, cart.ErrNotFound):
				return weberr.NotFound(err)
			case errors.Is(err, ErrEmptyCart):
				return weberr.NewError(err, ErrEmptyCart.Error(), http.StatusUnprocessableEntity)
			case errors.Is(err, product.ErrInsufficientStock):
				return weberr.NewError(err, "insufficient stock", http.StatusUnprocessableEntity)
			}
			return fmt.Errorf("checking out for user[%s]: %w", clm.UserID, err)
		}

		return web.Respond(ctx, w, ord, http.StatusCreated)
	}
}

func HandleList(db *sqlx.DB) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		clm, err := claims.Get(ctx)
		if err != nil {
			return weberr.NotAuthorized(errors.New("user not authenticated"))
		}

		page := web.QueryInt(r, "page", 1)
		perPage := web.QueryInt(r, "per_page", 20)

		ords, err := FetchByUser(ctx, db, clm.UserID, page, perPage)
		if err != nil {
			return fmt.Errorf("fetching orders of user[%s]: %w", clm.UserID, err)
		}

		return web.Respond(ctx, w, ords, http.StatusOK)
	}
}

func HandleShow(db *sqlx.DB) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		id := web.Param(r, "id")
		if err := validate.CheckID(id); err != nil {
			return weberr.BadRequest(err)
		}

		ord, err := Fetch(ctx, db, id)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				return weberr.NotFound(err)
			}
			return fmt.Errorf("fetching order[%s]: %w", id, err)
		}

		if !claims.IsUser(ctx, ord.UserID) && !claims.IsAdmin(ctx) {
			return weberr.Forbidden(ErrNotOwner)
		}

		ord.Items, err = FetchItems(ctx, db, ord.ID)
		if err != nil {
			return err
		}

		return web.Respond(ctx, w, ord, http.StatusOK)
	}
}

func HandleShowByNumber(db *sqlx.DB) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		number := web.Param(r, "number")

		ord, err := FetchByNumber(ctx, db, number)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				return weberr.NotFound(err)
			}
			return fmt.Errorf("fetching order by number: %w", err)
		}

		if !claims.IsUser(ctx, ord.UserID) && !claims.IsAdmin(ctx) {
			return weberr.Forbidden(ErrNotOwner)
		}

		ord.Items, err = FetchItems(ctx, db, ord.ID)
		if err != nil {
			return err
		}

		return web.Respond(ctx, w, ord, http.StatusOK)
	}
}

func HandleCancel(db *sqlx.DB) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		clm, err := claims.Get(ctx)
		if err != nil {
			return weberr.NotAuthorized(errors.New("user not authenticated"))
		}

		id := web.Param(r, "id")
		if err := validate.CheckID(id); err != nil {
			return weberr.BadRequest(err)
		}

		var cn CancelNew
		if err := web.Decode(w, r, &cn); err != nil {
			return weberr.BadRequest(fmt.Errorf("decoding cancellation: %w", err))
		}

		if err := validate.Check(cn); err != nil {
			return weberr.NewError(err, err.Error(), http.StatusUnprocessableEntity)
		}

		ord, err := CancelByUser(ctx, db, clm.UserID, id, cn.Reason)
		if err != nil {
			switch {
			case errors.Is(err, ErrNotFound):
				return weberr.NotFound(err)
			case errors.Is(err, ErrNotOwner):
				return weberr.Forbidden(err)
			case errors.Is(err, ErrInvalidTransition):
				return weberr.NewError(err, "order cannot be cancelled in its current status", http.StatusUnprocessableEntity)
			}
			return fmt.Errorf("cancelling order[%s]: %w", id, err)
		}

		return web.Respond(ctx, w, ord, http.StatusOK)
	}
}

// HandleListAll serves the admin order listing, optionally filtered by
// status.
func HandleListAll(db *sqlx.DB) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		page := web.QueryInt(r, "page", 1)
		perPage := web.QueryInt(r, "per_page", 20)

		var ords []Order
		var err error

		if s := r.URL.Query().Get("status"); s != "" {
			status, perr := ParseStatus(s)
			if perr != nil {
				return weberr.BadRequest(fmt.Errorf("unknown status %q", s))
			}
			ords, err = FetchByStatus(ctx, db, status, page, perPage)
		} else {
			ords, err = FetchAll(ctx, db, page, perPage)
		}
		if err != nil {
			return fmt.Errorf("fetching orders: %w", err)
		}

		return web.Respond(ctx, w, ords, http.StatusOK)
	}
}

func HandleUpdateStatus(db *sqlx.DB) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		id := web.Param(r, "id")
		if err := validate.CheckID(id); err != nil {
			return weberr.BadRequest(err)
		}

		var up StatusUp
		if err := web.Decode(w, r, &up); err != nil {
			return weberr.BadRequest(fmt.Errorf("decoding status update: %w", err))
		}

		if err := validate.Check(up); err != nil {
			return weberr.NewError(err, err.Error(), http.StatusUnprocessableEntity)
		}

		status, err := ParseStatus(up.Status)
		if err != nil {
			return weberr.BadRequest(fmt.Errorf("unknown status %q", up.Status))
		}

		ord, err := UpdateOrderStatus(ctx, db, id, status)
		if err != nil {
			switch {
			case errors.Is(err, ErrNotFound):
				return weberr.NotFound(err)
			case errors.Is(err, ErrInvalidTransition):
				return weberr.NewError(err, "invalid status transition", http.StatusUnprocessableEntity)
			}
			return fmt.Errorf("updating status of order[%s]: %w", id, err)
		}

		return web.Respond(ctx, w, ord, http.StatusOK)
	}
}
