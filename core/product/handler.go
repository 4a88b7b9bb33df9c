package product

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
	"github.com/tventura/storefront/api/web"
	"github.com/tventura/storefront/api/weberr"
	"github.com/tventura/storefront/validate"
)

func HandleList(db *sqlx.DB) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		ps, err := FetchAll(ctx, db)
		if err != nil {
			return fmt.Errorf("fetching products: %w", err)
		}

		return web.Respond(ctx, w, ps, http.StatusOK)
	}
}

func HandleShow(db *sqlx.DB) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		id := web.Param(r, "id")
		if err := validate.CheckID(id); err != nil {
			return weberr.BadRequest(err)
		}

		p, err := Fetch(ctx, db, id)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				return weberr.NotFound(err)
			}
			return fmt.Errorf("fetching product[%s]: %w", id, err)
		}

		return web.Respond(ctx, w, p, http.StatusOK)
	}
}

func HandleCreate(db *sqlx.DB) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		var pn ProductNew
		if err := web.Decode(w, r, &pn); err != nil {
			return weberr.BadRequest(fmt.Errorf("decoding product: %w", err))
		}

		if err := validate.Check(pn); err != nil {
			return weberr.NewError(err, err.Error(), http.StatusUnprocessableEntity)
		}

		now := time.Now().UTC()
		p := Product{
			ID:            validate.GenerateID(),
			Name:          pn.Name,
			Description:   pn.Description,
			SKU:           pn.SKU,
			Price:         pn.Price,
			StockQuantity: pn.StockQuantity,
			Active:        true,
			ImageURL:      pn.ImageURL,
			CreatedAt:     now,
			UpdatedAt:     now,
		}
		if pn.DiscountPrice != nil {
			p.DiscountPrice = decimal.NullDecimal{Decimal: *pn.DiscountPrice, Valid: true}
		}

		if err := Create(ctx, db, p); err != nil {
			return fmt.Errorf("creating product: %w", err)
		}

		return web.Respond(ctx, w, p, http.StatusCreated)
	}
}

func HandleUpdate(db *sqlx.DB) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		id := web.Param(r, "id")
		if err := validate.CheckID(id); err != nil {
			return weberr.BadRequest(err)
		}

		var up ProductUp
		if err := web.Decode(w, r, &up); err != nil {
			return weberr.BadRequest(fmt.Errorf("decoding product update: %w", err))
		}

		if err := validate.Check(up); err != nil {
			return weberr.NewError(err, err.Error(), http.StatusUnprocessableEntity)
		}

		p, err := Fetch(ctx, db, id)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				return weberr.NotFound(err)
			}
			return fmt.Errorf("fetching product[%s]: %w", id, err)
		}

		if up.Name != nil {
			p.Name = *up.Name
		}
		if up.Description != nil {
			p.Description = *up.Description
		}
		if up.Price != nil {
			p.Price = *up.Price
		}
		if up.DiscountPrice != nil {
			p.DiscountPrice = decimal.NullDecimal{Decimal: *up.DiscountPrice, Valid: true}
		}
		if up.StockQuantity != nil {
			p.StockQuantity = *up.StockQuantity
		}
		if up.Active != nil {
			p.Active = *up.Active
		}
		if up.ImageURL != nil {
			p.ImageURL = *up.ImageURL
		}
		p.UpdatedAt = time.Now().UTC()

		if err := Update(ctx, db, p); err != nil {
			return fmt.Errorf("updating product[%s]: %w", id, err)
		}

		return web.Respond(ctx, w, p, http.StatusOK)
	}
}
