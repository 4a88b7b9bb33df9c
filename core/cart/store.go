package cart

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/tventura/storefront/core/product"
	"github.com/tventura/storefront/database"
	"github.com/tventura/storefront/validate"
)

// GetOrCreateUser returns the user's cart, creating it lazily on first
// access. User carts never expire.
func GetOrCreateUser(ctx context.Context, db *sqlx.DB, userID string) (Cart, error) {
	c, err := FetchByUser(ctx, db, userID)
	if err == nil {
		return load(ctx, db, c)
	}
	if !errors.Is(err, ErrNotFound) {
		return Cart{}, err
	}

	now := time.Now().UTC()
	c = Cart{
		ID:        validate.GenerateID(),
		UserID:    &userID,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := Create(ctx, db, c); err != nil {
		return Cart{}, err
	}

	c.Items = []Item{}
	return c, nil
}

// GetOrCreateGuest returns the guest cart for token, generating a fresh
// token when none is given. An expired cart is dropped and recreated under
// the same token.
func GetOrCreateGuest(ctx context.Context, db *sqlx.DB, token string, ttl time.Duration) (Cart, error) {
	if token == "" {
		token = validate.GenerateID()
	}

	c, err := FetchBySession(ctx, db, token)
	switch {
	case err == nil:
		if !c.Expired() {
			return load(ctx, db, c)
		}
		if err := Delete(ctx, db, c.ID); err != nil {
			return Cart{}, err
		}

	case !errors.Is(err, ErrNotFound):
		return Cart{}, err
	}

	now := time.Now().UTC()
	expires := now.Add(ttl)
	c = Cart{
		ID:        validate.GenerateID(),
		SessionID: &token,
		CreatedAt: now,
		UpdatedAt: now,
		ExpiresAt: &expires,
	}

	if err := Create(ctx, db, c); err != nil {
		return Cart{}, err
	}

	c.Items = []Item{}
	return c, nil
}

// AddItem puts quantity units of a product into the cart. A line already
// holding the product absorbs the quantity and keeps its original
// price-at-addition; a new line snapshots the current effective price.
// The stock check here is advisory only: checkout repeats it atomically.
func AddItem(ctx context.Context, db *sqlx.DB, cartID string, in ItemNew) error {
	p, err := product.Fetch(ctx, db, in.ProductID)
	if err != nil {
		return err
	}

	if !p.Active {
		return product.ErrUnavailable
	}

	return database.Transaction(db, func(tx sqlx.ExtContext) error {
		now := time.Now().UTC()

		existing, err := FetchItemByProduct(ctx, tx, cartID, in.ProductID)
		switch {
		case err == nil:
			quantity := existing.Quantity + in.Quantity
			if p.StockQuantity < quantity {
				return product.ErrInsufficientStock
			}
			if err := UpdateItemQuantity(ctx, tx, existing.ID, quantity, now); err != nil {
				return err
			}

		case errors.Is(err, ErrItemNotFound):
			if p.StockQuantity < in.Quantity {
				return product.ErrInsufficientStock
			}
			it := Item{
				ID:              validate.GenerateID(),
				CartID:          cartID,
				ProductID:       in.ProductID,
				Quantity:        in.Quantity,
				PriceAtAddition: p.EffectivePrice(),
				CreatedAt:       now,
				UpdatedAt:       now,
			}
			if err := InsertItem(ctx, tx, it); err != nil {
				return err
			}

		default:
			return err
		}

		return Touch(ctx, tx, cartID)
	})
}

// UpdateItem sets the quantity of a line. Removal goes through RemoveItem,
// never through a zero quantity.
func UpdateItem(ctx context.Context, db *sqlx.DB, cartID string, itemID string, quantity int) error {
	it, err := FetchItem(ctx, db, cartID, itemID)
	if err != nil {
		return err
	}

	p, err := product.Fetch(ctx, db, it.ProductID)
	if err != nil {
		return err
	}

	if p.StockQuantity < quantity {
		return product.ErrInsufficientStock
	}

	return database.Transaction(db, func(tx sqlx.ExtContext) error {
		if err := UpdateItemQuantity(ctx, tx, it.ID, quantity, time.Now().UTC()); err != nil {
			return err
		}
		return Touch(ctx, tx, cartID)
	})
}

func RemoveItem(ctx context.Context, db *sqlx.DB, cartID string, itemID string) error {
	it, err := FetchItem(ctx, db, cartID, itemID)
	if err != nil {
		return err
	}

	return database.Transaction(db, func(tx sqlx.ExtContext) error {
		if err := DeleteItem(ctx, tx, cartID, it.ID); err != nil {
			return err
		}
		return Touch(ctx, tx, cartID)
	})
}

// Clear removes every line but keeps the cart record.
func Clear(ctx context.Context, db *sqlx.DB, cartID string) error {
	return database.Transaction(db, func(tx sqlx.ExtContext) error {
		if err := DeleteItems(ctx, tx, cartID); err != nil {
			return err
		}
		return Touch(ctx, tx, cartID)
	})
}

func load(ctx context.Context, db sqlx.ExtContext, c Cart) (Cart, error) {
	items, err := FetchItems(ctx, db, c.ID)
	if err != nil {
		return Cart{}, fmt.Errorf("loading cart[%s]: %w", c.ID, err)
	}

	c.Items = items
	return c, nil
}
