package cart

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/tventura/storefront/database"
	"github.com/tventura/storefront/validate"
)

// Merge folds the guest cart behind sessionToken into the user's cart.
// Matching lines sum their quantities into the user's line, which keeps
// its own price-at-addition; other lines move over at the guest's price.
// A missing guest cart (already merged or expired) is not an error: the
// user's cart is returned untouched. Stock is not revalidated here, the
// checkout does that atomically.
func Merge(ctx context.Context, db *sqlx.DB, sessionToken string, userID string) (Cart, error) {
	userCart, err := GetOrCreateUser(ctx, db, userID)
	if err != nil {
		return Cart{}, fmt.Errorf("fetching user cart: %w", err)
	}

	if sessionToken == "" {
		return userCart, nil
	}

	guest, err := FetchBySession(ctx, db, sessionToken)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return userCart, nil
		}
		return Cart{}, fmt.Errorf("fetching guest cart: %w", err)
	}

	guestItems, err := FetchItems(ctx, db, guest.ID)
	if err != nil {
		return Cart{}, err
	}

	err = database.Transaction(db, func(tx sqlx.ExtContext) error {
		now := time.Now().UTC()

		for _, gi := range guestItems {
			existing, err := FetchItemByProduct(ctx, tx, userCart.ID, gi.ProductID)
			switch {
			case err == nil:
				if err := UpdateItemQuantity(ctx, tx, existing.ID, existing.Quantity+gi.Quantity, now); err != nil {
					return err
				}

			case errors.Is(err, ErrItemNotFound):
				it := Item{
					ID:              validate.GenerateID(),
					CartID:          userCart.ID,
					ProductID:       gi.ProductID,
					Quantity:        gi.Quantity,
					PriceAtAddition: gi.PriceAtAddition,
					CreatedAt:       now,
					UpdatedAt:       now,
				}
				if err := InsertItem(ctx, tx, it); err != nil {
					return err
				}

			default:
				return err
			}
		}

		if err := Delete(ctx, tx, guest.ID); err != nil {
			return err
		}

		return Touch(ctx, tx, userCart.ID)
	})
	if err != nil {
		return Cart{}, fmt.Errorf("merging guest cart into cart[%s]: %w", userCart.ID, err)
	}

	return load(ctx, db, userCart)
}
