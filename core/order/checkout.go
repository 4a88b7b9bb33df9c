package order

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
	"github.com/tventura/storefront/core/cart"
	"github.com/tventura/storefront/core/product"
	"github.com/tventura/storefront/database"
	"github.com/tventura/storefront/random"
	"github.com/tventura/storefront/validate"
)

var ErrEmptyCart = errors.New("cannot create order from empty cart")

// Checkout turns the user's cart into a PENDING order. The whole thing is
// all-or-nothing: every line's stock is decremented with a conditional
// update inside one transaction, so a single exhausted line rolls back
// the decrements already made, the order rows, and the cart clearing.
// Prices are the cart's price-at-addition snapshots, not current prices.
func Checkout(ctx context.Context, db *sqlx.DB, userID string, cn CheckoutNew) (Order, error) {
	crt, err := cart.FetchByUser(ctx, db, userID)
	if err != nil {
		return Order{}, err
	}

	items, err := cart.FetchItems(ctx, db, crt.ID)
	if err != nil {
		return Order{}, err
	}
	if len(items) == 0 {
		return Order{}, ErrEmptyCart
	}

	number, err := generateNumber(ctx, db)
	if err != nil {
		return Order{}, err
	}

	now := time.Now().UTC()
	ord := Order{
		ID:                 validate.GenerateID(),
		Number:             number,
		UserID:             userID,
		Status:             Pending,
		Tax:                decimal.Zero,
		ShippingCost:       cn.ShippingCost,
		Discount:           decimal.Zero,
		ShippingName:       cn.ShippingName,
		ShippingAddress:    cn.ShippingAddress,
		ShippingCity:       cn.ShippingCity,
		ShippingState:      cn.ShippingState,
		ShippingPostalCode: cn.ShippingPostalCode,
		ShippingCountry:    cn.ShippingCountry,
		ShippingPhone:      cn.ShippingPhone,
		PaymentMethod:      cn.PaymentMethod,
		PaymentStatus:      PaymentPending,
		Notes:              cn.Notes,
		CreatedAt:          now,
		UpdatedAt:          now,
	}

	for _, it := range items {
		ord.Items = append(ord.Items, Item{
			ID:              validate.GenerateID(),
			OrderID:         ord.ID,
			ProductID:       it.ProductID,
			Quantity:        it.Quantity,
			PriceAtPurchase: it.PriceAtAddition,
			CreatedAt:       now,
		})
	}

	ord.CalculateTotals()

	err = database.Transaction(db, func(tx sqlx.ExtContext) error {
		for _, it := range ord.Items {
			if err := product.DecrementStock(ctx, tx, it.ProductID, it.Quantity); err != nil {
				return fmt.Errorf("product[%s]: %w", it.ProductID, err)
			}
		}

		if err := Create(ctx, tx, ord); err != nil {
			return err
		}

		for _, it := range ord.Items {
			if err := CreateItem(ctx, tx, it); err != nil {
				return err
			}
		}

		if err := cart.DeleteItems(ctx, tx, crt.ID); err != nil {
			return err
		}
		return cart.Touch(ctx, tx, crt.ID)
	})
	if err != nil {
		return Order{}, fmt.Errorf("checking out cart[%s]: %w", crt.ID, err)
	}

	return ord, nil
}

// generateNumber produces a unique ORD-<timestamp>-<suffix> number. A
// random collision is next to impossible, but the retry loop is what makes
// the uniqueness a property rather than a probability; the unique index on
// order_number backstops concurrent generators.
func generateNumber(ctx context.Context, db sqlx.ExtContext) (string, error) {
	ts := time.Now().UTC().Format("20060102150405")

	for {
		number := newNumber(ts)

		exists, err := NumberExists(ctx, db, number)
		if err != nil {
			return "", err
		}
		if !exists {
			return number, nil
		}
	}
}

func newNumber(ts string) string {
	return fmt.Sprintf("ORD-%s-%s", ts, strings.ToUpper(random.String(8)))
}
