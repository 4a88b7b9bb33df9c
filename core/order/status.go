package order

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/tventura/storefront/core/product"
	"github.com/tventura/storefront/database"
)

var (
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrNotOwner          = errors.New("order does not belong to user")
)

// Apply moves the order to next, stamping the matching timestamp once.
// It reports whether the transition requires restoring stock.
//
// REFUNDED is the admin escape hatch: reachable from any state, but an
// order that was already CANCELLED restored its stock then, so refunding
// it must not restore twice.
func (o *Order) Apply(next Status, now time.Time) (restock bool, err error) {
	switch next {
	case Confirmed:
		if o.Status != Pending {
			return false, ErrInvalidTransition
		}
		o.ConfirmedAt = &now

	case Processing:
		if o.Status != Confirmed {
			return false, ErrInvalidTransition
		}

	case Shipped:
		if o.Status != Confirmed && o.Status != Processing {
			return false, ErrInvalidTransition
		}
		o.ShippedAt = &now

	case Delivered:
		if o.Status != Shipped {
			return false, ErrInvalidTransition
		}
		o.DeliveredAt = &now

	case Cancelled:
		if o.Status != Pending && o.Status != Confirmed {
			return false, ErrInvalidTransition
		}
		o.CancelledAt = &now
		restock = true

	case Refunded:
		restock = o.Status != Cancelled

	default:
		return false, ErrInvalidTransition
	}

	o.Status = next
	o.UpdatedAt = now
	return restock, nil
}

// UpdateOrderStatus applies an admin transition, persisting the order and
// restoring stock in the same transaction when the transition demands it.
func UpdateOrderStatus(ctx context.Context, db *sqlx.DB, orderID string, next Status) (Order, error) {
	ord, err := Fetch(ctx, db, orderID)
	if err != nil {
		return Order{}, err
	}

	items, err := FetchItems(ctx, db, ord.ID)
	if err != nil {
		return Order{}, err
	}
	ord.Items = items

	restock, err := ord.Apply(next, time.Now().UTC())
	if err != nil {
		return Order{}, err
	}

	err = database.Transaction(db, func(tx sqlx.ExtContext) error {
		if err := UpdateStatus(ctx, tx, ord); err != nil {
			return err
		}

		if restock {
			for _, it := range ord.Items {
				if err := product.RestoreStock(ctx, tx, it.ProductID, it.Quantity); err != nil {
					return err
				}
			}
		}
		return nil
	})
	if err != nil {
		return Order{}, fmt.Errorf("updating status of order[%s]: %w", ord.ID, err)
	}

	return ord, nil
}

// Cancel cancels the order and restores the stock of every line. Only
// PENDING and CONFIRMED orders can be cancelled.
func Cancel(ctx context.Context, db *sqlx.DB, orderID string, reason string) (Order, error) {
	ord, err := Fetch(ctx, db, orderID)
	if err != nil {
		return Order{}, err
	}

	items, err := FetchItems(ctx, db, ord.ID)
	if err != nil {
		return Order{}, err
	}
	ord.Items = items

	if _, err := ord.Apply(Cancelled, time.Now().UTC()); err != nil {
		return Order{}, err
	}
	ord.CancellationReason = reason

	err = database.Transaction(db, func(tx sqlx.ExtContext) error {
		if err := UpdateStatus(ctx, tx, ord); err != nil {
			return err
		}

		for _, it := range ord.Items {
			if err := product.RestoreStock(ctx, tx, it.ProductID, it.Quantity); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return Order{}, fmt.Errorf("cancelling order[%s]: %w", ord.ID, err)
	}

	return ord, nil
}

// CancelByUser is Cancel with an ownership check on top.
func CancelByUser(ctx context.Context, db *sqlx.DB, userID string, orderID string, reason string) (Order, error) {
	ord, err := Fetch(ctx, db, orderID)
	if err != nil {
		return Order{}, err
	}

	if ord.UserID != userID {
		return Order{}, ErrNotOwner
	}

	return Cancel(ctx, db, orderID, reason)
}

// MarkPaid records a successful payment and confirms the order.
func MarkPaid(ctx context.Context, db *sqlx.DB, orderID string) (Order, error) {
	ord, err := Fetch(ctx, db, orderID)
	if err != nil {
		return Order{}, err
	}

	if _, err := ord.Apply(Confirmed, time.Now().UTC()); err != nil {
		return Order{}, err
	}
	ord.PaymentStatus = PaymentPaid

	err = database.Transaction(db, func(tx sqlx.ExtContext) error {
		if err := UpdateStatus(ctx, tx, ord); err != nil {
			return err
		}
		return UpdatePayment(ctx, tx, PaymentUp{
			ID:            ord.ID,
			PaymentStatus: ord.PaymentStatus,
			TransactionID: ord.TransactionID,
			UpdatedAt:     ord.UpdatedAt,
		})
	})
	if err != nil {
		return Order{}, fmt.Errorf("marking order[%s] paid: %w", ord.ID, err)
	}

	items, err := FetchItems(ctx, db, ord.ID)
	if err != nil {
		return Order{}, err
	}
	ord.Items = items

	return ord, nil
}
