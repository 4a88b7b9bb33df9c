package order

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
)

var ErrNotFound = errors.New("order not found")

func Create(ctx context.Context, db sqlx.ExtContext, o Order) error {
	const q = `
	INSERT INTO orders
		(order_id, order_number, user_id, status,
		 subtotal, tax, shipping_cost, discount, total_amount,
		 shipping_name, shipping_address, shipping_city, shipping_state,
		 shipping_postal_code, shipping_country, shipping_phone,
		 payment_method, payment_status, transaction_id,
		 notes, cancellation_reason, created_at, updated_at)
	VALUES
		(:order_id, :order_number, :user_id, :status,
		 :subtotal, :tax, :shipping_cost, :discount, :total_amount,
		 :shipping_name, :shipping_address, :shipping_city, :shipping_state,
		 :shipping_postal_code, :shipping_country, :shipping_phone,
		 :payment_method, :payment_status, :transaction_id,
		 :notes, :cancellation_reason, :created_at, :updated_at)`

	if _, err := sqlx.NamedExecContext(ctx, db, q, o); err != nil {
		return fmt.Errorf("inserting order: %w", err)
	}
	return nil
}

func CreateItem(ctx context.Context, db sqlx.ExtContext, it Item) error {
	const q = `
	INSERT INTO order_items
		(item_id, order_id, product_id, quantity, price_at_purchase, created_at)
	VALUES
		(:item_id, :order_id, :product_id, :quantity, :price_at_purchase, :created_at)`

	if _, err := sqlx.NamedExecContext(ctx, db, q, it); err != nil {
		return fmt.Errorf("inserting order item: %w", err)
	}
	return nil
}

func Fetch(ctx context.Context, db sqlx.ExtContext, id string) (Order, error) {
	const q = `SELECT * FROM orders WHERE order_id = $1`

	var o Order
	if err := sqlx.GetContext(ctx, db, &o, q, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Order{}, ErrNotFound
		}
		return Order{}, fmt.Errorf("selecting order[%s]: %w", id, err)
	}
	return o, nil
}

func FetchByNumber(ctx context.Context, db sqlx.ExtContext, number string) (Order, error) {
	const q = `SELECT * FROM orders WHERE order_number = $1`

	var o Order
	if err := sqlx.GetContext(ctx, db, &o, q, number); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Order{}, ErrNotFound
		}
		return Order{}, fmt.Errorf("selecting order by number: %w", err)
	}
	return o, nil
}

func NumberExists(ctx context.Context, db sqlx.ExtContext, number string) (bool, error) {
	const q = `SELECT EXISTS (SELECT 1 FROM orders WHERE order_number = $1)`

	var exists bool
	if err := sqlx.GetContext(ctx, db, &exists, q, number); err != nil {
		return false, fmt.Errorf("checking order number: %w", err)
	}
	return exists, nil
}

func FetchItems(ctx context.Context, db sqlx.ExtContext, orderID string) ([]Item, error) {
	const q = `SELECT * FROM order_items WHERE order_id = $1 ORDER BY created_at`

	items := []Item{}
	if err := sqlx.SelectContext(ctx, db, &items, q, orderID); err != nil {
		return nil, fmt.Errorf("selecting items of order[%s]: %w", orderID, err)
	}
	return items, nil
}

func FetchByUser(ctx context.Context, db sqlx.ExtContext, userID string, page int, perPage int) ([]Order, error) {
	const q = `
	SELECT * FROM orders
	WHERE user_id = $1
	ORDER BY created_at DESC
	LIMIT $2 OFFSET $3`

	os := []Order{}
	if err := sqlx.SelectContext(ctx, db, &os, q, userID, perPage, (page-1)*perPage); err != nil {
		return nil, fmt.Errorf("selecting orders of user[%s]: %w", userID, err)
	}
	return os, nil
}

func FetchByStatus(ctx context.Context, db sqlx.ExtContext, status Status, page int, perPage int) ([]Order, error) {
	const q = `
	SELECT * FROM orders
	WHERE status = $1
	ORDER BY created_at DESC
	LIMIT $2 OFFSET $3`

	os := []Order{}
	if err := sqlx.SelectContext(ctx, db, &os, q, status, perPage, (page-1)*perPage); err != nil {
		return nil, fmt.Errorf("selecting orders with status[%s]: %w", status, err)
	}
	return os, nil
}

func FetchAll(ctx context.Context, db sqlx.ExtContext, page int, perPage int) ([]Order, error) {
	const q = `
	SELECT * FROM orders
	ORDER BY created_at DESC
	LIMIT $1 OFFSET $2`

	os := []Order{}
	if err := sqlx.SelectContext(ctx, db, &os, q, perPage, (page-1)*perPage); err != nil {
		return nil, fmt.Errorf("selecting orders: %w", err)
	}
	return os, nil
}

func UpdateStatus(ctx context.Context, db sqlx.ExtContext, o Order) error {
	const q = `
	UPDATE orders SET
		status              = :status,
		cancellation_reason = :cancellation_reason,
		confirmed_at        = :confirmed_at,
		shipped_at          = :shipped_at,
		delivered_at        = :delivered_at,
		cancelled_at        = :cancelled_at,
		updated_at          = :updated_at
	WHERE order_id = :order_id`

	if _, err := sqlx.NamedExecContext(ctx, db, q, o); err != nil {
		return fmt.Errorf("updating status of order[%s]: %w", o.ID, err)
	}
	return nil
}

type PaymentUp struct {
	ID            string    `db:"order_id"`
	PaymentStatus string    `db:"payment_status"`
	TransactionID string    `db:"transaction_id"`
	UpdatedAt     time.Time `db:"updated_at"`
}

func UpdatePayment(ctx context.Context, db sqlx.ExtContext, up PaymentUp) error {
	const q = `
	UPDATE orders SET
		payment_status = :payment_status,
		transaction_id = :transaction_id,
		updated_at     = :updated_at
	WHERE order_id = :order_id`

	if _, err := sqlx.NamedExecContext(ctx, db, q, up); err != nil {
		return fmt.Errorf("updating payment of order[%s]: %w", up.ID, err)
	}
	return nil
}
