package product

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
)

var (
	ErrNotFound          = errors.New("product not found")
	ErrUnavailable       = errors.New("product not available")
	ErrInsufficientStock = errors.New("insufficient stock")
)

func Create(ctx context.Context, db sqlx.ExtContext, p Product) error {
	const q = `
	INSERT INTO products
		(product_id, name, description, sku, price, discount_price, stock_quantity, active, image_url, created_at, updated_at)
	VALUES
		(:product_id, :name, :description, :sku, :price, :discount_price, :stock_quantity, :active, :image_url, :created_at, :updated_at)`

	if _, err := sqlx.NamedExecContext(ctx, db, q, p); err != nil {
		return fmt.Errorf("inserting product: %w", err)
	}
	return nil
}

func Update(ctx context.Context, db sqlx.ExtContext, p Product) error {
	const q = `
	UPDATE products SET
		name           = :name,
		description    = :description,
		price          = :price,
		discount_price = :discount_price,
		stock_quantity = :stock_quantity,
		active         = :active,
		image_url      = :image_url,
		updated_at     = :updated_at
	WHERE product_id = :product_id`

	if _, err := sqlx.NamedExecContext(ctx, db, q, p); err != nil {
		return fmt.Errorf("updating product[%s]: %w", p.ID, err)
	}
	return nil
}

func Fetch(ctx context.Context, db sqlx.ExtContext, id string) (Product, error) {
	const q = `SELECT * FROM products WHERE product_id = $1`

	var p Product
	if err := sqlx.GetContext(ctx, db, &p, q, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Product{}, ErrNotFound
		}
		return Product{}, fmt.Errorf("selecting product[%s]: %w", id, err)
	}
	return p, nil
}

func FetchAll(ctx context.Context, db sqlx.ExtContext) ([]Product, error) {
	const q = `SELECT * FROM products WHERE active ORDER BY created_at DESC`

	ps := []Product{}
	if err := sqlx.SelectContext(ctx, db, &ps, q); err != nil {
		return nil, fmt.Errorf("selecting products: %w", err)
	}
	return ps, nil
}

// DecrementStock takes qty units off the product's stock in one conditional
// update. Two checkouts racing for the last unit cannot both pass: the
// WHERE clause only matches while enough stock remains, so exactly one
// update wins and the other reports ErrInsufficientStock.
func DecrementStock(ctx context.Context, db sqlx.ExtContext, productID string, qty int) error {
	const q = `
	UPDATE products SET
		stock_quantity = stock_quantity - :qty,
		updated_at     = now()
	WHERE product_id = :product_id AND stock_quantity >= :qty`

	arg := map[string]interface{}{"product_id": productID, "qty": qty}

	res, err := sqlx.NamedExecContext(ctx, db, q, arg)
	if err != nil {
		return fmt.Errorf("decrementing stock of product[%s]: %w", productID, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("reading affected rows: %w", err)
	}
	if n == 0 {
		return ErrInsufficientStock
	}
	return nil
}

// RestoreStock gives qty units back, reversing a checkout decrement.
func RestoreStock(ctx context.Context, db sqlx.ExtContext, productID string, qty int) error {
	const q = `
	UPDATE products SET
		stock_quantity = stock_quantity + :qty,
		updated_at     = now()
	WHERE product_id = :product_id`

	arg := map[string]interface{}{"product_id": productID, "qty": qty}

	if _, err := sqlx.NamedExecContext(ctx, db, q, arg); err != nil {
		return fmt.Errorf("restoring stock of product[%s]: %w", productID, err)
	}
	return nil
}
