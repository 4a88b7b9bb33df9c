package cart

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
)

var (
	ErrNotFound     = errors.New("cart not found")
	ErrItemNotFound = errors.New("cart item not found")
)

func Create(ctx context.Context, db sqlx.ExtContext, c Cart) error {
	const q = `
	INSERT INTO carts
		(cart_id, user_id, session_id, created_at, updated_at, expires_at)
	VALUES
		(:cart_id, :user_id, :session_id, :created_at, :updated_at, :expires_at)`

	if _, err := sqlx.NamedExecContext(ctx, db, q, c); err != nil {
		return fmt.Errorf("inserting cart: %w", err)
	}
	return nil
}

func FetchByUser(ctx context.Context, db sqlx.ExtContext, userID string) (Cart, error) {
	const q = `SELECT * FROM carts WHERE user_id = $1`
	return fetch(ctx, db, q, userID)
}

func FetchBySession(ctx context.Context, db sqlx.ExtContext, sessionID string) (Cart, error) {
	const q = `SELECT * FROM carts WHERE session_id = $1`
	return fetch(ctx, db, q, sessionID)
}

func fetch(ctx context.Context, db sqlx.ExtContext, q string, key string) (Cart, error) {
	var c Cart
	if err := sqlx.GetContext(ctx, db, &c, q, key); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Cart{}, ErrNotFound
		}
		return Cart{}, fmt.Errorf("selecting cart: %w", err)
	}
	return c, nil
}

func Delete(ctx context.Context, db sqlx.ExtContext, cartID string) error {
	const q = `DELETE FROM carts WHERE cart_id = $1`

	if _, err := db.ExecContext(ctx, q, cartID); err != nil {
		return fmt.Errorf("deleting cart[%s]: %w", cartID, err)
	}
	return nil
}

// DeleteExpired drops guest carts past their expiry, items included.
func DeleteExpired(ctx context.Context, db sqlx.ExtContext) (int64, error) {
	const q = `DELETE FROM carts WHERE expires_at IS NOT NULL AND expires_at < now()`

	res, err := db.ExecContext(ctx, q)
	if err != nil {
		return 0, fmt.Errorf("deleting expired carts: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("reading affected rows: %w", err)
	}
	return n, nil
}

func Touch(ctx context.Context, db sqlx.ExtContext, cartID string) error {
	const q = `UPDATE carts SET updated_at = now() WHERE cart_id = $1`

	if _, err := db.ExecContext(ctx, q, cartID); err != nil {
		return fmt.Errorf("touching cart[%s]: %w", cartID, err)
	}
	return nil
}

func FetchItems(ctx context.Context, db sqlx.ExtContext, cartID string) ([]Item, error) {
	const q = `SELECT * FROM cart_items WHERE cart_id = $1 ORDER BY created_at`

	items := []Item{}
	if err := sqlx.SelectContext(ctx, db, &items, q, cartID); err != nil {
		return nil, fmt.Errorf("selecting items of cart[%s]: %w", cartID, err)
	}
	return items, nil
}

// FetchItem looks the item up by id AND cart, so an item belonging to
// another cart reads as not found.
func FetchItem(ctx context.Context, db sqlx.ExtContext, cartID string, itemID string) (Item, error) {
	const q = `SELECT * FROM cart_items WHERE cart_id = $1 AND item_id = $2`

	var it Item
	if err := sqlx.GetContext(ctx, db, &it, q, cartID, itemID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Item{}, ErrItemNotFound
		}
		return Item{}, fmt.Errorf("selecting item[%s] of cart[%s]: %w", itemID, cartID, err)
	}
	return it, nil
}

func FetchItemByProduct(ctx context.Context, db sqlx.ExtContext, cartID string, productID string) (Item, error) {
	const q = `SELECT * FROM cart_items WHERE cart_id = $1 AND product_id = $2`

	var it Item
	if err := sqlx.GetContext(ctx, db, &it, q, cartID, productID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Item{}, ErrItemNotFound
		}
		return Item{}, fmt.Errorf("selecting item of cart[%s] for product[%s]: %w", cartID, productID, err)
	}
	return it, nil
}

func InsertItem(ctx context.Context, db sqlx.ExtContext, it Item) error {
	const q = `
	INSERT INTO cart_items
		(item_id, cart_id, product_id, quantity, price_at_addition, created_at, updated_at)
	VALUES
		(:item_id, :cart_id, :product_id, :quantity, :price_at_addition, :created_at, :updated_at)`

	if _, err := sqlx.NamedExecContext(ctx, db, q, it); err != nil {
		return fmt.Errorf("inserting cart item: %w", err)
	}
	return nil
}

func UpdateItemQuantity(ctx context.Context, db sqlx.ExtContext, itemID string, quantity int, now time.Time) error {
	const q = `UPDATE cart_items SET quantity = :quantity, updated_at = :updated_at WHERE item_id = :item_id`

	arg := map[string]interface{}{"item_id": itemID, "quantity": quantity, "updated_at": now}

	if _, err := sqlx.NamedExecContext(ctx, db, q, arg); err != nil {
		return fmt.Errorf("updating quantity of item[%s]: %w", itemID, err)
	}
	return nil
}

func DeleteItem(ctx context.Context, db sqlx.ExtContext, cartID string, itemID string) error {
	const q = `DELETE FROM cart_items WHERE cart_id = $1 AND item_id = $2`

	if _, err := db.ExecContext(ctx, q, cartID, itemID); err != nil {
		return fmt.Errorf("deleting item[%s] of cart[%s]: %w", itemID, cartID, err)
	}
	return nil
}

func DeleteItems(ctx context.Context, db sqlx.ExtContext, cartID string) error {
	const q = `DELETE FROM cart_items WHERE cart_id = $1`

	if _, err := db.ExecContext(ctx, q, cartID); err != nil {
		return fmt.Errorf("deleting items of cart[%s]: %w", cartID, err)
	}
	return nil
}
