package cart

import (
	"time"

	"github.com/shopspring/decimal"
)

// Cart belongs to exactly one owner: a user or a guest session, never both.
// Guest carts expire; user carts live until merged away.
type Cart struct {
	ID        string     `json:"id" db:"cart_id"`
	UserID    *string    `json:"userId,omitempty" db:"user_id"`
	SessionID *string    `json:"-" db:"session_id"`
	CreatedAt time.Time  `json:"createdAt" db:"created_at"`
	UpdatedAt time.Time  `json:"updatedAt" db:"updated_at"`
	ExpiresAt *time.Time `json:"expiresAt,omitempty" db:"expires_at"`
	Items     []Item     `json:"items" db:"-"`
}

func (c Cart) Expired() bool {
	return c.ExpiresAt != nil && time.Now().UTC().After(*c.ExpiresAt)
}

func (c Cart) Empty() bool {
	return len(c.Items) == 0
}

func (c Cart) TotalItems() int {
	var n int
	for _, it := range c.Items {
		n += it.Quantity
	}
	return n
}

func (c Cart) Subtotal() decimal.Decimal {
	sub := decimal.Zero
	for _, it := range c.Items {
		sub = sub.Add(it.LineTotal())
	}
	return sub
}

type Item struct {
	ID              string          `json:"id" db:"item_id"`
	CartID          string          `json:"-" db:"cart_id"`
	ProductID       string          `json:"productId" db:"product_id"`
	Quantity        int             `json:"quantity" db:"quantity"`
	PriceAtAddition decimal.Decimal `json:"priceAtAddition" db:"price_at_addition"`
	CreatedAt       time.Time       `json:"createdAt" db:"created_at"`
	UpdatedAt       time.Time       `json:"updatedAt" db:"updated_at"`
}

func (it Item) LineTotal() decimal.Decimal {
	return it.PriceAtAddition.Mul(decimal.NewFromInt(int64(it.Quantity)))
}

type ItemNew struct {
	ProductID string `json:"productId" validate:"required,uuid4"`
	Quantity  int    `json:"quantity" validate:"required,gte=1"`
}

type ItemUp struct {
	Quantity int `json:"quantity" validate:"required,gte=1"`
}
