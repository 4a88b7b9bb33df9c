package product

import (
	"time"

	"github.com/shopspring/decimal"
)

type Product struct {
	ID            string              `json:"id" db:"product_id"`
	Name          string              `json:"name" db:"name"`
	Description   string              `json:"description" db:"description"`
	SKU           string              `json:"sku" db:"sku"`
	Price         decimal.Decimal     `json:"price" db:"price"`
	DiscountPrice decimal.NullDecimal `json:"discountPrice" db:"discount_price"`
	StockQuantity int                 `json:"stockQuantity" db:"stock_quantity"`
	Active        bool                `json:"active" db:"active"`
	ImageURL      string              `json:"imageUrl" db:"image_url"`
	CreatedAt     time.Time           `json:"createdAt" db:"created_at"`
	UpdatedAt     time.Time           `json:"updatedAt" db:"updated_at"`
}

// EffectivePrice is the discount price when one is set and actually lower,
// otherwise the list price.
func (p Product) EffectivePrice() decimal.Decimal {
	if p.DiscountPrice.Valid && p.DiscountPrice.Decimal.LessThan(p.Price) {
		return p.DiscountPrice.Decimal
	}
	return p.Price
}

func (p Product) InStock() bool {
	return p.StockQuantity > 0
}

type ProductNew struct {
	Name          string          `json:"name" validate:"required"`
	Description   string          `json:"description"`
	SKU           string          `json:"sku" validate:"required"`
	Price         decimal.Decimal `json:"price" validate:"required"`
	DiscountPrice *decimal.Decimal `json:"discountPrice"`
	StockQuantity int             `json:"stockQuantity" validate:"gte=0"`
	ImageURL      string          `json:"imageUrl"`
}

type ProductUp struct {
	Name          *string          `json:"name"`
	Description   *string          `json:"description"`
	Price         *decimal.Decimal `json:"price"`
	DiscountPrice *decimal.Decimal `json:"discountPrice"`
	StockQuantity *int             `json:"stockQuantity" validate:"omitempty,gte=0"`
	Active        *bool            `json:"active"`
	ImageURL      *string          `json:"imageUrl"`
}
