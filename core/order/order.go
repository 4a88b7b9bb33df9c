package order

import (
	"time"

	"github.com/shopspring/decimal"
)

type Status string

const (
	Pending    Status = "PENDING"
	Confirmed  Status = "CONFIRMED"
	Processing Status = "PROCESSING"
	Shipped    Status = "SHIPPED"
	Delivered  Status = "DELIVERED"
	Cancelled  Status = "CANCELLED"
	Refunded   Status = "REFUNDED"
)

func ParseStatus(s string) (Status, error) {
	switch st := Status(s); st {
	case Pending, Confirmed, Processing, Shipped, Delivered, Cancelled, Refunded:
		return st, nil
	}
	return "", ErrInvalidTransition
}

const (
	PaymentPending = "PENDING"
	PaymentPaid    = "PAID"
	PaymentFailed  = "FAILED"
)

type Order struct {
	ID                 string          `json:"id" db:"order_id"`
	Number             string          `json:"orderNumber" db:"order_number"`
	UserID             string          `json:"userId" db:"user_id"`
	Status             Status          `json:"status" db:"status"`
	Subtotal           decimal.Decimal `json:"subtotal" db:"subtotal"`
	Tax                decimal.Decimal `json:"tax" db:"tax"`
	ShippingCost       decimal.Decimal `json:"shippingCost" db:"shipping_cost"`
	Discount           decimal.Decimal `json:"discount" db:"discount"`
	TotalAmount        decimal.Decimal `json:"totalAmount" db:"total_amount"`
	ShippingName       string          `json:"shippingName" db:"shipping_name"`
	ShippingAddress    string          `json:"shippingAddress" db:"shipping_address"`
	ShippingCity       string          `json:"shippingCity" db:"shipping_city"`
	ShippingState      string          `json:"shippingState" db:"shipping_state"`
	ShippingPostalCode string          `json:"shippingPostalCode" db:"shipping_postal_code"`
	ShippingCountry    string          `json:"shippingCountry" db:"shipping_country"`
	ShippingPhone      string          `json:"shippingPhone" db:"shipping_phone"`
	PaymentMethod      string          `json:"paymentMethod" db:"payment_method"`
	PaymentStatus      string          `json:"paymentStatus" db:"payment_status"`
	TransactionID      string          `json:"transactionId" db:"transaction_id"`
	Notes              string          `json:"notes" db:"notes"`
	CancellationReason string          `json:"cancellationReason" db:"cancellation_reason"`
	CreatedAt          time.Time       `json:"createdAt" db:"created_at"`
	UpdatedAt          time.Time       `json:"updatedAt" db:"updated_at"`
	ConfirmedAt        *time.Time      `json:"confirmedAt,omitempty" db:"confirmed_at"`
	ShippedAt          *time.Time      `json:"shippedAt,omitempty" db:"shipped_at"`
	DeliveredAt        *time.Time      `json:"deliveredAt,omitempty" db:"delivered_at"`
	CancelledAt        *time.Time      `json:"cancelledAt,omitempty" db:"cancelled_at"`
	Items              []Item          `json:"items" db:"-"`
}

// CalculateTotals recomputes the money columns from the items. Totals are
// never trusted from the outside.
func (o *Order) CalculateTotals() {
	sub := decimal.Zero
	for _, it := range o.Items {
		sub = sub.Add(it.LineTotal())
	}

	o.Subtotal = sub
	o.TotalAmount = sub.Add(o.Tax).Add(o.ShippingCost).Sub(o.Discount)
}

// Item is an immutable snapshot of a cart line at checkout time. The
// price-at-purchase never tracks later product price changes.
type Item struct {
	ID              string          `json:"id" db:"item_id"`
	OrderID         string          `json:"orderId" db:"order_id"`
	ProductID       string          `json:"productId" db:"product_id"`
	Quantity        int             `json:"quantity" db:"quantity"`
	PriceAtPurchase decimal.Decimal `json:"priceAtPurchase" db:"price_at_purchase"`
	CreatedAt       time.Time       `json:"createdAt" db:"created_at"`
}

func (it Item) LineTotal() decimal.Decimal {
	return it.PriceAtPurchase.Mul(decimal.NewFromInt(int64(it.Quantity)))
}

type CheckoutNew struct {
	ShippingName       string          `json:"shippingName" validate:"required"`
	ShippingAddress    string          `json:"shippingAddress" validate:"required"`
	ShippingCity       string          `json:"shippingCity" validate:"required"`
	ShippingState      string          `json:"shippingState"`
	ShippingPostalCode string          `json:"shippingPostalCode" validate:"required"`
	ShippingCountry    string          `json:"shippingCountry" validate:"required"`
	ShippingPhone      string          `json:"shippingPhone"`
	PaymentMethod      string          `json:"paymentMethod" validate:"required,oneof=stripe paypal"`
	ShippingCost       decimal.Decimal `json:"shippingCost"`
	Notes              string          `json:"notes"`
}

type StatusUp struct {
	Status string `json:"status" validate:"required"`
}

type CancelNew struct {
	Reason string `json:"reason" validate:"required"`
}
