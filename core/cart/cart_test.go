package cart

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestSubtotal(t *testing.T) {
	dec := func(s string) decimal.Decimal {
		d, err := decimal.NewFromString(s)
		if err != nil {
			t.Fatalf("parsing %q: %v", s, err)
		}
		return d
	}

	c := Cart{Items: []Item{
		{Quantity: 3, PriceAtAddition: dec("9.99")},
		{Quantity: 1, PriceAtAddition: dec("0.01")},
	}}

	if got := c.Items[0].LineTotal(); !got.Equal(dec("29.97")) {
		t.Fatalf("expected line total 29.97, got %s", got)
	}
	if got := c.Subtotal(); !got.Equal(dec("29.98")) {
		t.Fatalf("expected subtotal 29.98, got %s", got)
	}
	if got := c.TotalItems(); got != 4 {
		t.Fatalf("expected 4 items, got %d", got)
	}

	empty := Cart{}
	if !empty.Empty() {
		t.Fatal("cart without items reported as non-empty")
	}
	if !empty.Subtotal().Equal(decimal.Zero) {
		t.Fatal("empty cart has non-zero subtotal")
	}
}

func TestExpired(t *testing.T) {
	past := time.Now().UTC().Add(-time.Minute)
	future := time.Now().UTC().Add(time.Minute)

	if (Cart{}).Expired() {
		t.Fatal("user cart without expiry reported expired")
	}
	if (Cart{ExpiresAt: &future}).Expired() {
		t.Fatal("live guest cart reported expired")
	}
	if !(Cart{ExpiresAt: &past}).Expired() {
		t.Fatal("stale guest cart reported live")
	}
}
