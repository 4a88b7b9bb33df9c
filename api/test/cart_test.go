package test

import (
	"encoding/json"
	"fmt"
	"math/rand"
	"net/http"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/tventura/storefront/core/cart"
	"github.com/tventura/storefront/core/product"
)

type productTest struct {
	*TestEnv
}

// createProductOK seeds a product through the admin API, on a session of
// its own so it doesn't disturb whoever is logged in on the shared client.
func (prt *productTest) createProductOK(t *testing.T, price string, stock int) product.Product {
	t.Helper()

	cl := NewSession()
	if err := loginWith(cl, prt.URL, prt.AdminEmail, prt.AdminPass); err != nil {
		t.Fatal(err)
	}
	defer logoutWith(cl, prt.URL)

	sku := fmt.Sprintf("SKU-%06d", rand.Intn(1000000))
	body := fmt.Sprintf(`{"name":"product %s","sku":%q,"price":%s,"stockQuantity":%d}`, sku, sku, price, stock)

	r, err := http.NewRequest(http.MethodPost, prt.URL+"/products", strings.NewReader(body))
	if err != nil {
		t.Fatal(err)
	}
	r.Header.Set("Content-Type", "application/json")

	w, err := cl.Do(r)
	if err != nil {
		t.Fatal(err)
	}
	defer w.Body.Close()

	if w.StatusCode != http.StatusCreated {
		t.Fatalf("can't create product: status code %s", w.Status)
	}

	var p product.Product
	if err := json.NewDecoder(w.Body).Decode(&p); err != nil {
		t.Fatalf("cannot unmarshal product: %v", err)
	}
	return p
}

func (prt *productTest) updateProductOK(t *testing.T, id, body string) product.Product {
	t.Helper()

	cl := NewSession()
	if err := loginWith(cl, prt.URL, prt.AdminEmail, prt.AdminPass); err != nil {
		t.Fatal(err)
	}
	defer logoutWith(cl, prt.URL)

	r, err := http.NewRequest(http.MethodPut, prt.URL+"/products/"+id, strings.NewReader(body))
	if err != nil {
		t.Fatal(err)
	}
	r.Header.Set("Content-Type", "application/json")

	w, err := cl.Do(r)
	if err != nil {
		t.Fatal(err)
	}
	defer w.Body.Close()

	if w.StatusCode != http.StatusOK {
		t.Fatalf("can't update product: status code %s", w.Status)
	}

	var p product.Product
	if err := json.NewDecoder(w.Body).Decode(&p); err != nil {
		t.Fatalf("cannot unmarshal product: %v", err)
	}
	return p
}

func (prt *productTest) getProductOK(t *testing.T, id string) product.Product {
	t.Helper()

	w, err := prt.Client().Get(prt.URL + "/products/" + id)
	if err != nil {
		t.Fatal(err)
	}
	defer w.Body.Close()

	if w.StatusCode != http.StatusOK {
		t.Fatalf("can't get product: status code %s", w.Status)
	}

	var p product.Product
	if err := json.NewDecoder(w.Body).Decode(&p); err != nil {
		t.Fatalf("cannot unmarshal product: %v", err)
	}
	return p
}

type cartTest struct {
	*TestEnv
}

func (ct *cartTest) getCartOK(t *testing.T) cart.Cart {
	return ct.getCartWith(t, ct.Client())
}

func (ct *cartTest) getCartWith(t *testing.T, cl *http.Client) cart.Cart {
	t.Helper()

	w, err := cl.Get(ct.URL + "/cart")
	if err != nil {
		t.Fatal(err)
	}
	defer w.Body.Close()

	if w.StatusCode != http.StatusOK {
		t.Fatalf("can't get cart: status code %s", w.Status)
	}

	var c cart.Cart
	if err := json.NewDecoder(w.Body).Decode(&c); err != nil {
		t.Fatalf("cannot unmarshal cart: %v", err)
	}
	return c
}

func (ct *cartTest) createItemOK(t *testing.T, productID string, qty int) cart.Cart {
	return ct.createItemWith(t, ct.Client(), productID, qty, http.StatusOK)
}

func (ct *cartTest) createItemStatus(t *testing.T, productID string, qty, want int) {
	ct.createItemWith(t, ct.Client(), productID, qty, want)
}

func (ct *cartTest) createItemWith(t *testing.T, cl *http.Client, productID string, qty, want int) cart.Cart {
	t.Helper()

	body := fmt.Sprintf(`{"productId":%q,"quantity":%d}`, productID, qty)

	r, err := http.NewRequest(http.MethodPost, ct.URL+"/cart/items", strings.NewReader(body))
	if err != nil {
		t.Fatal(err)
	}
	r.Header.Set("Content-Type", "application/json")

	w, err := cl.Do(r)
	if err != nil {
		t.Fatal(err)
	}
	defer w.Body.Close()

	if w.StatusCode != want {
		t.Fatalf("adding item: expected status code %d, got %s", want, w.Status)
	}

	var c cart.Cart
	if want == http.StatusOK {
		if err := json.NewDecoder(w.Body).Decode(&c); err != nil {
			t.Fatalf("cannot unmarshal cart: %v", err)
		}
	}
	return c
}

func (ct *cartTest) updateItemStatus(t *testing.T, itemID string, qty, want int) {
	t.Helper()

	body := fmt.Sprintf(`{"quantity":%d}`, qty)

	r, err := http.NewRequest(http.MethodPut, ct.URL+"/cart/items/"+itemID, strings.NewReader(body))
	if err != nil {
		t.Fatal(err)
	}
	r.Header.Set("Content-Type", "application/json")

	w, err := ct.Client().Do(r)
	if err != nil {
		t.Fatal(err)
	}
	defer w.Body.Close()

	if w.StatusCode != want {
		t.Fatalf("updating item: expected status code %d, got %s", want, w.Status)
	}
}

func (ct *cartTest) deleteItemOK(t *testing.T, itemID string) {
	t.Helper()

	r, err := http.NewRequest(http.MethodDelete, ct.URL+"/cart/items/"+itemID, nil)
	if err != nil {
		t.Fatal(err)
	}

	w, err := ct.Client().Do(r)
	if err != nil {
		t.Fatal(err)
	}
	defer w.Body.Close()

	if w.StatusCode != http.StatusNoContent {
		t.Fatalf("can't delete item: status code %s", w.Status)
	}
}

func (ct *cartTest) clearOK(t *testing.T) {
	t.Helper()

	r, err := http.NewRequest(http.MethodDelete, ct.URL+"/cart", nil)
	if err != nil {
		t.Fatal(err)
	}

	w, err := ct.Client().Do(r)
	if err != nil {
		t.Fatal(err)
	}
	defer w.Body.Close()

	if w.StatusCode != http.StatusNoContent {
		t.Fatalf("can't clear cart: status code %s", w.Status)
	}
}

func itemFor(c cart.Cart, productID string) (cart.Item, bool) {
	for _, it := range c.Items {
		if it.ProductID == productID {
			return it, true
		}
	}
	return cart.Item{}, false
}

func TestCart(t *testing.T) {
	env, err := NewTestEnv(t, "cart_test")
	if err != nil {
		t.Fatalf("initializing test env: %v", err)
	}

	prt := &productTest{env}
	ct := &cartTest{env}

	pa := prt.createProductOK(t, "10.00", 5)
	pb := prt.createProductOK(t, "2.50", 10)

	// No login: the first request mints a guest cart.
	c := ct.getCartOK(t)
	if len(c.Items) != 0 {
		t.Fatalf("fresh guest cart is not empty: %d items", len(c.Items))
	}
	if c.ExpiresAt == nil {
		t.Fatal("guest cart has no expiry")
	}

	c = ct.createItemOK(t, pa.ID, 2)
	it, ok := itemFor(c, pa.ID)
	if !ok || it.Quantity != 2 {
		t.Fatalf("expected a line of 2, got %+v", c.Items)
	}
	if want, _ := decimal.NewFromString("10.00"); !it.PriceAtAddition.Equal(want) {
		t.Fatalf("expected price at addition 10.00, got %s", it.PriceAtAddition)
	}

	// Adding the same product folds into the existing line.
	c = ct.createItemOK(t, pa.ID, 3)
	if it, _ = itemFor(c, pa.ID); it.Quantity != 5 {
		t.Fatalf("expected line quantity 5 after merge, got %d", it.Quantity)
	}
	if len(c.Items) != 1 {
		t.Fatalf("expected a single line, got %d", len(c.Items))
	}

	// One past the stock is refused and the line stays put.
	ct.createItemStatus(t, pa.ID, 1, http.StatusUnprocessableEntity)
	c = ct.getCartOK(t)
	if it, _ = itemFor(c, pa.ID); it.Quantity != 5 {
		t.Fatalf("failed add changed the line: quantity %d", it.Quantity)
	}

	c = ct.createItemOK(t, pb.ID, 1)
	if len(c.Items) != 2 {
		t.Fatalf("expected two lines, got %d", len(c.Items))
	}

	itB, _ := itemFor(c, pb.ID)
	ct.updateItemStatus(t, itB.ID, 4, http.StatusOK)
	ct.updateItemStatus(t, itB.ID, 11, http.StatusUnprocessableEntity)
	ct.updateItemStatus(t, itB.ID, 0, http.StatusUnprocessableEntity)

	c = ct.getCartOK(t)
	if itB, _ = itemFor(c, pb.ID); itB.Quantity != 4 {
		t.Fatalf("expected line quantity 4, got %d", itB.Quantity)
	}

	ct.deleteItemOK(t, itB.ID)
	c = ct.getCartOK(t)
	if len(c.Items) != 1 {
		t.Fatalf("expected one line after delete, got %d", len(c.Items))
	}

	ct.clearOK(t)
	c = ct.getCartOK(t)
	if len(c.Items) != 0 {
		t.Fatalf("expected empty cart after clear, got %d lines", len(c.Items))
	}

	ct.createItemStatus(t, "5b23dd55-64b1-4b95-b421-6e63b1a34e11", 1, http.StatusNotFound)
}

func TestCartMerge(t *testing.T) {
	env, err := NewTestEnv(t, "merge_test")
	if err != nil {
		t.Fatalf("initializing test env: %v", err)
	}

	prt := &productTest{env}
	ct := &cartTest{env}

	pa := prt.createProductOK(t, "5.00", 10)
	pb := prt.createProductOK(t, "3.00", 10)

	// The user leaves 3 of A in their cart.
	if err := Login(env.Server, env.UserEmail, env.UserPass); err != nil {
		t.Fatal(err)
	}
	ct.createItemOK(t, pa.ID, 3)
	if err := Logout(env.Server); err != nil {
		t.Fatal(err)
	}

	// Back as a guest: 2 of A and 1 of B.
	ct.createItemOK(t, pa.ID, 2)
	c := ct.createItemOK(t, pb.ID, 1)
	if c.ExpiresAt == nil {
		t.Fatal("guest cart has no expiry")
	}

	// Logging in folds the guest cart into the user's.
	if err := Login(env.Server, env.UserEmail, env.UserPass); err != nil {
		t.Fatal(err)
	}
	defer Logout(env.Server)

	c = ct.getCartOK(t)
	if c.ExpiresAt != nil {
		t.Fatal("merged cart still carries a guest expiry")
	}
	if len(c.Items) != 2 {
		t.Fatalf("expected two lines after merge, got %d", len(c.Items))
	}
	if it, _ := itemFor(c, pa.ID); it.Quantity != 5 {
		t.Fatalf("expected merged quantity 5 for product A, got %d", it.Quantity)
	}
	if it, _ := itemFor(c, pb.ID); it.Quantity != 1 {
		t.Fatalf("expected quantity 1 for product B, got %d", it.Quantity)
	}

	// The guest cart is gone, not orphaned.
	var n int
	if err := env.DB.Get(&n, "SELECT COUNT(*) FROM carts WHERE session_id IS NOT NULL"); err != nil {
		t.Fatal(err)
	}
	if n != 0 {
		t.Fatalf("expected no guest carts left, found %d", n)
	}

	// A second login with nothing to merge changes nothing.
	if err := Logout(env.Server); err != nil {
		t.Fatal(err)
	}
	if err := Login(env.Server, env.UserEmail, env.UserPass); err != nil {
		t.Fatal(err)
	}
	c = ct.getCartOK(t)
	if it, _ := itemFor(c, pa.ID); it.Quantity != 5 {
		t.Fatalf("idempotent merge changed quantity to %d", it.Quantity)
	}
}

func TestCartExpiry(t *testing.T) {
	env, err := NewTestEnv(t, "expiry_test")
	if err != nil {
		t.Fatalf("initializing test env: %v", err)
	}

	prt := &productTest{env}
	ct := &cartTest{env}

	p := prt.createProductOK(t, "7.00", 10)

	cl := NewSession()
	c := ct.createItemWith(t, cl, p.ID, 2, http.StatusOK)
	if len(c.Items) != 1 {
		t.Fatalf("expected one line, got %d", len(c.Items))
	}

	// Age the cart past its TTL behind the API's back.
	if _, err := env.DB.Exec("UPDATE carts SET expires_at = NOW() - INTERVAL '1 hour' WHERE cart_id = $1", c.ID); err != nil {
		t.Fatal(err)
	}

	// The next read finds it expired and hands back a fresh empty one
	// under the same session.
	fresh := ct.getCartWith(t, cl)
	if len(fresh.Items) != 0 {
		t.Fatalf("expired cart came back with %d lines", len(fresh.Items))
	}
	if fresh.ID == c.ID {
		t.Fatal("expired cart was served instead of a fresh one")
	}
	if fresh.ExpiresAt == nil || !fresh.ExpiresAt.After(c.CreatedAt) {
		t.Fatal("fresh guest cart has no future expiry")
	}
}
