package test

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"net/http"
	"strconv"
	"strings"
	"testing"

	"github.com/gorilla/mux"
	"github.com/plutov/paypal/v4"
	mock "github.com/stripe/stripe-mock/param"
	"github.com/tventura/storefront/api/web"
	"github.com/tventura/storefront/core/order"
)

// mockStripe mimics the two payment intent endpoints the API touches. When
// expectedAmount is set, intent creation verifies it against the request.
type mockStripe struct {
	expectedAmount int64
}

func (m *mockStripe) handle() http.Handler {
	create := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		params, _ := mock.ParseParams(r)

		s, ok := params["amount"].(string)
		if !ok {
			web.Respond(context.Background(), w, nil, 400)
			return
		}
		amount, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			web.Respond(context.Background(), w, err, 400)
			return
		}

		if m.expectedAmount != 0 && amount != m.expectedAmount {
			web.Respond(context.Background(), w, nil, 400)
			return
		}

		id := fmt.Sprintf("pi_%d", rand.Intn(300))
		pi := map[string]any{
			"id":            id,
			"client_secret": id + "_secret",
			"status":        "requires_payment_method",
			"amount":        amount,
			"currency":      "usd",
		}
		web.Respond(context.Background(), w, pi, 200)
	})

	get := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		pi := map[string]any{
			"id":     mux.Vars(r)["id"],
			"status": "succeeded",
		}
		web.Respond(context.Background(), w, pi, 200)
	})

	r := mux.NewRouter()
	r.Handle("/v1/payment_intents", create).Methods("POST")
	r.Handle("/v1/payment_intents/{id}", get).Methods("GET")
	return r
}

// mockPaypal mimics the order endpoints plus the token endpoint the client
// hits at startup.
type mockPaypal struct {
	expectedValue string
}

func (m *mockPaypal) handle() http.Handler {
	token := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t := map[string]any{
			"access_token": "test-token",
			"token_type":   "Bearer",
			"expires_in":   3600,
		}
		web.Respond(context.Background(), w, t, 200)
	})

	checkout := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var pu struct {
			Units []paypal.PurchaseUnitRequest `json:"purchase_units"`
		}
		if err := json.NewDecoder(r.Body).Decode(&pu); err != nil {
			web.Respond(context.Background(), w, nil, 400)
			return
		}

		if len(pu.Units) != 1 {
			web.Respond(context.Background(), w, nil, 400)
			return
		}

		if m.expectedValue != "" && pu.Units[0].Amount.Value != m.expectedValue {
			web.Respond(context.Background(), w, nil, 400)
			return
		}

		ord := paypal.Order{
			ID:     fmt.Sprintf("paypal-%d", rand.Intn(300)),
			Status: "CREATED",
		}
		web.Respond(context.Background(), w, ord, 200)
	})

	capture := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ord := paypal.Order{ID: mux.Vars(r)["id"], Status: "COMPLETED"}
		web.Respond(context.Background(), w, ord, 200)
	})

	r := mux.NewRouter()
	r.Handle("/v1/oauth2/token", token).Methods("POST")
	r.Handle("/v2/checkout/orders", checkout).Methods("POST")
	r.Handle("/v2/checkout/orders/{id}/capture", capture).Methods("POST")
	return r
}

type paymentTest struct {
	*TestEnv
}

func TestPayment(t *testing.T) {
	env, err := NewTestEnv(t, "payment_test")
	if err != nil {
		t.Fatalf("initializing test env: %v", err)
	}

	pt := &paymentTest{env}
	prt := &productTest{env}
	ct := &cartTest{env}
	ot := &orderTest{env}

	p := prt.createProductOK(t, "49.99", 10)

	pt.testStripe(t, ct, ot, p.ID)
	pt.testPaypal(t, ct, ot, p.ID)
}

func (pt *paymentTest) testStripe(t *testing.T, ct *cartTest, ot *orderTest, productID string) {
	if err := Login(pt.Server, pt.UserEmail, pt.UserPass); err != nil {
		t.Fatal(err)
	}
	defer Logout(pt.Server)

	ct.createItemOK(t, productID, 2)
	ord := ot.checkoutOK(t, "stripe")

	// 2 x 49.99 plus 4.99 shipping, in cents.
	pt.Stripe.expectedAmount = 10497

	intent := pt.createIntentOK(t, ord.ID)
	if intent.ClientSecret == "" {
		t.Fatal("stripe intent is missing its client secret")
	}

	paid := pt.confirmOK(t, ord.ID, intent.TransactionID)
	if paid.Status != order.Confirmed {
		t.Fatalf("expected status CONFIRMED after payment, got %s", paid.Status)
	}
	if paid.PaymentStatus != order.PaymentPaid {
		t.Fatalf("expected payment status PAID, got %s", paid.PaymentStatus)
	}

	// Paying the same order twice must be refused.
	pt.createIntentStatus(t, ord.ID, http.StatusUnprocessableEntity)
}

func (pt *paymentTest) testPaypal(t *testing.T, ct *cartTest, ot *orderTest, productID string) {
	if err := Login(pt.Server, pt.UserEmail, pt.UserPass); err != nil {
		t.Fatal(err)
	}
	defer Logout(pt.Server)

	ct.createItemOK(t, productID, 1)
	ord := ot.checkoutOK(t, "paypal")

	// 49.99 plus 4.99 shipping.
	pt.Paypal.expectedValue = "54.98"

	intent := pt.createIntentOK(t, ord.ID)

	paid := pt.confirmOK(t, ord.ID, intent.TransactionID)
	if paid.Status != order.Confirmed {
		t.Fatalf("expected status CONFIRMED after payment, got %s", paid.Status)
	}
	if paid.PaymentStatus != order.PaymentPaid {
		t.Fatalf("expected payment status PAID, got %s", paid.PaymentStatus)
	}
}

type intentResp struct {
	TransactionID string `json:"transactionId"`
	ClientSecret  string `json:"clientSecret"`
	Status        string `json:"status"`
	Amount        int64  `json:"amount"`
}

func (pt *paymentTest) createIntentOK(t *testing.T, orderID string) intentResp {
	t.Helper()

	body := fmt.Sprintf(`{"orderId":%q}`, orderID)

	r, err := http.NewRequest(http.MethodPost, pt.URL+"/payments/intent", strings.NewReader(body))
	if err != nil {
		t.Fatal(err)
	}
	r.Header.Set("Content-Type", "application/json")

	w, err := pt.Client().Do(r)
	if err != nil {
		t.Fatal(err)
	}
	defer w.Body.Close()

	if w.StatusCode != http.StatusOK {
		t.Fatalf("can't create payment intent: status code %s", w.Status)
	}

	var intent intentResp
	if err := json.NewDecoder(w.Body).Decode(&intent); err != nil {
		t.Fatalf("cannot unmarshal intent: %v", err)
	}
	return intent
}

func (pt *paymentTest) createIntentStatus(t *testing.T, orderID string, want int) {
	t.Helper()

	body := fmt.Sprintf(`{"orderId":%q}`, orderID)

	r, err := http.NewRequest(http.MethodPost, pt.URL+"/payments/intent", strings.NewReader(body))
	if err != nil {
		t.Fatal(err)
	}
	r.Header.Set("Content-Type", "application/json")

	w, err := pt.Client().Do(r)
	if err != nil {
		t.Fatal(err)
	}
	defer w.Body.Close()

	if w.StatusCode != want {
		t.Fatalf("expected status code %d, got %s", want, w.Status)
	}
}

func (pt *paymentTest) confirmOK(t *testing.T, orderID, transactionID string) order.Order {
	t.Helper()

	body := fmt.Sprintf(`{"orderId":%q,"transactionId":%q}`, orderID, transactionID)

	r, err := http.NewRequest(http.MethodPost, pt.URL+"/payments/confirm", strings.NewReader(body))
	if err != nil {
		t.Fatal(err)
	}
	r.Header.Set("Content-Type", "application/json")

	w, err := pt.Client().Do(r)
	if err != nil {
		t.Fatal(err)
	}
	defer w.Body.Close()

	if w.StatusCode != http.StatusOK {
		t.Fatalf("can't confirm payment: status code %s", w.Status)
	}

	var ord order.Order
	if err := json.NewDecoder(w.Body).Decode(&ord); err != nil {
		t.Fatalf("cannot unmarshal order: %v", err)
	}
	return ord
}
