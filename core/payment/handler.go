package payment

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/plutov/paypal/v4"
	"github.com/shopspring/decimal"
	"github.com/stripe/stripe-go/v74"
	stripecl "github.com/stripe/stripe-go/v74/client"
	"github.com/tventura/storefront/api/web"
	"github.com/tventura/storefront/api/weberr"
	"github.com/tventura/storefront/config"
	"github.com/tventura/storefront/core/claims"
	"github.com/tventura/storefront/core/order"
	"github.com/tventura/storefront/validate"
)

var cents = decimal.NewFromInt(100)

// HandleCreateIntent asks the order's payment processor for a payment
// reference over the order total and records it on the order.
func HandleCreateIntent(db *sqlx.DB, strp *stripecl.API, pp *paypal.Client, cfg config.Stripe) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		clm, err := claims.Get(ctx)
		if err != nil {
			return weberr.NotAuthorized(errors.New("user not authenticated"))
		}

		var in IntentNew
		if err := web.Decode(w, r, &in); err != nil {
			return weberr.BadRequest(fmt.Errorf("decoding intent: %w", err))
		}

		if err := validate.Check(in); err != nil {
			return weberr.NewError(err, err.Error(), http.StatusUnprocessableEntity)
		}

		ord, err := order.Fetch(ctx, db, in.OrderID)
		if err != nil {
			if errors.Is(err, order.ErrNotFound) {
				return weberr.NotFound(err)
			}
			return fmt.Errorf("fetching order[%s]: %w", in.OrderID, err)
		}

		if ord.UserID != clm.UserID {
			return weberr.Forbidden(order.ErrNotOwner)
		}

		if ord.PaymentStatus == order.PaymentPaid {
			return weberr.NewError(ErrAlreadyPaid, ErrAlreadyPaid.Error(), http.StatusUnprocessableEntity)
		}

		var intent Intent
		switch ord.PaymentMethod {
		case "paypal":
			intent, err = paypalIntent(ctx, pp, ord)
		default:
			intent, err = stripeIntent(strp, cfg, ord)
		}
		if err != nil {
			return fmt.Errorf("creating payment reference for order[%s]: %w", ord.ID, err)
		}

		up := order.PaymentUp{
			ID:            ord.ID,
			PaymentStatus: order.PaymentPending,
			TransactionID: intent.TransactionID,
			UpdatedAt:     time.Now().UTC(),
		}
		if err := order.UpdatePayment(ctx, db, up); err != nil {
			return fmt.Errorf("recording payment reference on order[%s]: %w", ord.ID, err)
		}

		return web.Respond(ctx, w, intent, http.StatusOK)
	}
}

// HandleConfirm checks the processor's verdict on a payment reference and,
// on success, marks the order paid and confirmed.
func HandleConfirm(db *sqlx.DB, strp *stripecl.API, pp *paypal.Client) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		clm, err := claims.Get(ctx)
		if err != nil {
			return weberr.NotAuthorized(errors.New("user not authenticated"))
		}

		var in ConfirmNew
		if err := web.Decode(w, r, &in); err != nil {
			return weberr.BadRequest(fmt.Errorf("decoding confirmation: %w", err))
		}

		if err := validate.Check(in); err != nil {
			return weberr.NewError(err, err.Error(), http.StatusUnprocessableEntity)
		}

		ord, err := order.Fetch(ctx, db, in.OrderID)
		if err != nil {
			if errors.Is(err, order.ErrNotFound) {
				return weberr.NotFound(err)
			}
			return fmt.Errorf("fetching order[%s]: %w", in.OrderID, err)
		}

		if ord.UserID != clm.UserID {
			return weberr.Forbidden(order.ErrNotOwner)
		}

		var succeeded bool
		switch ord.PaymentMethod {
		case "paypal":
			resp, err := pp.CaptureOrder(ctx, in.TransactionID, paypal.CaptureOrderRequest{})
			if err != nil {
				return fmt.Errorf("capturing paypal order[%s]: %w", in.TransactionID, err)
			}
			succeeded = resp.Status == "COMPLETED"

		default:
			pi, err := strp.PaymentIntents.Get(in.TransactionID, nil)
			if err != nil {
				return fmt.Errorf("retrieving payment intent[%s]: %w", in.TransactionID, err)
			}
			succeeded = pi.Status == stripe.PaymentIntentStatusSucceeded
		}

		if !succeeded {
			err := errors.New("payment not successful")
			return weberr.NewError(err, err.Error(), http.StatusUnprocessableEntity)
		}

		ord, err = order.MarkPaid(ctx, db, ord.ID)
		if err != nil {
			if errors.Is(err, order.ErrInvalidTransition) {
				return weberr.NewError(err, "order cannot be confirmed in its current status", http.StatusUnprocessableEntity)
			}
			return fmt.Errorf("the order was payed but its confirmation failed: %w", err)
		}

		return web.Respond(ctx, w, ord, http.StatusOK)
	}
}

func stripeIntent(strp *stripecl.API, cfg config.Stripe, ord order.Order) (Intent, error) {
	amount := ord.TotalAmount.Mul(cents).IntPart()

	params := &stripe.PaymentIntentParams{
		Amount:   stripe.Int64(amount),
		Currency: stripe.String(cfg.Currency),

		AutomaticPaymentMethods: &stripe.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled: stripe.Bool(true),
		},
	}
	params.AddMetadata("order_number", ord.Number)

	pi, err := strp.PaymentIntents.New(params)
	if err != nil {
		return Intent{}, fmt.Errorf("creating stripe payment intent: %w", err)
	}

	return Intent{
		TransactionID: pi.ID,
		ClientSecret:  pi.ClientSecret,
		Status:        string(pi.Status),
		Amount:        pi.Amount,
		Currency:      string(pi.Currency),
	}, nil
}

func paypalIntent(ctx context.Context, pp *paypal.Client, ord order.Order) (Intent, error) {
	units := []paypal.PurchaseUnitRequest{{
		Amount: &paypal.PurchaseUnitAmount{
			Currency: "USD",
			Value:    ord.TotalAmount.StringFixed(2),
		},
	}}

	resp, err := pp.CreateOrder(ctx, "CAPTURE", units, nil, nil)
	if err != nil {
		return Intent{}, fmt.Errorf("creating paypal order: %w", err)
	}

	return Intent{
		TransactionID: resp.ID,
		Status:        resp.Status,
		Amount:        ord.TotalAmount.Mul(cents).IntPart(),
		Currency:      "usd",
	}, nil
}
