package api

import (
	"context"
	"net/http"

	"github.com/alexedwards/scs/v2"
	"github.com/gorilla/mux"
	"github.com/jmoiron/sqlx"
	"github.com/plutov/paypal/v4"
	"github.com/sirupsen/logrus"
	stripecl "github.com/stripe/stripe-go/v74/client"
	"github.com/tventura/storefront/api/middleware"
	"github.com/tventura/storefront/api/web"
	"github.com/tventura/storefront/config"
	"github.com/tventura/storefront/core/auth"
	"github.com/tventura/storefront/core/cart"
	"github.com/tventura/storefront/core/order"
	"github.com/tventura/storefront/core/payment"
	"github.com/tventura/storefront/core/product"
	"github.com/tventura/storefront/core/user"
	"github.com/tventura/storefront/rate"
)

type APIConfig struct {
	CorsOrigin string
	Log        logrus.FieldLogger
	DB         *sqlx.DB
	Session    *scs.SessionManager
	Limiter    *rate.Limiter
	Paypal     *paypal.Client
	Stripe     *stripecl.API
	StripeCfg  config.Stripe
	CartCfg    config.Cart
}

type api struct {
	*mux.Router
	mw  []web.Middleware
	log logrus.FieldLogger
}

func APIMux(cfg APIConfig) http.Handler {
	a := &api{
		Router: mux.NewRouter(),
		log:    cfg.Log,
	}

	a.mw = append(a.mw, auth.LoadAndSave(cfg.Session))
	a.mw = append(a.mw, middleware.RequestID())
	a.mw = append(a.mw, middleware.Logger(cfg.Log))
	a.mw = append(a.mw, middleware.Errors(cfg.Log))
	a.mw = append(a.mw, middleware.Panics())

	if cfg.Limiter != nil {
		a.mw = append(a.mw, middleware.RateLimit(cfg.Limiter))
	}

	if cfg.CorsOrigin != "" {
		a.mw = append(a.mw, middleware.Cors(cfg.CorsOrigin))

		h := func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
			w.WriteHeader(http.StatusNoContent)
			return nil
		}

		a.Handle(http.MethodOptions, "/{path:.*}", h)
	}

	authen := auth.Authenticate(cfg.Session)
	admin := auth.Admin(cfg.Session)

	a.Handle(http.MethodPost, "/auth/signup", auth.HandleSignup(cfg.DB))
	a.Handle(http.MethodPost, "/auth/login", auth.HandleLogin(cfg.DB, cfg.Session))
	a.Handle(http.MethodPost, "/auth/logout", auth.HandleLogout(cfg.Session))

	a.Handle(http.MethodGet, "/users/current", user.HandleShowCurrent(cfg.DB), authen)

	a.Handle(http.MethodGet, "/products/{id}", product.HandleShow(cfg.DB))
	a.Handle(http.MethodGet, "/products", product.HandleList(cfg.DB))
	a.Handle(http.MethodPost, "/products", product.HandleCreate(cfg.DB), admin)
	a.Handle(http.MethodPut, "/products/{id}", product.HandleUpdate(cfg.DB), admin)

	a.Handle(http.MethodGet, "/cart", cart.HandleShow(cfg.DB, cfg.Session, cfg.CartCfg))
	a.Handle(http.MethodDelete, "/cart", cart.HandleClear(cfg.DB, cfg.Session, cfg.CartCfg))
	a.Handle(http.MethodPost, "/cart/items", cart.HandleCreateItem(cfg.DB, cfg.Session, cfg.CartCfg))
	a.Handle(http.MethodPut, "/cart/items/{id}", cart.HandleUpdateItem(cfg.DB, cfg.Session, cfg.CartCfg))
	a.Handle(http.MethodDelete, "/cart/items/{id}", cart.HandleDeleteItem(cfg.DB, cfg.Session, cfg.CartCfg))

	a.Handle(http.MethodPost, "/orders/checkout", order.HandleCheckout(cfg.DB), authen)
	a.Handle(http.MethodGet, "/orders/number/{number}", order.HandleShowByNumber(cfg.DB), authen)
	a.Handle(http.MethodGet, "/orders/{id}", order.HandleShow(cfg.DB), authen)
	a.Handle(http.MethodGet, "/orders", order.HandleList(cfg.DB), authen)
	a.Handle(http.MethodPost, "/orders/{id}/cancel", order.HandleCancel(cfg.DB), authen)

	a.Handle(http.MethodGet, "/admin/orders", order.HandleListAll(cfg.DB), admin)
	a.Handle(http.MethodPut, "/admin/orders/{id}/status", order.HandleUpdateStatus(cfg.DB), admin)

	a.Handle(http.MethodPost, "/payments/intent", payment.HandleCreateIntent(cfg.DB, cfg.Stripe, cfg.Paypal, cfg.StripeCfg), authen)
	a.Handle(http.MethodPost, "/payments/confirm", payment.HandleConfirm(cfg.DB, cfg.Stripe, cfg.Paypal), authen)

	return a.Router
}

func (a *api) Handle(method string, path string, handler web.Handler, mw ...web.Middleware) {

	handler = web.WrapMiddleware(mw, handler)

	handler = web.WrapMiddleware(a.mw, handler)

	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {

		ctx := r.Context()

		if err := handler(ctx, w, r); err != nil {

			a.log.WithFields(logrus.Fields{
				"req_id":  middleware.ContextRequestID(ctx),
				"message": err,
			}).Error("ERROR")
		}
	})

	a.Router.Handle(path, h).Methods(method)
}
