package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/alexedwards/scs/v2"
	"github.com/ardanlabs/conf/v3"
	"github.com/plutov/paypal/v4"
	"github.com/sirupsen/logrus"
	stripecl "github.com/stripe/stripe-go/v74/client"
	"github.com/tventura/storefront/api"
	"github.com/tventura/storefront/api/background"
	"github.com/tventura/storefront/config"
	"github.com/tventura/storefront/core/cart"
	"github.com/tventura/storefront/database"
	"github.com/tventura/storefront/rate"
)

func main() {
	log := logrus.New()
	log.SetOutput(os.Stdout)

	if err := Run(log); err != nil {
		log.Error(err)
		os.Exit(1)
	}
}

func Run(logger *logrus.Logger) error {
	logger.Infof("starting server")
	defer logger.Info("shutdown complete")

	const prefix = "STOREFRONT"
	var cfg config.Config
	if _, err := conf.Parse(prefix, &cfg); err != nil {
		return fmt.Errorf("parsing config: %w", err)
	}

	lw := logger.Writer()
	defer lw.Close()
	errLog := log.New(lw, "", 0)

	db, err := database.Open(cfg.DB)
	if err != nil {
		return fmt.Errorf("failed to open db connection: %w", err)
	}

	if err := database.Migrate(db); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}

	sessionManager := scs.New()
	sessionManager.Lifetime = cfg.Session.Lifetime

	bg := background.New(logger)

	// Expired guest carts are dropped on read as well, the sweep just
	// keeps the table from accumulating abandoned ones.
	bg.Loop(cfg.Cart.PurgeInterval, func() error {
		n, err := cart.DeleteExpired(context.Background(), db)
		if err != nil {
			return fmt.Errorf("purging expired carts: %w", err)
		}
		if n > 0 {
			logger.Infof("purged %d expired guest carts", n)
		}
		return nil
	})

	pp, err := paypal.NewClient(
		cfg.Paypal.ClientID,
		cfg.Paypal.Secret,
		cfg.Paypal.URL,
	)
	if err != nil {
		return fmt.Errorf("failed to build the paypal client: %w", err)
	}

	if _, err = pp.GetAccessToken(context.TODO()); err != nil {
		return fmt.Errorf("failed to get the first paypal access token: %w", err)
	}

	strp := &stripecl.API{}
	strp.Init(cfg.Stripe.APISecret, nil)

	limiter := rate.NewLimiter(cfg.Limit.Burst, cfg.Limit.Expiry, rate.Every(cfg.Limit.Interval))

	mux := api.APIMux(api.APIConfig{
		CorsOrigin: cfg.Cors.Origin,
		Log:        logger,
		DB:         db,
		Session:    sessionManager,
		Limiter:    limiter,
		Paypal:     pp,
		Stripe:     strp,
		StripeCfg:  cfg.Stripe,
		CartCfg:    cfg.Cart,
	})

	api := http.Server{
		Handler:      mux,
		Addr:         cfg.Web.Address,
		ReadTimeout:  cfg.Web.ReadTimeout,
		WriteTimeout: cfg.Web.WriteTimeout,
		IdleTimeout:  cfg.Web.IdleTimeout,
		ErrorLog:     errLog,
	}

	serverErrors := make(chan error, 1)

	go func() {
		logger.Infof("starting api router at %s", api.Addr)
		serverErrors <- api.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		return fmt.Errorf("server error: %w", err)

	case sig := <-shutdown:
		logger.Infof("shutting down: signal %s", sig)

		ctx, cancel := context.WithTimeout(context.Background(), cfg.Web.ShutdownTimeout)
		defer cancel()

		if err := api.Shutdown(ctx); err != nil {
			api.Close()
			return fmt.Errorf("could not stop server gracefully: %w", err)
		}

		if err := bg.Shutdown(ctx); err != nil {
			return fmt.Errorf("could not complete all background tasks: %w", err)
		}
	}
	return nil
}
