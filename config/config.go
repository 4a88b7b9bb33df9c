package config

import "time"

type Config struct {
	Web     Web
	DB      DB
	Session Session
	Cart    Cart
	Stripe  Stripe
	Paypal  Paypal
	Cors    Cors
	Limit   Limit
}

type Web struct {
	Address         string        `conf:"default:0.0.0.0:8000"`
	ReadTimeout     time.Duration `conf:"default:5s"`
	WriteTimeout    time.Duration `conf:"default:10s"`
	IdleTimeout     time.Duration `conf:"default:120s"`
	ShutdownTimeout time.Duration `conf:"default:20s"`
}

type DB struct {
	User       string `conf:"default:postgres"`
	Password   string `conf:"default:postgres,mask"`
	Host       string `conf:"default:localhost"`
	Name       string `conf:"default:storefront"`
	DisableTLS bool   `conf:"default:true"`
}

type Session struct {
	Lifetime time.Duration `conf:"default:24h"`
}

type Cart struct {
	// GuestTTL is how long a guest cart survives without being claimed.
	GuestTTL      time.Duration `conf:"default:168h"`
	PurgeInterval time.Duration `conf:"default:1h"`
}

type Stripe struct {
	APISecret string `conf:"mask"`
	Currency  string `conf:"default:usd"`
}

type Paypal struct {
	ClientID string
	Secret   string `conf:"mask"`
	URL      string `conf:"default:https://api.sandbox.paypal.com"`
}

type Cors struct {
	Origin string
}

type Limit struct {
	Burst    int           `conf:"default:20"`
	Interval time.Duration `conf:"default:250ms"`
	Expiry   int           `conf:"default:10"`
}
