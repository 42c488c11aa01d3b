package app

import (
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	HTTPPort string `envconfig:"HTTP_PORT" default:"8080"`

	DatabaseDSN string `envconfig:"DATABASE_DSN" default:"storefront:storefront@tcp(localhost:3306)/storefront?parseTime=true"`

	AMQPURL        string `envconfig:"AMQP_URL" default:""`
	EventsExchange string `envconfig:"EVENTS_EXCHANGE" default:"storefront.events"`

	TokenEndpoint   string `envconfig:"EPAY_TOKEN_ENDPOINT" default:"https://epay.example.com/oauth2/token"`
	WidgetScriptURL string `envconfig:"EPAY_WIDGET_SCRIPT_URL" default:"https://epay.example.com/payform/payment-api.js"`
	Terminal        string `envconfig:"EPAY_TERMINAL" default:""`
	ClientSecret    string `envconfig:"EPAY_CLIENT_SECRET" default:""`
	Currency        string `envconfig:"EPAY_CURRENCY" default:"KZT"`
	BackLink        string `envconfig:"EPAY_BACK_LINK" default:""`
	FailureBackLink string `envconfig:"EPAY_FAILURE_BACK_LINK" default:""`
	PostLink        string `envconfig:"EPAY_POST_LINK" default:""`

	SweepDelay    time.Duration `envconfig:"SWEEP_DELAY" default:"35s"`
	SweepStaleAge time.Duration `envconfig:"SWEEP_STALE_AGE" default:"30s"`

	AllowedOrigins []string `envconfig:"ALLOWED_ORIGINS" default:"*"`
}

func Load() (Config, error) {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("storefront", &cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
