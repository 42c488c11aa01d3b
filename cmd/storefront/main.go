package main

import (
	"net/http"
	"os"

	_ "github.com/go-sql-driver/mysql"
	"github.com/jmoiron/sqlx"
	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"

	"storefront/pkg/app"
	"storefront/pkg/domain/service"
	amqpinfra "storefront/pkg/infrastructure/amqp"
	"storefront/pkg/infrastructure/mysql"
	"storefront/pkg/transport"
)

func main() {
	cliApp := &cli.App{
		Name:  "storefront",
		Usage: "marketplace storefront with payment reconciliation",
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "run the HTTP API",
				Action: serve,
			},
			{
				Name:   "migrate",
				Usage:  "apply database migrations and exit",
				Action: runMigrations,
			},
		},
	}

	if err := cliApp.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func serve(_ *cli.Context) error {
	cfg, err := app.Load()
	if err != nil {
		return err
	}

	db, err := sqlx.Connect("mysql", cfg.DatabaseDSN)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := mysql.Migrate(db); err != nil {
		return err
	}

	var dispatcher service.EventDispatcher = amqpinfra.NopDispatcher{}
	if cfg.AMQPURL != "" {
		d, err := amqpinfra.Dial(cfg.AMQPURL, cfg.EventsExchange)
		if err != nil {
			return err
		}
		defer d.Close()
		dispatcher = d
	}

	pending := mysql.NewPendingOrderRepository(db)
	orders := mysql.NewOrderRepository(db)
	products := mysql.NewProductRepository(db)
	cards := mysql.NewSavedCardRepository(db)

	checkout := service.NewCheckoutService(pending, products, dispatcher)
	finalizer := service.NewFinalizeService(pending, orders, products, cards, dispatcher)
	sweeper := service.NewSweeper(pending, finalizer, cfg.SweepDelay, cfg.SweepStaleAge)

	widget := gatewayClient(cfg, checkout, finalizer, products)

	handler := transport.NewHandler(finalizer, sweeper, widget, orders, cards)
	router := transport.Router(handler, cfg.AllowedOrigins)

	log.WithField("port", cfg.HTTPPort).Info("storefront listening")
	return http.ListenAndServe(":"+cfg.HTTPPort, router)
}

func runMigrations(_ *cli.Context) error {
	cfg, err := app.Load()
	if err != nil {
		return err
	}

	db, err := sqlx.Connect("mysql", cfg.DatabaseDSN)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := mysql.Migrate(db); err != nil {
		return err
	}
	log.Info("migrations applied")
	return nil
}
