package main

import (
	"storefront/pkg/app"
	"storefront/pkg/domain/model"
	"storefront/pkg/domain/service"
	"storefront/pkg/gateway"
)

func gatewayClient(cfg app.Config, checkout service.CheckoutService, finalizer service.FinalizeService, products model.ProductRepository) *gateway.Client {
	return gateway.NewClient(
		gateway.NewTokenClient(cfg.TokenEndpoint, cfg.Terminal, cfg.ClientSecret, nil),
		gateway.NewScriptLoader(cfg.WidgetScriptURL, nil),
		checkout,
		finalizer,
		products,
		gateway.ClientConfig{
			Currency:        cfg.Currency,
			ScriptURL:       cfg.WidgetScriptURL,
			BackLink:        cfg.BackLink,
			FailureBackLink: cfg.FailureBackLink,
			PostLink:        cfg.PostLink,
		},
	)
}
