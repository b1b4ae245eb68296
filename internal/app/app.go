// Package app assembles the storefront client from its parts: session gate,
// instrumented HTTP transport, store API client, catalog engine, image
// loader, and detail controller.
package app

import (
	"net/http"

	sdkapp "github.com/go-faster/sdk/app"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"

	"github.com/macieszak/confectionery-storefront/internal/detail"
	"github.com/macieszak/confectionery-storefront/internal/domain/catalog"
	"github.com/macieszak/confectionery-storefront/internal/event"
	"github.com/macieszak/confectionery-storefront/internal/imageloader"
	"github.com/macieszak/confectionery-storefront/internal/session"
	"github.com/macieszak/confectionery-storefront/internal/storeapi"
	"github.com/macieszak/confectionery-storefront/pkg/httpclient"
)

// Storefront is the fully wired client engine.
type Storefront struct {
	Gate        *session.TokenGate
	API         *storeapi.Client
	Catalog     *catalog.Engine
	Images      *imageloader.Loader
	Detail      *detail.Controller
	CartChanges *event.Stream[event.CartChange]
}

// Build wires a Storefront from configuration. Telemetry may be nil; tracing
// and metrics are then disabled.
func Build(cfg *Config, m *sdkapp.Telemetry) (*Storefront, error) {
	gate := session.NewTokenGate()

	base := http.RoundTripper(http.DefaultTransport)
	var meter metric.Meter = noop.NewMeterProvider().Meter("")
	if m != nil {
		base = otelhttp.NewTransport(base,
			otelhttp.WithTracerProvider(m.TracerProvider()),
			otelhttp.WithMeterProvider(m.MeterProvider()),
		)
		meter = m.MeterProvider().Meter("storefront")
	}

	mws := []httpclient.Middleware{
		httpclient.LogRequests(),
		httpclient.RequestID(),
		httpclient.Bearer(gate),
	}
	if cfg.Gzip {
		mws = append(mws, httpclient.Gzip())
	}

	api := storeapi.NewClient(cfg.APIBaseURL, &http.Client{
		Transport: httpclient.Wrap(base, mws...),
	})

	engine := catalog.NewEngine(api, catalog.EngineOptions{
		Mode:    catalog.SearchMode(cfg.SearchMode),
		Timeout: cfg.RequestTimeout,
		Meter:   meter,
	})

	images := imageloader.New(api)
	cartChanges := event.NewStream[event.CartChange](8)
	controller := detail.NewController(api, images, gate, cartChanges, detail.Options{
		MaxQuantity: cfg.MaxQuantity,
	})

	return &Storefront{
		Gate:        gate,
		API:         api,
		Catalog:     engine,
		Images:      images,
		Detail:      controller,
		CartChanges: cartChanges,
	}, nil
}
