// Command storefront is a headless demo of the storefront client engine: it
// resolves a catalog query against a running store API, prints the result,
// and optionally opens a product detail view and adds it to the cart.
package main

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	sdkapp "github.com/go-faster/sdk/app"
	"go.uber.org/zap"

	appkg "github.com/macieszak/confectionery-storefront/internal/app"
	"github.com/macieszak/confectionery-storefront/internal/domain/catalog"
)

func main() {
	sdkapp.Run(func(ctx context.Context, lg *zap.Logger, m *sdkapp.Telemetry) error {
		cfg, err := appkg.LoadConfig()
		if err != nil {
			return err
		}
		sf, err := appkg.Build(cfg, m)
		if err != nil {
			return err
		}
		if cfg.Token != "" {
			if err := sf.Gate.SignIn(cfg.Token); err != nil {
				return errors.Wrap(err, "sign in")
			}
		}
		if err := browse(ctx, lg, cfg, sf); err != nil {
			return err
		}
		return openDetail(ctx, lg, cfg, sf)
	})
}

// browse applies the configured axes and waits for the newest resolution.
func browse(ctx context.Context, lg *zap.Logger, cfg *appkg.Config, sf *appkg.Storefront) error {
	updates, cancelUpdates := sf.Catalog.Updates()
	defer cancelUpdates()
	failures, cancelFailures := sf.Catalog.Failures()
	defer cancelFailures()

	b := cfg.Browse
	issued := uint64(0)
	if b.Search != "" {
		sf.Catalog.SetSearchText(ctx, b.Search)
		issued++
	}
	if b.Category != string(catalog.CategoryAll) {
		sf.Catalog.SetCategory(ctx, catalog.CategoryFilter(b.Category))
		issued++
	}
	if b.PriceBand != string(catalog.BandAll) {
		sf.Catalog.SetPriceBand(ctx, catalog.PriceBand(b.PriceBand))
		issued++
	}
	if b.Sort != string(catalog.SortDefault) {
		sf.Catalog.SetSortOrder(ctx, catalog.SortOrder(b.Sort))
		issued++
	}
	if issued == 0 {
		sf.Catalog.Refresh(ctx)
		issued = 1
	}

	timeout := time.After(30 * time.Second)
	for {
		select {
		case snap := <-updates:
			if snap.Seq < issued {
				continue
			}
			lg.Info("catalog resolved",
				zap.Uint64("seq", snap.Seq),
				zap.Int("count", len(snap.Products)),
			)
			for _, p := range snap.Products {
				lg.Info("product",
					zap.Int64("id", p.ID),
					zap.String("name", p.Name),
					zap.String("category", string(p.Category)),
					zap.String("price", p.Price.StringFixed(2)),
				)
			}
			return nil
		case fail := <-failures:
			if fail.Seq < issued {
				continue
			}
			return errors.Wrap(fail.Err, "resolve catalog")
		case <-timeout:
			return errors.New("timed out waiting for catalog")
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// openDetail loads the configured product and optionally adds it to the cart.
func openDetail(ctx context.Context, lg *zap.Logger, cfg *appkg.Config, sf *appkg.Storefront) error {
	b := cfg.Browse
	if b.ProductID == 0 {
		return nil
	}
	if err := sf.Detail.Load(ctx, b.ProductID); err != nil {
		return errors.Wrap(err, "load product")
	}
	p := sf.Detail.Product()
	lg.Info("product detail",
		zap.Int64("id", p.ID),
		zap.String("name", p.Name),
		zap.String("price", p.Price.StringFixed(2)),
		zap.String("description", p.Description),
	)

	// The image resolves in the background; give it a moment for the demo.
	for range 40 {
		if img := sf.Detail.Image(); img != nil {
			lg.Info("image resolved",
				zap.String("name", img.Name()),
				zap.Int("bytes", len(img.Bytes())),
				zap.Bool("placeholder", img.Placeholder()),
			)
			break
		}
		time.Sleep(50 * time.Millisecond)
	}

	if b.AddToCart <= 0 {
		return nil
	}
	events, cancel := sf.CartChanges.Subscribe()
	defer cancel()
	for range b.AddToCart - 1 {
		sf.Detail.IncrementQuantity()
	}
	if err := sf.Detail.AddToCart(ctx); err != nil {
		return errors.Wrap(err, "add to cart")
	}
	select {
	case change := <-events:
		lg.Info("cart updated",
			zap.Int64("product_id", change.ProductID),
			zap.Int("quantity", change.Quantity),
		)
	default:
	}
	return nil
}
