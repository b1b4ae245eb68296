// Command mock-api serves the confectionery store's REST contract from an
// in-memory fixture catalog, for local development of the storefront client.
package main

import (
	"context"
	"net/http"
	"time"

	"github.com/go-faster/errors"
	sdkapp "github.com/go-faster/sdk/app"
	"go.uber.org/zap"

	appkg "github.com/macieszak/confectionery-storefront/internal/app"
	"github.com/macieszak/confectionery-storefront/internal/fakestore"
	"github.com/macieszak/confectionery-storefront/pkg/health"
	"github.com/macieszak/confectionery-storefront/pkg/httpmiddleware"
)

func main() {
	sdkapp.Run(func(ctx context.Context, lg *zap.Logger, _ *sdkapp.Telemetry) error {
		cfg, err := appkg.LoadConfig()
		if err != nil {
			return err
		}

		healthSvc := health.New()
		healthSvc.AddCheck("goroutines", time.Second, health.GoroutineCountCheck(500))
		healthSvc.Start(ctx, 10*time.Second)

		mux := http.NewServeMux()
		mux.HandleFunc("/livez", healthSvc.LiveEndpoint)
		mux.HandleFunc("/readyz", healthSvc.ReadyEndpoint)
		mux.Handle("/", fakestore.New().Handler())

		server := &http.Server{
			Addr: cfg.Mock.Addr,
			Handler: httpmiddleware.Wrap(mux,
				httpmiddleware.Recovery(),
				httpmiddleware.CORS(httpmiddleware.CORSConfig{MaxAge: "86400"}),
				httpmiddleware.InjectLogger(lg),
				httpmiddleware.RequestID(),
				httpmiddleware.LogRequests(),
			),
			ReadHeaderTimeout: time.Second,
			ReadTimeout:       5 * time.Second,
			WriteTimeout:      10 * time.Second,
		}

		shutdownDone := make(chan struct{})
		go func() {
			<-ctx.Done()
			healthSvc.SetReady(false)
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := server.Shutdown(shutdownCtx); err != nil {
				lg.Error("server shutdown error", zap.Error(err))
			}
			healthSvc.Stop()
			close(shutdownDone)
		}()

		healthSvc.SetReady(true)
		lg.Info("mock store API listening", zap.String("addr", cfg.Mock.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return errors.Wrap(err, "server")
		}
		<-shutdownDone
		return nil
	})
}
