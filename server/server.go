// Package server hosts the gateway's HTTP handler behind a graceful-shutdown
// http.Server, the teacher's only process-lifecycle concern (originally
// shared between a schema-registration server and a gateway server; a
// single schema has nothing left to register, so only the gateway survives,
// renamed Run).
package server

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"

	"github.com/grafast-dev/grafast/bucket"
	"github.com/grafast-dev/grafast/gateway"
	"github.com/grafast-dev/grafast/gql"
	"github.com/grafast-dev/grafast/resolvers"
	"github.com/grafast-dev/grafast/telemetry"
)

// Run loads cfg's schema files, builds an Engine around table and
// resolveType, and serves it on cfg.Port until the process receives
// SIGTERM/SIGINT, at which point it drains in-flight requests for up to 5
// seconds before returning. Grounded on the teacher's RunGateway/RunRegistry
// (server/server.go): the signal.NotifyContext + srv.Shutdown pattern is
// unchanged, generalized to the single long-lived handler this gateway now
// has.
func Run(cfg *gateway.Config, table *resolvers.Table, resolveType bucket.TypeResolver) error {
	if cfg.Opentelemetry.Tracing.Enable {
		provider, err := telemetry.NewProvider(context.Background(), telemetry.Config{
			ServiceName: cfg.ServiceName,
			Endpoint:    cfg.Opentelemetry.Tracing.Endpoint,
			Insecure:    cfg.Opentelemetry.Tracing.Insecure,
		})
		if err != nil {
			return fmt.Errorf("server: building tracer provider: %w", err)
		}
		otel.SetTracerProvider(provider)
		defer provider.Shutdown(context.Background()) //nolint:errcheck
	}

	sdl, err := cfg.ReadSchemaFiles()
	if err != nil {
		return err
	}
	schema, err := gql.LoadSchema(cfg.ServiceName, sdl)
	if err != nil {
		return fmt.Errorf("server: loading schema: %w", err)
	}

	engine := gateway.NewEngine(schema, table, resolveType)
	gw := gateway.NewGateway(engine, *cfg)

	var handler http.Handler = gw
	if cfg.Opentelemetry.Tracing.Enable {
		handler = otelhttp.NewHandler(gw, cfg.ServiceName)
	}

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Port),
		Handler: handler,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, os.Interrupt)
	defer stop()

	serveErr := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
			return
		}
		serveErr <- nil
	}()

	select {
	case err := <-serveErr:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-serveErr; err != nil {
		log.Printf("server: listen error during shutdown: %v", err)
	}
	return nil
}
