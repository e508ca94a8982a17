package cmd

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/subcommands"
	"github.com/neufin/neufin/server"
)

// shutdownTimeout bounds the graceful shutdown of the dashboard server.
const shutdownTimeout = 10 * time.Second

// serveCmd runs the holdings dashboard server.
type serveCmd struct {
	addr string
}

func (*serveCmd) Name() string     { return "serve" }
func (*serveCmd) Synopsis() string { return "serve the holdings dashboard over HTTP" }
func (*serveCmd) Usage() string {
	return `neufin serve [-addr <host:port>]

  Serves the holdings API and page. Requests are authenticated with the
  caller's bearer token or session cookie. See "neufin topic server".
`
}

func (c *serveCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.addr, "addr", "", "listen address (defaults to server.host:server.port)")
}

func (c *serveCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	cfg, err := loadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading configuration: %v\n", err)
		return subcommands.ExitUsageError
	}
	log := newLogger(cfg)

	addr := cfg.Server.Addr()
	if c.addr != "" {
		addr = c.addr
	}

	srv := server.New(server.Config{
		Addr:           addr,
		Log:            log,
		Source:         newBackend(cfg, log),
		Cache:          newCache(cfg, log),
		SessionCookie:  cfg.Backend.SessionCookie,
		Locale:         cfg.Display.Locale,
		CORSOrigins:    cfg.Server.CORSOrigins,
		RequestTimeout: cfg.Server.RequestTimeoutDuration(),
	})

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errc := make(chan error, 1)
	go func() {
		errc <- srv.Start()
	}()

	select {
	case err := <-errc:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("Server failed")
			return subcommands.ExitFailure
		}
		return subcommands.ExitSuccess
	case <-ctx.Done():
	}

	log.Info().Msg("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
		return subcommands.ExitFailure
	}
	log.Info().Msg("Server stopped")
	return subcommands.ExitSuccess
}
