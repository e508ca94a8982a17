// Package cmd implements the neufin command line application.
package cmd

import (
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/google/subcommands"
	"github.com/neufin/neufin/backend"
	"github.com/neufin/neufin/config"
	"github.com/neufin/neufin/logger"
	"github.com/neufin/neufin/query"
	"github.com/neufin/neufin/renderer"
	"github.com/neufin/neufin/view"
	"github.com/rs/zerolog"
)

// Register the subcommands.
// A main package will call Register() to allow subcommands, and Execute() on the user-selected one.
func Register(c *subcommands.Commander) {
	c.Register(&holdingsCmd{}, "holdings")
	c.Register(&aggregateCmd{}, "holdings")
	c.Register(&formatCmd{}, "holdings")

	c.Register(&serveCmd{}, "server")

	c.Register(&assistCmd{}, "assistant")

	c.Register(&topicCmd{}, "help")
}

// as a CLI application, it has a very short lived lifecycle, so it is ok to use global variables.

var configFiles stringList
var verbose = flag.Bool("v", false, "log debug messages to stderr")

func init() {
	flag.Var(&configFiles, "config", "TOML configuration file; repeat to layer files, later ones win")
}

// stringList is a repeatable string flag.
type stringList []string

func (l *stringList) String() string     { return strings.Join(*l, ",") }
func (l *stringList) Set(s string) error { *l = append(*l, s); return nil }

// loadConfig loads the configuration from the -config files and the environment.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configFiles...)
	if err != nil {
		return nil, err
	}
	if *verbose {
		cfg.Logging.Level = "debug"
	}
	return cfg, nil
}

// newLogger returns the application logger. It writes to stderr so that
// command output stays clean.
func newLogger(cfg *config.Config) zerolog.Logger {
	l := logger.New(logger.Config{
		Level:  cfg.Logging.Level,
		Pretty: cfg.Logging.Pretty,
		Output: os.Stderr,
	})
	logger.SetGlobalLogger(l)
	return l
}

// newBackend returns the backend client described by cfg.
func newBackend(cfg *config.Config, log zerolog.Logger) *backend.Client {
	return backend.NewClient(cfg.Backend.BaseURL,
		backend.WithHoldingsPath(cfg.Backend.HoldingsPath),
		backend.WithTimeout(cfg.Backend.TimeoutDuration()),
		backend.WithRateLimit(cfg.Backend.RateLimit),
		backend.WithLogger(log),
		backend.WithTransport(backend.LoggingTransport(nil, log)),
	)
}

// newCache returns the holdings cache described by cfg.
func newCache(cfg *config.Config, log zerolog.Logger) *view.Cache {
	return view.NewCache(
		query.WithStaleTime(cfg.Holdings.StaleDuration()),
		query.WithLogger(log),
	)
}

// cliSession returns the session of the command line user.
func cliSession(cfg *config.Config) (backend.Session, error) {
	s := backend.Session{Token: cfg.Backend.Token}
	if s.IsZero() {
		return s, fmt.Errorf("%w: set NEUFIN_TOKEN or backend.token", backend.ErrNoSession)
	}
	return s, nil
}

// printMarkdown prints md styled for the terminal, or as is when styling fails.
func printMarkdown(md string) {
	out, err := renderer.Terminal(md, 100)
	if err != nil {
		fmt.Print(md)
		return
	}
	fmt.Print(out)
}
