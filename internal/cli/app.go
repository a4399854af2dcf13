// Package cli implements the folio command line: dashboard views rendered as
// markdown and the same mutations the dashboard forms offer.
package cli

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"sort"
	"sync"

	"github.com/google/subcommands"
	"github.com/rs/zerolog"

	"github.com/aristath/folio/internal/clients/entitystore"
	"github.com/aristath/folio/internal/config"
	"github.com/aristath/folio/internal/di"
	"github.com/aristath/folio/internal/mutation"
	"github.com/aristath/folio/internal/report"
)

// styleMarkdown prints reports as raw markdown instead of rendering them
const styleMarkdown = "markdown"

// App is the state shared by every command
type App struct {
	Out io.Writer
	Err io.Writer

	StoreURL string // overrides ENTITY_STORE_URL when set
	Style    string // glamour style, "auto", or "markdown"

	cfg *config.Config
	log zerolog.Logger

	once      sync.Once
	container *di.Container
	initErr   error
}

// NewApp creates the command line application
func NewApp(cfg *config.Config, log zerolog.Logger) *App {
	return &App{
		Out:   os.Stdout,
		Err:   os.Stderr,
		Style: "auto",
		cfg:   cfg,
		log:   log,
	}
}

// SetFlags registers the global flags
func (a *App) SetFlags(f *flag.FlagSet) {
	f.StringVar(&a.StoreURL, "store", "", "Entity store base URL (defaults to ENTITY_STORE_URL).")
	f.StringVar(&a.Style, "style", a.Style, "Output style: auto, dark, light, notty, ascii or markdown.")
}

// Register the subcommands.
func Register(c *subcommands.Commander, app *App) {
	c.Register(&overviewCmd{app: app}, "views")
	c.Register(&clientsCmd{app: app}, "views")
	c.Register(&clientCmd{app: app}, "views")
	c.Register(&assetsCmd{app: app}, "views")
	c.Register(&assetCmd{app: app}, "views")
	c.Register(&allocationsCmd{app: app}, "views")

	c.Register(&addClientCmd{app: app}, "clients")
	c.Register(&updateClientCmd{app: app}, "clients")
	c.Register(&setStatusCmd{app: app}, "clients")

	c.Register(&addAssetCmd{app: app}, "assets")
	c.Register(&updateAssetCmd{app: app}, "assets")

	c.Register(&allocateCmd{app: app}, "allocations")
	c.Register(&deallocateCmd{app: app}, "allocations")
}

// services builds the dashboard services on first use, after flags are parsed
func (a *App) services() (*di.Container, error) {
	a.once.Do(func() {
		cfg := *a.cfg
		if a.StoreURL != "" {
			cfg.EntityStore.URL = a.StoreURL
		}
		// One-shot commands have nothing to keep fresh
		cfg.EntityStore.Watch = false

		if err := cfg.Validate(); err != nil {
			a.initErr = err
			return
		}
		a.container = di.InitializeServices(&cfg, a.log)
	})
	return a.container, a.initErr
}

func (a *App) currency() string {
	return a.cfg.Currency
}

// printMarkdown renders md for the terminal, or prints it as is
func (a *App) printMarkdown(md string) subcommands.ExitStatus {
	if a.Style == styleMarkdown {
		fmt.Fprint(a.Out, md)
		return subcommands.ExitSuccess
	}

	out, err := report.Terminal(md, a.Style)
	if err != nil {
		return a.fail(err)
	}
	fmt.Fprint(a.Out, out)
	return subcommands.ExitSuccess
}

// fail reports err on stderr, one line per invalid field for validation errors
func (a *App) fail(err error) subcommands.ExitStatus {
	var validationErr *mutation.ValidationError
	if errors.As(err, &validationErr) {
		fmt.Fprintln(a.Err, "validation failed:")
		fields := make([]string, 0, len(validationErr.Fields))
		for field := range validationErr.Fields {
			fields = append(fields, field)
		}
		sort.Strings(fields)
		for _, field := range fields {
			fmt.Fprintf(a.Err, "  %s: %s\n", field, validationErr.Fields[field])
		}
		return subcommands.ExitFailure
	}

	if apiErr, ok := entitystore.AsAPIError(err); ok {
		fmt.Fprintf(a.Err, "entity store: %s\n", apiErr.Message)
		return subcommands.ExitFailure
	}

	fmt.Fprintln(a.Err, err)
	return subcommands.ExitFailure
}

// usage reports a misuse of a command
func (a *App) usage(f *flag.FlagSet, format string, args ...interface{}) subcommands.ExitStatus {
	fmt.Fprintf(a.Err, format+"\n", args...)
	f.SetOutput(a.Err)
	f.Usage()
	return subcommands.ExitUsageError
}
