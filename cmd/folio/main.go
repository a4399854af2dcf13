// Package main is the folio command line.
//
// It reads the same views the dashboard serves and performs the same
// mutations, rendering the output as markdown in the terminal.
package main

import (
	"context"
	"flag"
	"os"
	"path"

	"github.com/google/subcommands"

	"github.com/aristath/folio/internal/cli"
	"github.com/aristath/folio/internal/config"
	"github.com/aristath/folio/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fallbackLog := logger.New(logger.Config{Level: "info", Pretty: true})
		fallbackLog.Fatal().Err(err).Msg("Failed to load configuration")
	}

	// Commands print their own results, logs are for diagnostics only
	level := "warn"
	if cfg.LogLevel == "debug" {
		level = cfg.LogLevel
	}
	log := logger.New(logger.Config{
		Level:  level,
		Pretty: true,
		Output: os.Stderr,
	})

	app := cli.NewApp(cfg, log)

	commander := subcommands.NewCommander(flag.CommandLine, path.Base(os.Args[0]))
	commander.Register(commander.HelpCommand(), "")
	commander.Register(commander.FlagsCommand(), "")
	commander.Register(commander.CommandsCommand(), "")
	app.SetFlags(flag.CommandLine)
	cli.Register(commander, app)

	flag.Parse()
	ctx := context.Background()
	os.Exit(int(commander.Execute(ctx)))
}
