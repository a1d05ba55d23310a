package main

import (
	"context"
	"flag"
	"os"
	"path"

	"github.com/google/subcommands"
	"github.com/nimasrn/finance-ledger/internal/config"
	"github.com/nimasrn/finance-ledger/pkg/logger"
)

var envPath = flag.String("env", "", "path of a dotenv file to load before reading the environment")

func main() {
	commander := subcommands.NewCommander(flag.CommandLine, path.Base(os.Args[0]))
	commander.Register(commander.HelpCommand(), "")
	commander.Register(commander.FlagsCommand(), "")

	for _, c := range commands {
		commander.Register(c, "")
	}

	flag.Parse()
	os.Exit(int(commander.Execute(context.Background())))
}

// loadConfig reads the configuration once a command actually needs it, so
// help works without a database configured.
func loadConfig() (*config.Config, bool) {
	if err := config.Load(*envPath); err != nil {
		logger.Error("failed to load config", "error", err)
		return nil, false
	}
	return config.Get(), true
}
