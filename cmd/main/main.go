package main

import (
	"context"
	"flag"
	"os"
	"path"

	"github.com/google/subcommands"
)

var (
	configPath = flag.String("config", "config/default.yaml", "path to config file")
	envFile    = flag.String("env", ".env", "optional .env file with DASHBOARD_* overrides")
)

func main() {
	commander := subcommands.NewCommander(flag.CommandLine, path.Base(os.Args[0]))
	commander.Register(commander.HelpCommand(), "")
	commander.Register(commander.FlagsCommand(), "")
	commander.Register(&runCmd{}, "")
	commander.Register(&snapshotCmd{}, "")
	commander.Register(&botCmd{}, "")
	commander.Register(&configCmd{}, "")

	flag.Parse()
	os.Exit(int(commander.Execute(context.Background())))
}
