package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"dashboard-sync/src/logger"
	"dashboard-sync/src/snapshot"

	"github.com/google/subcommands"
)

type botCmd struct{}

func (*botCmd) Name() string     { return "bot" }
func (*botCmd) Synopsis() string { return "start, stop or query the trading bot" }
func (*botCmd) Usage() string {
	return `bot start|stop|status

  Calls the trading API's control endpoints and prints the response. The
  running state shown by "run" follows the stream, not this command.
`
}

func (*botCmd) SetFlags(*flag.FlagSet) {}

// -----------------------------------------------------------------------------

func (*botCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "bot: expected one of start, stop, status")
		return subcommands.ExitUsageError
	}

	conf, err := loadConfig()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	cfg := conf.MConfig
	bot := snapshot.NewBotController(cfg, setupNetwork(cfg), logger.NewLogger(cfg, "BotControl"))

	var out interface{}
	switch f.Arg(0) {
	case "start":
		out, err = bot.Start(ctx)
	case "stop":
		out, err = bot.Stop(ctx)
	case "status":
		out, err = bot.Status(ctx)
	default:
		fmt.Fprintf(os.Stderr, "bot: unknown action %q\n", f.Arg(0))
		return subcommands.ExitUsageError
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}

	body, _ := json.Marshal(out)
	fmt.Println(string(body))
	return subcommands.ExitSuccess
}
