package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/google/subcommands"
)

type snapshotCmd struct {
	timeout time.Duration
	compact bool
}

func (*snapshotCmd) Name() string     { return "snapshot" }
func (*snapshotCmd) Synopsis() string { return "load the bootstrap snapshot once and print it as JSON" }
func (*snapshotCmd) Usage() string {
	return `snapshot [-timeout <duration>] [-compact]

  Runs the same bootstrap read as "run" (portfolio, symbols, bot status and
  the quotes of every tracked or held symbol) without opening the stream.
`
}

func (s *snapshotCmd) SetFlags(f *flag.FlagSet) {
	f.DurationVar(&s.timeout, "timeout", 30*time.Second, "overall deadline for the snapshot requests")
	f.BoolVar(&s.compact, "compact", false, "print single-line JSON")
}

// -----------------------------------------------------------------------------

func (s *snapshotCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	conf, err := loadConfig()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	loader := setupLoader(conf.MConfig, setupNetwork(conf.MConfig))
	snap, err := loader.LoadSnapshot(ctx)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}

	enc := json.NewEncoder(os.Stdout)
	if !s.compact {
		enc.SetIndent("", "  ")
	}
	if err := enc.Encode(snap); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}
