package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/google/subcommands"
)

type configCmd struct {
	out string
}

func (*configCmd) Name() string     { return "config" }
func (*configCmd) Synopsis() string { return "print or write the effective configuration" }
func (*configCmd) Usage() string {
	return `config [-o <path>]

  Resolves the config file, its defaults and the DASHBOARD_* environment
  overrides exactly as "run" does, then prints the result as YAML. With -o
  the result is written to <path> instead.
`
}

func (c *configCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.out, "o", "", "write to this file instead of stdout")
}

// -----------------------------------------------------------------------------

func (c *configCmd) Execute(_ context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	conf, err := loadConfig()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}

	if c.out == "" {
		err = conf.WriteYAML(os.Stdout)
	} else {
		err = conf.Save(c.out)
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}
