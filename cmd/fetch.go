package cmd

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/google/subcommands"
)

type fetchCmd struct{}

func (*fetchCmd) Name() string     { return "fetch" }
func (*fetchCmd) Synopsis() string { return "fetches market data and warms the snapshot cache" }
func (*fetchCmd) Usage() string {
	return `mw fetch

  Fetches close prices for every configured instrument and stores the
  snapshot in the cache. A snapshot younger than the configured TTL is
  reused without any network access.
`
}

func (*fetchCmd) SetFlags(*flag.FlagSet) {}

func (c *fetchCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	cfg, err := loadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	table, err := fetchTable(ctx, cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	if table.Len() == 0 {
		fmt.Fprintln(os.Stderr, "Error: empty price table")
		return subcommands.ExitFailure
	}
	fmt.Printf("fetched %d rows for %d instruments, latest %s\n",
		table.Len(), len(table.Instruments()), table.Stamp(table.Len()-1).Format("2006-01-02"))
	return subcommands.ExitSuccess
}
