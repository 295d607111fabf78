package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/evrardb/marketwatch"
	"github.com/google/subcommands"
)

// summaryCmd holds the flags for the 'summary' subcommand.
type summaryCmd struct {
	horizons string
}

func (*summaryCmd) Name() string     { return "summary" }
func (*summaryCmd) Synopsis() string { return "display last price and changes per instrument" }
func (*summaryCmd) Usage() string {
	return `mw summary [-horizons 1d,1mo,1y]

  Displays, as JSON, the last valid close price of every configured
  instrument and its percentage change over the given horizons. A horizon
  not covered by the fetched period is omitted for that instrument.
`
}

func (c *summaryCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.horizons, "horizons", "1d,1mo,1y", "Comma-separated list of horizons")
}

func (c *summaryCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	horizons, err := parseHorizons(c.horizons)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitUsageError
	}
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

	output := make(map[string]map[string]any, len(cfg.Instruments()))
	for _, instrument := range cfg.Instruments() {
		precision := cfg.DisplayPrecision(instrument)
		on, price, err := table.LastValid(instrument, precision)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %s: %v\n", instrument, err)
			return subcommands.ExitFailure
		}
		entry := map[string]any{
			"last_price": price.InexactFloat64(),
			"on":         on.Format("2006-01-02"),
		}
		for _, h := range horizons {
			change, err := table.Evolution(instrument, h, precision)
			if errors.Is(err, marketwatch.ErrOutOfRange) {
				continue // series too short for this horizon
			}
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error: %s: %v\n", instrument, err)
				return subcommands.ExitFailure
			}
			entry[fmt.Sprintf("change_%s_percent", h)] = float64(change)
		}
		output[instrument] = entry
	}

	return printJSON(output)
}

func parseHorizons(list string) ([]marketwatch.Horizon, error) {
	var horizons []marketwatch.Horizon
	for _, s := range strings.Split(list, ",") {
		h, err := marketwatch.ParseHorizon(s)
		if err != nil {
			return nil, err
		}
		horizons = append(horizons, h)
	}
	return horizons, nil
}

func printJSON(v any) subcommands.ExitStatus {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	fmt.Println(string(out))
	return subcommands.ExitSuccess
}
