package cmd

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/evrardb/marketwatch"
	"github.com/google/subcommands"
)

// reportCmd holds the flags for the 'report' subcommand.
type reportCmd struct {
	horizons string
	since    string
}

func (*reportCmd) Name() string     { return "report" }
func (*reportCmd) Synopsis() string { return "display a full portfolio report" }
func (*reportCmd) Usage() string {
	return `mw report [-horizons 1d,1mo,1y] [-since <date>]

  Displays, as JSON, the portfolio valuation in the reporting currency,
  its performance over the given horizons, its performance since a start
  date (default: the configured inception) with annualized return, and
  its allocation by category.
`
}

func (c *reportCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.horizons, "horizons", "1d,1mo,1y", "Comma-separated list of horizons")
	f.StringVar(&c.since, "since", "", "Start date (YYYY-MM-DD) for since-start performance, overrides the configured inception")
}

func (c *reportCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
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
	start := cfg.Inception
	if c.since != "" {
		start, err = time.Parse("2006-01-02", c.since)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: invalid date %q: %v\n", c.since, err)
			return subcommands.ExitUsageError
		}
	}

	table, err := fetchTable(ctx, cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	engine := marketwatch.NewEngine(table, cfg)

	valuation, err := engine.Valuation()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	performance, err := engine.PerformanceByHorizon(horizons...)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	allocation, err := engine.AllocationByCategory()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}

	doc := struct {
		Valuation   *marketwatch.Valuation                       `json:"valuation"`
		Performance map[marketwatch.Horizon]*marketwatch.Percent `json:"performanceByHorizon"`
		Since       *marketwatch.SinceReport                     `json:"sinceStart,omitempty"`
		Allocation  *marketwatch.Allocation                      `json:"allocation"`
	}{
		Valuation:   valuation,
		Performance: performance,
		Allocation:  allocation,
	}
	if !start.IsZero() {
		doc.Since, err = engine.PerformanceSinceDate(start)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return subcommands.ExitFailure
		}
	}

	return printJSON(doc)
}
