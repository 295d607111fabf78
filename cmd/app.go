// Package cmd implements the CLI application to track the market value
// of a portfolio.
package cmd

import (
	"context"
	"flag"
	"os"
	"time"

	"github.com/evrardb/marketwatch"
	"github.com/evrardb/marketwatch/yahoo"
	"github.com/google/subcommands"
	"github.com/redis/go-redis/v9"
)

// Commands lists the subcommands to register in the main package.
var Commands = []subcommands.Command{
	&fetchCmd{},
	&summaryCmd{},
	&reportCmd{},
}

// as a CLI application, it has a very short lived lifecycle, so it is ok to use global variables.

var configFile = flag.String("config", "marketwatch.yaml", "Path to the portfolio configuration file (YAML)")

func loadConfig() (*marketwatch.Config, error) {
	return marketwatch.LoadConfig(*configFile)
}

// openCache builds the snapshot cache described by the configuration:
// the file store by default, Redis when an address is configured or set
// in the MARKETWATCH_REDIS_ADDR environment variable.
func openCache(cfg *marketwatch.Config) *marketwatch.Cache {
	addr := cfg.Cache.RedisAddr
	if addr == "" {
		addr = os.Getenv("MARKETWATCH_REDIS_ADDR")
	}
	var store marketwatch.Store
	if addr != "" {
		store = marketwatch.NewRedisStore(redis.NewClient(&redis.Options{Addr: addr}), cfg.Cache.RedisNamespace)
	} else {
		store = marketwatch.NewFileStore(cfg.Cache.Dir)
	}
	return marketwatch.NewCache(yahoo.New(), store, time.Duration(cfg.Cache.TTL))
}

// fetchTable returns the price table for the configured instrument set,
// from the cache or a fresh fetch.
func fetchTable(ctx context.Context, cfg *marketwatch.Config) (*marketwatch.Table, error) {
	return openCache(cfg).Get(ctx, marketwatch.Request{
		Instruments: cfg.Instruments(),
		Interval:    cfg.Interval,
		Period:      cfg.Period,
	})
}
