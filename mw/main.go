package main

import (
	"context"
	"flag"
	"os"
	"path"

	"github.com/evrardb/marketwatch/cmd"
	"github.com/google/subcommands"
	"github.com/joho/godotenv"
)

func main() {
	// Optional .env for local overrides such as MARKETWATCH_REDIS_ADDR.
	_ = godotenv.Load()

	commander := subcommands.NewCommander(flag.CommandLine, path.Base(os.Args[0]))

	for _, c := range cmd.Commands {
		commander.Register(c, "")
	}
	commander.Register(commander.HelpCommand(), "")

	flag.Parse()
	os.Exit(int(commander.Execute(context.Background())))
}
