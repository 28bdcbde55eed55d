package main

import (
	"fmt"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/crateguide/crateguide/cmd"
	"github.com/crateguide/crateguide/internal/logging"
)

const (
	version = "0.1.0"
)

func main() {
	logging.Setup()

	app := &cli.App{
		Name:    "crateguide",
		Usage:   "AI-guided music discovery: listener portraits, guided conversations, album recommendations",
		Version: version,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Load configuration from `FILE`",
				Value:   "crateguide.toml",
			},
		},
		Commands: []*cli.Command{
			cmd.ServeCommand(),
			cmd.ConfigCommand(),
		},
	}

	err := app.Run(os.Args)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
}
