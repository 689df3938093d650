package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/rxtech-lab/argo-backtest/internal/strategy"
	"github.com/urfave/cli/v3"
)

func newCommand() *cli.Command {
	return &cli.Command{
		Name:  "backtest",
		Usage: "Run strategies bar by bar over historical data",
		Commands: []*cli.Command{
			{
				Name:  "run",
				Usage: "Run one strategy over one data file and write the results",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "config",
						Aliases:  []string{"c"},
						Usage:    "Path to the engine config `FILE`",
						Required: true,
					},
					&cli.StringFlag{
						Name:     "data",
						Aliases:  []string{"d"},
						Usage:    "Path to the CSV or Parquet bar `FILE`",
						Required: true,
					},
					&cli.StringFlag{
						Name:     "strategy",
						Aliases:  []string{"s"},
						Usage:    "Name of a built-in strategy (see the strategies command)",
						Value:    strategy.SMACloseCrossName,
						Required: false,
					},
					&cli.StringFlag{
						Name:     "strategy-config",
						Usage:    "Path to the strategy config `FILE`. Defaults apply when empty",
						Required: false,
					},
					&cli.StringFlag{
						Name:     "results",
						Aliases:  []string{"r"},
						Usage:    "Results output directory",
						Value:    "results",
						Required: false,
					},
					&cli.StringFlag{
						Name:     "log-level",
						Usage:    "Engine log level (debug, info, warn, error)",
						Value:    "info",
						Required: false,
					},
					&cli.StringFlag{
						Name:     "log-file",
						Usage:    "Also write engine logs to a rotated `FILE`",
						Required: false,
					},
					&cli.BoolFlag{
						Name:     "quiet",
						Aliases:  []string{"q"},
						Usage:    "Hide the progress bar",
						Required: false,
					},
				},
				Action: runAction,
			},
			{
				Name:   "schema",
				Usage:  "Print the JSON schema of the engine config, or of a strategy config with --strategy",
				Flags:  []cli.Flag{&cli.StringFlag{Name: "strategy", Aliases: []string{"s"}, Usage: "Strategy name"}},
				Action: schemaAction,
			},
			{
				Name:   "strategies",
				Usage:  "List the built-in strategies",
				Action: strategiesAction,
			},
		},
	}
}

func strategiesAction(_ context.Context, cmd *cli.Command) error {
	registry := strategy.DefaultRegistry()

	for _, name := range registry.Names() {
		def, err := registry.Get(name)
		if err != nil {
			return err
		}

		fmt.Fprintln(cmd.Root().Writer, renderStrategy(def))
	}

	return nil
}

func main() {
	if err := newCommand().Run(context.Background(), os.Args); err != nil {
		log.Fatal(err)
	}
}
