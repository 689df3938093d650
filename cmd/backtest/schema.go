package main

import (
	"context"
	"fmt"

	engine "github.com/rxtech-lab/argo-backtest/internal/backtest/engine/engine_v1"
	"github.com/rxtech-lab/argo-backtest/internal/strategy"
	"github.com/urfave/cli/v3"
)

func schemaAction(_ context.Context, cmd *cli.Command) error {
	var (
		schema string
		err    error
	)

	if name := cmd.String("strategy"); name != "" {
		def, getErr := strategy.DefaultRegistry().Get(name)
		if getErr != nil {
			return getErr
		}

		schema, err = def.Schema()
	} else {
		config := engine.EmptyConfig()
		schema, err = config.GenerateSchemaJSON()
	}

	if err != nil {
		return fmt.Errorf("failed to generate schema: %w", err)
	}

	fmt.Fprintln(cmd.Root().Writer, schema)

	return nil
}
