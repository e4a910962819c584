package cmd

import (
	"context"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/luma/pktgen/internal/env"
	"github.com/luma/pktgen/model"
	"github.com/luma/pktgen/schema"
)

// loadConfig loads the configuration and applies the persistent flags.
func loadConfig(ctx context.Context, cmd *cobra.Command) (*env.Config, error) {
	conf, err := env.LoadConfig(ctx, configPath)
	if err != nil {
		return nil, err
	}

	if cmd.Flags().Changed("verbose") {
		conf.Verbose = verbose
	}

	return conf, nil
}

// parseSchemas reads every schema file into one definition.
func parseSchemas(cfg model.Config, log *zap.Logger, paths []string) (*model.Definition, error) {
	parser := schema.NewParser(cfg, log.Named("schema"))

	def, err := parser.ParseFiles(paths...)
	if err != nil {
		return nil, err
	}

	log.Info("Parsed schema",
		zap.Strings("files", paths),
		zap.Int("packets", def.Len()),
		zap.String("capability", def.FunctionalCapability()))

	return def, nil
}
