package cmd

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/luma/pktgen/emit"
	"github.com/luma/pktgen/internal/env"
)

var (
	jsonPath  string
	yamlPath  string
	tablePath string

	genStats      bool
	logMacro      string
	noLogs        bool
	noFoldBool    bool
	lazyOverwrite bool
	constants     map[string]int
)

func init() {
	flags := GenerateCmd.Flags()

	flags.StringVar(&jsonPath, "json", "", "Write the model as JSON to this file")
	flags.StringVar(&yamlPath, "yaml", "", "Write the model as YAML to this file")
	flags.StringVar(&tablePath, "table", "", "Write the dense packet table to this file")

	flags.BoolVarP(&genStats, "stats", "s", false, "Enable delta statistics")
	flags.StringVarP(&logMacro, "log-macro", "l", "", "Name of the packet logging hook")
	flags.BoolVarP(&noLogs, "no-logs", "L", false, "Disable packet logging")
	flags.BoolVarP(&noFoldBool, "no-fold-bool", "B", false, "Send booleans in the body instead of the presence bits")
	flags.BoolVar(&lazyOverwrite, "lazy-overwrite", false, "Only replace outputs whose content changed")
	flags.StringToIntVar(&constants, "const", nil, "Symbolic array size, e.g. --const MAX_LEN_NAME=48")
}

var GenerateCmd = &cobra.Command{
	Use:   "generate [flags] SCHEMA...",
	Short: "Compile schemas and write the requested outputs",
	Long: `Compile schemas and write the requested outputs

Usage
	pktgen generate --json packets.json --table packets.tsv packets.def

Outputs whose path is not given are not produced. Nothing is written when
parsing fails.
`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		conf, err := loadConfig(cmd.Context(), cmd)
		if err != nil {
			return err
		}

		applyGenerateFlags(cmd, conf)

		log, err := env.MakeLogger(conf.Verbose)
		if err != nil {
			return err
		}
		defer log.Sync()

		def, err := parseSchemas(conf.Model(), log, args)
		if err != nil {
			return err
		}

		doc, err := emit.NewDocument(def, args)
		if err != nil {
			return err
		}

		var outputs []emit.Output
		for _, o := range []struct {
			path    string
			emitter emit.Emitter
		}{
			{jsonPath, emit.JSON{}},
			{yamlPath, emit.YAML{}},
			{tablePath, emit.Table{}},
		} {
			if o.path != "" {
				outputs = append(outputs, emit.Output{Path: o.path, Emitter: o.emitter})
			}
		}

		if err := emit.NewWriter(conf.LazyOverwrite, log.Named("emit")).WriteAll(doc, outputs); err != nil {
			return err
		}

		log.Info("Generated", zap.Int("outputs", len(outputs)))

		return nil
	},
}

func applyGenerateFlags(cmd *cobra.Command, conf *env.Config) {
	flags := cmd.Flags()

	if flags.Changed("stats") {
		conf.GenStats = genStats
	}

	if flags.Changed("log-macro") {
		conf.LogMacro = logMacro
	}

	if flags.Changed("no-logs") {
		conf.NoLogs = noLogs
	}

	if flags.Changed("no-fold-bool") {
		conf.NoFoldBool = noFoldBool
	}

	if flags.Changed("lazy-overwrite") {
		conf.LazyOverwrite = lazyOverwrite
	}

	for name, value := range constants {
		conf.Constants[name] = value
	}
}
