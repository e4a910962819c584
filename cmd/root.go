package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/luma/pktgen/cmd/gen"
)

var (
	// configPath is the optional TOML config file
	configPath string

	verbose bool
)

var RootCmd = &cobra.Command{
	Use:   "pktgen",
	Short: "Compile packets.def schemas into a delta protocol model",
	Long: `pktgen reads packets.def schemas, resolves their types, capability
variants and delta transmission plans and emits them as structured documents.
It can also serve a schema over TCP as a delta protocol echo peer.`,
	SilenceUsage: true,
}

func init() {
	flags := RootCmd.PersistentFlags()

	flags.StringVar(&configPath, "config", "", "TOML config file")
	flags.BoolVarP(&verbose, "verbose", "v", false, "Log the generation pass")

	RootCmd.AddCommand(GenerateCmd)
	RootCmd.AddCommand(ServeCmd)
	RootCmd.AddCommand(VersionCmd)
	RootCmd.AddCommand(gen.RootCmd)
}

// Execute runs the root command and exits non zero on failure.
func Execute() {
	if err := RootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
