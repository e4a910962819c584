// Package gen holds commands generating documentation for pktgen itself.
package gen

import (
	"github.com/spf13/cobra"
)

var RootCmd = &cobra.Command{
	Use:   "gen",
	Short: "Generate pktgen documentation",
	Long:  `Generate pktgen documentation, such as man pages`,
}

func init() {
	RootCmd.AddCommand(ManPagesCmd)
}
