package commands

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/benedoc-inc/pdfwm"
)

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the pdfwm version",
		Args:  cobra.NoArgs,
		// no configuration needed
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error { return nil },
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintf(cmd.OutOrStdout(), "pdfwm %s (%s)\n", pdfwm.Version, runtime.Version())
			return nil
		},
	}
}
