package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"scoperc/pkg/abi"
)

var headerOutput string

func init() {
	cmd := newHeaderCmd()
	cmd.Flags().StringVarP(&headerOutput, "output", "o", "", "Write the header to a file instead of stdout")
	rootCmd.AddCommand(cmd)
}

func newHeaderCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "header",
		Short: "Emit the C header for the runtime entry points",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHeader(cmd)
		},
	}
}

func runHeader(cmd *cobra.Command) error {
	if headerOutput == "" {
		return abi.WriteHeader(cmd.OutOrStdout())
	}
	f, err := os.Create(headerOutput)
	if err != nil {
		return fmt.Errorf("create header: %w", err)
	}
	if err := abi.WriteHeader(f); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", headerOutput, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close %s: %w", headerOutput, err)
	}
	printInfo(cmd.ErrOrStderr(), "wrote %d exports to %s\n", len(abi.Exports()), headerOutput)
	return nil
}
