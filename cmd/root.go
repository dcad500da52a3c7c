// Package cmd implements rcctl, a small driver for inspecting and exercising
// the runtime outside of generated code.
package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	// Global flags
	verbose bool
	quiet   bool
)

var rootCmd = &cobra.Command{
	Use:   "rcctl",
	Short: "Inspect and exercise the scoped refcounting runtime",
	Long: `rcctl drives the runtime support layer directly: it prints the
configuration the MM_* environment resolves to, emits the C header generated
code compiles against, and runs synthetic workloads against the allocator,
the scheduler and the handle table.`,
	Version:       "0.1.0",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output and debug logging")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "Suppress all output except errors")
}

// Execute runs the CLI and exits non-zero on failure
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// newLogger returns a development logger in verbose mode, otherwise a no-op
func newLogger() (*zap.Logger, error) {
	if !verbose {
		return zap.NewNop(), nil
	}
	return zap.NewDevelopment()
}

// printInfo prints to the command's output unless quiet
func printInfo(w io.Writer, format string, args ...interface{}) {
	if !quiet {
		fmt.Fprintf(w, format, args...)
	}
}
