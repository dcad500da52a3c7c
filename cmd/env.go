package cmd

import (
	"strconv"

	"github.com/spf13/cobra"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"

	"scoperc/pkg/config"
)

func init() {
	rootCmd.AddCommand(newEnvCmd())
}

func newEnvCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "env",
		Short: "Print the runtime configuration resolved from MM_* variables",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.FromEnv()
			rows := configRows(cfg)
			keys := maps.Keys(rows)
			slices.Sort(keys)
			for _, k := range keys {
				printInfo(cmd.OutOrStdout(), "%-16s %s\n", k, rows[k])
			}
			return nil
		},
	}
}

// configRows maps each variable name to the effective setting
func configRows(cfg config.Config) map[string]string {
	return map[string]string{
		config.EnvDisable:       onOff(!cfg.Disabled),
		config.EnvAtomic:        onOff(cfg.Atomic),
		config.EnvDiag:          onOff(cfg.Diag),
		config.EnvPtrIndex:      onOff(cfg.PtrIndex),
		config.EnvPtrIndexScan:  onOff(cfg.PtrIndexScan),
		config.EnvIndexCapacity: strconv.Itoa(cfg.IndexCapacity),
		config.EnvHeap:          cfg.Heap,
	}
}

func onOff(b bool) string {
	if b {
		return "on"
	}
	return "off"
}
