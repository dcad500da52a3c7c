package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"scoperc/pkg/config"
	"scoperc/pkg/memory"
	"scoperc/pkg/rt"
)

var stressOpts rt.StressOptions

func init() {
	cmd := newStressCmd()
	cmd.Flags().IntVar(&stressOpts.Scopes, "scopes", 100, "Scopes to push and pop")
	cmd.Flags().IntVar(&stressOpts.Allocs, "allocs", 1000, "Allocations per scope")
	cmd.Flags().IntVar(&stressOpts.Parallel, "parallel", 0, "Goroutines contending on a shared value")
	cmd.Flags().IntVar(&stressOpts.Messages, "messages", 1000, "Values sent through the channel pipeline")
	cmd.Flags().BoolVar(&stressOpts.Atomic, "atomic", false, "Use the atomic retain/release entry points")
	rootCmd.AddCommand(cmd)
}

func newStressCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stress",
		Short: "Run a synthetic allocation, refcount and scheduling workload",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStress(cmd)
		},
	}
}

func runStress(cmd *cobra.Command) error {
	log, err := newLogger()
	if err != nil {
		return err
	}
	defer log.Sync()

	cfg := config.FromEnv()
	if stressOpts.Atomic {
		cfg.Atomic = true
	}
	heap, err := memory.HeapFor(cfg)
	if err != nil {
		return err
	}
	r := rt.New(rt.Options{Config: cfg, Heap: heap, Logger: log})

	start := time.Now()
	rep := rt.Stress(r, stressOpts)
	elapsed := time.Since(start)
	log.Info("stress finished",
		zap.Duration("elapsed", elapsed),
		zap.Int64("allocs", rep.Stats.Allocs),
		zap.Int64("live", rep.Stats.Live))

	out := cmd.OutOrStdout()
	printInfo(out, "%s", rep.Stats.String())
	printInfo(out, "\nWorkload:\n")
	printInfo(out, "  Escaped:             %d\n", rep.Escaped)
	printInfo(out, "  COW copies:          %d\n", rep.CopiesMade)
	printInfo(out, "  Pipeline sum:        %d\n", rep.PipelineSum)
	printInfo(out, "  Elapsed:             %s\n", elapsed.Round(time.Microsecond))
	if rep.Stats.Live != 0 {
		return fmt.Errorf("%d allocations still live after stress", rep.Stats.Live)
	}
	return nil
}
