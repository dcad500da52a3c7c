package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"scoperc/pkg/handles"
)

var handlesCount int

func init() {
	cmd := newHandlesCmd()
	cmd.Flags().IntVar(&handlesCount, "n", 10000, "Register/invalidate cycles to run")
	rootCmd.AddCommand(cmd)
}

func newHandlesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "handles",
		Short: "Churn the handle table and verify stale handles never resolve",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHandles(cmd)
		},
	}
}

type handleChurn struct {
	Registered  int
	Invalidated int
	StaleHits   int // stale handles that still resolved
	Reused      int // registrations that recycled a slot
	Capacity    int
}

// churnHandles keeps a small window of live handles, invalidating the oldest
// and probing it afterwards, so recycled slots are exercised constantly
func churnHandles(n int) (handleChurn, error) {
	const window = 8
	t := handles.New[int](handles.Options{})
	var res handleChurn
	var live []handles.Handle
	seen := map[uint32]bool{}

	for i := 0; i < n; i++ {
		h, err := t.Register(i)
		if err != nil {
			return res, err
		}
		res.Registered++
		if seen[h.Index()] {
			res.Reused++
		}
		seen[h.Index()] = true
		live = append(live, h)

		if len(live) > window {
			old := live[0]
			live = live[1:]
			if err := t.Invalidate(old); err != nil {
				return res, fmt.Errorf("invalidate %#x: %w", uint64(old), err)
			}
			res.Invalidated++
			if _, ok := t.Resolve(old); ok {
				res.StaleHits++
			}
		}
	}
	res.Capacity = t.Cap()
	return res, nil
}

func runHandles(cmd *cobra.Command) error {
	res, err := churnHandles(handlesCount)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	printInfo(out, "Registered:  %d\n", res.Registered)
	printInfo(out, "Invalidated: %d\n", res.Invalidated)
	printInfo(out, "Reused:      %d\n", res.Reused)
	printInfo(out, "Capacity:    %d\n", res.Capacity)
	printInfo(out, "Stale hits:  %d\n", res.StaleHits)
	if res.StaleHits > 0 {
		return fmt.Errorf("%d stale handles resolved", res.StaleHits)
	}
	return nil
}
