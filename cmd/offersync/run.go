package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/rebately/offersync/internal/pipeline"
)

func runCmd() *cobra.Command {
	var manual bool

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Execute one sync invocation to its terminal outcome",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.Close()

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			res, err := a.pipeline.Run(ctx, manual)
			if err != nil {
				return err
			}
			printResult(res)
			if res.Outcome == pipeline.OutcomeFailed {
				return res.Err
			}
			return nil
		},
	}

	cmd.Flags().BoolVarP(&manual, "manual", "m", false, "Bypass the processing window")

	return cmd
}

func printResult(res *pipeline.Result) {
	fmt.Printf("Outcome:   %s\n", res.Outcome)
	if res.Reason != "" {
		fmt.Printf("Reason:    %s\n", res.Reason)
	}
	if res.Total > 0 {
		fmt.Printf("Progress:  %d/%d\n", res.Cursor, res.Total)
	}
	if res.Processed > 0 {
		fmt.Printf("Processed: %d (created %d, skipped %d, deferred %d, failed %d)\n",
			res.Processed, res.Created, res.Skipped, res.Deferred, res.Failed)
	}
}
