package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func triggerCmd() *cobra.Command {
	var start, stop bool

	cmd := &cobra.Command{
		Use:   "trigger",
		Short: "Request a manual start or stop of the running service",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !start && !stop {
				return fmt.Errorf("at least one of --start or --stop must be set")
			}

			_, ops, err := newOpsApp()
			if err != nil {
				return err
			}
			defer ops.Close()

			if stop {
				if err := ops.SetStopRequested(true); err != nil {
					return err
				}
				fmt.Println("Stop requested; the run ends at the next chunk boundary.")
				return nil
			}
			if err := ops.SetManualStart(true); err != nil {
				return err
			}
			fmt.Println("Manual start requested; the next scheduler tick picks it up.")
			return nil
		},
	}

	cmd.Flags().BoolVar(&start, "start", false, "Request an immediate sync start")
	cmd.Flags().BoolVar(&stop, "stop", false, "Request the current run to stop")

	return cmd
}
