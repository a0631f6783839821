package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

func sweepCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sweep",
		Short: "Re-attempt due entries from the enrichment retry queue",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.Close()

			n, err := a.sweeper.Sweep(context.Background())
			if err != nil {
				return err
			}
			fmt.Printf("Attempted %d due retries\n", n)
			return nil
		},
	}
}
