package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func statusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show sync status from the ops store",
		RunE:  runStatus,
	}
}

func runStatus(cmd *cobra.Command, args []string) error {
	cfg, ops, err := newOpsApp()
	if err != nil {
		return err
	}
	defer ops.Close()

	snap, err := ops.Snapshot()
	if err != nil {
		return err
	}

	fmt.Println("offersync Status")
	fmt.Println(strings.Repeat("=", 40))

	fmt.Printf("\nMarket:    %s\n", cfg.Market)
	fmt.Printf("Window:    [%02d:00, %02d:00)\n", cfg.Sync.WindowStartHour, cfg.Sync.WindowEndHour)

	fmt.Printf("\nStatus:    %s\n", snap.Status)
	if snap.Total > 0 {
		fmt.Printf("Progress:  %d/%d (for %s)\n", snap.Cursor, snap.Total, snap.ForDate)
	}
	if snap.LastSync != "" {
		fmt.Printf("Last sync: %s\n", snap.LastSync)
	}
	if snap.LastError != "" {
		fmt.Printf("Last err:  %s\n", snap.LastError)
	}
	return nil
}
