package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Veraticus/roomrush/internal/cli"
	"github.com/Veraticus/roomrush/internal/config"
	"github.com/Veraticus/roomrush/internal/model"
)

func validateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Check the configuration and conditions before a run",
		Long: `Report configuration errors that would stop a run and warnings about
settings that are probably mistakes.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			settings := settingsFor(cmd)
			rawIDs, _ := cmd.Flags().GetString("room-ids")

			ctx := cmd.Context()
			store, err := initStorage(ctx, settings)
			if err != nil {
				return err
			}
			defer store.Close()

			conditions, err := store.GetConditions(ctx)
			if err != nil {
				return fmt.Errorf("failed to load conditions: %w", err)
			}

			result := config.Validate(settings, conditions, model.ParseRoomIDs(rawIDs))
			fmt.Println(cli.RenderValidation(result))
			return result.Err()
		},
	}

	addRunFlags(cmd)
	cmd.Flags().String("mode", "", "selection mode (http, browser)")
	cmd.Flags().String("room-ids", "", "room ids the run would claim")

	return cmd
}
