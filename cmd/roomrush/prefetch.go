package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/Veraticus/roomrush/internal/cli"
	"github.com/Veraticus/roomrush/internal/common"
	"github.com/Veraticus/roomrush/internal/engine"
	"github.com/Veraticus/roomrush/internal/portal"
)

func prefetchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "prefetch",
		Short: "Resolve room ids for every condition ahead of time",
		Long: `Query the listing for every condition and store the matching room ids.

A later 'roomrush run --prefetched' claims straight from the stored ids and
skips the listing queries while selection is open. Stored ids go stale when
the listing changes, so prefetch close to the start time.`,
		RunE: runPrefetch,
	}

	addRunFlags(cmd)

	return cmd
}

func runPrefetch(cmd *cobra.Command, _ []string) error {
	settings := settingsFor(cmd)
	if settings.Applicant == "" {
		return common.NewUserError("applicant name is required (applicant.name or --applicant)", common.ErrMissingConfig)
	}

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
	if len(conditions) == 0 {
		fmt.Println(cli.InfoStyle.Render("No conditions found. Use 'roomrush conditions add' to create one."))
		return nil
	}

	// Listing queries always go over HTTP, whatever the run mode.
	client, err := newPortalClient(settings)
	if err != nil {
		return err
	}
	transport := portal.NewTransport(client, slog.Default())

	interrupts := cli.NewInterruptHandler(os.Stderr)
	ctx = interrupts.HandleInterrupts(ctx, false)

	bar := cli.NewPrefetchBar(os.Stderr, len(conditions))
	prefetcher := engine.NewPrefetcher(transport, store, engineConfig(settings))

	snapshot, err := prefetcher.Prefetch(ctx, settings.Applicant, conditions, bar.Update)
	if err != nil {
		if engine.IsCancelled(err) {
			fmt.Println(cli.FormatWarning("Prefetch cancelled; nothing stored"))
			return nil
		}
		return err
	}

	fmt.Println(cli.FormatSuccess(fmt.Sprintf("Stored room ids for %d of %d conditions (%d rooms)",
		snapshot.Len(), len(conditions), bar.Found())))
	return printMappings(snapshot.Mappings())
}
