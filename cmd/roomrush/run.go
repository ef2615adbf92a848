package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/Veraticus/roomrush/internal/cli"
	"github.com/Veraticus/roomrush/internal/common"
	"github.com/Veraticus/roomrush/internal/config"
	"github.com/Veraticus/roomrush/internal/engine"
	"github.com/Veraticus/roomrush/internal/model"
	"github.com/Veraticus/roomrush/internal/tui"
)

var errNoRoomClaimed = errors.New("no room claimed")

func runCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run a room selection",
		Long: `Wait for the configured start time, then claim the first available room
matching your conditions, most preferred first.

With --room-ids the listed rooms are claimed in order instead and no
listing queries are made.`,
		RunE: runSelection,
	}

	addRunFlags(cmd)
	cmd.Flags().String("mode", "", "selection mode (http, browser)")
	cmd.Flags().Bool("prefetched", false, "use room ids stored by 'roomrush prefetch' (http mode only)")
	cmd.Flags().Bool("tui", false, "show the live monitor")
	cmd.Flags().String("room-ids", "", "room ids to claim in order, separated by commas or newlines")

	return cmd
}

// addRunFlags registers the per-run overrides shared by run and prefetch.
func addRunFlags(cmd *cobra.Command) {
	cmd.Flags().String("applicant", "", "applicant name (overrides applicant.name)")
	cmd.Flags().String("start", "", "start time as \"2006-01-02 15:04:05\" (overrides schedule.start)")
}

// settingsFor loads settings and applies the command's flag overrides.
func settingsFor(cmd *cobra.Command) config.Settings {
	settings := loadSettings()
	if f := cmd.Flags().Lookup("applicant"); f != nil && f.Changed {
		settings.Applicant = strings.TrimSpace(f.Value.String())
	}
	if f := cmd.Flags().Lookup("start"); f != nil && f.Changed {
		settings.StartText = strings.TrimSpace(f.Value.String())
	}
	if f := cmd.Flags().Lookup("mode"); f != nil && f.Changed {
		settings.Selection.Mode = strings.ToLower(strings.TrimSpace(f.Value.String()))
	}
	return settings
}

func runSelection(cmd *cobra.Command, _ []string) error {
	settings := settingsFor(cmd)
	prefetched, _ := cmd.Flags().GetBool("prefetched")
	useTUI, _ := cmd.Flags().GetBool("tui")
	rawIDs, _ := cmd.Flags().GetString("room-ids")
	roomIDs := model.ParseRoomIDs(rawIDs)

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

	validation := config.Validate(settings, conditions, roomIDs)
	if len(validation.Errors) > 0 || len(validation.Warnings) > 0 {
		fmt.Fprintln(os.Stderr, cli.RenderValidation(validation))
	}
	if !validation.IsValid() {
		return validation.Err()
	}

	start, err := settings.Start()
	if err != nil {
		return err
	}

	var snapshot *engine.Snapshot
	if prefetched && len(roomIDs) == 0 {
		if settings.Selection.Mode != config.ModeHTTP {
			return common.NewUserError("--prefetched needs http mode", common.ErrInvalidConfig)
		}
		snapshot, err = engine.LoadSnapshot(ctx, store)
		if err != nil {
			return fmt.Errorf("failed to load prefetched room ids: %w", err)
		}
		if snapshot.Len() == 0 {
			fmt.Fprintln(os.Stderr, cli.FormatWarning("No prefetched room ids stored; every condition resolves live"))
		}
	}

	if useTUI {
		// Log lines would tear the full-screen monitor.
		logFile, err := openLogFile(settings.LogFile)
		if err != nil {
			return err
		}
		defer logFile.Close()
		if err := setupLogging(logFile); err != nil {
			return err
		}
	}

	transport, closeTransport, err := newTransport(ctx, settings)
	if err != nil {
		return err
	}
	defer closeTransport()

	interrupts := cli.NewInterruptHandler(os.Stderr)
	runCtx := interrupts.HandleInterrupts(ctx, true)

	req := engine.Request{
		Start:      start,
		Snapshot:   snapshot,
		Applicant:  settings.Applicant,
		Conditions: conditions,
		RoomIDs:    roomIDs,
	}

	var result engine.RunResult
	if useTUI {
		sink := tui.NewSink()
		events := engine.MultiSink{sink, engine.LogSink{Logger: common.Component(nil, "events")}}
		orchestrator := engine.NewWithConfig(transport, events, engineConfig(settings))
		result, err = tui.Run(runCtx, orchestrator, sink, req,
			tui.RunOptions{AltScreen: true},
			tui.WithRun(settings.Applicant, transport.Name(), conditions))
		if err != nil {
			return err
		}
	} else {
		orchestrator := engine.NewWithConfig(transport, cli.NewEventPrinter(os.Stdout), engineConfig(settings))
		result = orchestrator.Run(runCtx, req)
	}

	// The run is recorded even when it was interrupted.
	if err := store.SaveRun(context.WithoutCancel(ctx), result.Record(settings.Applicant, transport.Name())); err != nil {
		slog.Warn("Failed to record run", "error", err)
	}

	fmt.Println(renderRunResult(result, conditions))

	return runError(result)
}

// renderRunResult formats the final summary box.
func renderRunResult(result engine.RunResult, conditions []model.Condition) string {
	var lines []string
	switch result.Outcome {
	case model.OutcomeClaimed:
		lines = append(lines, cli.FormatSuccess("Room claimed: "+cli.BoldStyle.Render(result.RoomID)))
		if result.Condition >= 0 && result.Condition < len(conditions) {
			lines = append(lines, fmt.Sprintf("Condition %d: %s", result.Condition+1, conditions[result.Condition]))
		}
	case model.OutcomeCancelled:
		lines = append(lines, cli.FormatWarning("Selection cancelled"))
	case model.OutcomeExhausted:
		lines = append(lines, cli.FormatWarning("Every condition tried, no room claimed"))
	default:
		lines = append(lines, cli.FormatError(string(result.Outcome)))
	}
	if result.Err != nil && result.Outcome != model.OutcomeClaimed {
		lines = append(lines, cli.SubtleStyle.Render(result.Err.Error()))
	}
	lines = append(lines, fmt.Sprintf("Claim attempts: %d", result.Attempts))
	if !result.FinishedAt.IsZero() && !result.StartedAt.IsZero() {
		lines = append(lines, fmt.Sprintf("Elapsed: %s", result.FinishedAt.Sub(result.StartedAt).Round(time.Millisecond)))
	}
	lines = append(lines, cli.SubtleStyle.Render("Run "+result.ID))

	return cli.RenderBox(cli.HouseIcon+" Selection result", strings.Join(lines, "\n"))
}

// runError maps a run outcome onto the process exit status.
func runError(result engine.RunResult) error {
	switch result.Outcome {
	case model.OutcomeClaimed, model.OutcomeCancelled:
		return nil
	case model.OutcomeExhausted:
		return errNoRoomClaimed
	default:
		if result.Err != nil {
			return result.Err
		}
		return fmt.Errorf("run failed: %s", result.Outcome)
	}
}
