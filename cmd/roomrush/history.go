package main

import (
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/Veraticus/roomrush/internal/cli"
	"github.com/Veraticus/roomrush/internal/model"
)

func historyCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show past runs",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			store, err := initStorage(ctx, loadSettings())
			if err != nil {
				return err
			}
			defer store.Close()

			runs, err := store.ListRuns(ctx, limit)
			if err != nil {
				return fmt.Errorf("failed to list runs: %w", err)
			}

			if len(runs) == 0 {
				fmt.Println(cli.InfoStyle.Render("No runs recorded yet."))
				return nil
			}

			writeRunsTable(os.Stdout, runs)
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "number of runs to show (0 for all)")

	return cmd
}

func writeRunsTable(out io.Writer, runs []model.RunRecord) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	defer w.Flush()

	h := cli.TableHeaderStyle
	fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
		h.Render("Started"), h.Render("Applicant"), h.Render("Mode"), h.Render("Outcome"),
		h.Render("Room"), h.Render("Attempts"), h.Render("Detail"))
	fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
		strings.Repeat("-", 19), strings.Repeat("-", 10), strings.Repeat("-", 7), strings.Repeat("-", 18),
		strings.Repeat("-", 8), strings.Repeat("-", 8), strings.Repeat("-", 30))

	for _, r := range runs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%d\t%s\n",
			r.StartedAt.Local().Format("2006-01-02 15:04:05"),
			r.Applicant,
			r.Mode,
			outcomeStyle(r.Outcome).Render(string(r.Outcome)),
			orDash(r.RoomID),
			r.Attempts,
			cli.SubtleStyle.Render(r.Detail))
	}
}

func outcomeStyle(o model.RunOutcome) lipgloss.Style {
	switch o {
	case model.OutcomeClaimed:
		return cli.SuccessStyle
	case model.OutcomeCancelled, model.OutcomeExhausted:
		return cli.WarningStyle
	default:
		return cli.ErrorStyle
	}
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
