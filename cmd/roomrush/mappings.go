package main

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/Veraticus/roomrush/internal/cli"
	"github.com/Veraticus/roomrush/internal/model"
)

func mappingsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mappings",
		Short: "Inspect prefetched room ids",
		Long:  `List or clear the room ids stored by 'roomrush prefetch'.`,
	}

	cmd.AddCommand(listMappingsCmd())
	cmd.AddCommand(clearMappingsCmd())

	return cmd
}

func listMappingsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List stored room ids per condition",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			store, err := initStorage(ctx, loadSettings())
			if err != nil {
				return err
			}
			defer store.Close()

			mappings, err := store.GetRoomIDMappings(ctx)
			if err != nil {
				return fmt.Errorf("failed to get room id mappings: %w", err)
			}

			if len(mappings) == 0 {
				fmt.Println(cli.InfoStyle.Render("No room ids stored. Use 'roomrush prefetch' to fetch them."))
				return nil
			}
			return printMappings(mappings)
		},
	}
}

func clearMappingsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Delete every stored room id",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			store, err := initStorage(ctx, loadSettings())
			if err != nil {
				return err
			}
			defer store.Close()

			n, err := store.ClearRoomIDMappings(ctx)
			if err != nil {
				return err
			}

			fmt.Println(cli.FormatSuccess(fmt.Sprintf("Cleared %d room id mappings", n)))
			return nil
		},
	}
}

func printMappings(mappings []model.RoomIDMapping) error {
	writeMappingsTable(os.Stdout, mappings)
	return nil
}

// writeMappingsTable prints mappings sorted by community.
func writeMappingsTable(out io.Writer, mappings []model.RoomIDMapping) {
	sorted := make([]model.RoomIDMapping, len(mappings))
	copy(sorted, mappings)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].ConditionKey < sorted[j].ConditionKey
	})

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	defer w.Flush()

	h := cli.TableHeaderStyle
	fmt.Fprintf(w, "%s\t%s\t%s\t%s\n",
		h.Render("Community"), h.Render("Type"), h.Render("Rooms"), h.Render("Updated"))
	fmt.Fprintf(w, "%s\t%s\t%s\t%s\n",
		strings.Repeat("-", 20), strings.Repeat("-", 6), strings.Repeat("-", 30), strings.Repeat("-", 16))

	for _, m := range sorted {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n",
			m.Condition.CommunityName,
			m.Condition.HouseType.Description(),
			summarizeIDs(m.RoomIDs, 5),
			m.LastUpdated.Local().Format("2006-01-02 15:04"))
	}
}

// summarizeIDs joins up to limit ids and counts the rest.
func summarizeIDs(ids []string, limit int) string {
	if len(ids) <= limit {
		return strings.Join(ids, ",")
	}
	return fmt.Sprintf("%s (+%d more)", strings.Join(ids[:limit], ","), len(ids)-limit)
}
