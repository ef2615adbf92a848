package main

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/Veraticus/roomrush/internal/cli"
	"github.com/Veraticus/roomrush/internal/model"
)

// conditionsFile is the YAML layout read by import and written by export.
type conditionsFile struct {
	Conditions []model.Condition `yaml:"conditions"`
}

func conditionsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "conditions",
		Short: "Manage room conditions",
		Long: `List, add, delete, import and export the ordered room conditions.

The first condition is the most preferred. A run tries them in order and
stops at the first room it claims.`,
	}

	cmd.AddCommand(listConditionsCmd())
	cmd.AddCommand(addConditionCmd())
	cmd.AddCommand(deleteConditionCmd())
	cmd.AddCommand(clearConditionsCmd())
	cmd.AddCommand(importConditionsCmd())
	cmd.AddCommand(exportConditionsCmd())

	return cmd
}

func listConditionsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List conditions in priority order",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			store, err := initStorage(ctx, loadSettings())
			if err != nil {
				return err
			}
			defer store.Close()

			conditions, err := store.GetConditions(ctx)
			if err != nil {
				return fmt.Errorf("failed to get conditions: %w", err)
			}

			if len(conditions) == 0 {
				fmt.Println(cli.InfoStyle.Render("No conditions found. Use 'roomrush conditions add' to create one."))
				return nil
			}

			writeConditionsTable(os.Stdout, conditions)
			return nil
		},
	}
}

// writeConditionsTable prints conditions as an aligned table.
func writeConditionsTable(out io.Writer, conditions []model.Condition) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	defer w.Flush()

	h := cli.TableHeaderStyle
	fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
		h.Render("#"), h.Render("Community"), h.Render("Type"), h.Render("Building"),
		h.Render("Floors"), h.Render("Max price"), h.Render("Min area"))
	fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
		strings.Repeat("-", 2), strings.Repeat("-", 20), strings.Repeat("-", 6), strings.Repeat("-", 8),
		strings.Repeat("-", 8), strings.Repeat("-", 9), strings.Repeat("-", 8))

	for i, c := range conditions {
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t%s\t%s\n",
			i+1, c.CommunityName, c.HouseType.Description(),
			anyIfZero(c.BuildingNo), orAny(c.FloorRange), anyIfZero(c.MaxPrice), anyIfZero(c.MinArea))
	}
}

func anyIfZero(n int) string {
	if n == 0 {
		return orAny("")
	}
	return strconv.Itoa(n)
}

func orAny(s string) string {
	if s == "" {
		return cli.SubtleStyle.Render("any")
	}
	return s
}

func addConditionCmd() *cobra.Command {
	var (
		houseType string
		floors    string
		building  int
		maxPrice  int
		minArea   int
	)

	cmd := &cobra.Command{
		Use:   "add <community>",
		Short: "Append a condition at the lowest priority",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ht, err := model.ParseHouseType(houseType)
			if err != nil {
				return err
			}
			c := model.Condition{
				CommunityName: strings.TrimSpace(args[0]),
				FloorRange:    strings.TrimSpace(floors),
				BuildingNo:    building,
				MaxPrice:      maxPrice,
				MinArea:       minArea,
				HouseType:     ht,
			}
			if err := c.Validate(); err != nil {
				return err
			}

			ctx := cmd.Context()
			store, err := initStorage(ctx, loadSettings())
			if err != nil {
				return err
			}
			defer store.Close()

			position, err := store.AddCondition(ctx, c)
			if err != nil {
				return fmt.Errorf("failed to add condition: %w", err)
			}

			fmt.Println(cli.FormatSuccess(fmt.Sprintf("Added condition %d: %s", position, c)))
			return nil
		},
	}

	cmd.Flags().StringVar(&houseType, "type", "one", "house type (one, two, three)")
	cmd.Flags().StringVar(&floors, "floors", "", "floor range, e.g. \"3-6\" or \"2,4,8-10\"")
	cmd.Flags().IntVar(&building, "building", 0, "building number (0 for any)")
	cmd.Flags().IntVar(&maxPrice, "max-price", 0, "maximum monthly rent (0 for any)")
	cmd.Flags().IntVar(&minArea, "min-area", 0, "minimum area in square meters (0 for any)")

	return cmd
}

func deleteConditionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <position>",
		Short: "Delete the condition at a position",
		Long:  `Delete the condition at the 1-based position shown by 'roomrush conditions list'. Later conditions move up.`,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			position, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("invalid position %q: %w", args[0], err)
			}

			ctx := cmd.Context()
			store, err := initStorage(ctx, loadSettings())
			if err != nil {
				return err
			}
			defer store.Close()

			if err := store.DeleteCondition(ctx, position); err != nil {
				return fmt.Errorf("failed to delete condition: %w", err)
			}

			fmt.Println(cli.FormatSuccess(fmt.Sprintf("Deleted condition %d", position)))
			return nil
		},
	}
}

func clearConditionsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Delete every condition",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			store, err := initStorage(ctx, loadSettings())
			if err != nil {
				return err
			}
			defer store.Close()

			if err := store.ClearConditions(ctx); err != nil {
				return fmt.Errorf("failed to clear conditions: %w", err)
			}

			fmt.Println(cli.FormatSuccess("Cleared all conditions"))
			return nil
		},
	}
}

func importConditionsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "import <file>",
		Short: "Replace the conditions with a YAML file",
		Long: `Replace every stored condition with the ones in a YAML file, in file order.

  conditions:
    - community: Harbor Court
      house_type: 0   # 0 one-room, 1 two-room, 2 three-room
      floors: 3-6
      max_price: 4000`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("failed to read %s: %w", args[0], err)
			}
			conditions, err := parseConditions(data)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			store, err := initStorage(ctx, loadSettings())
			if err != nil {
				return err
			}
			defer store.Close()

			if err := store.ReplaceConditions(ctx, conditions); err != nil {
				return fmt.Errorf("failed to import conditions: %w", err)
			}

			fmt.Println(cli.FormatSuccess(fmt.Sprintf("Imported %d conditions", len(conditions))))
			return nil
		},
	}
}

func exportConditionsCmd() *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the conditions as YAML",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			store, err := initStorage(ctx, loadSettings())
			if err != nil {
				return err
			}
			defer store.Close()

			conditions, err := store.GetConditions(ctx)
			if err != nil {
				return fmt.Errorf("failed to get conditions: %w", err)
			}

			data, err := marshalConditions(conditions)
			if err != nil {
				return err
			}

			if output == "" || output == "-" {
				_, err = cmd.OutOrStdout().Write(data)
				return err
			}
			if err := os.WriteFile(output, data, 0o600); err != nil {
				return fmt.Errorf("failed to write %s: %w", output, err)
			}
			fmt.Println(cli.FormatSuccess(fmt.Sprintf("Exported %d conditions to %s", len(conditions), output)))
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default: stdout)")

	return cmd
}

// parseConditions decodes and validates a conditions file.
func parseConditions(data []byte) ([]model.Condition, error) {
	var file conditionsFile
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&file); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("conditions file is empty")
		}
		return nil, fmt.Errorf("failed to parse conditions: %w", err)
	}

	for i, c := range file.Conditions {
		if err := c.Validate(); err != nil {
			return nil, fmt.Errorf("condition %d: %w", i+1, err)
		}
	}
	return file.Conditions, nil
}

// marshalConditions encodes conditions in the import layout.
func marshalConditions(conditions []model.Condition) ([]byte, error) {
	if conditions == nil {
		conditions = []model.Condition{}
	}
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(conditionsFile{Conditions: conditions}); err != nil {
		return nil, fmt.Errorf("failed to encode conditions: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("failed to encode conditions: %w", err)
	}
	return buf.Bytes(), nil
}
