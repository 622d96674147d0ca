package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/mattsolo1/grove-hed/pkg/service"
	"github.com/mattsolo1/grove-hed/pkg/tree"
)

// NewTreeCmd creates the `hed tree` command.
func NewTreeCmd(svc **service.Service) *cobra.Command {
	var (
		expandIDs  []string
		depth      int
		query      string
		columns    string
		jsonOutput bool
	)

	cmd := &cobra.Command{
		Use:   "tree",
		Short: "Print the folder hierarchy of the project",
		Long: `Print the folder hierarchy with the branches expanded in the saved view.

Examples:
  hed tree                    # Root plus saved expansion
  hed tree --depth 2          # Expand two levels below the root
  hed tree -e 7f3a -e 91bc    # Expand specific folders
  hed tree --search sh010     # Restrict to matching folders and tasks
  hed tree --columns fps:4,frameStart  # Show attribute columns

Without --columns the columns of the saved view are shown.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := requireService(svc)
			if err != nil {
				return err
			}
			ctx := cmd.Context()

			if err := s.Init(ctx); err != nil {
				return err
			}
			if cmd.Flags().Changed("columns") {
				cols, err := service.ParseColumns(columns)
				if err != nil {
					return err
				}
				s.SetColumns(cols)
			}
			for _, id := range expandIDs {
				if err := s.Expand(ctx, id); err != nil {
					return err
				}
			}
			if err := expandToDepth(ctx, s, depth); err != nil {
				return err
			}
			if query != "" {
				if _, err := s.ApplySearch(query); err != nil {
					return err
				}
			}

			if jsonOutput {
				data, err := json.MarshalIndent(s.Tree(), "", "  ")
				if err != nil {
					return fmt.Errorf("failed to marshal tree to JSON: %w", err)
				}
				fmt.Fprintln(cmd.OutOrStdout(), string(data))
				return nil
			}

			rows := s.Rows()
			if len(rows) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), dimStyle.Render("No folders"))
				return nil
			}
			for _, line := range renderRows(s, rows, s.Columns()) {
				fmt.Fprintln(cmd.OutOrStdout(), line)
			}
			return nil
		},
	}

	cmd.Flags().StringSliceVarP(&expandIDs, "expand", "e", nil, "Expand the given folder ids")
	cmd.Flags().IntVar(&depth, "depth", 0, "Expand every folder up to this depth")
	cmd.Flags().StringVar(&query, "search", "", "Only show folders and tasks matching the query")
	cmd.Flags().StringVar(&columns, "columns", "", "Attribute columns to show, as name[:width] separated by commas")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output the tree as JSON")

	return cmd
}

// expandToDepth expands every collapsed folder shallower than depth, one
// level at a time.
func expandToDepth(ctx context.Context, s *service.Service, depth int) error {
	for level := 0; level < depth; level++ {
		var pending []string
		for _, row := range s.Rows() {
			if row.Depth == level && !row.Node.Leaf && !row.Expanded {
				pending = append(pending, row.Node.Key)
			}
		}
		if len(pending) == 0 {
			return nil
		}
		for _, id := range pending {
			if err := s.Expand(ctx, id); err != nil {
				return err
			}
		}
	}
	return nil
}

// renderRows renders the rows with the columns aligned after the widest
// label. Commit errors follow the columns.
func renderRows(s *service.Service, rows []tree.Row, cols []service.Column) []string {
	errs := s.Errors()
	labels := make([]string, len(rows))
	width := 0
	for i, row := range rows {
		labels[i] = renderRow(s, row)
		if w := lipgloss.Width(labels[i]); w > width {
			width = w
		}
	}

	var out []string
	if len(cols) > 0 {
		var b strings.Builder
		b.WriteString(strings.Repeat(" ", width))
		for _, col := range cols {
			b.WriteString(" ")
			b.WriteString(dimStyle.Render(service.FitCell(col.Name, col.Width)))
		}
		out = append(out, strings.TrimRight(b.String(), " "))
	}
	for i, row := range rows {
		var b strings.Builder
		b.WriteString(labels[i])
		if len(cols) > 0 {
			b.WriteString(strings.Repeat(" ", width-lipgloss.Width(labels[i])))
			for _, col := range cols {
				b.WriteString(" ")
				b.WriteString(col.Cell(row.Node.Data))
			}
		}
		if msg, ok := errs[row.Node.Key]; ok {
			b.WriteString(" ")
			b.WriteString(errorStyle.Render(msg))
		}
		out = append(out, strings.TrimRight(b.String(), " "))
	}
	return out
}

func renderRow(s *service.Service, row tree.Row) string {
	n := row.Node
	state := s.RowState(n.Key)

	var b strings.Builder
	b.WriteString(stateMarker(state))
	b.WriteString(" ")
	b.WriteString(strings.Repeat("  ", row.Depth))
	switch {
	case n.Leaf:
		b.WriteString("  ")
	case row.Expanded:
		b.WriteString("▾ ")
	default:
		b.WriteString("▸ ")
	}

	name := n.Name
	if name == "" {
		name = dimStyle.Render("<unnamed>")
	}
	b.WriteString(styleName(name, state))

	if typ := n.Data.Type(); typ != "" {
		b.WriteString(" ")
		b.WriteString(dimStyle.Render(titleCaser.String(typ)))
	}
	b.WriteString(" ")
	b.WriteString(dimStyle.Render(n.Key))
	return b.String()
}
