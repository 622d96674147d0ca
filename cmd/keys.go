package cmd

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/mattsolo1/grove-hed/internal/tui/editor"
)

// NewKeysCmd creates the `hed keys` command listing the editor key bindings.
func NewKeysCmd() *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "keys",
		Short: "List the key bindings of the interactive editor",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			bindings := editor.KeymapInfo()
			if jsonOutput {
				data, err := json.MarshalIndent(bindings, "", "  ")
				if err != nil {
					return fmt.Errorf("failed to marshal key bindings to JSON: %w", err)
				}
				fmt.Fprintln(cmd.OutOrStdout(), string(data))
				return nil
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			group := ""
			for _, b := range bindings {
				if b.Group != group {
					if group != "" {
						fmt.Fprintln(w)
					}
					group = b.Group
					fmt.Fprintln(w, headerStyle.Render(group))
				}
				fmt.Fprintf(w, "  %s\t%s\n", b.Keys, b.Action)
			}
			return w.Flush()
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output key bindings in JSON format")
	return cmd
}
