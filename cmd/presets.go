package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mattsolo1/grove-hed/pkg/api"
)

// NewPresetsCmd creates the `hed presets` command.
func NewPresetsCmd(client **api.Client) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "presets",
		Short: "List anatomy presets available to new projects",
		RunE: func(cmd *cobra.Command, args []string) error {
			presets, err := (*client).AnatomyPresets(cmd.Context())
			if err != nil {
				return err
			}
			options := api.PresetOptions(presets)

			if jsonOutput {
				data, err := json.MarshalIndent(options, "", "  ")
				if err != nil {
					return fmt.Errorf("failed to marshal presets to JSON: %w", err)
				}
				fmt.Fprintln(cmd.OutOrStdout(), string(data))
				return nil
			}

			for _, p := range options {
				line := p.Title
				if p.Version != "" {
					line += " " + dimStyle.Render(p.Version)
				}
				if p.Primary {
					line += " " + newStyle.Render("(primary)")
				}
				fmt.Fprintln(cmd.OutOrStdout(), line)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output presets in JSON format")

	return cmd
}
