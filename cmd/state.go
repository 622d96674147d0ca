package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mattsolo1/grove-hed/pkg/service"
)

// NewStateCmd creates the `hed state` command group.
func NewStateCmd(svc **service.Service) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "state",
		Short: "Show or reset the saved view of the project",
	}

	show := &cobra.Command{
		Use:   "show",
		Short: "Print the saved expansion and selection",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := requireService(svc)
			if err != nil {
				return err
			}
			st, err := s.ViewState()
			if err != nil {
				return err
			}
			data, err := json.MarshalIndent(st, "", "  ")
			if err != nil {
				return fmt.Errorf("failed to marshal view state to JSON: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(data))
			return nil
		},
	}

	reset := &cobra.Command{
		Use:   "reset",
		Short: "Forget the saved expansion and selection",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := requireService(svc)
			if err != nil {
				return err
			}
			if err := s.ResetViewState(); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "View state of %s reset\n", s.Config.Project)
			return nil
		},
	}

	cmd.AddCommand(show, reset)
	return cmd
}
