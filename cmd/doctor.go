package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mattsolo1/grove-hed/pkg/service"
)

// NewDoctorCmd creates the `hed doctor` command.
func NewDoctorCmd(svc **service.Service) *cobra.Command {
	var (
		fix        bool
		jsonOutput bool
	)

	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Check and repair local state of the project",
		Long: `The doctor command checks for common problems and offers to fix them
automatically.

Issues it can detect:
- An unreachable server or a project without a hierarchy
- An unreadable search cache (fixed by refetching it)
- Saved expansion or selection of entities that no longer exist`,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := requireService(svc)
			if err != nil {
				return err
			}
			issues := s.Doctor(cmd.Context(), fix)

			if jsonOutput {
				if issues == nil {
					issues = []service.Issue{}
				}
				data, err := json.MarshalIndent(issues, "", "  ")
				if err != nil {
					return fmt.Errorf("failed to marshal issues to JSON: %w", err)
				}
				fmt.Fprintln(cmd.OutOrStdout(), string(data))
				return nil
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "🏥 Checking %s...\n\n", s.Config.Project)
			if len(issues) == 0 {
				fmt.Fprintln(out, "✨ No issues found!")
				return nil
			}

			fixed, fixable := 0, 0
			for _, issue := range issues {
				fmt.Fprintf(out, "❗ %s: %s\n", issue.Check, issue.Message)
				switch {
				case issue.Fixed:
					fixed++
					fmt.Fprintln(out, "   ✅ Fixed")
				case issue.Fixable:
					fixable++
					fmt.Fprintln(out, "   💡 Run with --fix to resolve this issue")
				default:
					fmt.Fprintln(out, "   💡 This requires manual intervention")
				}
			}

			fmt.Fprintf(out, "\n📊 Summary: Found %d issue(s)", len(issues))
			if fix {
				fmt.Fprintf(out, ", fixed %d", fixed)
			}
			fmt.Fprintln(out)
			if fixable > 0 {
				fmt.Fprintln(out, "\n💡 Run 'hed doctor --fix' to automatically fix issues")
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&fix, "fix", false, "Automatically fix issues")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output issues in JSON format")
	return cmd
}
