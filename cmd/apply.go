package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/mattsolo1/grove-hed/pkg/changeset"
	"github.com/mattsolo1/grove-hed/pkg/service"
)

// NewApplyCmd creates the `hed apply` command.
func NewApplyCmd(svc **service.Service, logger **logrus.Logger) *cobra.Command {
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "apply <file>",
		Short: "Apply a change set file in one batch",
		Long: `Read a YAML change set, replay it as pending edits and commit them as
one batch. Operations that fail are reported and leave the rest applied.

Example change set:

  project: demo
  changes:
    - id: 7f3a
      type: folder
      set: {_name: sh020, fps: 24}
    - id: 91bc
      type: task
      delete: true
  create:
    - type: task
      parent: 7f3a
      set: {_name: lighting, _type: Lighting}`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := requireService(svc)
			if err != nil {
				return err
			}
			ctx := cmd.Context()

			cs, err := changeset.ParseFile(args[0])
			if err != nil {
				return err
			}
			if cs.Project != "" && !strings.EqualFold(cs.Project, s.Config.Project) {
				return fmt.Errorf("change set is for project %q, not %q", cs.Project, s.Config.Project)
			}
			if cs.Empty() {
				fmt.Fprintln(cmd.OutOrStdout(), "Nothing to apply")
				return nil
			}

			sum, err := changeset.Apply(ctx, s, cs)
			if err != nil {
				return err
			}
			(*logger).WithFields(logrus.Fields{
				"edited":  len(sum.Edited),
				"deleted": len(sum.Deleted),
				"created": len(sum.Created),
			}).Debug("Change set replayed")

			if dryRun {
				data, err := json.MarshalIndent(s.PendingOperations(), "", "  ")
				if err != nil {
					return fmt.Errorf("failed to marshal operations to JSON: %w", err)
				}
				fmt.Fprintln(cmd.OutOrStdout(), string(data))
				return nil
			}

			res, err := s.Commit(ctx)
			if err != nil {
				if errors.Is(err, service.ErrNothingToCommit) {
					fmt.Fprintln(cmd.OutOrStdout(), "Nothing to commit")
					return nil
				}
				return err
			}
			return reportCommit(cmd, res)
		},
	}

	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Print the operations instead of submitting them")

	return cmd
}

func reportCommit(cmd *cobra.Command, res *service.CommitResult) error {
	applied := res.Submitted - len(res.Failed)
	fmt.Fprintf(cmd.OutOrStdout(), "%s %d of %d operations applied\n", newStyle.Render("✓"), applied, res.Submitted)
	if len(res.Failed) == 0 {
		return nil
	}
	for id, msg := range res.Failed {
		fmt.Fprintf(cmd.OutOrStdout(), "%s %s: %s\n", errorStyle.Render("✗"), id, msg)
	}
	return fmt.Errorf("%d operations failed", len(res.Failed))
}
