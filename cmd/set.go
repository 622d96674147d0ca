package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mattsolo1/grove-hed/pkg/changeset"
	"github.com/mattsolo1/grove-hed/pkg/models"
	"github.com/mattsolo1/grove-hed/pkg/service"
)

// NewSetCmd creates the `hed set` command.
func NewSetCmd(svc **service.Service) *cobra.Command {
	var entityType string

	cmd := &cobra.Command{
		Use:   "set <id> <column=value>...",
		Short: "Edit columns of one folder or task and commit",
		Long: `Set attributes or entity fields of one entity and commit immediately.
Columns starting with an underscore are entity fields (_name, _label,
_status, _type); everything else is an attribute. "null" clears a value.

Examples:
  hed set 7f3a fps=24 frameStart=1001
  hed set 91bc _name=lighting _type=Lighting --type task`,
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := requireService(svc)
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			id := args[0]
			if entityType != string(models.EntityFolder) && entityType != string(models.EntityTask) {
				return fmt.Errorf("invalid entity type %q, expected folder or task", entityType)
			}

			if _, err := s.Fetch(ctx, models.EntityType(entityType), id); err != nil {
				return err
			}
			for _, assignment := range args[1:] {
				column, raw, ok := strings.Cut(assignment, "=")
				if !ok || column == "" {
					return fmt.Errorf("invalid assignment %q, expected column=value", assignment)
				}
				if err := s.EditEntity(id, column, changeset.ParseValue(raw)); err != nil {
					return err
				}
			}

			res, err := s.Commit(ctx)
			if err != nil {
				return err
			}
			return reportCommit(cmd, res)
		},
	}

	cmd.Flags().StringVarP(&entityType, "type", "t", string(models.EntityFolder), "Entity type (folder or task)")

	return cmd
}
