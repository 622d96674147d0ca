package cmd

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/mattsolo1/grove-hed/pkg/addons"
	"github.com/mattsolo1/grove-hed/pkg/api"
)

// NewAddonsCmd creates the `hed addons` command group.
func NewAddonsCmd(client **api.Client, logger **logrus.Logger) *cobra.Command {
	var env string

	cmd := &cobra.Command{
		Use:   "addons",
		Short: "Inspect and change addon versions per environment",
	}
	cmd.PersistentFlags().StringVarP(&env, "env", "e", addons.Production, "Environment (production or staging)")

	manager := func() *addons.Manager {
		return addons.NewManager(*client, *logger)
	}

	cmd.AddCommand(newAddonsListCmd(manager, &env))
	cmd.AddCommand(newAddonsSetCmd(manager, &env))
	cmd.AddCommand(newAddonsCopyCmd(manager, &env))
	return cmd
}

func newAddonsListCmd(manager func() *addons.Manager, env *string) *cobra.Command {
	var (
		showAll    bool
		jsonOutput bool
	)

	cmd := &cobra.Command{
		Use:     "list",
		Short:   "List addons active in the environment",
		Aliases: []string{"ls"},
		RunE: func(cmd *cobra.Command, args []string) error {
			rows, err := manager().List(cmd.Context(), *env, showAll)
			if err != nil {
				return err
			}

			if jsonOutput {
				data, err := json.MarshalIndent(rows, "", "  ")
				if err != nil {
					return fmt.Errorf("failed to marshal addons to JSON: %w", err)
				}
				fmt.Fprintln(cmd.OutOrStdout(), string(data))
				return nil
			}

			if len(rows) == 0 {
				fmt.Fprintf(cmd.OutOrStdout(), "No addons active in %s\n", *env)
				return nil
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, headerStyle.Render("NAME")+"\t"+headerStyle.Render("TITLE")+"\t"+headerStyle.Render("VERSION")+"\t"+headerStyle.Render("LATEST"))
			for _, r := range rows {
				version := r.Version
				switch {
				case version == "":
					version = dimStyle.Render("(disabled)")
				case version != r.LatestVersion:
					version = changedStyle.Render(version)
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", r.Name, r.Title, version, r.LatestVersion)
			}
			return w.Flush()
		},
	}

	cmd.Flags().BoolVar(&showAll, "all", false, "Include addons not active in the environment")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output addons in JSON format")

	return cmd
}

func newAddonsSetCmd(manager func() *addons.Manager, env *string) *cobra.Command {
	var (
		latest  bool
		disable bool
		version string
	)

	cmd := &cobra.Command{
		Use:   "set <addon>...",
		Short: "Activate or disable addon versions",
		Long: `Change the active version of addons in one request.

Examples:
  hed addons set core kitsu --latest
  hed addons set kitsu --disable --env staging
  hed addons set core --version 1.2.0`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			target, err := setTarget(latest, disable, version)
			if err != nil {
				return err
			}
			versions, err := manager().SetVersions(cmd.Context(), *env, args, target, version)
			if err != nil {
				return err
			}
			for _, name := range args {
				v := dimStyle.Render("(disabled)")
				if versions[name] != nil {
					v = *versions[name]
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s %s %s\n", newStyle.Render("✓"), name, v)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&latest, "latest", false, "Activate the latest installed version")
	cmd.Flags().BoolVar(&disable, "disable", false, "Disable the addon")
	cmd.Flags().StringVar(&version, "version", "", "Activate an explicit version")

	return cmd
}

// setTarget picks the version target from exactly one of the set flags.
func setTarget(latest, disable bool, version string) (addons.Target, error) {
	count := 0
	target := addons.TargetLatest
	if latest {
		count++
	}
	if disable {
		count++
		target = addons.TargetDisable
	}
	if version != "" {
		count++
		target = addons.TargetVersion
	}
	if count != 1 {
		return 0, fmt.Errorf("pass exactly one of --latest, --disable or --version")
	}
	return target, nil
}

func newAddonsCopyCmd(manager func() *addons.Manager, env *string) *cobra.Command {
	return &cobra.Command{
		Use:   "copy <addon>...",
		Short: "Copy addon settings into the environment from the other one",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := manager().CopyFromOther(cmd.Context(), *env, args); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s copied %d addons from %s to %s\n",
				newStyle.Render("✓"), len(args), addons.CopySource(*env), *env)
			return nil
		},
	}
}
