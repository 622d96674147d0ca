package cmd

import (
	"encoding/json"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/mattsolo1/grove-hed/pkg/search"
	"github.com/mattsolo1/grove-hed/pkg/service"
)

func NewSearchCmd(svc **service.Service, logger **logrus.Logger) *cobra.Command {
	var (
		searchLimit int
		jsonOutput  bool
	)

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search folders and tasks",
		Long: `Search the project hierarchy by folder name, folder type and task name.

Examples:
  hed search sh010            # Folders named like sh010
  hed search compositing      # Folders of that type and tasks of that name
  hed search lgt --json       # Matches plus the resolved folder filter`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := requireService(svc)
			if err != nil {
				return err
			}
			query := strings.Join(args, " ")

			if err := s.LoadSearchIndex(cmd.Context()); err != nil {
				// A cached summary still allows searching.
				if _, cerr := s.Search(""); cerr != nil {
					return err
				}
				(*logger).WithError(err).Warn("Searching a cached hierarchy")
			}

			matches, err := s.Suggest(query, searchLimit)
			if err != nil {
				return err
			}
			result, err := s.Search(query)
			if err != nil {
				return err
			}

			if jsonOutput {
				out := struct {
					Query   string          `json:"query"`
					Matches []*search.Entry `json:"matches"`
					search.Result
				}{Query: query, Matches: matches, Result: result}
				data, err := json.MarshalIndent(out, "", "  ")
				if err != nil {
					return fmt.Errorf("failed to marshal search results to JSON: %w", err)
				}
				fmt.Fprintln(cmd.OutOrStdout(), string(data))
				return nil
			}

			if len(matches) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No results found")
				return nil
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Found %d results:\n\n", len(matches))
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, headerStyle.Render("NAME")+"\t"+headerStyle.Render("KIND")+"\t"+headerStyle.Render("ID"))
			for _, e := range matches {
				kind := "task"
				id := ""
				if !e.IsTask {
					kind = titleCaser.String(e.FolderType)
					id = e.ID
				}
				fmt.Fprintf(w, "%s%s\t%s\t%s\n", strings.Repeat("  ", e.Depth), e.Label, kind, dimStyle.Render(id))
			}
			w.Flush()
			fmt.Fprintf(cmd.OutOrStdout(), "\n%d folders and %d task names match\n", len(result.FolderIDs), len(result.TaskNames))
			return nil
		},
	}

	cmd.Flags().IntVar(&searchLimit, "limit", 50, "Maximum results")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output results in JSON format")

	return cmd
}
