package main

import (
	"context"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/mattsolo1/grove-hed/cmd"
	"github.com/mattsolo1/grove-hed/cmd/config"
	"github.com/mattsolo1/grove-hed/pkg/api"
	"github.com/mattsolo1/grove-hed/pkg/service"
)

var (
	svc      *service.Service
	client   *api.Client
	settings *config.Settings
	logger   *logrus.Logger
	closeSvc func() error
)

// Commands that run without configuration.
var standalone = map[string]bool{
	"version":    true,
	"help":       true,
	"completion": true,
	"keys":       true,
}

func main() {
	rootCmd := &cobra.Command{
		Use:          "hed",
		Short:        "Edit the folder and task hierarchy of a production project",
		SilenceUsage: true,
	}
	cobra.OnInitialize(config.InitConfig)
	config.AddGlobalFlags(rootCmd)

	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		// This runs once before any subcommand
		if standalone[cmd.Name()] {
			return nil
		}

		var err error
		settings, err = config.Load()
		if err != nil {
			return err
		}
		logger = config.NewLogger(settings)
		client = config.NewClient(settings, logger)

		// Project commands report a missing project themselves.
		if settings.Project == "" {
			return nil
		}
		svc, closeSvc, err = config.InitService(settings, client, logger)
		if err != nil {
			return err
		}
		return nil
	}
	rootCmd.PersistentPostRunE = func(cmd *cobra.Command, args []string) error {
		if closeSvc != nil {
			return closeSvc()
		}
		return nil
	}

	// Add subcommands
	rootCmd.AddCommand(cmd.NewTreeCmd(&svc))
	rootCmd.AddCommand(cmd.NewSearchCmd(&svc, &logger))
	rootCmd.AddCommand(cmd.NewSetCmd(&svc))
	rootCmd.AddCommand(cmd.NewApplyCmd(&svc, &logger))
	rootCmd.AddCommand(cmd.NewWatchCmd(&svc, &settings, &logger))
	rootCmd.AddCommand(cmd.NewTuiCmd(&svc, &settings, &logger))
	rootCmd.AddCommand(cmd.NewStateCmd(&svc))
	rootCmd.AddCommand(cmd.NewDoctorCmd(&svc))
	rootCmd.AddCommand(cmd.NewKeysCmd())
	rootCmd.AddCommand(cmd.NewAddonsCmd(&client, &logger))
	rootCmd.AddCommand(cmd.NewPresetsCmd(&client))
	rootCmd.AddCommand(cmd.NewVersionCmd())

	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}
