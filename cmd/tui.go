package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/mattn/go-isatty"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/mattsolo1/grove-hed/cmd/config"
	"github.com/mattsolo1/grove-hed/internal/tui/editor"
	"github.com/mattsolo1/grove-hed/pkg/events"
	"github.com/mattsolo1/grove-hed/pkg/models"
	"github.com/mattsolo1/grove-hed/pkg/service"
)

// NewTuiCmd creates the `hed tui` command.
func NewTuiCmd(svc **service.Service, settings **config.Settings, logger **logrus.Logger) *cobra.Command {
	var noLive bool

	cmd := &cobra.Command{
		Use:   "tui",
		Short: "Launch the interactive hierarchy editor",
		Long: `Launch an interactive Terminal User Interface for editing the folder and
task hierarchy of the project. Edits stay pending until committed; the
expanded folders and selection are restored on the next start. Loaded
entities follow the server's live updates unless --no-live is given.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			// Check for TTY
			if !isatty.IsTerminal(os.Stdout.Fd()) && !isatty.IsCygwinTerminal(os.Stdout.Fd()) {
				return fmt.Errorf("TUI mode requires an interactive terminal")
			}

			s, err := requireService(svc)
			if err != nil {
				return err
			}

			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()

			model := editor.New(ctx, s)
			p := tea.NewProgram(model, tea.WithAltScreen())

			if !noLive {
				if err := followUpdates(ctx, s, *settings, *logger, p.Send); err != nil {
					(*logger).WithError(err).Warn("Live updates disabled")
				}
			}

			if _, err := p.Run(); err != nil {
				return fmt.Errorf("error running TUI: %w", err)
			}

			return nil
		},
	}

	cmd.Flags().BoolVar(&noLive, "no-live", false, "Do not follow live updates from the server")
	return cmd
}

// statusHook shows warnings in the editor's status line instead of writing
// over the screen.
type statusHook struct {
	send func(tea.Msg)
}

func (h statusHook) Levels() []logrus.Level {
	return []logrus.Level{logrus.PanicLevel, logrus.FatalLevel, logrus.ErrorLevel, logrus.WarnLevel}
}

func (h statusHook) Fire(entry *logrus.Entry) error {
	level := service.LevelWarning
	if entry.Level <= logrus.ErrorLevel {
		level = service.LevelError
	}
	h.send(editor.StatusMsg{Level: level, Message: entry.Message})
	return nil
}

// followUpdates applies live updates to s until ctx is done and reports
// patched entities through send.
func followUpdates(ctx context.Context, s *service.Service, cfg *config.Settings, log *logrus.Logger, send func(tea.Msg)) error {
	quiet := logrus.New()
	quiet.SetOutput(io.Discard)
	quiet.SetLevel(log.GetLevel())
	quiet.AddHook(statusHook{send: send})

	sub, err := events.NewSubscriber(cfg.ServerURL, cfg.Token, cfg.Project, quiet)
	if err != nil {
		return err
	}
	go func() {
		err := sub.Run(ctx, func(ctx context.Context, ev models.Event) {
			if ids := s.HandleEvent(ctx, ev); len(ids) > 0 {
				send(editor.EntitiesUpdatedMsg{IDs: ids})
			}
		})
		if err != nil && !errors.Is(err, context.Canceled) {
			quiet.WithError(err).Warn("Live updates stopped")
		}
	}()
	return nil
}
