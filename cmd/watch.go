package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/mattsolo1/grove-hed/cmd/config"
	"github.com/mattsolo1/grove-hed/pkg/events"
	"github.com/mattsolo1/grove-hed/pkg/models"
	"github.com/mattsolo1/grove-hed/pkg/service"
)

// NewWatchCmd creates the `hed watch` command.
func NewWatchCmd(svc **service.Service, settings **config.Settings, logger **logrus.Logger) *cobra.Command {
	var metricsAddr string

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Follow live entity updates of the project",
		Long: `Load the saved view of the project and keep it current with the server's
live-update channel, printing every update of a loaded entity.
With --metrics-addr, request and commit metrics are served for scraping.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := requireService(svc)
			if err != nil {
				return err
			}
			cfg := *settings
			log := *logger
			if metricsAddr == "" {
				metricsAddr = cfg.MetricsAddr
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			if err := s.Init(ctx); err != nil {
				return err
			}

			sub, err := events.NewSubscriber(cfg.ServerURL, cfg.Token, cfg.Project, log)
			if err != nil {
				return err
			}

			g, ctx := errgroup.WithContext(ctx)
			if metricsAddr != "" {
				srv := &http.Server{Addr: metricsAddr, Handler: promhttp.Handler()}
				g.Go(func() error {
					log.WithField("addr", metricsAddr).Info("Serving metrics")
					if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
						return fmt.Errorf("metrics server: %w", err)
					}
					return nil
				})
				g.Go(func() error {
					<-ctx.Done()
					shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
					defer cancel()
					return srv.Shutdown(shutdownCtx)
				})
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Watching %s (Ctrl+C to stop)\n", cfg.Project)
			g.Go(func() error {
				return sub.Run(ctx, func(ctx context.Context, ev models.Event) {
					s.HandleEvent(ctx, ev)
					fmt.Fprintf(cmd.OutOrStdout(), "%s %s %s %s\n",
						dimStyle.Render(time.Now().Format("15:04:05")),
						ev.Topic,
						ev.Summary.EntityType,
						strings.Join(ev.Summary.IDs, ","))
				})
			})

			err = g.Wait()
			if errors.Is(err, context.Canceled) {
				return s.SaveViewState()
			}
			return err
		},
	}

	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address (e.g. :9090)")

	return cmd
}
