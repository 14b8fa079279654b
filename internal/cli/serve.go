package cli

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/salekh/genseo-workshop/internal/server"
)

func newServeCmd(g *globals) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve missions over HTTP",
		Long: `Start the HTTP server. Missions are streamed as server-sent events from
/api/mission/stream or over a websocket at /api/mission/ws. Stored missions
are listed at /api/missions; /health and /metrics are also exposed.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if addr != "" {
				g.cfg.Server.Addr = addr
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			a, err := newApp(ctx, g.cfg, g.logger)
			if err != nil {
				return err
			}
			defer func() {
				if err := a.Close(); err != nil {
					g.logger.Warn("failed to close resources", "error", err)
				}
			}()

			var history server.History
			if a.store != nil {
				history = a.store
			}
			srv := server.New(a.orchestrator, history, g.logger)
			if err := srv.ListenAndServe(ctx, g.cfg.Server.Addr, g.cfg.Server.ShutdownTimeout); err != nil {
				return err
			}
			g.logger.Info("server stopped")
			return nil
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default from config, :8000)")
	return cmd
}
