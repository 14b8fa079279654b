package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/salekh/genseo-workshop/internal/domain"
	"github.com/salekh/genseo-workshop/internal/metrics"
	"github.com/salekh/genseo-workshop/internal/mission"
	"github.com/salekh/genseo-workshop/internal/report"
)

type runOptions struct {
	req     mission.Request
	outDir  string
	jsonOut bool
}

func newRunCmd(g *globals) *cobra.Command {
	opts := &runOptions{}
	cmd := &cobra.Command{
		Use:   "run <topic>",
		Short: "Run an SEO mission for a topic",
		Long: `Run a full mission: keyword and competitor research, content extraction,
semantic analysis, briefing and evaluation. Progress is printed as it
happens; the final report is summarised and optionally written to --out.

Examples:
  genseo run "Familienhotel Mallorca"
  genseo run "Familienhotel Mallorca" --content-type Blog --language German --out ./out`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.req.Topic = strings.Join(args, " ")
			return runMission(cmd, g, opts)
		},
	}

	f := cmd.Flags()
	f.StringVar(&opts.req.ContentType, "content-type", "", "content type, e.g. Blog or Landingpage")
	f.StringVar(&opts.req.TargetGroup, "target-group", "", "target audience")
	f.StringVar(&opts.req.Location, "location", "", "search location")
	f.StringVar(&opts.req.Language, "language", "", "output language")
	f.IntVar(&opts.req.MaxCompetitors, "max-competitors", 0, "maximum competitors to analyse (default from config)")
	f.StringVarP(&opts.outDir, "out", "o", "", "directory to write report files to")
	f.BoolVar(&opts.jsonOut, "json", false, "print the final report as JSON instead of a summary")
	return cmd
}

func runMission(cmd *cobra.Command, g *globals, opts *runOptions) error {
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

	if port := g.cfg.Metrics.Port; port > 0 {
		srv := metrics.Start(port, g.logger)
		defer func() { _ = srv.Stop(context.Background()) }()
	}

	rep, err := streamMission(ctx, a.orchestrator, opts.req, cmd.ErrOrStderr())
	if err != nil {
		return err
	}

	if opts.outDir != "" {
		paths, err := report.WriteFiles(opts.outDir, rep)
		if err != nil {
			return fmt.Errorf("write report files: %w", err)
		}
		for _, p := range paths {
			fmt.Fprintf(cmd.ErrOrStderr(), "saved %s\n", p)
		}
	}

	if opts.jsonOut {
		return report.WriteJSON(cmd.OutOrStdout(), rep)
	}
	return report.WriteText(cmd.OutOrStdout(), rep)
}

type eventRunner interface {
	Run(ctx context.Context, req mission.Request) <-chan mission.Event
}

// streamMission prints every event until the mission completes or ctx ends.
func streamMission(ctx context.Context, r eventRunner, req mission.Request, w io.Writer) (domain.Report, error) {
	var rejected error
	events := r.Run(ctx, req)
	for {
		select {
		case <-ctx.Done():
			return domain.Report{}, errors.New("mission interrupted")
		case ev, ok := <-events:
			if !ok {
				return domain.Report{}, errors.New("mission ended without a report")
			}
			fmt.Fprintln(w, renderEvent(ev))
			if ev.Type == mission.EventError && ev.Source == mission.SourceMission {
				rejected = errors.New(ev.Message)
			}
			if ev.Type != mission.EventComplete {
				continue
			}
			if ev.Report == nil {
				return domain.Report{}, errors.New("mission ended without a report")
			}
			return *ev.Report, rejected
		}
	}
}
