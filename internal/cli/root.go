// Package cli provides the genseo command line.
package cli

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/salekh/genseo-workshop/internal/config"
)

// Version is set at build time.
var Version = "0.1.0"

// globals is the state the root command prepares for every subcommand.
type globals struct {
	configPath string
	logLevel   string

	cfg         config.Config
	logger      *slog.Logger
	closeLogger func() error
}

// NewRootCmd builds the genseo command tree.
func NewRootCmd() *cobra.Command {
	g := &globals{}

	root := &cobra.Command{
		Use:   "genseo",
		Short: "SEO mission orchestrator",
		Long: `genseo researches a topic with keyword and search providers, extracts the
content of ranking competitors, and turns the material into a semantic
analysis, a content briefing and an evaluation of that briefing.`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(g.configPath)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			if g.logLevel != "" {
				cfg.Logging.Level = g.logLevel
			}
			g.cfg = cfg
			g.logger, g.closeLogger = config.SetupLogger(cfg.Logging.File, cfg.LogLevel())
			slog.SetDefault(g.logger)
			return nil
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			if g.closeLogger != nil {
				return g.closeLogger()
			}
			return nil
		},
	}

	root.PersistentFlags().StringVarP(&g.configPath, "config", "c", "", "path to YAML config (default $GENSEO_CONFIG)")
	root.PersistentFlags().StringVar(&g.logLevel, "log-level", "", "log level: debug, info, warn, error")

	root.AddCommand(newRunCmd(g))
	root.AddCommand(newServeCmd(g))
	root.AddCommand(newHistoryCmd(g))
	return root
}

// Execute runs the root command.
func Execute() error {
	return NewRootCmd().Execute()
}
