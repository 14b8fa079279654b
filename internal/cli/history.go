package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/salekh/genseo-workshop/internal/report"
	"github.com/salekh/genseo-workshop/internal/storage"
)

func newHistoryCmd(g *globals) *cobra.Command {
	var (
		filter  storage.Filter
		since   time.Duration
		jsonOut bool
	)
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List stored missions",
		Long: `List missions recorded by the configured storage backend, newest first.

Examples:
  genseo history
  genseo history --topic mallorca --since 168h
  genseo history --limit 5 --json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			backend, err := openStorage(ctx, g.cfg.Storage)
			if err != nil {
				return err
			}
			if backend == nil {
				return errors.New("no storage configured: set storage.driver in the config file or GENSEO_STORAGE")
			}
			defer backend.Close()

			if since > 0 {
				t := time.Now().Add(-since)
				filter.Since = &t
			}
			records, err := backend.Query(ctx, filter)
			if err != nil {
				return fmt.Errorf("query missions: %w", err)
			}

			if jsonOut {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(records)
			}
			return report.WriteHistory(cmd.OutOrStdout(), records)
		},
	}

	f := cmd.Flags()
	f.StringVarP(&filter.Topic, "topic", "t", "", "only missions whose topic contains this text")
	f.IntVarP(&filter.Limit, "limit", "n", 20, "max results")
	f.IntVar(&filter.Offset, "offset", 0, "skip this many results")
	f.DurationVar(&since, "since", 0, "only missions newer than this, e.g. 24h")
	f.BoolVar(&jsonOut, "json", false, "print records as JSON")
	return cmd
}
