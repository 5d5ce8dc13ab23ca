package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	domtelemetry "github.com/kailas-cloud/recipegate/internal/domain/telemetry"
	"github.com/kailas-cloud/recipegate/internal/metrics"
	"github.com/kailas-cloud/recipegate/internal/repository/telemetry"
)

func newEventsCmd(root *rootOptions) *cobra.Command {
	var (
		dbPath string
		kind   string
		limit  int
	)
	cmd := &cobra.Command{
		Use:   "events",
		Short: "Print recent telemetry events, newest first, one JSON object per line",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			switch domtelemetry.Kind(kind) {
			case "", domtelemetry.KindSearchMetrics, domtelemetry.KindSessionFeedback, domtelemetry.KindAllergenMismatch:
			default:
				return fmt.Errorf("unknown event kind %q", kind)
			}

			logger, err := root.logger()
			if err != nil {
				return err
			}
			sink, err := telemetry.Open(dbPath, 1, metrics.TelemetryDroppedTotal, logger)
			if err != nil {
				return err
			}
			defer func() { _ = sink.Close() }()

			events, err := sink.Recent(cmd.Context(), domtelemetry.Kind(kind), limit)
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetEscapeHTML(false)
			for _, e := range events {
				if err := enc.Encode(e); err != nil {
					return err
				}
			}
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVar(&dbPath, "db", "recipegate-telemetry.db", "telemetry SQLite file")
	f.StringVar(&kind, "kind", "", "filter by kind: search_metrics, session_feedback, allergen_mismatch")
	f.IntVar(&limit, "limit", 20, "maximum number of events")
	return cmd
}
