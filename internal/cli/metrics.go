package cli

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/coldtrack/coldtrack/internal/engine"
	"github.com/coldtrack/coldtrack/internal/metrics"
)

// NewMetricsCommand creates the serve command for the maintenance loop.
func NewMetricsCommand(rootOpts *RootOptions) *cobra.Command {
	var (
		listen    string
		interval  time.Duration
		backfill  int
		lookahead int
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the maintenance loop with a Prometheus endpoint",
		Long: `Run generation and sweeping on a fixed interval for every owner with
an active definition, exposing transition counters at /metrics.

Each tick generates the default policy window for every active owner and
then sweeps overdue occurrences. Both passes are idempotent, so the
interval only controls freshness, not correctness.

Example:
  coldtrack serve --listen :9464 --interval 5m`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := openStore(rootOpts)
			if err != nil {
				return err
			}
			defer st.Close()

			recorder := metrics.NewPrometheus()
			eng := engine.New(st, engine.WithRecorder(recorder))

			mux := http.NewServeMux()
			mux.Handle("/metrics", recorder.Handler())
			server := &http.Server{Addr: listen, Handler: mux}

			errCh := make(chan error, 1)
			go func() {
				slog.Info("metrics endpoint listening", "addr", listen)
				errCh <- server.ListenAndServe()
			}()

			ctx := cmd.Context()
			ticker := time.NewTicker(interval)
			defer ticker.Stop()

			maintain(ctx, eng, recorder, backfill, lookahead)
			for {
				select {
				case <-ctx.Done():
					shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
					defer cancel()
					server.Shutdown(shutdownCtx)
					return nil
				case err := <-errCh:
					return WrapExitError(ExitFailure, "metrics endpoint failed", err)
				case <-ticker.C:
					maintain(ctx, eng, recorder, backfill, lookahead)
				}
			}
		},
	}

	cmd.Flags().StringVar(&listen, "listen", ":9464", "metrics listen address")
	cmd.Flags().DurationVar(&interval, "interval", 5*time.Minute, "maintenance tick interval")
	cmd.Flags().IntVar(&backfill, "backfill", engine.DefaultBackfillDays, "days to backfill each tick")
	cmd.Flags().IntVar(&lookahead, "lookahead", engine.DefaultLookaheadDays, "days to pre-generate each tick")

	return cmd
}

// maintain runs one generation-plus-sweep tick. Per-owner failures are
// logged and skipped so one bad definition cannot stall the loop.
func maintain(ctx context.Context, eng *engine.Engine, recorder *metrics.Prometheus, backfill, lookahead int) {
	now := time.Now().UTC()

	owners, err := eng.Store().ListActiveOwners(ctx)
	if err != nil {
		slog.Error("maintenance tick: listing owners", "error", err)
		return
	}
	for _, owner := range owners {
		if _, err := eng.GenerateAround(ctx, owner, now, backfill, lookahead); err != nil {
			slog.Error("maintenance tick: generation failed", "owner", owner, "error", err)
		}
	}
	if _, err := eng.Sweep(ctx, now); err != nil {
		slog.Error("maintenance tick: sweep failed", "error", err)
	}
	if n, err := eng.Store().CountRequired(ctx); err != nil {
		slog.Error("maintenance tick: counting required", "error", err)
	} else {
		recorder.SetRequired(n)
	}
}
