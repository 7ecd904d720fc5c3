package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	sdktelemetry "github.com/cosmos/cosmos-sdk/telemetry"
	"github.com/spf13/cobra"

	"github.com/solrush/rush/app"
	"github.com/solrush/rush/app/telemetry"
	"github.com/solrush/rush/pkg/trigger"
)

const (
	flagAuthority = "authority"
	flagExecutor  = "executor"
	flagNoKeeper  = "no-keeper"
)

// StartCmd runs the engine as a long-lived process: the keeper loop plus the
// metrics and health endpoints. It holds the database until interrupted.
func StartCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "start",
		Short: "Run the keeper loop with metrics and health endpoints",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := stateFromCmd(cmd)
			if err != nil {
				return err
			}
			ctx := cmd.Context()

			tel, err := newTelemetry(s.cfg)
			if err != nil {
				return err
			}
			// go-metrics counters from the engine land in the default
			// Prometheus registry next to the OpenTelemetry exporter.
			if _, err := sdktelemetry.New(sdktelemetry.Config{
				ServiceName:             app.Name,
				Enabled:                 true,
				PrometheusRetentionTime: 60,
			}); err != nil {
				return fmt.Errorf("failed to enable engine telemetry: %w", err)
			}
			defer func() {
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := tel.Shutdown(shutdownCtx); err != nil {
					s.logger.Error("telemetry shutdown failed", "error", err)
				}
			}()

			engine, _, closeFn, err := openEngine(cmd, tel)
			if err != nil {
				return err
			}
			defer closeFn()

			noKeeper, _ := cmd.Flags().GetBool(flagNoKeeper)
			var sweeps *SweepTracker
			var bot *trigger.Bot
			if !noKeeper {
				sweeps = NewSweepTracker(s.cfg.Keeper.Interval)
				if bot, err = newBot(cmd, engine, s, tel, sweeps.Record); err != nil {
					return err
				}
			}

			metricsServer := StartPrometheusServer(s.cfg.Telemetry.MetricsPort)
			health := StartHealthCheckServer(s.cfg.Telemetry.HealthPort, engine, sweeps, tel)
			s.logger.Info("engine started",
				"home", s.cfg.Home,
				"db_backend", s.cfg.DBBackend,
				"metrics_port", s.cfg.Telemetry.MetricsPort,
				"health_port", s.cfg.Telemetry.HealthPort,
			)

			if bot != nil {
				err = bot.Run(ctx)
			} else {
				<-ctx.Done()
			}

			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = health.Shutdown(shutdownCtx)
			_ = metricsServer.Shutdown(shutdownCtx)
			return err
		},
	}
	cmd.Flags().Bool(flagNoKeeper, false, "serve endpoints without running keeper sweeps")
	return cmd
}

// KeeperCmd exposes the keeper bot for one-off or foreground use.
func KeeperCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "keeper",
		Short: "Fire permissionless triggers: expiries, limit fills, DCA cycles, liquidations",
	}

	sweep := &cobra.Command{
		Use:   "sweep",
		Short: "Run one sweep and print its report",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			engine, s, closeFn, err := openEngine(cmd, nil)
			if err != nil {
				return err
			}
			defer closeFn()

			bot, err := newBot(cmd, engine, s, nil, nil)
			if err != nil {
				return err
			}
			report, err := bot.Sweep(cmd.Context())
			if err != nil {
				return err
			}
			return printJSON(cmd, report)
		},
	}

	run := &cobra.Command{
		Use:   "run",
		Short: "Sweep every keeper interval until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			engine, s, closeFn, err := openEngine(cmd, nil)
			if err != nil {
				return err
			}
			defer closeFn()

			bot, err := newBot(cmd, engine, s, nil, func(r trigger.Report) {
				if r.Expired+r.LimitExecuted+r.DCAExecuted+r.Liquidated+r.Failed > 0 {
					_ = printJSON(cmd, r)
				}
			})
			if err != nil {
				return err
			}
			return bot.Run(cmd.Context())
		},
	}

	for _, c := range []*cobra.Command{sweep, run} {
		c.Flags().String(flagExecutor, "", "executor address or key name (default from config)")
	}
	cmd.AddCommand(sweep, run)
	return cmd
}

// InvariantsCmd checks every registered invariant against committed state.
func InvariantsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "invariants",
		Short: "Check every ledger, pool, order and position invariant",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			engine, _, closeFn, err := openEngine(cmd, nil)
			if err != nil {
				return err
			}
			defer closeFn()

			if err := engine.AssertInvariants(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d invariants hold\n", len(engine.InvariantRoutes()))
			return nil
		},
	}
}

func newBot(cmd *cobra.Command, engine *app.App, s *cmdState, tel *telemetry.Provider, onSweep func(trigger.Report)) (*trigger.Bot, error) {
	executor := s.cfg.Keeper.Executor
	if f := cmd.Flags().Lookup(flagExecutor); f != nil && f.Changed {
		executor = f.Value.String()
	}
	if executor == "" {
		return nil, fmt.Errorf("keeper executor is not configured; set keeper.executor or --%s", flagExecutor)
	}
	addr, err := resolveAddress(cmd, executor)
	if err != nil {
		return nil, fmt.Errorf("executor: %w", err)
	}

	return trigger.NewBot(engine, trigger.Config{
		Executor:          addr,
		Interval:          s.cfg.Keeper.Interval,
		TriggersPerSecond: s.cfg.Keeper.TriggersPerSecond,
		Burst:             s.cfg.Keeper.Burst,
		OnSweep:           onSweep,
		Telemetry:         tel,
	}, s.logger)
}

func newTelemetry(cfg Config) (*telemetry.Provider, error) {
	hostname, _ := os.Hostname()
	return telemetry.NewProvider(telemetry.Config{
		Enabled:           cfg.Telemetry.TracingEndpoint != "",
		OTLPEndpoint:      cfg.Telemetry.TracingEndpoint,
		SampleRate:        cfg.Telemetry.SampleRate,
		Environment:       cfg.Telemetry.Environment,
		EngineID:          hostname,
		PrometheusEnabled: true,
	})
}
