package cmd

import (
	"context"
	"errors"
	"fmt"

	"cosmossdk.io/log"
	dbm "github.com/cosmos/cosmos-db"
	sdk "github.com/cosmos/cosmos-sdk/types"
	"github.com/spf13/cobra"

	"github.com/solrush/rush/app"
	"github.com/solrush/rush/app/telemetry"
)

const (
	flagHome           = "home"
	flagDBBackend      = "db-backend"
	flagLogLevel       = "log-level"
	flagLogFormat      = "log-format"
	flagFrom           = "from"
	flagKeyringBackend = "keyring-backend"
)

type contextKey struct{}

// cmdState is resolved once per invocation in PersistentPreRunE.
type cmdState struct {
	cfg    Config
	logger log.Logger
}

// NewRootCmd creates the rushd command tree. It is called once in main.
func NewRootCmd() *cobra.Command {
	// Addresses print with the rush prefix everywhere below.
	app.SetConfig()

	rootCmd := &cobra.Command{
		Use:   "rushd",
		Short: "Rush settlement engine",
		Long: `rushd runs the rush settlement engine: constant-product pools, limit
orders, DCA schedules and leveraged perpetuals over one ledger.

Every tx subcommand is one engine operation. It opens the database under
--home, commits only on success and prints the result with its events.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			// set the default command outputs
			cmd.SetOut(cmd.OutOrStdout())
			cmd.SetErr(cmd.ErrOrStderr())

			cfg, err := LoadConfig(cmd.Flags())
			if err != nil {
				return err
			}
			logger, err := cfg.NewLogger()
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			cmd.SetContext(context.WithValue(ctx, contextKey{}, &cmdState{cfg: cfg, logger: logger}))
			return nil
		},
	}

	pf := rootCmd.PersistentFlags()
	pf.String(flagHome, DefaultNodeHome, "directory for config and data (env RUSH_HOME)")
	pf.String(flagDBBackend, string(dbm.GoLevelDBBackend), "database backend (goleveldb|memdb)")
	pf.String(flagLogLevel, "info", "log level (trace|debug|info|warn|error)")
	pf.String(flagLogFormat, "json", "log format (json|plain)")
	pf.String(flagKeyringBackend, keyringBackendTest, "keyring backend (os|file|test)")

	rootCmd.AddCommand(
		InitCmd(),
		StartCmd(),
		KeysCmd(),
		txCommand(),
		queryCommand(),
		KeeperCmd(),
		InvariantsCmd(),
	)

	return rootCmd
}

func stateFromCmd(cmd *cobra.Command) (*cmdState, error) {
	if ctx := cmd.Context(); ctx != nil {
		if s, ok := ctx.Value(contextKey{}).(*cmdState); ok {
			return s, nil
		}
	}
	return nil, errors.New("command state not initialized")
}

// openEngine opens the engine database under the configured home. The
// returned close function must run before the command exits; goleveldb
// holds a process lock on the data directory.
func openEngine(cmd *cobra.Command, tel *telemetry.Provider) (*app.App, *cmdState, func(), error) {
	s, err := stateFromCmd(cmd)
	if err != nil {
		return nil, nil, nil, err
	}

	var authority sdk.AccAddress
	if s.cfg.Authority != "" {
		if authority, err = resolveAddress(cmd, s.cfg.Authority); err != nil {
			return nil, nil, nil, fmt.Errorf("authority: %w", err)
		}
	}

	db, err := dbm.NewDB(app.Name, dbm.BackendType(s.cfg.DBBackend), s.cfg.DataDir())
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to open %s database: %w", s.cfg.DBBackend, err)
	}

	engine, err := app.New(app.Options{
		DB:        db,
		Logger:    s.logger,
		Authority: authority,
		Telemetry: tel,
	})
	if err != nil {
		_ = db.Close()
		return nil, nil, nil, err
	}

	closeFn := func() {
		if err := engine.Close(); err != nil {
			s.logger.Error("failed to close engine database", "error", err)
		}
	}
	return engine, s, closeFn, nil
}
