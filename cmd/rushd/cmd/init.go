package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

const flagOverwrite = "overwrite"

// InitCmd writes rushd.toml under --home. When an authority is configured it
// also stores the configured perpetual parameters in the engine.
func InitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create the home directory and default configuration",
		Long: `Create the home directory and write config/rushd.toml.

Example:
  rushd init --home ~/.rush --authority admin`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := stateFromCmd(cmd)
			if err != nil {
				return err
			}
			cfg := s.cfg

			overwrite, _ := cmd.Flags().GetBool(flagOverwrite)
			path := configPath(cfg.Home)
			if _, err := os.Stat(path); err == nil && !overwrite {
				return fmt.Errorf("%s already exists; use --%s to replace it", path, flagOverwrite)
			}

			if authority, _ := cmd.Flags().GetString(flagAuthority); authority != "" {
				cfg.Authority = authority
			}
			if executor, _ := cmd.Flags().GetString(flagExecutor); executor != "" {
				cfg.Keeper.Executor = executor
			}
			if err := os.MkdirAll(cfg.DataDir(), 0o755); err != nil {
				return err
			}
			if err := WriteConfig(cfg); err != nil {
				return fmt.Errorf("failed to write config: %w", err)
			}
			s.cfg = cfg

			if cfg.Authority != "" {
				engine, _, closeFn, err := openEngine(cmd, nil)
				if err != nil {
					return err
				}
				defer closeFn()
				if _, err := engine.UpdatePerpParams(cmd.Context(), engine.Authority(), cfg.Perp); err != nil {
					return fmt.Errorf("failed to store perp params: %w", err)
				}
			}

			fmt.Fprintf(cmd.OutOrStdout(), "initialized %s\n", cfg.Home)
			return nil
		},
	}

	cmd.Flags().Bool(flagOverwrite, false, "overwrite an existing config file")
	cmd.Flags().String(flagAuthority, "", "admin address or key name")
	cmd.Flags().String(flagExecutor, "", "keeper executor address or key name")
	return cmd
}
