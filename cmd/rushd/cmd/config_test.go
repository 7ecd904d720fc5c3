package cmd

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	dbm "github.com/cosmos/cosmos-db"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/require"
)

func homeFlags(t *testing.T, home string) *pflag.FlagSet {
	t.Helper()
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	fs.String(flagHome, DefaultNodeHome, "")
	fs.String(flagDBBackend, string(dbm.GoLevelDBBackend), "")
	fs.String(flagLogLevel, "info", "")
	fs.String(flagLogFormat, "json", "")
	require.NoError(t, fs.Set(flagHome, home))
	return fs
}

func TestLoadConfigDefaults(t *testing.T) {
	home := t.TempDir()
	cfg, err := LoadConfig(homeFlags(t, home))
	require.NoError(t, err)

	require.Equal(t, home, cfg.Home)
	require.Equal(t, string(dbm.GoLevelDBBackend), cfg.DBBackend)
	require.Equal(t, uint32(30), cfg.DefaultFeeBps)
	require.Equal(t, uint32(10), cfg.Perp.MaxLeverage)
	require.Equal(t, uint32(200), cfg.Perp.LiquidationFeeBps)
	require.Equal(t, 5*time.Second, cfg.Keeper.Interval)
	require.Equal(t, defaultMetricsPort, cfg.Telemetry.MetricsPort)
	require.Equal(t, filepath.Join(home, "data"), cfg.DataDir())
}

func TestLoadConfigFileAndEnv(t *testing.T) {
	home := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(home, "config"), 0o755))
	toml := `db-backend = "memdb"

[amm]
default-fee-bps = 25

[keeper]
interval = "1m"
triggers-per-second = 5

[telemetry]
metrics-port = "9100"
`
	require.NoError(t, os.WriteFile(configPath(home), []byte(toml), 0o644))
	t.Setenv("RUSH_KEEPER_INTERVAL", "30s")
	t.Setenv("RUSH_PERP_MAX_LEVERAGE", "20")

	cfg, err := LoadConfig(homeFlags(t, home))
	require.NoError(t, err)

	require.Equal(t, string(dbm.MemDBBackend), cfg.DBBackend)
	require.Equal(t, uint32(25), cfg.DefaultFeeBps)
	require.Equal(t, 30*time.Second, cfg.Keeper.Interval)
	require.Equal(t, float64(5), cfg.Keeper.TriggersPerSecond)
	require.Equal(t, uint32(20), cfg.Perp.MaxLeverage)
	require.Equal(t, 9100, cfg.Telemetry.MetricsPort)
}

func TestLoadConfigFlagsWin(t *testing.T) {
	home := t.TempDir()
	t.Setenv("RUSH_LOG_LEVEL", "debug")
	fs := homeFlags(t, home)
	require.NoError(t, fs.Set(flagLogLevel, "warn"))

	cfg, err := LoadConfig(fs)
	require.NoError(t, err)
	require.Equal(t, "warn", cfg.LogLevel)
}

func TestHomeFromEnv(t *testing.T) {
	home := t.TempDir()
	t.Setenv("RUSH_HOME", home)

	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	fs.String(flagHome, DefaultNodeHome, "")
	require.Equal(t, home, resolveHome(fs))
}

func TestConfigValidate(t *testing.T) {
	home := t.TempDir()
	base, err := LoadConfig(homeFlags(t, home))
	require.NoError(t, err)

	cases := map[string]func(*Config){
		"backend":   func(c *Config) { c.DBBackend = "rocksdb" },
		"log level": func(c *Config) { c.LogLevel = "loud" },
		"format":    func(c *Config) { c.LogFormat = "xml" },
		"leverage":  func(c *Config) { c.Perp.MaxLeverage = 0 },
		"fee":       func(c *Config) { c.DefaultFeeBps = 101 },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := base
			mutate(&cfg)
			require.Error(t, cfg.Validate())
		})
	}
}

func TestWriteConfigRoundTrip(t *testing.T) {
	home := t.TempDir()
	cfg, err := LoadConfig(homeFlags(t, home))
	require.NoError(t, err)
	cfg.Authority = "admin"
	cfg.Keeper.Interval = 2 * time.Second
	require.NoError(t, WriteConfig(cfg))

	loaded, err := LoadConfig(homeFlags(t, home))
	require.NoError(t, err)
	require.Equal(t, "admin", loaded.Authority)
	require.Equal(t, 2*time.Second, loaded.Keeper.Interval)
}
