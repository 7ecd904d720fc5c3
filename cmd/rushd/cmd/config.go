package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"cosmossdk.io/log"
	dbm "github.com/cosmos/cosmos-db"
	"github.com/rs/zerolog"
	"github.com/spf13/cast"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	ammtypes "github.com/solrush/rush/x/amm/types"
	perptypes "github.com/solrush/rush/x/perp/types"
)

const (
	envPrefix      = "RUSH"
	configFileName = "rushd.toml"

	defaultMetricsPort = 36660
	defaultHealthPort  = 36661
)

// DefaultNodeHome is the home directory used when neither RUSH_HOME nor
// --home is set.
var DefaultNodeHome = func() string {
	userHome, err := os.UserHomeDir()
	if err != nil {
		return ".rush"
	}
	return filepath.Join(userHome, ".rush")
}()

// Config is the resolved rushd configuration.
type Config struct {
	Home      string
	DBBackend string
	LogLevel  string
	LogFormat string

	// Authority is a bech32 address or a key name.
	Authority     string
	DefaultFeeBps uint32
	Perp          perptypes.Params

	Keeper    KeeperConfig
	Telemetry TelemetryConfig
}

type KeeperConfig struct {
	// Executor is a bech32 address or a key name.
	Executor          string
	Interval          time.Duration
	TriggersPerSecond float64
	Burst             int
}

type TelemetryConfig struct {
	MetricsPort     int
	HealthPort      int
	TracingEndpoint string
	SampleRate      float64
	Environment     string
}

// newViper returns a viper instance with every default set and RUSH_ env
// overrides enabled. Keys use dots for sections and dashes inside names;
// RUSH_KEEPER_TRIGGERS_PER_SECOND overrides keeper.triggers-per-second.
func newViper() *viper.Viper {
	v := viper.New()
	v.SetConfigType("toml")
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	params := perptypes.DefaultParams()
	v.SetDefault("db-backend", string(dbm.GoLevelDBBackend))
	v.SetDefault("log.level", zerolog.InfoLevel.String())
	v.SetDefault("log.format", "json")
	v.SetDefault("authority", "")
	v.SetDefault("amm.default-fee-bps", ammtypes.DefaultFeeRateBps)
	v.SetDefault("perp.max-leverage", params.MaxLeverage)
	v.SetDefault("perp.liquidation-fee-bps", params.LiquidationFeeBps)
	v.SetDefault("keeper.executor", "")
	v.SetDefault("keeper.interval", "5s")
	v.SetDefault("keeper.triggers-per-second", 50)
	v.SetDefault("keeper.burst", 10)
	v.SetDefault("telemetry.metrics-port", defaultMetricsPort)
	v.SetDefault("telemetry.health-port", defaultHealthPort)
	v.SetDefault("telemetry.tracing-endpoint", "")
	v.SetDefault("telemetry.sample-rate", 0.1)
	v.SetDefault("telemetry.environment", "local")
	return v
}

// resolveHome returns the configured home directory. It honors the --home
// flag, then RUSH_HOME.
func resolveHome(flags *pflag.FlagSet) string {
	if f := flags.Lookup(flagHome); f != nil && f.Changed {
		return f.Value.String()
	}
	if home := os.Getenv(envPrefix + "_HOME"); home != "" {
		return home
	}
	return DefaultNodeHome
}

func configPath(home string) string {
	return filepath.Join(home, "config", configFileName)
}

// LoadConfig reads $home/config/rushd.toml when it exists, applies RUSH_
// environment overrides and finally any explicitly set persistent flags.
func LoadConfig(flags *pflag.FlagSet) (Config, error) {
	home := resolveHome(flags)
	v := newViper()

	path := configPath(home)
	if _, err := os.Stat(path); err == nil {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("failed to read %s: %w", path, err)
		}
	}

	for key, flag := range map[string]string{
		"db-backend": flagDBBackend,
		"log.level":  flagLogLevel,
		"log.format": flagLogFormat,
	} {
		if f := flags.Lookup(flag); f != nil && f.Changed {
			v.Set(key, f.Value.String())
		}
	}

	return decodeConfig(v, home)
}

func decodeConfig(v *viper.Viper, home string) (Config, error) {
	interval, err := cast.ToDurationE(v.Get("keeper.interval"))
	if err != nil {
		return Config{}, fmt.Errorf("keeper.interval: %w", err)
	}
	feeBps, err := cast.ToUint32E(v.Get("amm.default-fee-bps"))
	if err != nil {
		return Config{}, fmt.Errorf("amm.default-fee-bps: %w", err)
	}
	maxLeverage, err := cast.ToUint32E(v.Get("perp.max-leverage"))
	if err != nil {
		return Config{}, fmt.Errorf("perp.max-leverage: %w", err)
	}
	liqFee, err := cast.ToUint32E(v.Get("perp.liquidation-fee-bps"))
	if err != nil {
		return Config{}, fmt.Errorf("perp.liquidation-fee-bps: %w", err)
	}
	rate, err := cast.ToFloat64E(v.Get("keeper.triggers-per-second"))
	if err != nil {
		return Config{}, fmt.Errorf("keeper.triggers-per-second: %w", err)
	}
	sampleRate, err := cast.ToFloat64E(v.Get("telemetry.sample-rate"))
	if err != nil {
		return Config{}, fmt.Errorf("telemetry.sample-rate: %w", err)
	}

	cfg := Config{
		Home:          home,
		DBBackend:     v.GetString("db-backend"),
		LogLevel:      v.GetString("log.level"),
		LogFormat:     v.GetString("log.format"),
		Authority:     strings.TrimSpace(v.GetString("authority")),
		DefaultFeeBps: feeBps,
		Perp: perptypes.Params{
			MaxLeverage:       maxLeverage,
			LiquidationFeeBps: liqFee,
		},
		Keeper: KeeperConfig{
			Executor:          strings.TrimSpace(v.GetString("keeper.executor")),
			Interval:          interval,
			TriggersPerSecond: rate,
			Burst:             cast.ToInt(v.Get("keeper.burst")),
		},
		Telemetry: TelemetryConfig{
			MetricsPort:     parsePort(v.GetString("telemetry.metrics-port")),
			HealthPort:      parsePort(v.GetString("telemetry.health-port")),
			TracingEndpoint: v.GetString("telemetry.tracing-endpoint"),
			SampleRate:      sampleRate,
			Environment:     v.GetString("telemetry.environment"),
		},
	}
	return cfg, cfg.Validate()
}

func (c Config) Validate() error {
	switch dbm.BackendType(c.DBBackend) {
	case dbm.GoLevelDBBackend, dbm.MemDBBackend:
	default:
		return fmt.Errorf("unsupported db backend %q", c.DBBackend)
	}
	if _, err := zerolog.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("invalid log level %q: %w", c.LogLevel, err)
	}
	if c.LogFormat != "json" && c.LogFormat != "plain" {
		return fmt.Errorf("log format must be json or plain, got %q", c.LogFormat)
	}
	if err := c.Perp.Validate(); err != nil {
		return fmt.Errorf("perp: %w", err)
	}
	if c.DefaultFeeBps > ammtypes.MaxFeeRateBps {
		return fmt.Errorf("default fee %d bps exceeds %d", c.DefaultFeeBps, ammtypes.MaxFeeRateBps)
	}
	return nil
}

// DataDir holds the engine database.
func (c Config) DataDir() string {
	return filepath.Join(c.Home, "data")
}

// NewLogger builds the process logger from the log settings.
func (c Config) NewLogger() (log.Logger, error) {
	level, err := zerolog.ParseLevel(c.LogLevel)
	if err != nil {
		return nil, err
	}
	opts := []log.Option{log.LevelOption(level)}
	if c.LogFormat == "json" {
		opts = append(opts, log.OutputJSONOption())
	}
	return log.NewLogger(os.Stderr, opts...), nil
}

// WriteConfig stores c as $home/config/rushd.toml.
func WriteConfig(c Config) error {
	v := viper.New()
	v.SetConfigType("toml")
	v.Set("db-backend", c.DBBackend)
	v.Set("log.level", c.LogLevel)
	v.Set("log.format", c.LogFormat)
	v.Set("authority", c.Authority)
	v.Set("amm.default-fee-bps", c.DefaultFeeBps)
	v.Set("perp.max-leverage", c.Perp.MaxLeverage)
	v.Set("perp.liquidation-fee-bps", c.Perp.LiquidationFeeBps)
	v.Set("keeper.executor", c.Keeper.Executor)
	v.Set("keeper.interval", c.Keeper.Interval.String())
	v.Set("keeper.triggers-per-second", c.Keeper.TriggersPerSecond)
	v.Set("keeper.burst", c.Keeper.Burst)
	v.Set("telemetry.metrics-port", c.Telemetry.MetricsPort)
	v.Set("telemetry.health-port", c.Telemetry.HealthPort)
	v.Set("telemetry.tracing-endpoint", c.Telemetry.TracingEndpoint)
	v.Set("telemetry.sample-rate", c.Telemetry.SampleRate)
	v.Set("telemetry.environment", c.Telemetry.Environment)

	path := configPath(c.Home)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return v.WriteConfigAs(path)
}

func parsePort(value string) int {
	port, err := cast.ToIntE(strings.TrimSpace(value))
	if err != nil || port <= 0 || port > 65535 {
		return 0
	}
	return port
}
