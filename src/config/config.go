package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"macrocopilot/src/datamodels"
	"macrocopilot/src/utils/errors"
	"macrocopilot/src/utils/general"
)

const ConfigPathEnv = "CONFIG_PATH"

func setDefaults(v *viper.Viper) {
	v.SetDefault("data.date_column", "date")
	v.SetDefault("data.frequency", "Q")
	v.SetDefault("features.lags", 2)
	v.SetDefault("regimes.growth_column", "gdp_growth")
	v.SetDefault("regimes.unemployment_column", "unemp")
	v.SetDefault("regimes.test_size", 0.25)
	v.SetDefault("regimes.seed", 42)
	v.SetDefault("regimes.num_trees", 500)
	v.SetDefault("regimes.min_samples_leaf", 3)
	v.SetDefault("backtest.assets", []string{"SPY", "AGG", "GLD"})
	v.SetDefault("backtest.periods_per_year", 4)
	v.SetDefault("output.dir", "output")
	v.SetDefault("output.strategy_returns_file", "strategy_returns.csv")
	v.SetDefault("output.plot_file", "equity_curve.png")
	v.SetDefault("postgres.port", 5432)
	v.SetDefault("postgres.ssl.mode", "disable")
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.report_endpoint", "/report")
	v.SetDefault("server.health_endpoint", "/health")
}

// Load reads the YAML config at path, or at $CONFIG_PATH when path is empty,
// falling back to config.local.yaml at the repository root. Relative paths in
// the file are resolved against the file's directory.
func Load(path string) (*datamodels.CopilotConfig, error) {
	configPath := path
	if configPath == "" {
		configPath = os.Getenv(ConfigPathEnv)
	}
	if configPath == "" {
		currentDir := general.GetCurrentDir()
		// go up two levels to the repository root
		configPath = filepath.Join(currentDir, "..", "..", "config.local.yaml")
	}

	v := viper.New()
	setDefaults(v)
	v.SetConfigFile(configPath)
	v.SetEnvPrefix("MACROCOPILOT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return nil, errors.Wrapf(err, "reading config %s", configPath)
	}

	var copilotConfig datamodels.CopilotConfig
	if err := v.Unmarshal(&copilotConfig); err != nil {
		return nil, errors.Wrapf(err, "decoding config %s", configPath)
	}

	absPath, err := filepath.Abs(configPath)
	if err != nil {
		return nil, err
	}
	copilotConfig.ResolvePaths(filepath.Dir(absPath))

	if err := copilotConfig.Validate(); err != nil {
		return nil, err
	}
	return &copilotConfig, nil
}
