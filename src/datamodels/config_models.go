package datamodels

import (
	"log/slog"
	"path/filepath"

	"github.com/gorilla/websocket"

	"macrocopilot/src/utils/errors"
	"macrocopilot/src/utils/general"
)

type CopilotConfig struct {
	Data           DataConfig     `mapstructure:"data"`
	Features       FeaturesConfig `mapstructure:"features"`
	Regimes        RegimesConfig  `mapstructure:"regimes"`
	Backtest       BacktestConfig `mapstructure:"backtest"`
	Output         OutputConfig   `mapstructure:"output"`
	DatabaseConfig PostgresConfig `mapstructure:"postgres"`
	StorageConfig  StorageConfig  `mapstructure:"storage"`
	ServerConfig   ServerConfig   `mapstructure:"server"`
}

// DataConfig points at the CSV inputs. Exactly one of PricesPath and
// ReturnsPath must be set; prices are converted to periodic returns.
type DataConfig struct {
	MacroPath     string `mapstructure:"macro_path"`
	PricesPath    string `mapstructure:"prices_path"`
	ReturnsPath   string `mapstructure:"returns_path"`
	HeadlinesPath string `mapstructure:"headlines_path"`
	DateColumn    string `mapstructure:"date_column"`
	Frequency     string `mapstructure:"frequency"`
	StartDate     string `mapstructure:"start_date"`
}

type FeaturesConfig struct {
	Lags int `mapstructure:"lags"`
	// Optional lexicon overrides; empty means the built-in word lists.
	PositiveWords map[string]float64 `mapstructure:"positive_words"`
	NegativeWords map[string]float64 `mapstructure:"negative_words"`
}

type RegimesConfig struct {
	GrowthColumn       string  `mapstructure:"growth_column"`
	UnemploymentColumn string  `mapstructure:"unemployment_column"`
	TestSize           float64 `mapstructure:"test_size"`
	Seed               int64   `mapstructure:"seed"`
	NumTrees           int     `mapstructure:"num_trees"`
	MinSamplesLeaf     int     `mapstructure:"min_samples_leaf"`
	MaxDepth           int     `mapstructure:"max_depth"`
	MaxFeatures        int     `mapstructure:"max_features"`
	Workers            int     `mapstructure:"workers"`
}

type BacktestConfig struct {
	Assets         []string `mapstructure:"assets"`
	PeriodsPerYear int      `mapstructure:"periods_per_year"`
}

type OutputConfig struct {
	Dir                 string               `mapstructure:"dir"`
	StrategyReturnsFile string               `mapstructure:"strategy_returns_file"`
	PlotFile            string               `mapstructure:"plot_file"`
	MetricsWriter       *MetricsWriterConfig `mapstructure:"metrics_writer"`
}

type MetricsWriterConfig struct {
	WsWriter   bool   `mapstructure:"ws_writer"`
	FileWriter bool   `mapstructure:"file_writer"`
	DbWriter   bool   `mapstructure:"db_writer"`
	FileFormat string `mapstructure:"file_format"`
	FilePath   string `mapstructure:"file_path"`
}

type PostgresConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Database string `mapstructure:"database"`
	Host     string `mapstructure:"host"`
	Password string `mapstructure:"password"`
	Port     int    `mapstructure:"port"`
	SSL      struct {
		CA   string `mapstructure:"ca"`
		Cert string `mapstructure:"cert"`
		Key  string `mapstructure:"key"`
		Mode string `mapstructure:"mode"`
	} `mapstructure:"ssl"`
	URI  string `mapstructure:"uri"`
	User string `mapstructure:"user"`
}

// StorageConfig enables artifact upload when Bucket is set.
type StorageConfig struct {
	Bucket string `mapstructure:"bucket"`
	Prefix string `mapstructure:"prefix"`
}

type ServerConfig struct {
	Port           string `mapstructure:"port"`
	ReportEndpoint string `mapstructure:"report_endpoint"`
	HealthEndpoint string `mapstructure:"health_endpoint"`
}

type WSConfig struct {
	Upgrader websocket.Upgrader
}

func (c *CopilotConfig) Validate() error {
	if c.Data.MacroPath == "" {
		return errors.Wrap(errors.ErrInvalidConfig, "data.macro_path is required")
	}
	if c.Data.HeadlinesPath == "" {
		return errors.Wrap(errors.ErrInvalidConfig, "data.headlines_path is required")
	}
	if (c.Data.PricesPath == "") == (c.Data.ReturnsPath == "") {
		return errors.Wrap(errors.ErrInvalidConfig, "exactly one of data.prices_path and data.returns_path is required")
	}
	if c.Data.Frequency != "M" && c.Data.Frequency != "Q" {
		return errors.Wrapf(errors.ErrInvalidConfig, "data.frequency must be M or Q, got %q", c.Data.Frequency)
	}
	if c.Features.Lags < 0 {
		return errors.Wrapf(errors.ErrInvalidConfig, "features.lags must be >= 0, got %d", c.Features.Lags)
	}
	if c.Regimes.TestSize < 0 || c.Regimes.TestSize >= 1 {
		return errors.Wrapf(errors.ErrInvalidConfig, "regimes.test_size must be in [0, 1), got %v", c.Regimes.TestSize)
	}
	if c.Regimes.NumTrees <= 0 {
		return errors.Wrap(errors.ErrInvalidConfig, "regimes.num_trees must be greater than 0")
	}
	if c.Regimes.MinSamplesLeaf <= 0 {
		return errors.Wrap(errors.ErrInvalidConfig, "regimes.min_samples_leaf must be greater than 0")
	}
	if len(c.Backtest.Assets) < 2 {
		return errors.Wrap(errors.ErrInvalidConfig, "backtest.assets needs at least two assets")
	}
	if !general.NoDuplicateItemsInSlice(c.Backtest.Assets) {
		return errors.Wrapf(errors.ErrInvalidConfig, "backtest.assets has duplicates: %v", c.Backtest.Assets)
	}
	if c.Backtest.PeriodsPerYear <= 0 {
		return errors.Wrap(errors.ErrInvalidConfig, "backtest.periods_per_year must be greater than 0")
	}
	if c.Output.MetricsWriter != nil && c.Output.MetricsWriter.DbWriter && !c.DatabaseConfig.Enabled {
		return errors.Wrap(errors.ErrInvalidConfig, "output.metrics_writer.db_writer requires postgres.enabled")
	}
	return nil
}

// ResolvePaths makes relative input and output paths relative to baseDir.
func (c *CopilotConfig) ResolvePaths(baseDir string) {
	resolve := func(p string) string {
		if p == "" || filepath.IsAbs(p) {
			return p
		}
		return filepath.Join(baseDir, p)
	}
	c.Data.MacroPath = resolve(c.Data.MacroPath)
	c.Data.PricesPath = resolve(c.Data.PricesPath)
	c.Data.ReturnsPath = resolve(c.Data.ReturnsPath)
	c.Data.HeadlinesPath = resolve(c.Data.HeadlinesPath)
	c.Output.Dir = resolve(c.Output.Dir)
	if c.Output.MetricsWriter != nil {
		if c.Output.MetricsWriter.FilePath == "" {
			slog.Info("Metrics file path not set, writing metrics under the output dir")
			c.Output.MetricsWriter.FilePath = filepath.Join(c.Output.Dir, "metrics")
		} else {
			c.Output.MetricsWriter.FilePath = resolve(c.Output.MetricsWriter.FilePath)
		}
	}
}
