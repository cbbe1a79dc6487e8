package datamodels

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"

	"macrocopilot/src/utils/errors"
)

func validConfig() CopilotConfig {
	return CopilotConfig{
		Data:     DataConfig{MacroPath: "m.csv", ReturnsPath: "r.csv", HeadlinesPath: "h.csv", Frequency: "Q"},
		Features: FeaturesConfig{Lags: 2},
		Regimes:  RegimesConfig{TestSize: 0.25, NumTrees: 10, MinSamplesLeaf: 1},
		Backtest: BacktestConfig{Assets: []string{"SPY", "AGG"}, PeriodsPerYear: 4},
	}
}

func TestCopilotConfigValidate(t *testing.T) {
	cfg := validConfig()
	assert.NoError(t, cfg.Validate())

	broken := []func(c *CopilotConfig){
		func(c *CopilotConfig) { c.Features.Lags = -1 },
		func(c *CopilotConfig) { c.Regimes.NumTrees = 0 },
		func(c *CopilotConfig) { c.Regimes.MinSamplesLeaf = 0 },
		func(c *CopilotConfig) { c.Backtest.Assets = []string{"SPY", "SPY"} },
		func(c *CopilotConfig) { c.Backtest.PeriodsPerYear = 0 },
		func(c *CopilotConfig) { c.Data.HeadlinesPath = "" },
	}
	for i, breakIt := range broken {
		cfg := validConfig()
		breakIt(&cfg)
		err := cfg.Validate()
		assert.True(t, errors.Is(err, errors.ErrInvalidConfig), "case %d: %v", i, err)
	}
}

func TestResolvePaths(t *testing.T) {
	cfg := validConfig()
	cfg.Data.HeadlinesPath = "/data/h.csv"
	cfg.Output.Dir = "out"
	cfg.Output.MetricsWriter = &MetricsWriterConfig{FileWriter: true}

	cfg.ResolvePaths("/srv/copilot")
	assert.Equal(t, filepath.Join("/srv/copilot", "m.csv"), cfg.Data.MacroPath)
	assert.Equal(t, "/data/h.csv", cfg.Data.HeadlinesPath)
	assert.Equal(t, "", cfg.Data.PricesPath)
	assert.Equal(t, filepath.Join("/srv/copilot", "out", "metrics"), cfg.Output.MetricsWriter.FilePath)
}
