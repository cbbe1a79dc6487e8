package database

import "macrocopilot/src/datamodels"

var DbTables = []interface{}{
	&datamodels.BacktestRun{},
	&datamodels.Metric{},
}
