package features

import (
	"log/slog"

	"macrocopilot/src/datamodels"
)

// CombineMacroAndSentiment joins the macro features with the normalised
// sentiment column. Only periods present in both frames survive.
func CombineMacroAndSentiment(macroFeat, sentiment *datamodels.Frame) (*datamodels.Frame, error) {
	norm, err := sentiment.Select(SentimentNormColumn)
	if err != nil {
		return nil, err
	}
	joined, err := macroFeat.InnerJoin(norm)
	if err != nil {
		return nil, err
	}
	combined := joined.DropNA()
	combined.Name = "features"
	if combined.Len() == 0 {
		slog.Warn("Macro features and sentiment share no periods", "macro_rows", macroFeat.Len(), "sentiment_rows", sentiment.Len())
	}
	return combined, nil
}
