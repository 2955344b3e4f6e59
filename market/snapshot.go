package market

import "log/slog"

// Snapshot is a candle enriched with volatility and turtle channel fields.
// The most recent Snapshot of a series is the input of one decision cycle;
// it is recomputed every cycle and never persisted.
type Snapshot struct {
	Candle

	ATR       float64
	EntryHigh float64
	EntryLow  float64
	ExitHigh  float64
	ExitLow   float64

	LongEntry  bool
	ShortEntry bool
	LongExit   bool
	ShortExit  bool
}

// LogValue groups the signals so a cycle logs them as one record.
func (s Snapshot) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Time("time", s.Time),
		slog.Float64("close", s.Close),
		slog.Float64("atr", s.ATR),
		slog.Float64("atr_price_ratio", s.ATRPriceRatio()),
		slog.Bool("long_entry", s.LongEntry),
		slog.Bool("long_exit", s.LongExit),
		slog.Bool("short_entry", s.ShortEntry),
		slog.Bool("short_exit", s.ShortExit),
	)
}

// ATRPriceRatio is the ATR relative to the close price.
func (s Snapshot) ATRPriceRatio() float64 {
	if s.Close == 0 {
		return 0
	}
	return s.ATR / s.Close
}
