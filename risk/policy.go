package risk

// Policy holds the risk limits of the turtle system.
type Policy struct {
	// Fraction of free balance put at risk by one leg if its stop is hit.
	RiskFraction float64 // 0.02

	// Stop-loss distance in ATRs from the entry close.
	StopLossATRMultiple float64 // 2

	// Ceiling on open cost of one symbol relative to total balance.
	MaxAssetAllocation float64 // 0.5

	// Below this ATR/price ratio the pyramid trigger distance is halved.
	AggressiveATRRatio float64 // 0.02
}

// DefaultPolicy mirrors the production settings.
func DefaultPolicy() Policy {
	return Policy{
		RiskFraction:        0.02,
		StopLossATRMultiple: 2,
		MaxAssetAllocation:  0.5,
		AggressiveATRRatio:  0.02,
	}
}

// Exposure describes the open aggregate trade a new leg would join.
type Exposure struct {
	Legs             int     // open legs, 0 for a fresh entry
	FirstFreeBalance float64 // free balance recorded at the first leg
	OpenCost         float64 // sum of open legs' cost
}

// Request is the input of one sizing decision.
type Request struct {
	FreeBalance  float64
	TotalBalance float64
	ATR          float64
	Exposure     Exposure
}
