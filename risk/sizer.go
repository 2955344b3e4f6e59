package risk

import (
	"errors"
	"fmt"
)

// ErrAllocationExceeded is the error form of a ReasonAllocationExceeded outcome.
var ErrAllocationExceeded = errors.New("asset allocation over risk limit")

// Reason codes a rejected sizing.
type Reason string

const (
	ReasonNone               Reason = ""
	ReasonAllocationExceeded Reason = "ALLOCATION_EXCEEDED"
	ReasonInvalidATR         Reason = "INVALID_ATR"
	ReasonNoBalance          Reason = "NO_BALANCE"
	ReasonNoUnits            Reason = "NO_UNITS"
)

// Outcome is either a sized order or a rejection with a reason.
type Outcome struct {
	Sized  bool
	Reason Reason
	Msg    string

	Units       float64 // order quantity
	FreeBalance float64 // balance the quantity was computed from
	Allocation  float64 // open cost / total balance before the order
}

// Err returns nil for a sized outcome.
func (o Outcome) Err() error {
	if o.Sized {
		return nil
	}
	if o.Reason == ReasonAllocationExceeded {
		return fmt.Errorf("%w: %s", ErrAllocationExceeded, o.Msg)
	}
	return fmt.Errorf("sizing rejected (%s): %s", o.Reason, o.Msg)
}

func reject(o Outcome, reason Reason, msg string) Outcome {
	o.Sized = false
	o.Reason = reason
	o.Msg = msg
	return o
}

// Sizer computes risk-bounded order quantities.
type Sizer struct {
	Policy Policy
}

func NewSizer(p Policy) Sizer { return Sizer{Policy: p} }

// Size returns the quantity whose loss at the stop equals RiskFraction of
// the free balance:
//
//	units = free * RiskFraction / (StopLossATRMultiple * ATR)
//
// A leg joining an open aggregate never sizes off more free balance than the
// first leg recorded, and no leg is sized while the symbol's open cost is
// above MaxAssetAllocation of the total balance.
func (s Sizer) Size(req Request) Outcome {
	out := Outcome{FreeBalance: req.FreeBalance}

	if req.ATR <= 0 {
		return reject(out, ReasonInvalidATR, fmt.Sprintf("atr %.8f must be positive", req.ATR))
	}
	if req.FreeBalance <= 0 || req.TotalBalance <= 0 {
		return reject(out, ReasonNoBalance,
			fmt.Sprintf("free %.2f / total %.2f must be positive", req.FreeBalance, req.TotalBalance))
	}

	if req.Exposure.Legs > 0 {
		if first := req.Exposure.FirstFreeBalance; first > 0 && req.FreeBalance > first {
			out.FreeBalance = first
		}
	}

	out.Allocation = req.Exposure.OpenCost / req.TotalBalance
	if out.Allocation > s.Policy.MaxAssetAllocation {
		return reject(out, ReasonAllocationExceeded,
			fmt.Sprintf("allocation %.2f%% exceeds max %.2f%%", 100*out.Allocation, 100*s.Policy.MaxAssetAllocation))
	}

	riskCap := out.FreeBalance * s.Policy.RiskFraction
	out.Units = riskCap / s.StopDistance(req.ATR)
	if out.Units <= 0 {
		return reject(out, ReasonNoUnits, fmt.Sprintf("risk cap %.2f yields no units", riskCap))
	}

	out.Sized = true
	return out
}

// StopDistance is the price distance from entry to the stop.
func (s Sizer) StopDistance(atr float64) float64 {
	return s.Policy.StopLossATRMultiple * atr
}
