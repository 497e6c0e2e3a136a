package types

import "time"

const (
	// DefaultMarginEURPerKWH is the cooperative margin added per kWh.
	DefaultMarginEURPerKWH = 0.009
	// DefaultGOValueEURPerKWH is the guarantees-of-origin surcharge per kWh.
	DefaultGOValueEURPerKWH = 0.001
)

// Tariff is the contracted tariff schedule. It is carried on the pricing
// parameters but does not currently change the billing formula.
type Tariff string

const (
	TariffSimple    Tariff = "SIMPLES"
	TariffBiHourly  Tariff = "BI-HORARIA"
	TariffTriHourly Tariff = "TRI-HORARIA"
)

// Valid reports whether the tariff is one of the known schedules.
func (t Tariff) Valid() bool {
	switch t {
	case TariffSimple, TariffBiHourly, TariffTriHourly:
		return true
	}
	return false
}

// MarketRow is a single settlement period as returned by the wholesale data
// source: a start-of-period timestamp plus one or more named price columns in
// EUR/MWh. Column naming varies between source schemas and is resolved during
// normalization.
type MarketRow struct {
	Start  time.Time          `json:"start"`
	Values map[string]float64 `json:"values"`
}

// Tick is one normalized wholesale price observation at 15-minute
// granularity, in EUR/kWh and Europe/Lisbon time.
type Tick struct {
	TS        time.Time `json:"ts"`
	EURPerKWH float64   `json:"eurPerKWH"`
}

// LossFactor is the fractional low-voltage grid-loss adjustment for one
// 15-minute interval of the loss-profile year.
type LossFactor struct {
	TS     time.Time `json:"ts"`
	Factor float64   `json:"factor"`
}

// ComposedPrice is one interval after the billing formula has been applied.
type ComposedPrice struct {
	TS                 time.Time `json:"ts"`
	WholesaleEURPerKWH float64   `json:"wholesaleEURPerKWH"`
	RetailEURPerKWH    float64   `json:"retailEURPerKWH"`
}
