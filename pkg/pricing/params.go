// Package pricing implements the retail price pipeline: normalizing the raw
// day-ahead wholesale series, composing retail prices against the grid-loss
// profile, and deriving the time-bucketed aggregates consumers read.
package pricing

import (
	"fmt"
	"os"
	"strconv"

	"github.com/coopernico/coopernico/pkg/types"
	"github.com/levenlabs/go-lflag"
	"gopkg.in/yaml.v3"
)

// Params are the pricing parameters fixed at construction. They never change
// during a run; every pipeline invocation sees the same values.
type Params struct {
	// MarginEURPerKWH is the cooperative margin added to the wholesale price.
	MarginEURPerKWH float64
	// GOValueEURPerKWH is the guarantees-of-origin surcharge. It is already
	// zeroed here when GOEnabled is false.
	GOValueEURPerKWH float64
	GOEnabled        bool
	// Tariff is carried for the contracted schedule but does not currently
	// change the formula.
	Tariff types.Tariff
	// Daily selects the rolling today/tomorrow presentation mode.
	Daily bool

	// deferred construction error, surfaced by Validate
	err error
}

// NewParams builds pricing parameters, forcing the guarantees-of-origin
// surcharge to zero when the option is disabled.
func NewParams(margin, goValue float64, goEnabled bool, tariff types.Tariff, daily bool) *Params {
	if !goEnabled {
		goValue = 0
	}
	return &Params{
		MarginEURPerKWH:  margin,
		GOValueEURPerKWH: goValue,
		GOEnabled:        goEnabled,
		Tariff:           tariff,
		Daily:            daily,
	}
}

// fileParams is the on-disk YAML shape for -pricing-config. Absent fields
// keep their flag values.
type fileParams struct {
	Margin    *float64 `yaml:"margin"`
	GOValue   *float64 `yaml:"go_value"`
	GOEnabled *bool    `yaml:"go_enabled"`
	Tariff    *string  `yaml:"tariff"`
	Daily     *bool    `yaml:"daily"`
}

// Configured sets up flags for the pricing parameters and returns the
// instance. Values can also come from a YAML file, which takes precedence
// over the individual flags.
func Configured() *Params {
	p := &Params{}
	margin := lflag.String("margin", strconv.FormatFloat(types.DefaultMarginEURPerKWH, 'f', -1, 64), "cooperative margin in EUR/kWh")
	goValue := lflag.String("go-value", strconv.FormatFloat(types.DefaultGOValueEURPerKWH, 'f', -1, 64), "guarantees-of-origin surcharge in EUR/kWh")
	goEnabled := lflag.Bool("go-enabled", false, "apply the guarantees-of-origin surcharge")
	tariff := lflag.String("tariff", string(types.TariffSimple), "contracted tariff schedule (SIMPLES, BI-HORARIA, TRI-HORARIA)")
	daily := lflag.Bool("daily", true, "publish rolling today/tomorrow views")
	configPath := lflag.String("pricing-config", "", "path to a YAML file with pricing parameters")

	lflag.Do(func() {
		m, err := strconv.ParseFloat(*margin, 64)
		if err != nil {
			p.err = fmt.Errorf("invalid margin (%s): %w", *margin, err)
			return
		}
		g, err := strconv.ParseFloat(*goValue, 64)
		if err != nil {
			p.err = fmt.Errorf("invalid go-value (%s): %w", *goValue, err)
			return
		}
		p.MarginEURPerKWH = m
		p.GOValueEURPerKWH = g
		p.GOEnabled = *goEnabled
		p.Tariff = types.Tariff(*tariff)
		p.Daily = *daily

		if *configPath != "" {
			p.err = p.applyFile(*configPath)
			if p.err != nil {
				return
			}
		}
		if !p.GOEnabled {
			p.GOValueEURPerKWH = 0
		}
	})

	return p
}

func (p *Params) applyFile(path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read pricing config: %w", err)
	}
	var fp fileParams
	if err := yaml.Unmarshal(raw, &fp); err != nil {
		return fmt.Errorf("failed to parse pricing config: %w", err)
	}
	if fp.Margin != nil {
		p.MarginEURPerKWH = *fp.Margin
	}
	if fp.GOValue != nil {
		p.GOValueEURPerKWH = *fp.GOValue
	}
	if fp.GOEnabled != nil {
		p.GOEnabled = *fp.GOEnabled
	}
	if fp.Tariff != nil {
		p.Tariff = types.Tariff(*fp.Tariff)
	}
	if fp.Daily != nil {
		p.Daily = *fp.Daily
	}
	return nil
}

// Validate ensures the configuration is valid.
func (p *Params) Validate() error {
	if p.err != nil {
		return p.err
	}
	if p.MarginEURPerKWH < 0 {
		return fmt.Errorf("margin must not be negative: %f", p.MarginEURPerKWH)
	}
	if p.GOValueEURPerKWH < 0 {
		return fmt.Errorf("go-value must not be negative: %f", p.GOValueEURPerKWH)
	}
	if !p.Tariff.Valid() {
		return fmt.Errorf("unknown tariff: %s", p.Tariff)
	}
	return nil
}

// Retail applies the billing formula to a single interval.
func (p *Params) Retail(wholesale, lossFactor float64) float64 {
	return (wholesale+p.MarginEURPerKWH)*(1+lossFactor) + p.GOValueEURPerKWH
}
