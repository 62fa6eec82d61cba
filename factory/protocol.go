/*
Package factory provides JSON to Go protocol conversion.

PURPOSE:
  Converts JSON protocol definitions into validated engine.Protocol
  values. This keeps wire/database representations decoupled from the
  engine's decimal-typed records and concentrates every validation rule
  in one place.

JSON SCHEMA:
  {
    "id": "test-cyp",
    "name": "Test Cypionate",
    "start_date": "2024-01-01",
    "end_date": "2024-12-31",
    "interval_days": 3.5,
    "dose_ml": 0.5,
    "concentration_mg_per_ml": 200,
    "theme_key": "teal",
    "is_active": true
  }

VALIDATION RULES:
  - interval_days >= 0.5 and a half-day increment (interval*2 integral)
  - dose_ml and concentration_mg_per_ml strictly positive
  - end_date, when present, on/after start_date

USAGE:
  f := factory.NewProtocolFactory()
  protocol, err := f.ParseProtocol(jsonString)

SEE ALSO:
  - engine/types.go: Protocol definition
  - api/scenarios.go: Demo datasets built from presets
*/
package factory

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/warp/dose-engine/engine"
)

// =============================================================================
// JSON SCHEMA TYPES
// =============================================================================

// ProtocolJSON is the JSON representation of a protocol.
type ProtocolJSON struct {
	ID                   string  `json:"id"`
	Name                 string  `json:"name"`
	StartDate            string  `json:"start_date"`
	EndDate              string  `json:"end_date,omitempty"`
	IntervalDays         float64 `json:"interval_days"`
	DoseMl               float64 `json:"dose_ml"`
	ConcentrationMgPerMl float64 `json:"concentration_mg_per_ml"`
	ThemeKey             string  `json:"theme_key,omitempty"`
	IsActive             bool    `json:"is_active,omitempty"`
}

// =============================================================================
// FACTORY
// =============================================================================

type ProtocolFactory struct{}

func NewProtocolFactory() *ProtocolFactory {
	return &ProtocolFactory{}
}

// ParseProtocol converts a JSON definition into a validated Protocol.
func (f *ProtocolFactory) ParseProtocol(jsonStr string) (engine.Protocol, error) {
	var cfg ProtocolJSON
	if err := json.Unmarshal([]byte(jsonStr), &cfg); err != nil {
		return engine.Protocol{}, fmt.Errorf("invalid protocol JSON: %w", err)
	}
	return f.FromConfig(cfg)
}

// FromConfig converts an already-decoded definition.
func (f *ProtocolFactory) FromConfig(cfg ProtocolJSON) (engine.Protocol, error) {
	id := engine.ProtocolID(cfg.ID)

	start, err := engine.ParseDay(cfg.StartDate)
	if err != nil {
		return engine.Protocol{}, &engine.InvalidProtocolError{
			ProtocolID: id, Field: "start_date", Reason: err,
		}
	}

	p := engine.Protocol{
		ID:                   id,
		Name:                 cfg.Name,
		StartDate:            start,
		IntervalDays:         decimal.NewFromFloat(cfg.IntervalDays),
		DoseMl:               decimal.NewFromFloat(cfg.DoseMl),
		ConcentrationMgPerMl: decimal.NewFromFloat(cfg.ConcentrationMgPerMl),
		ThemeKey:             cfg.ThemeKey,
		IsActive:             cfg.IsActive,
	}

	if cfg.EndDate != "" {
		end, err := engine.ParseDay(cfg.EndDate)
		if err != nil {
			return engine.Protocol{}, &engine.InvalidProtocolError{
				ProtocolID: id, Field: "end_date", Reason: err,
			}
		}
		p.EndDate = &end
	}

	if err := Validate(p); err != nil {
		return engine.Protocol{}, err
	}
	return p, nil
}

// =============================================================================
// VALIDATION
// =============================================================================

var halfDay = decimal.NewFromFloat(0.5)

// Validate enforces the protocol invariants. The engine itself degrades
// on malformed numerics; this is the gate that keeps them out of storage.
func Validate(p engine.Protocol) error {
	if p.IntervalDays.LessThan(halfDay) || !p.IntervalDays.Mul(decimal.NewFromInt(2)).IsInteger() {
		return &engine.InvalidProtocolError{
			ProtocolID: p.ID, Field: "interval_days", Reason: engine.ErrInvalidInterval,
		}
	}
	if !p.DoseMl.IsPositive() || !p.ConcentrationMgPerMl.IsPositive() {
		return &engine.InvalidProtocolError{
			ProtocolID: p.ID, Field: "dose", Reason: engine.ErrInvalidDose,
		}
	}
	if p.EndDate != nil && p.EndDate.Before(p.StartDate) {
		return &engine.InvalidProtocolError{
			ProtocolID: p.ID, Field: "end_date",
			Reason: &engine.DateRangeError{Start: p.StartDate, End: *p.EndDate},
		}
	}
	return nil
}

// =============================================================================
// PRESETS - Ready-made definitions for demos and tests
// =============================================================================

// WeeklyJSON returns a weekly protocol definition.
func WeeklyJSON(id, name string, start time.Time, doseMl, concentration float64) string {
	return protocolJSON(ProtocolJSON{
		ID: id, Name: name, StartDate: engine.FormatDay(start),
		IntervalDays: 7, DoseMl: doseMl, ConcentrationMgPerMl: concentration,
		IsActive: true,
	})
}

// TwiceWeeklyJSON returns a 3.5-day protocol definition.
func TwiceWeeklyJSON(id, name string, start time.Time, doseMl, concentration float64) string {
	return protocolJSON(ProtocolJSON{
		ID: id, Name: name, StartDate: engine.FormatDay(start),
		IntervalDays: 3.5, DoseMl: doseMl, ConcentrationMgPerMl: concentration,
		IsActive: true,
	})
}

func protocolJSON(cfg ProtocolJSON) string {
	b, _ := json.Marshal(cfg)
	return string(b)
}
