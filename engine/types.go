/*
Package engine provides the core scheduling and adherence engine.

PURPOSE:
  This package contains the types and algorithms for tracking recurring
  dose protocols against logged injections: expanding an interval rule
  into calendar dates, merging schedules with logs across protocols,
  classifying days, and deriving longitudinal metrics (next due, streaks,
  adherence, trend series).

KEY CONCEPTS IN THIS FILE (types.go):
  - Protocol: A recurring dosing rule (start date, interval, optional
    end date, dose)
  - Injection: One recorded dose taken on a specific day
  - Protocol/Injection IDs: Type-safe identifiers

DESIGN PRINCIPLES:
  1. Purity: Every computation is a pure transform of immutable snapshots
  2. Precision: Uses decimal.Decimal to avoid floating-point errors
  3. Day granularity: Two events on the same calendar day are
     indistinguishable for scheduling purposes
  4. Defensiveness: Malformed numeric input degrades, never panics

SEE ALSO:
  - time.go: Day normalization and arithmetic
  - schedule.go: Interval rule expansion
  - aggregate.go: Schedule/log merging and day classification
  - metrics.go: Streaks, timing, adherence
*/
package engine

import (
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// IDENTIFIERS
// =============================================================================

type ProtocolID string
type InjectionID string

// =============================================================================
// PROTOCOL - A recurring dosing rule
// =============================================================================

// Protocol defines when and how much a user self-administers.
//
// INVARIANTS:
//   - IntervalDays >= 0.5 in half-day increments (IntervalDays*2 is integral)
//   - The generated schedule never includes a date before StartDate or
//     after EndDate (when set)
//   - At most one non-trashed protocol is active at a time; the store
//     enforces exclusivity, the engine only ever reads one active protocol
type Protocol struct {
	ID        ProtocolID
	Name      string
	StartDate time.Time  // day precision
	EndDate   *time.Time // inclusive upper bound, nil = unbounded

	// IntervalDays is the gap between scheduled occurrences. May be
	// fractional (e.g. 3.5 for twice-weekly).
	IntervalDays decimal.Decimal

	DoseMl               decimal.Decimal
	ConcentrationMgPerMl decimal.Decimal

	IsActive  bool
	IsTrashed bool // soft delete; excluded from all scheduling/metrics

	// ThemeKey is presentation-only and irrelevant to the engine.
	ThemeKey string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// MgPerInjection returns the dose in mg. It is always derived from its
// inputs, never stored independently.
func (p Protocol) MgPerInjection() decimal.Decimal {
	return p.DoseMl.Mul(p.ConcentrationMgPerMl)
}

// MgPerWeek returns the average weekly dose implied by the interval.
// Returns zero for a non-positive interval.
func (p Protocol) MgPerWeek() decimal.Decimal {
	if !p.IntervalDays.IsPositive() {
		return decimal.Zero
	}
	return p.MgPerInjection().Mul(decimal.NewFromInt(7)).Div(p.IntervalDays)
}

// =============================================================================
// INJECTION - One logged dose event
// =============================================================================

// Injection records a dose taken on a specific day.
//
// ProtocolID is a weak reference: it may point to a trashed or deleted
// protocol. Protocol-scoped views exclude such events silently; the
// event itself still exists.
type Injection struct {
	ID         InjectionID
	ProtocolID ProtocolID
	Date       time.Time // day precision

	DoseMl               decimal.Decimal
	ConcentrationMgPerMl decimal.Decimal

	// DoseMg is persisted for historical accuracy even if the protocol's
	// dose later changes. When it is not usable, EffectiveDoseMg
	// recomputes it from DoseMl and ConcentrationMgPerMl.
	DoseMg decimal.Decimal

	Notes     string
	IsTrashed bool

	CreatedAt time.Time
	UpdatedAt time.Time
}

// EffectiveDoseMg returns the persisted mg value, falling back to a
// locally recomputed DoseMl * ConcentrationMgPerMl when the persisted
// value is not strictly positive.
func (inj Injection) EffectiveDoseMg() decimal.Decimal {
	if inj.DoseMg.IsPositive() {
		return inj.DoseMg
	}
	return inj.DoseMl.Mul(inj.ConcentrationMgPerMl)
}

// =============================================================================
// SNAPSHOT HELPERS
// =============================================================================

// ActiveProtocol returns the single active, non-trashed protocol, or nil
// when none is active.
func ActiveProtocol(protocols []Protocol) *Protocol {
	for i := range protocols {
		if protocols[i].IsActive && !protocols[i].IsTrashed {
			return &protocols[i]
		}
	}
	return nil
}

// ProtocolIndex builds an id lookup over non-trashed protocols. Lookups
// that miss represent the weak-reference case: the caller must treat a
// missing entry as "exclude", not as an error.
func ProtocolIndex(protocols []Protocol) map[ProtocolID]Protocol {
	index := make(map[ProtocolID]Protocol, len(protocols))
	for _, p := range protocols {
		if !p.IsTrashed {
			index[p.ID] = p
		}
	}
	return index
}

// FirstLoggedDate returns the day-normalized date of the earliest
// non-trashed injection, or nil when the user has never logged. It
// anchors adherence accounting to when tracking actually started.
func FirstLoggedDate(injections []Injection) *time.Time {
	var first *time.Time
	for _, inj := range injections {
		if inj.IsTrashed {
			continue
		}
		day := StartOfDay(inj.Date)
		if first == nil || day.Before(*first) {
			d := day
			first = &d
		}
	}
	return first
}
