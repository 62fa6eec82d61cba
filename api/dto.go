/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the engine's decimal-typed records from the external API contract:
  doses travel as plain JSON numbers, dates as YYYY-MM-DD strings,
  timestamps as RFC3339.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

TYPES:
  Protocols:
    ProtocolDTO, CreateProtocolRequest (wraps factory.ProtocolJSON)

  Injections:
    InjectionDTO, LogInjectionRequest

  Calendar:
    CalendarDTO, CalendarCellDTO, DayViewDTO

  Dashboard:
    DashboardDTO, TimingDTO, StreaksDTO, AdherenceDTO

  Trends:
    TrendsDTO, TrendPointDTO, HeatmapCellDTO

  Settings:
    SettingsDTO

VALIDATION:
  Protocol validation lives in the factory, not in DTOs. DTOs are pure
  data carriers.

SEE ALSO:
  - handlers.go: Uses these types
  - factory/protocol.go: ProtocolJSON type
*/
package api

import (
	"time"

	"github.com/warp/dose-engine/engine"
)

// =============================================================================
// PROTOCOL TYPES
// =============================================================================

// ProtocolDTO represents a protocol in API responses.
type ProtocolDTO struct {
	ID                   string  `json:"id"`
	Name                 string  `json:"name"`
	StartDate            string  `json:"start_date"`
	EndDate              *string `json:"end_date,omitempty"`
	IntervalDays         float64 `json:"interval_days"`
	DoseMl               float64 `json:"dose_ml"`
	ConcentrationMgPerMl float64 `json:"concentration_mg_per_ml"`
	MgPerInjection       float64 `json:"mg_per_injection"`
	MgPerWeek            float64 `json:"mg_per_week"`
	IsActive             bool    `json:"is_active"`
	IsTrashed            bool    `json:"is_trashed"`
	ThemeKey             string  `json:"theme_key,omitempty"`
	CreatedAt            string  `json:"created_at,omitempty"`
}

// =============================================================================
// INJECTION TYPES
// =============================================================================

// InjectionDTO represents one logged dose in API responses.
type InjectionDTO struct {
	ID                   string  `json:"id"`
	ProtocolID           string  `json:"protocol_id"`
	Date                 string  `json:"date"`
	DoseMl               float64 `json:"dose_ml"`
	ConcentrationMgPerMl float64 `json:"concentration_mg_per_ml"`
	DoseMg               float64 `json:"dose_mg"`
	Notes                string  `json:"notes,omitempty"`
	CreatedAt            string  `json:"created_at,omitempty"`
}

// LogInjectionRequest is the request to log (or update) an injection.
// Omitted dose fields default from the protocol's current dose.
type LogInjectionRequest struct {
	ProtocolID           string  `json:"protocol_id"`
	Date                 string  `json:"date"`
	DoseMl               float64 `json:"dose_ml,omitempty"`
	ConcentrationMgPerMl float64 `json:"concentration_mg_per_ml,omitempty"`
	Notes                string  `json:"notes,omitempty"`
}

// =============================================================================
// CALENDAR TYPES
// =============================================================================

// CalendarCellDTO is one grid cell with its per-day aggregation.
type CalendarCellDTO struct {
	Date           string   `json:"date"`
	IsCurrentMonth bool     `json:"is_current_month"`
	Scheduled      []string `json:"scheduled,omitempty"`
	LogCount       int      `json:"log_count"`
	TotalMg        float64  `json:"total_mg"`
}

// CalendarDTO is the month grid merged with aggregation and statistics.
type CalendarDTO struct {
	Month         string            `json:"month"`
	RangeStart    string            `json:"range_start"`
	RangeEnd      string            `json:"range_end"`
	Cells         []CalendarCellDTO `json:"cells"`
	ScheduledDays int               `json:"scheduled_days"`
	LoggedDays    int               `json:"logged_days"`
}

// DayViewDTO is the selected-day state.
type DayViewDTO struct {
	Date      string         `json:"date"`
	Status    string         `json:"status"`
	Scheduled []string       `json:"scheduled,omitempty"`
	Logs      []InjectionDTO `json:"logs"`
	LogCount  int            `json:"log_count"`
	TotalMg   float64        `json:"total_mg"`
}

// =============================================================================
// DASHBOARD TYPES
// =============================================================================

// TimingDTO describes the active protocol's position relative to today.
type TimingDTO struct {
	LastLogDate   *string `json:"last_log_date,omitempty"`
	NextDueDate   string  `json:"next_due_date"`
	WithinRange   bool    `json:"within_range"`
	DaysRemaining int     `json:"days_remaining"`
}

// StreaksDTO summarizes logging consistency.
type StreaksDTO struct {
	Current         int `json:"current"`
	Longest         int `json:"longest"`
	TotalInjections int `json:"total_injections"`
}

// AdherenceDTO reports the ratio alongside both raw counts.
type AdherenceDTO struct {
	ScheduledDays int     `json:"scheduled_days"`
	LoggedDays    int     `json:"logged_days"`
	Ratio         float64 `json:"ratio"`
}

// DashboardDTO is the aggregate dashboard payload.
type DashboardDTO struct {
	ActiveProtocol *ProtocolDTO `json:"active_protocol,omitempty"`
	Timing         *TimingDTO   `json:"timing,omitempty"`
	Streaks        StreaksDTO   `json:"streaks"`
	Adherence      AdherenceDTO `json:"adherence"`
	AsOf           string       `json:"as_of"`
}

// =============================================================================
// TREND TYPES
// =============================================================================

// TrendPointDTO is one bucket of a mg-total series.
type TrendPointDTO struct {
	Date    string  `json:"date"`
	TotalMg float64 `json:"total_mg"`
}

// HeatmapCellDTO is one day of the heatmap series.
type HeatmapCellDTO struct {
	Date    string  `json:"date"`
	Count   int     `json:"count"`
	TotalMg float64 `json:"total_mg"`
}

// TrendsDTO carries all four fixed-length series.
type TrendsDTO struct {
	Daily   []TrendPointDTO  `json:"daily"`
	Weekly  []TrendPointDTO  `json:"weekly"`
	Monthly []TrendPointDTO  `json:"monthly"`
	Heatmap []HeatmapCellDTO `json:"heatmap"`
}

// =============================================================================
// SETTINGS TYPES
// =============================================================================

// SettingsDTO mirrors engine.Settings on the wire.
type SettingsDTO struct {
	Visibility      map[string]bool `json:"visibility"`
	FocusActiveOnly bool            `json:"focus_active_only"`
}

// =============================================================================
// SCENARIO TYPES
// =============================================================================

// ScenarioDTO describes one demo scenario.
type ScenarioDTO struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// ErrorResponse is the uniform error payload.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// =============================================================================
// CONVERTERS
// =============================================================================

func toProtocolDTO(p engine.Protocol) ProtocolDTO {
	dto := ProtocolDTO{
		ID:                   string(p.ID),
		Name:                 p.Name,
		StartDate:            engine.FormatDay(p.StartDate),
		IntervalDays:         p.IntervalDays.InexactFloat64(),
		DoseMl:               p.DoseMl.InexactFloat64(),
		ConcentrationMgPerMl: p.ConcentrationMgPerMl.InexactFloat64(),
		MgPerInjection:       p.MgPerInjection().InexactFloat64(),
		MgPerWeek:            p.MgPerWeek().InexactFloat64(),
		IsActive:             p.IsActive,
		IsTrashed:            p.IsTrashed,
		ThemeKey:             p.ThemeKey,
	}
	if p.EndDate != nil {
		s := engine.FormatDay(*p.EndDate)
		dto.EndDate = &s
	}
	if !p.CreatedAt.IsZero() {
		dto.CreatedAt = p.CreatedAt.Format(time.RFC3339)
	}
	return dto
}

func toInjectionDTO(inj engine.Injection) InjectionDTO {
	dto := InjectionDTO{
		ID:                   string(inj.ID),
		ProtocolID:           string(inj.ProtocolID),
		Date:                 engine.FormatDay(inj.Date),
		DoseMl:               inj.DoseMl.InexactFloat64(),
		ConcentrationMgPerMl: inj.ConcentrationMgPerMl.InexactFloat64(),
		DoseMg:               inj.EffectiveDoseMg().InexactFloat64(),
		Notes:                inj.Notes,
	}
	if !inj.CreatedAt.IsZero() {
		dto.CreatedAt = inj.CreatedAt.Format(time.RFC3339)
	}
	return dto
}

func toInjectionDTOs(injections []engine.Injection) []InjectionDTO {
	dtos := make([]InjectionDTO, 0, len(injections))
	for _, inj := range injections {
		dtos = append(dtos, toInjectionDTO(inj))
	}
	return dtos
}

func protocolIDStrings(ids []engine.ProtocolID) []string {
	if len(ids) == 0 {
		return nil
	}
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = string(id)
	}
	return out
}
