/*
handlers.go - HTTP API handlers for the dose tracking engine

PURPOSE:
  Exposes the scheduling and adherence engine via REST API. Handles HTTP
  request/response, JSON serialization, and delegates to domain logic.

ENDPOINTS:
  Protocols:
    GET    /api/protocols                 List protocols
    POST   /api/protocols                 Create protocol
    GET    /api/protocols/{id}            Get protocol details
    POST   /api/protocols/{id}/activate   Make this the single active one
    DELETE /api/protocols/{id}            Trash (soft delete)

  Injections:
    GET    /api/injections                List log events
    POST   /api/injections                Log a dose
    PUT    /api/injections/{id}           Edit a log event
    DELETE /api/injections/{id}           Trash (soft delete)

  Views:
    GET    /api/calendar/{year}/{month}   Month grid + per-day aggregation
    GET    /api/days/{date}               Selected-day status view
    GET    /api/dashboard                 Timing, streaks, adherence
    GET    /api/trends                    Daily/weekly/monthly/heatmap series

  Settings:
    GET    /api/settings                  Visibility map + focus flag
    PUT    /api/settings                  Replace settings

REQUEST FLOW:
  1. Parse HTTP request
  2. Validate input (factory for protocols)
  3. Load a full snapshot and hand it to the engine
  4. Serialize response

SNAPSHOT MODEL:
  Read endpoints never query incrementally. They load the complete
  protocol and injection sets, merge in optimistic entries, and let the
  engine recompute from scratch. Correct-by-construction beats clever
  caching at this data volume.

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Validation errors, invalid input
  - 404: Resource not found
  - 500: Internal errors

SEE ALSO:
  - dto.go: Request/response data structures
  - scenarios.go: Demo scenario loaders
  - server.go: Router setup and middleware
*/
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/warp/dose-engine/engine"
	"github.com/warp/dose-engine/factory"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Store   engine.SnapshotStore
	Factory *factory.ProtocolFactory

	// Pending buffers not-yet-durable log events; merged into every read.
	Pending *engine.OptimisticBuffer

	// now is injectable for deterministic tests.
	now func() time.Time

	// Track currently loaded scenario
	currentScenario string
}

// NewHandler creates a new handler with the given store.
func NewHandler(store engine.SnapshotStore) *Handler {
	return &Handler{
		Store:   store,
		Factory: factory.NewProtocolFactory(),
		Pending: engine.NewOptimisticBuffer(),
		now:     time.Now,
	}
}

// snapshot is the full engine input loaded from the store, with pending
// entries already merged.
type snapshot struct {
	Protocols  []engine.Protocol
	Injections []engine.Injection
	Settings   engine.Settings
}

func (h *Handler) loadSnapshot(ctx context.Context) (snapshot, error) {
	protocols, err := h.Store.ListProtocols(ctx)
	if err != nil {
		return snapshot{}, fmt.Errorf("list protocols: %w", err)
	}
	injections, err := h.Store.ListInjections(ctx)
	if err != nil {
		return snapshot{}, fmt.Errorf("list injections: %w", err)
	}
	settings, err := h.Store.GetSettings(ctx)
	if err != nil {
		return snapshot{}, fmt.Errorf("get settings: %w", err)
	}
	return snapshot{
		Protocols:  protocols,
		Injections: engine.MergeInjections(injections, h.Pending.Snapshot()),
		Settings:   settings,
	}, nil
}

func (h *Handler) today() time.Time {
	return engine.StartOfDay(h.now())
}

// =============================================================================
// PROTOCOL HANDLERS
// =============================================================================

// ListProtocols returns all non-trashed protocols. Pass ?include_trashed=1
// to include soft-deleted ones.
func (h *Handler) ListProtocols(w http.ResponseWriter, r *http.Request) {
	protocols, err := h.Store.ListProtocols(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list protocols", err)
		return
	}

	includeTrashed := r.URL.Query().Get("include_trashed") == "1"
	dtos := make([]ProtocolDTO, 0, len(protocols))
	for _, p := range protocols {
		if p.IsTrashed && !includeTrashed {
			continue
		}
		dtos = append(dtos, toProtocolDTO(p))
	}

	writeJSON(w, http.StatusOK, dtos)
}

// CreateProtocol validates and persists a new protocol.
func (h *Handler) CreateProtocol(w http.ResponseWriter, r *http.Request) {
	var cfg factory.ProtocolJSON
	if err := json.NewDecoder(r.Body).Decode(&cfg); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if cfg.ID == "" {
		cfg.ID = uuid.NewString()
	}

	p, err := h.Factory.FromConfig(cfg)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid protocol", err)
		return
	}
	p.CreatedAt = h.now().UTC()

	ctx := r.Context()
	if err := h.Store.SaveProtocol(ctx, p); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to create protocol", err)
		return
	}

	// Activation is exclusive; delegate the invariant to the store.
	if p.IsActive {
		if err := h.Store.SetActiveProtocol(ctx, p.ID); err != nil {
			writeError(w, http.StatusInternalServerError, "Failed to activate protocol", err)
			return
		}
	}

	writeJSON(w, http.StatusCreated, toProtocolDTO(p))
}

// GetProtocol returns a single protocol.
func (h *Handler) GetProtocol(w http.ResponseWriter, r *http.Request) {
	id := engine.ProtocolID(chi.URLParam(r, "id"))

	p, err := h.Store.GetProtocol(r.Context(), id)
	if engine.IsNotFound(err) {
		writeError(w, http.StatusNotFound, "Protocol not found", nil)
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get protocol", err)
		return
	}

	writeJSON(w, http.StatusOK, toProtocolDTO(*p))
}

// ActivateProtocol makes the given protocol the single active one.
func (h *Handler) ActivateProtocol(w http.ResponseWriter, r *http.Request) {
	id := engine.ProtocolID(chi.URLParam(r, "id"))

	err := h.Store.SetActiveProtocol(r.Context(), id)
	if engine.IsNotFound(err) {
		writeError(w, http.StatusNotFound, "Protocol not found", nil)
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to activate protocol", err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "activated", "id": string(id)})
}

// TrashProtocol soft-deletes a protocol. Its history is preserved but it
// stops contributing to every view.
func (h *Handler) TrashProtocol(w http.ResponseWriter, r *http.Request) {
	id := engine.ProtocolID(chi.URLParam(r, "id"))

	err := h.Store.TrashProtocol(r.Context(), id)
	if engine.IsNotFound(err) {
		writeError(w, http.StatusNotFound, "Protocol not found", nil)
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to trash protocol", err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "trashed", "id": string(id)})
}

// =============================================================================
// INJECTION HANDLERS
// =============================================================================

// ListInjections returns all non-trashed log events, pending ones included.
func (h *Handler) ListInjections(w http.ResponseWriter, r *http.Request) {
	injections, err := h.Store.ListInjections(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list injections", err)
		return
	}
	merged := engine.MergeInjections(injections, h.Pending.Snapshot())

	dtos := make([]InjectionDTO, 0, len(merged))
	for _, inj := range merged {
		if inj.IsTrashed {
			continue
		}
		dtos = append(dtos, toInjectionDTO(inj))
	}
	writeJSON(w, http.StatusOK, dtos)
}

// LogInjection records a dose. Omitted dose fields default from the
// protocol's current dose; dose_mg is captured at log time so later
// protocol edits do not rewrite history.
func (h *Handler) LogInjection(w http.ResponseWriter, r *http.Request) {
	var req LogInjectionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	inj, status, err := h.buildInjection(r.Context(), engine.InjectionID(uuid.NewString()), req)
	if err != nil {
		writeError(w, status, "Invalid injection", err)
		return
	}
	inj.CreatedAt = h.now().UTC()

	// Buffer the entry under its durable identifier while the write is in
	// flight; reads merging the buffer dedupe by identifier, so the entry
	// is visible exactly once throughout.
	h.Pending.Add(inj)
	defer h.Pending.Remove(inj.ID)

	if err := h.Store.SaveInjection(r.Context(), inj); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save injection", err)
		return
	}

	writeJSON(w, http.StatusCreated, toInjectionDTO(inj))
}

// UpdateInjection replaces an existing log event's fields.
func (h *Handler) UpdateInjection(w http.ResponseWriter, r *http.Request) {
	id := engine.InjectionID(chi.URLParam(r, "id"))
	ctx := r.Context()

	existing, err := h.Store.GetInjection(ctx, id)
	if engine.IsNotFound(err) {
		writeError(w, http.StatusNotFound, "Injection not found", nil)
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get injection", err)
		return
	}

	var req LogInjectionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.ProtocolID == "" {
		req.ProtocolID = string(existing.ProtocolID)
	}
	if req.Date == "" {
		req.Date = engine.FormatDay(existing.Date)
	}

	inj, status, err := h.buildInjection(ctx, id, req)
	if err != nil {
		writeError(w, status, "Invalid injection", err)
		return
	}
	inj.CreatedAt = existing.CreatedAt

	if err := h.Store.SaveInjection(ctx, inj); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save injection", err)
		return
	}

	writeJSON(w, http.StatusOK, toInjectionDTO(inj))
}

// TrashInjection soft-deletes a log event.
func (h *Handler) TrashInjection(w http.ResponseWriter, r *http.Request) {
	id := engine.InjectionID(chi.URLParam(r, "id"))

	// A pending entry never reached the store; dropping it from the
	// buffer is the whole deletion.
	if engine.IsLocalID(id) {
		h.Pending.Remove(id)
		writeJSON(w, http.StatusOK, map[string]string{"status": "trashed", "id": string(id)})
		return
	}

	err := h.Store.TrashInjection(r.Context(), id)
	if engine.IsNotFound(err) {
		writeError(w, http.StatusNotFound, "Injection not found", nil)
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to trash injection", err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "trashed", "id": string(id)})
}

// buildInjection resolves a request against its protocol, filling omitted
// dose fields from the protocol and capturing dose_mg.
func (h *Handler) buildInjection(ctx context.Context, id engine.InjectionID, req LogInjectionRequest) (engine.Injection, int, error) {
	date, err := engine.ParseDay(req.Date)
	if err != nil {
		return engine.Injection{}, http.StatusBadRequest, fmt.Errorf("invalid date %q: %w", req.Date, err)
	}

	p, err := h.Store.GetProtocol(ctx, engine.ProtocolID(req.ProtocolID))
	if engine.IsNotFound(err) {
		return engine.Injection{}, http.StatusBadRequest, engine.ErrProtocolNotFound
	}
	if err != nil {
		return engine.Injection{}, http.StatusInternalServerError, err
	}

	doseMl := p.DoseMl
	if req.DoseMl > 0 {
		doseMl = decimal.NewFromFloat(req.DoseMl)
	}
	concentration := p.ConcentrationMgPerMl
	if req.ConcentrationMgPerMl > 0 {
		concentration = decimal.NewFromFloat(req.ConcentrationMgPerMl)
	}
	if !doseMl.IsPositive() || !concentration.IsPositive() {
		return engine.Injection{}, http.StatusBadRequest, engine.ErrInvalidDose
	}

	return engine.Injection{
		ID:                   id,
		ProtocolID:           p.ID,
		Date:                 date,
		DoseMl:               doseMl,
		ConcentrationMgPerMl: concentration,
		DoseMg:               doseMl.Mul(concentration),
		Notes:                req.Notes,
	}, 0, nil
}

// =============================================================================
// CALENDAR HANDLERS
// =============================================================================

// GetCalendar returns the 42-cell grid for a month, each cell merged with
// its per-day aggregation, plus the month's adherence counts.
func (h *Handler) GetCalendar(w http.ResponseWriter, r *http.Request) {
	year, err := strconv.Atoi(chi.URLParam(r, "year"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid year", err)
		return
	}
	monthNum, err := strconv.Atoi(chi.URLParam(r, "month"))
	if err != nil || monthNum < 1 || monthNum > 12 {
		writeError(w, http.StatusBadRequest, "Invalid month", err)
		return
	}

	snap, err := h.loadSnapshot(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load data", err)
		return
	}

	month := engine.NewDate(year, time.Month(monthNum), 1)
	grid := engine.BuildMonthGrid(month)
	agg := engine.BuildAggregate(engine.AggregateInput{
		Protocols:       snap.Protocols,
		Visibility:      snap.Settings.Visibility,
		FocusActiveOnly: snap.Settings.FocusActiveOnly,
		Injections:      snap.Injections,
		RangeStart:      grid.RangeStart,
		RangeEnd:        grid.RangeEnd,
	})
	stats := agg.MonthStats(month, h.today(), engine.FirstLoggedDate(snap.Injections))

	cells := make([]CalendarCellDTO, len(grid.Cells))
	for i, cell := range grid.Cells {
		key := engine.DayKey(cell.Date)
		summary := agg.SummaryByDay[key]
		cells[i] = CalendarCellDTO{
			Date:           engine.FormatDay(cell.Date),
			IsCurrentMonth: cell.IsCurrentMonth,
			Scheduled:      protocolIDStrings(agg.ScheduledByDay[key]),
			LogCount:       summary.Count,
			TotalMg:        summary.TotalMg.InexactFloat64(),
		}
	}

	writeJSON(w, http.StatusOK, CalendarDTO{
		Month:         engine.FormatDay(grid.Month),
		RangeStart:    engine.FormatDay(grid.RangeStart),
		RangeEnd:      engine.FormatDay(grid.RangeEnd),
		Cells:         cells,
		ScheduledDays: stats.ScheduledDays,
		LoggedDays:    stats.LoggedDays,
	})
}

// GetDay returns the selected-day view with its status label.
func (h *Handler) GetDay(w http.ResponseWriter, r *http.Request) {
	day, err := engine.ParseDay(chi.URLParam(r, "date"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid date (use YYYY-MM-DD)", err)
		return
	}

	snap, err := h.loadSnapshot(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load data", err)
		return
	}

	agg := engine.BuildAggregate(engine.AggregateInput{
		Protocols:       snap.Protocols,
		Visibility:      snap.Settings.Visibility,
		FocusActiveOnly: snap.Settings.FocusActiveOnly,
		Injections:      snap.Injections,
		RangeStart:      day,
		RangeEnd:        day,
	})
	view := agg.DayView(day, h.today(), engine.FirstLoggedDate(snap.Injections) != nil)

	writeJSON(w, http.StatusOK, DayViewDTO{
		Date:      engine.FormatDay(view.Date),
		Status:    view.Status,
		Scheduled: protocolIDStrings(view.Scheduled),
		Logs:      toInjectionDTOs(view.Logs),
		LogCount:  view.Summary.Count,
		TotalMg:   view.Summary.TotalMg.InexactFloat64(),
	})
}

// =============================================================================
// DASHBOARD HANDLER
// =============================================================================

// GetDashboard returns active-protocol timing, streaks, and the current
// month's adherence in one payload.
func (h *Handler) GetDashboard(w http.ResponseWriter, r *http.Request) {
	snap, err := h.loadSnapshot(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load data", err)
		return
	}

	today := h.today()
	dashboard := DashboardDTO{AsOf: engine.FormatDay(today)}

	if active := engine.ActiveProtocol(snap.Protocols); active != nil {
		dto := toProtocolDTO(*active)
		dashboard.ActiveProtocol = &dto

		timing := engine.ComputeTiming(*active, snap.Injections, today)
		timingDTO := TimingDTO{
			NextDueDate:   engine.FormatDay(timing.NextDue),
			WithinRange:   timing.WithinRange,
			DaysRemaining: timing.DaysRemaining,
		}
		if timing.LastLog != nil {
			s := engine.FormatDay(timing.LastLog.Date)
			timingDTO.LastLogDate = &s
		}
		dashboard.Timing = &timingDTO
	}

	streaks := engine.ComputeStreaks(snap.Injections, today)
	dashboard.Streaks = StreaksDTO{
		Current:         streaks.Current,
		Longest:         streaks.Longest,
		TotalInjections: streaks.TotalInjections,
	}

	grid := engine.BuildMonthGrid(today)
	agg := engine.BuildAggregate(engine.AggregateInput{
		Protocols:       snap.Protocols,
		Visibility:      snap.Settings.Visibility,
		FocusActiveOnly: snap.Settings.FocusActiveOnly,
		Injections:      snap.Injections,
		RangeStart:      grid.RangeStart,
		RangeEnd:        grid.RangeEnd,
	})
	adherence := engine.ComputeAdherence(
		agg.MonthStats(today, today, engine.FirstLoggedDate(snap.Injections)))
	dashboard.Adherence = AdherenceDTO{
		ScheduledDays: adherence.ScheduledDays,
		LoggedDays:    adherence.LoggedDays,
		Ratio:         adherence.Ratio,
	}

	writeJSON(w, http.StatusOK, dashboard)
}

// =============================================================================
// TREND HANDLER
// =============================================================================

// GetTrends returns all four fixed-length series ending today.
func (h *Handler) GetTrends(w http.ResponseWriter, r *http.Request) {
	injections, err := h.Store.ListInjections(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list injections", err)
		return
	}
	merged := engine.MergeInjections(injections, h.Pending.Snapshot())
	today := h.today()

	heatmap := engine.Heatmap(merged, today)
	heatmapDTOs := make([]HeatmapCellDTO, len(heatmap))
	for i, cell := range heatmap {
		heatmapDTOs[i] = HeatmapCellDTO{
			Date:    engine.FormatDay(cell.Date),
			Count:   cell.Count,
			TotalMg: cell.TotalMg.InexactFloat64(),
		}
	}

	writeJSON(w, http.StatusOK, TrendsDTO{
		Daily:   toTrendPointDTOs(engine.DailyTotals(merged, today)),
		Weekly:  toTrendPointDTOs(engine.WeeklyTotals(merged, today)),
		Monthly: toTrendPointDTOs(engine.MonthlyTotals(merged, today)),
		Heatmap: heatmapDTOs,
	})
}

func toTrendPointDTOs(points []engine.TrendPoint) []TrendPointDTO {
	dtos := make([]TrendPointDTO, len(points))
	for i, p := range points {
		dtos[i] = TrendPointDTO{
			Date:    engine.FormatDay(p.Date),
			TotalMg: p.TotalMg.InexactFloat64(),
		}
	}
	return dtos
}

// =============================================================================
// SETTINGS HANDLERS
// =============================================================================

// GetSettings returns the visibility map and focus flag.
func (h *Handler) GetSettings(w http.ResponseWriter, r *http.Request) {
	settings, err := h.Store.GetSettings(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get settings", err)
		return
	}
	writeJSON(w, http.StatusOK, toSettingsDTO(settings))
}

// UpdateSettings replaces the settings wholesale.
func (h *Handler) UpdateSettings(w http.ResponseWriter, r *http.Request) {
	var req SettingsDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	settings := engine.Settings{
		Visibility:      make(engine.VisibilityMap, len(req.Visibility)),
		FocusActiveOnly: req.FocusActiveOnly,
	}
	for id, shown := range req.Visibility {
		settings.Visibility[engine.ProtocolID(id)] = shown
	}

	if err := h.Store.SaveSettings(r.Context(), settings); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save settings", err)
		return
	}
	writeJSON(w, http.StatusOK, toSettingsDTO(settings))
}

func toSettingsDTO(s engine.Settings) SettingsDTO {
	dto := SettingsDTO{
		Visibility:      make(map[string]bool, len(s.Visibility)),
		FocusActiveOnly: s.FocusActiveOnly,
	}
	for id, shown := range s.Visibility {
		dto.Visibility[string(id)] = shown
	}
	return dto
}

// =============================================================================
// HELPERS
// =============================================================================

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}
