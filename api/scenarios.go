/*
scenarios.go - Demo scenario loaders for testing and demonstrations

PURPOSE:

	Provides pre-built scenarios that populate the database with realistic
	data for testing and demos. Each scenario creates protocols and logged
	injections that demonstrate specific engine behaviors.

AVAILABLE SCENARIOS:

	weekly-steady:    Weekly protocol with a perfect logging streak
	twice-weekly:     3.5-day interval showing alternating 3/4 day gaps
	missed-doses:     Weekly protocol with gaps, exercises Missed status
	protocol-switch:  Old trashed protocol plus a new active one

HOW SCENARIOS WORK:
 1. Reset database (clear all data)
 2. Create protocols via factory presets
 3. Log injections relative to today so views stay fresh

USAGE VIA API:

	POST /api/scenarios/load
	{"scenario_id": "weekly-steady"}

ADDING NEW SCENARIOS:
 1. Add to 'scenarios' slice with ID, name, description
 2. Create loader function: loadXxxScenario(ctx, h)
 3. Add case to LoadScenario handler

NOTE:

	Scenarios reset the database. Only use in development/demo environments.

SEE ALSO:
  - handlers.go: Shared handler context
  - factory/protocol.go: Protocol presets
*/
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/warp/dose-engine/engine"
	"github.com/warp/dose-engine/factory"
)

// =============================================================================
// SCENARIO DEFINITIONS
// =============================================================================

var scenarios = []ScenarioDTO{
	{
		ID:          "weekly-steady",
		Name:        "Weekly, On Schedule",
		Description: "Weekly protocol logged every week for two months",
	},
	{
		ID:          "twice-weekly",
		Name:        "Twice Weekly",
		Description: "3.5-day interval with its alternating 3/4 day gaps",
	},
	{
		ID:          "missed-doses",
		Name:        "Missed Doses",
		Description: "Weekly protocol with skipped weeks showing missed days",
	},
	{
		ID:          "protocol-switch",
		Name:        "Protocol Switch",
		Description: "Trashed old protocol with history plus a new active one",
	},
}

// resetter is implemented by stores that can drop all records.
type resetter interface {
	Reset(ctx context.Context) error
}

// ListScenarios returns available scenarios.
func (h *Handler) ListScenarios(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, scenarios)
}

// GetCurrentScenario returns the currently loaded scenario, if any.
func (h *Handler) GetCurrentScenario(w http.ResponseWriter, r *http.Request) {
	if h.currentScenario == "" {
		writeJSON(w, http.StatusOK, nil)
		return
	}
	for _, s := range scenarios {
		if s.ID == h.currentScenario {
			writeJSON(w, http.StatusOK, s)
			return
		}
	}
	writeJSON(w, http.StatusOK, ScenarioDTO{
		ID:   h.currentScenario,
		Name: h.currentScenario,
	})
}

// LoadScenario resets the database and loads a predefined scenario.
func (h *Handler) LoadScenario(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ScenarioID string `json:"scenario_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	ctx := r.Context()
	if err := h.reset(ctx); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to reset database", err)
		return
	}

	var err error
	switch req.ScenarioID {
	case "weekly-steady":
		err = h.loadWeeklySteadyScenario(ctx)
	case "twice-weekly":
		err = h.loadTwiceWeeklyScenario(ctx)
	case "missed-doses":
		err = h.loadMissedDosesScenario(ctx)
	case "protocol-switch":
		err = h.loadProtocolSwitchScenario(ctx)
	default:
		writeError(w, http.StatusBadRequest, "Unknown scenario", nil)
		return
	}

	if err != nil {
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("Failed to load scenario: %v", err), err)
		return
	}

	h.currentScenario = req.ScenarioID
	writeJSON(w, http.StatusOK, map[string]string{"status": "loaded", "scenario": req.ScenarioID})
}

// ResetData clears all data.
func (h *Handler) ResetData(w http.ResponseWriter, r *http.Request) {
	if err := h.reset(r.Context()); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to reset database", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) reset(ctx context.Context) error {
	h.currentScenario = ""
	store, ok := h.Store.(resetter)
	if !ok {
		return fmt.Errorf("store does not support reset")
	}
	return store.Reset(ctx)
}

// =============================================================================
// SCENARIO LOADERS
// =============================================================================

func (h *Handler) loadWeeklySteadyScenario(ctx context.Context) error {
	start := engine.AddDays(h.today(), -56)

	p, err := h.Factory.ParseProtocol(factory.WeeklyJSON("cyp-weekly", "Test Cypionate Weekly", start, 0.5, 200))
	if err != nil {
		return err
	}
	if err := h.saveActive(ctx, p); err != nil {
		return err
	}

	// One log on every scheduled day up to today.
	for day := 0; day <= 56; day += 7 {
		if err := h.seedLog(ctx, p, engine.AddDays(start, day)); err != nil {
			return err
		}
	}
	return nil
}

func (h *Handler) loadTwiceWeeklyScenario(ctx context.Context) error {
	start := engine.AddDays(h.today(), -28)

	p, err := h.Factory.ParseProtocol(factory.TwiceWeeklyJSON("cyp-e3.5d", "Test Cypionate E3.5D", start, 0.25, 200))
	if err != nil {
		return err
	}
	if err := h.saveActive(ctx, p); err != nil {
		return err
	}

	// Logs follow the 3.5-day cadence: 0, 3, 7, 10, 14, ...
	for _, day := range []int{0, 3, 7, 10, 14, 17, 21, 24, 28} {
		if err := h.seedLog(ctx, p, engine.AddDays(start, day)); err != nil {
			return err
		}
	}
	return nil
}

func (h *Handler) loadMissedDosesScenario(ctx context.Context) error {
	start := engine.AddDays(h.today(), -63)

	p, err := h.Factory.ParseProtocol(factory.WeeklyJSON("cyp-spotty", "Test Cypionate Weekly", start, 0.5, 200))
	if err != nil {
		return err
	}
	if err := h.saveActive(ctx, p); err != nil {
		return err
	}

	// Weeks 3 and 6 skipped; those scheduled days surface as Missed.
	for _, week := range []int{0, 1, 2, 4, 5, 7, 8, 9} {
		day := week * 7
		if day > 63 {
			continue
		}
		if err := h.seedLog(ctx, p, engine.AddDays(start, day)); err != nil {
			return err
		}
	}
	return nil
}

func (h *Handler) loadProtocolSwitchScenario(ctx context.Context) error {
	oldStart := engine.AddDays(h.today(), -90)
	newStart := engine.AddDays(h.today(), -21)

	old, err := h.Factory.ParseProtocol(factory.WeeklyJSON("enanthate-old", "Test Enanthate Weekly", oldStart, 0.4, 250))
	if err != nil {
		return err
	}
	old.IsActive = false
	if err := h.Store.SaveProtocol(ctx, old); err != nil {
		return err
	}
	for day := 0; day <= 63; day += 7 {
		if err := h.seedLog(ctx, old, engine.AddDays(oldStart, day)); err != nil {
			return err
		}
	}
	// History stays; protocol-scoped views stop showing it.
	if err := h.Store.TrashProtocol(ctx, old.ID); err != nil {
		return err
	}

	p, err := h.Factory.ParseProtocol(factory.TwiceWeeklyJSON("cyp-new", "Test Cypionate E3.5D", newStart, 0.25, 200))
	if err != nil {
		return err
	}
	if err := h.saveActive(ctx, p); err != nil {
		return err
	}
	for _, day := range []int{0, 3, 7, 10, 14, 17, 21} {
		if err := h.seedLog(ctx, p, engine.AddDays(newStart, day)); err != nil {
			return err
		}
	}
	return nil
}

// =============================================================================
// SEEDING HELPERS
// =============================================================================

func (h *Handler) saveActive(ctx context.Context, p engine.Protocol) error {
	if err := h.Store.SaveProtocol(ctx, p); err != nil {
		return err
	}
	return h.Store.SetActiveProtocol(ctx, p.ID)
}

func (h *Handler) seedLog(ctx context.Context, p engine.Protocol, date time.Time) error {
	if date.After(h.today()) {
		return nil
	}
	return h.Store.SaveInjection(ctx, engine.Injection{
		ID:                   engine.InjectionID(fmt.Sprintf("%s-%s", p.ID, engine.FormatDay(date))),
		ProtocolID:           p.ID,
		Date:                 date,
		DoseMl:               p.DoseMl,
		ConcentrationMgPerMl: p.ConcentrationMgPerMl,
		DoseMg:               p.MgPerInjection(),
	})
}
