package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/dose-engine/engine"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func sampleProtocol(id string) engine.Protocol {
	end := time.Date(2024, time.December, 31, 0, 0, 0, 0, time.UTC)
	return engine.Protocol{
		ID:                   engine.ProtocolID(id),
		Name:                 "Test Cypionate",
		StartDate:            time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC),
		EndDate:              &end,
		IntervalDays:         decimal.NewFromFloat(3.5),
		DoseMl:               decimal.NewFromFloat(0.5),
		ConcentrationMgPerMl: decimal.NewFromInt(200),
	}
}

func TestProtocolRoundTrip_DecimalsSurviveExactly(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.SaveProtocol(ctx, sampleProtocol("cyp")))

	got, err := s.GetProtocol(ctx, "cyp")
	require.NoError(t, err)
	assert.True(t, got.IntervalDays.Equal(decimal.NewFromFloat(3.5)), "interval %s", got.IntervalDays)
	assert.True(t, got.DoseMl.Equal(decimal.NewFromFloat(0.5)))
	assert.Equal(t, "2024-01-01", engine.FormatDay(got.StartDate))
	require.NotNil(t, got.EndDate)
	assert.Equal(t, "2024-12-31", engine.FormatDay(*got.EndDate))
}

func TestGetProtocol_NotFound(t *testing.T) {
	s := newTestStore(t)

	_, err := s.GetProtocol(context.Background(), "ghost")
	assert.ErrorIs(t, err, engine.ErrProtocolNotFound)
}

func TestSetActiveProtocol_Exclusive(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.SaveProtocol(ctx, sampleProtocol("first")))
	require.NoError(t, s.SaveProtocol(ctx, sampleProtocol("second")))

	require.NoError(t, s.SetActiveProtocol(ctx, "first"))
	require.NoError(t, s.SetActiveProtocol(ctx, "second"))

	protocols, err := s.ListProtocols(ctx)
	require.NoError(t, err)
	require.Len(t, protocols, 2)
	for _, p := range protocols {
		assert.Equal(t, p.ID == "second", p.IsActive, "protocol %s", p.ID)
	}
}

func TestSetActiveProtocol_RejectsTrashedAndMissing(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.SaveProtocol(ctx, sampleProtocol("cyp")))
	require.NoError(t, s.TrashProtocol(ctx, "cyp"))

	assert.ErrorIs(t, s.SetActiveProtocol(ctx, "cyp"), engine.ErrProtocolNotFound)
	assert.ErrorIs(t, s.SetActiveProtocol(ctx, "ghost"), engine.ErrProtocolNotFound)
}

func TestInjectionRoundTripAndTrash(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	inj := engine.Injection{
		ID:                   "inj-1",
		ProtocolID:           "cyp",
		Date:                 time.Date(2024, time.January, 8, 0, 0, 0, 0, time.UTC),
		DoseMl:               decimal.NewFromFloat(0.5),
		ConcentrationMgPerMl: decimal.NewFromInt(200),
		DoseMg:               decimal.NewFromInt(100),
		Notes:                "left side",
	}
	require.NoError(t, s.SaveInjection(ctx, inj))

	got, err := s.GetInjection(ctx, "inj-1")
	require.NoError(t, err)
	assert.True(t, got.DoseMg.Equal(decimal.NewFromInt(100)))
	assert.Equal(t, "left side", got.Notes)
	assert.False(t, got.IsTrashed)

	require.NoError(t, s.TrashInjection(ctx, "inj-1"))
	got, err = s.GetInjection(ctx, "inj-1")
	require.NoError(t, err)
	assert.True(t, got.IsTrashed)

	assert.ErrorIs(t, s.TrashInjection(ctx, "ghost"), engine.ErrInjectionNotFound)
}

func TestSettingsRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	// Fresh database starts with defaults.
	settings, err := s.GetSettings(ctx)
	require.NoError(t, err)
	assert.Empty(t, settings.Visibility)
	assert.False(t, settings.FocusActiveOnly)

	settings.Visibility = engine.VisibilityMap{"cyp": false}
	settings.FocusActiveOnly = true
	require.NoError(t, s.SaveSettings(ctx, settings))

	got, err := s.GetSettings(ctx)
	require.NoError(t, err)
	assert.Equal(t, engine.VisibilityMap{"cyp": false}, got.Visibility)
	assert.True(t, got.FocusActiveOnly)
}

func TestReset_DropsEverything(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.SaveProtocol(ctx, sampleProtocol("cyp")))
	require.NoError(t, s.SaveInjection(ctx, engine.Injection{
		ID: "inj-1", ProtocolID: "cyp",
		Date:                 time.Date(2024, time.January, 8, 0, 0, 0, 0, time.UTC),
		DoseMl:               decimal.NewFromFloat(0.5),
		ConcentrationMgPerMl: decimal.NewFromInt(200),
		DoseMg:               decimal.NewFromInt(100),
	}))
	require.NoError(t, s.SaveSettings(ctx, engine.Settings{FocusActiveOnly: true}))

	require.NoError(t, s.Reset(ctx))

	protocols, err := s.ListProtocols(ctx)
	require.NoError(t, err)
	assert.Empty(t, protocols)
	injections, err := s.ListInjections(ctx)
	require.NoError(t, err)
	assert.Empty(t, injections)
	settings, err := s.GetSettings(ctx)
	require.NoError(t, err)
	assert.False(t, settings.FocusActiveOnly)
}
