package registration

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"registration-bot/internal/airtable"
	"registration-bot/internal/airtable/airtabletest"
	"registration-bot/internal/schema"
)

func TestCurrentYearFallbacks(t *testing.T) {
	reg, err := schema.Parse([]byte(fixtureSchema))
	require.NoError(t, err)
	ctx := context.Background()

	t.Run("empty table", func(t *testing.T) {
		s := NewSettingsStore(airtabletest.New(), reg, "2025")
		y, err := s.CurrentYear(ctx)
		require.NoError(t, err)
		assert.Equal(t, "2025", y)
	})

	t.Run("blank field", func(t *testing.T) {
		store := airtabletest.New()
		store.Add("tblSettings", airtable.Record{ID: "recS", Fields: airtable.Fields{"fldCurrent": "  "}})
		y, err := NewSettingsStore(store, reg, "2025").CurrentYear(ctx)
		require.NoError(t, err)
		assert.Equal(t, "2025", y)
	})

	t.Run("no settings table", func(t *testing.T) {
		noSettings, err := schema.Parse([]byte("years:\n  \"2025\":\n    table: tblA\n"))
		require.NoError(t, err)
		store := airtabletest.New()
		s := NewSettingsStore(store, noSettings, "2025")

		assert.False(t, s.Configured())
		y, err := s.CurrentYear(ctx)
		require.NoError(t, err)
		assert.Equal(t, "2025", y)
		assert.Empty(t, store.Calls())
		assert.ErrorIs(t, s.SetCurrentYear(ctx, "2026"), ErrNoSettingsTable)
	})

	t.Run("remote error", func(t *testing.T) {
		store := airtabletest.New()
		boom := errors.New("boom")
		store.FailOn("find", "tblSettings", boom)
		_, err := NewSettingsStore(store, reg, "2025").CurrentYear(ctx)
		assert.ErrorIs(t, err, boom)
	})
}

func TestSetCurrentYear(t *testing.T) {
	reg, err := schema.Parse([]byte(fixtureSchema))
	require.NoError(t, err)
	ctx := context.Background()

	t.Run("updates existing record", func(t *testing.T) {
		store := airtabletest.New()
		store.Add("tblSettings", airtable.Record{ID: "recS", Fields: airtable.Fields{"fldCurrent": "2025"}})
		s := NewSettingsStore(store, reg, "2025")

		require.NoError(t, s.SetCurrentYear(ctx, "2026"))
		y, err := s.CurrentYear(ctx)
		require.NoError(t, err)
		assert.Equal(t, "2026", y)
	})

	t.Run("creates record in empty table", func(t *testing.T) {
		store := airtabletest.New()
		s := NewSettingsStore(store, reg, "2025")

		require.NoError(t, s.SetCurrentYear(ctx, "2026"))
		calls := store.Calls()
		require.Len(t, calls, 2)
		assert.Equal(t, "create", calls[1].Op)
		assert.Equal(t, airtable.Fields{"fldCurrent": "2026"}, calls[1].Fields)
	})
}
