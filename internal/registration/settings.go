package registration

import (
	"context"
	"errors"
	"strings"

	"registration-bot/internal/airtable"
	"registration-bot/internal/schema"
)

var ErrNoSettingsTable = errors.New("no settings table configured")

// SettingsStore reads and writes the bot settings record. The current event
// year is read from the store on every call; nothing is cached.
type SettingsStore struct {
	records  RecordStore
	registry *schema.Registry
	fallback string
}

func NewSettingsStore(records RecordStore, reg *schema.Registry, fallbackYear string) *SettingsStore {
	return &SettingsStore{records: records, registry: reg, fallback: fallbackYear}
}

// Configured reports whether a settings table with a current-year field exists.
func (s *SettingsStore) Configured() bool {
	_, ok := s.registry.SettingsFieldID(schema.FieldCurrentEventYear)
	return ok
}

// CurrentYear returns the configured event year, or the fallback when the
// settings table is absent or empty.
func (s *SettingsStore) CurrentYear(ctx context.Context) (string, error) {
	table, fieldID, ok := s.location()
	if !ok {
		return s.fallback, nil
	}
	recs, err := s.records.Find(ctx, table, airtable.All, airtable.FindOptions{MaxRecords: 1})
	if err != nil {
		return "", err
	}
	if len(recs) == 0 {
		return s.fallback, nil
	}
	if y := strings.TrimSpace(recs[0].Fields.String(fieldID)); y != "" {
		return y, nil
	}
	return s.fallback, nil
}

// SetCurrentYear patches the settings record, creating it if the table is empty.
func (s *SettingsStore) SetCurrentYear(ctx context.Context, year string) error {
	table, fieldID, ok := s.location()
	if !ok {
		return ErrNoSettingsTable
	}
	recs, err := s.records.Find(ctx, table, airtable.All, airtable.FindOptions{MaxRecords: 1})
	if err != nil {
		return err
	}
	fields := airtable.Fields{fieldID: year}
	if len(recs) == 0 {
		_, err = s.records.Create(ctx, table, fields)
		return err
	}
	_, err = s.records.Update(ctx, table, recs[0].ID, fields)
	return err
}

func (s *SettingsStore) location() (table, fieldID string, ok bool) {
	table, ok = s.registry.SettingsTable()
	if !ok {
		return "", "", false
	}
	fieldID, ok = s.registry.SettingsFieldID(schema.FieldCurrentEventYear)
	return table, fieldID, ok
}
