package registration

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"registration-bot/internal/airtable"
	"registration-bot/internal/airtable/airtabletest"
	"registration-bot/internal/apperr"
	"registration-bot/internal/models"
	"registration-bot/internal/schema"
)

func fixture(t *testing.T) (*schema.Registry, *airtabletest.Store) {
	t.Helper()
	reg, err := schema.Default()
	require.NoError(t, err)
	return reg, airtabletest.New()
}

func TestMarkVerified(t *testing.T) {
	reg, store := fixture(t)
	store.Add("tbldFJRElI7v4CfZx", airtable.Record{ID: "rec1", Fields: airtable.Fields{"fldDv8tDT8C7awJds": "ABC123"}})
	o := &models.Outcome{Record: airtable.Record{ID: "rec1"}, Year: "2025", TableID: "tbldFJRElI7v4CfZx"}

	now := time.Date(2025, 3, 1, 18, 30, 0, 0, time.FixedZone("EST", -5*3600))
	_, err := NewRegistrations(store, reg, nil).MarkVerified(context.Background(), o, models.DiscordInfo{
		User:  models.DiscordUser{ID: "42", Username: "jane", Discriminator: "0"},
		Roles: []string{"2025", "2025-Staff"},
	}, now)
	require.NoError(t, err)

	calls := store.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, "update", calls[0].Op)
	assert.Equal(t, airtable.Fields{
		"fldqFpv3Lj3q0TUah": "42",
		"fldY7jTwWJh2aOuiB": "jane",
		"fldBBUv45XOpRABMp": "Verified",
		"fldGzYF2FZ8gZ077E": "2025-03-01T23:30:00Z",
		"flds8vQRgNzAjlWo0": "2025, 2025-Staff",
	}, calls[0].Fields)
}

func TestMarkVerifiedSkipsUndeclaredFields(t *testing.T) {
	reg, err := schema.Parse([]byte(`
years:
  "2025":
    table: tblA
    fields:
      VERIFICATION_CODE: fldCode
      VERIFICATION_STATUS: fldStatus
`))
	require.NoError(t, err)
	store := airtabletest.New()
	store.Add("tblA", airtable.Record{ID: "rec1"})

	o := &models.Outcome{Record: airtable.Record{ID: "rec1"}, Year: "2025", TableID: "tblA"}
	_, err = NewRegistrations(store, reg, nil).MarkVerified(context.Background(), o, models.DiscordInfo{User: models.DiscordUser{ID: "1"}}, time.Now())
	require.NoError(t, err)
	assert.Equal(t, airtable.Fields{"fldStatus": "Verified"}, store.Calls()[0].Fields)
}

func TestMarkVerifiedNoWritableFields(t *testing.T) {
	reg, err := schema.Parse([]byte("years:\n  \"2025\":\n    table: tblA\n    fields: {VERIFICATION_CODE: fldCode}\n"))
	require.NoError(t, err)
	store := airtabletest.New()

	o := &models.Outcome{Record: airtable.Record{ID: "rec1"}, Year: "2025", TableID: "tblA"}
	_, err = NewRegistrations(store, reg, nil).MarkVerified(context.Background(), o, models.DiscordInfo{}, time.Now())
	assert.ErrorIs(t, err, ErrNoWritableFields)
	assert.Empty(t, store.Calls())
}

func TestMarkVerifiedUnsupportedYear(t *testing.T) {
	reg, store := fixture(t)
	o := &models.Outcome{Record: airtable.Record{ID: "rec1"}, Year: "2024", TableID: "tblnJecLF95cyPnbO"}

	_, err := NewRegistrations(store, reg, nil).MarkVerified(context.Background(), o, models.DiscordInfo{}, time.Now())
	assert.True(t, apperr.IsKind(err, apperr.KindPrecondition))
	assert.Empty(t, store.Calls())
}

func TestGenerateCode(t *testing.T) {
	reg, store := fixture(t)
	store.Add("tbldFJRElI7v4CfZx", airtable.Record{ID: "rec1"})
	o := &models.Outcome{Record: airtable.Record{ID: "rec1"}, Year: "2025", TableID: "tbldFJRElI7v4CfZx"}

	code, err := NewRegistrations(store, reg, nil).GenerateCode(context.Background(), o)
	require.NoError(t, err)
	assert.Len(t, code, CodeLength)

	rec, ok := store.Record("tbldFJRElI7v4CfZx", "rec1")
	require.True(t, ok)
	assert.Equal(t, code, rec.Fields.String("fldDv8tDT8C7awJds"))
}

func scripted(codes ...string) func() (string, error) {
	return func() (string, error) {
		code := codes[0]
		if len(codes) > 1 {
			codes = codes[1:]
		}
		return code, nil
	}
}

func TestGenerateCodeRedrawsTakenCode(t *testing.T) {
	reg, store := fixture(t)
	store.Add("tbldFJRElI7v4CfZx", airtable.Record{ID: "rec9", Fields: airtable.Fields{"fldDv8tDT8C7awJds": "TAKEN2"}})
	store.Add("tbldFJRElI7v4CfZx", airtable.Record{ID: "rec1"})
	o := &models.Outcome{Record: airtable.Record{ID: "rec1"}, Year: "2025", TableID: "tbldFJRElI7v4CfZx"}

	regs := NewRegistrations(store, reg, nil)
	regs.newCode = scripted("TAKEN2", "FRESH3")
	code, err := regs.GenerateCode(context.Background(), o)
	require.NoError(t, err)
	assert.Equal(t, "FRESH3", code)

	var finds []airtable.Formula
	for _, c := range store.Calls() {
		if c.Op == "find" {
			finds = append(finds, c.Formula)
		}
	}
	assert.Equal(t, []airtable.Formula{
		airtable.Eq("fldDv8tDT8C7awJds", "TAKEN2"),
		airtable.Eq("fldDv8tDT8C7awJds", "FRESH3"),
	}, finds)
	rec, _ := store.Record("tbldFJRElI7v4CfZx", "rec1")
	assert.Equal(t, "FRESH3", rec.Fields.String("fldDv8tDT8C7awJds"))
	taken, _ := store.Record("tbldFJRElI7v4CfZx", "rec9")
	assert.Equal(t, "TAKEN2", taken.Fields.String("fldDv8tDT8C7awJds"))
}

func TestGenerateCodeGivesUp(t *testing.T) {
	reg, store := fixture(t)
	store.Add("tbldFJRElI7v4CfZx", airtable.Record{ID: "rec9", Fields: airtable.Fields{"fldDv8tDT8C7awJds": "TAKEN2"}})
	store.Add("tbldFJRElI7v4CfZx", airtable.Record{ID: "rec1"})
	o := &models.Outcome{Record: airtable.Record{ID: "rec1"}, Year: "2025", TableID: "tbldFJRElI7v4CfZx"}

	regs := NewRegistrations(store, reg, nil)
	regs.newCode = scripted("TAKEN2")
	_, err := regs.GenerateCode(context.Background(), o)
	assert.ErrorIs(t, err, ErrNoFreeCode)
	for _, c := range store.Calls() {
		assert.NotEqual(t, "update", c.Op)
	}
}

func TestNewCodeAlphabet(t *testing.T) {
	for i := 0; i < 200; i++ {
		code, err := NewCode()
		require.NoError(t, err)
		require.Len(t, code, CodeLength)
		for _, c := range code {
			require.True(t, strings.ContainsRune(CodeAlphabet, c), "unexpected %q in %s", c, code)
		}
	}
}

func TestFieldValue(t *testing.T) {
	reg, _ := fixture(t)
	o := &models.Outcome{
		Year:   "2024",
		Record: airtable.Record{Fields: airtable.Fields{"fld2IKkoWvwzrupML": "Jane Doe", "fldBBUv45XOpRABMp": "Verified"}},
	}
	assert.Equal(t, "Jane Doe", FieldValue(reg, o, schema.FieldNameFull))
	// 2024 declares no status field, so a stray cell with that id is ignored.
	assert.Equal(t, "", FieldValue(reg, o, schema.FieldVerificationStatus))
	assert.Equal(t, "", FieldValue(reg, nil, schema.FieldNameFull))
}
