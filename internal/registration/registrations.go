package registration

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"strings"
	"time"

	"registration-bot/internal/airtable"
	"registration-bot/internal/apperr"
	"registration-bot/internal/models"
	"registration-bot/internal/schema"
)

const (
	CodeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
	CodeLength   = 6

	// codeAttempts bounds redraws when a drawn code is already taken.
	codeAttempts = 5
)

var (
	ErrNoWritableFields = errors.New("no writable fields for year")
	ErrNoFreeCode       = errors.New("no unused verification code")
)

// Registrations writes to registration records, translating logical field
// names per year. Fields a year does not declare are skipped.
type Registrations struct {
	records  RecordStore
	registry *schema.Registry
	logger   *slog.Logger
	newCode  func() (string, error)
}

func NewRegistrations(records RecordStore, reg *schema.Registry, logger *slog.Logger) *Registrations {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registrations{records: records, registry: reg, logger: logger, newCode: NewCode}
}

// MarkVerified stores the Discord identity, status, timestamp and roles on a
// registration.
func (r *Registrations) MarkVerified(ctx context.Context, o *models.Outcome, info models.DiscordInfo, now time.Time) (*airtable.Record, error) {
	if !r.registry.SupportsVerification(o.Year) {
		return nil, apperr.Precondition("verification is not supported for year %s", o.Year)
	}
	return r.update(ctx, o, map[schema.Field]any{
		schema.FieldDiscordUserID:      info.User.ID,
		schema.FieldDiscordUsername:    info.User.Tag(),
		schema.FieldVerificationStatus: schema.StatusVerified,
		schema.FieldVerificationDate:   now.UTC().Format(time.RFC3339),
		schema.FieldDiscordRoles:       strings.Join(info.Roles, ", "),
	})
}

// GenerateCode writes a fresh verification code to the record and returns it.
// Codes already present in the year's table are redrawn.
func (r *Registrations) GenerateCode(ctx context.Context, o *models.Outcome) (string, error) {
	if !r.registry.SupportsVerification(o.Year) {
		return "", apperr.Precondition("verification is not supported for year %s", o.Year)
	}
	code, err := r.unusedCode(ctx, o)
	if err != nil {
		return "", err
	}
	if _, err := r.update(ctx, o, map[schema.Field]any{schema.FieldVerificationCode: code}); err != nil {
		return "", err
	}
	return code, nil
}

func (r *Registrations) unusedCode(ctx context.Context, o *models.Outcome) (string, error) {
	fieldID, ok := r.registry.FieldID(o.Year, schema.FieldVerificationCode)
	for i := 0; i < codeAttempts; i++ {
		code, err := r.newCode()
		if err != nil {
			return "", err
		}
		if !ok {
			return code, nil
		}
		taken, err := r.records.Find(ctx, o.TableID, airtable.Eq(fieldID, code), airtable.FindOptions{MaxRecords: 1})
		if err != nil {
			return "", fmt.Errorf("check code in %s: %w", o.Year, err)
		}
		if len(taken) == 0 {
			return code, nil
		}
		r.logger.Warn("verification code already in use, redrawing", "year", o.Year, "attempt", i+1)
	}
	return "", fmt.Errorf("%w in %s after %d attempts", ErrNoFreeCode, o.Year, codeAttempts)
}

func (r *Registrations) update(ctx context.Context, o *models.Outcome, values map[schema.Field]any) (*airtable.Record, error) {
	fields := airtable.Fields{}
	for f, v := range values {
		id, ok := r.registry.FieldID(o.Year, f)
		if !ok {
			r.logger.Warn("skipping field not declared for year", "field", f.String(), "year", o.Year)
			continue
		}
		fields[id] = v
	}
	if len(fields) == 0 {
		return nil, fmt.Errorf("%w %s", ErrNoWritableFields, o.Year)
	}
	rec, err := r.records.Update(ctx, o.TableID, o.Record.ID, fields)
	if err != nil {
		return nil, fmt.Errorf("update %s in %s: %w", o.Record.ID, o.Year, err)
	}
	return rec, nil
}

// NewCode draws a code from CodeAlphabet, which leaves out look-alike
// characters (I, O, 0, 1).
func NewCode() (string, error) {
	var b strings.Builder
	limit := big.NewInt(int64(len(CodeAlphabet)))
	for i := 0; i < CodeLength; i++ {
		n, err := rand.Int(rand.Reader, limit)
		if err != nil {
			return "", fmt.Errorf("generate code: %w", err)
		}
		b.WriteByte(CodeAlphabet[n.Int64()])
	}
	return b.String(), nil
}
