package registration

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"registration-bot/internal/airtable"
	"registration-bot/internal/models"
	"registration-bot/internal/schema"
)

// CurrentYearSource yields the active event year. *SettingsStore implements it.
type CurrentYearSource interface {
	CurrentYear(ctx context.Context) (string, error)
}

// Resolver finds the year and record owning a registration.
//
// Every lookup probes the current year first and then every other eligible
// year in registry order, skipping the current year. The first match wins;
// matches in several years are never aggregated.
type Resolver struct {
	records  RecordStore
	registry *schema.Registry
	current  CurrentYearSource
	logger   *slog.Logger
}

type ResolverOption func(*Resolver)

func WithLogger(l *slog.Logger) ResolverOption {
	return func(r *Resolver) { r.logger = l }
}

func NewResolver(records RecordStore, reg *schema.Registry, current CurrentYearSource, opts ...ResolverOption) *Resolver {
	r := &Resolver{records: records, registry: reg, current: current, logger: slog.Default()}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// ByCode searches verification years only. A year lacking the code field is
// not searched at all.
func (r *Resolver) ByCode(ctx context.Context, code string) (*models.Outcome, error) {
	code = strings.TrimSpace(code)
	return r.search(ctx, schema.FieldVerificationCode, r.verificationYears(schema.FieldVerificationCode), func(fieldID string) airtable.Formula {
		return airtable.Eq(fieldID, code)
	})
}

// ByEmail matches case-insensitively across every year that has an email
// field, including years without verification.
func (r *Resolver) ByEmail(ctx context.Context, email string) (*models.Outcome, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	return r.search(ctx, schema.FieldEmail, r.registry.YearsWithField(schema.FieldEmail), func(fieldID string) airtable.Formula {
		return airtable.LowerEq(fieldID, email)
	})
}

// ByDiscordID searches verification years that record the Discord user id.
func (r *Resolver) ByDiscordID(ctx context.Context, discordID string) (*models.Outcome, error) {
	return r.search(ctx, schema.FieldDiscordUserID, r.verificationYears(schema.FieldDiscordUserID), func(fieldID string) airtable.Formula {
		return airtable.Eq(fieldID, discordID)
	})
}

func (r *Resolver) verificationYears(f schema.Field) []string {
	var out []string
	for _, y := range r.registry.VerificationYears() {
		if r.registry.FieldExists(y, f) {
			out = append(out, y)
		}
	}
	return out
}

func (r *Resolver) search(ctx context.Context, f schema.Field, eligible []string, formula func(fieldID string) airtable.Formula) (*models.Outcome, error) {
	current, err := r.current.CurrentYear(ctx)
	if err != nil {
		return nil, fmt.Errorf("current year: %w", err)
	}

	order := make([]string, 0, len(eligible))
	for _, y := range eligible {
		if y == current {
			order = append(order, y)
			break
		}
	}
	for _, y := range eligible {
		if y != current {
			order = append(order, y)
		}
	}

	for _, year := range order {
		out, err := r.probe(ctx, year, f, formula)
		if err != nil {
			return nil, err
		}
		if out != nil {
			return out, nil
		}
	}
	return nil, nil
}

func (r *Resolver) probe(ctx context.Context, year string, f schema.Field, formula func(string) airtable.Formula) (*models.Outcome, error) {
	table, ok := r.registry.TableID(year)
	if !ok {
		return nil, nil
	}
	fieldID, ok := r.registry.FieldID(year, f)
	if !ok {
		r.logger.Warn("field not declared for year", "field", f.String(), "year", year)
		return nil, nil
	}
	recs, err := r.records.Find(ctx, table, formula(fieldID), airtable.FindOptions{MaxRecords: 1})
	if err != nil {
		return nil, fmt.Errorf("find %s in %s: %w", f, year, err)
	}
	if len(recs) == 0 {
		return nil, nil
	}
	r.logger.Debug("registration resolved", "field", f.String(), "year", year, "record", recs[0].ID)
	return &models.Outcome{Record: recs[0], Year: year, TableID: table}, nil
}
