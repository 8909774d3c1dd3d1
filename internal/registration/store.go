package registration

import (
	"context"

	"registration-bot/internal/airtable"
	"registration-bot/internal/models"
	"registration-bot/internal/schema"
)

// RecordStore is the slice of the tabular store this package needs.
// *airtable.Client satisfies it.
type RecordStore interface {
	Find(ctx context.Context, table string, formula airtable.Formula, opts airtable.FindOptions) ([]airtable.Record, error)
	Update(ctx context.Context, table, recordID string, fields airtable.Fields) (*airtable.Record, error)
	Create(ctx context.Context, table string, fields airtable.Fields) (*airtable.Record, error)
}

// FieldValue reads a logical field of a resolved record. It returns "" when
// the year does not declare the field or the cell is empty.
func FieldValue(reg *schema.Registry, o *models.Outcome, f schema.Field) string {
	if o == nil {
		return ""
	}
	id, ok := reg.FieldID(o.Year, f)
	if !ok {
		return ""
	}
	return o.Record.Fields.String(id)
}
