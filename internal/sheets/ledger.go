package sheets

import (
	"context"
	"fmt"
	"strings"
	"time"

	sheetsv4 "google.golang.org/api/sheets/v4"

	"registration-bot/internal/audit"
)

const (
	SheetVerifications = "Verifications"
	SheetYearChanges   = "Year_Changes"
)

func (c *Client) readAll(ctx context.Context, sheet string) ([][]interface{}, error) {
	resp, err := c.srv.Spreadsheets.Values.Get(c.spreadsheetID, sheet+"!A:Z").Context(ctx).Do()
	if err != nil {
		return nil, err
	}
	return resp.Values, nil
}

func (c *Client) appendRow(ctx context.Context, sheet string, row []interface{}) error {
	vr := &sheetsv4.ValueRange{Values: [][]interface{}{row}}
	_, err := c.srv.Spreadsheets.Values.Append(c.spreadsheetID, sheet+"!A:Z", vr).
		ValueInputOption("RAW").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).
		Do()
	return err
}

// ---------- audit sink ----------

// Ledger appends every audit entry as a spreadsheet row.
type Ledger struct {
	c *Client
}

func NewLedger(c *Client) *Ledger { return &Ledger{c: c} }

func (l *Ledger) Name() string { return "sheets" }

func (l *Ledger) SpreadsheetID() string { return l.c.SpreadsheetID() }

func (l *Ledger) Send(ctx context.Context, e audit.Entry) error {
	at := e.At.UTC().Format(time.RFC3339)
	var err error
	if e.Kind == audit.KindVerification {
		err = l.c.appendRow(ctx, SheetVerifications, []interface{}{
			e.ID, at, e.Year, e.User.ID, e.User.Tag(), e.RegistrationName, strings.Join(e.Roles, ", "),
		})
	} else {
		status := "ok"
		if e.Failed {
			status = "failed"
		}
		err = l.c.appendRow(ctx, SheetYearChanges, []interface{}{
			e.ID, at, string(e.Kind), e.Year, e.User.ID, status, e.Summary,
		})
	}
	if err != nil {
		return fmt.Errorf("append %s row: %w", e.Kind, err)
	}
	return nil
}

// Count returns the number of verification rows below the header. The
// check-access command uses it to prove the sheet is reachable.
func (l *Ledger) Count(ctx context.Context) (int, error) {
	values, err := l.c.readAll(ctx, SheetVerifications)
	if err != nil {
		return 0, fmt.Errorf("read %s: %w", SheetVerifications, err)
	}
	n := 0
	// header row at index 0
	for i := 1; i < len(values); i++ {
		if len(values[i]) > 0 {
			n++
		}
	}
	return n, nil
}
