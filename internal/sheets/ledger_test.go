package sheets

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/option"

	"registration-bot/internal/audit"
	"registration-bot/internal/models"
)

type fakeSheets struct {
	mu    sync.Mutex
	paths []string
	rows  [][]interface{}
}

func (f *fakeSheets) handler(t *testing.T) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		f.paths = append(f.paths, r.Method+" "+r.URL.Path)
		w.Header().Set("Content-Type", "application/json")

		if strings.HasSuffix(r.URL.Path, ":append") {
			var body struct {
				Values [][]interface{} `json:"values"`
			}
			assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			f.rows = append(f.rows, body.Values...)
			_, _ = w.Write([]byte(`{"spreadsheetId":"sheet1"}`))
			return
		}
		_, _ = w.Write([]byte(`{"range":"Verifications!A1:Z3","values":[["id","at"],["e1","x"],[],["e2","y"]]}`))
	})
}

func newTestLedger(t *testing.T, h http.Handler) *Ledger {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	c, err := NewWithOptions(context.Background(), "sheet1",
		option.WithEndpoint(srv.URL+"/"),
		option.WithoutAuthentication(),
	)
	require.NoError(t, err)
	return NewLedger(c)
}

func TestLedgerAppendsVerification(t *testing.T) {
	f := &fakeSheets{}
	l := newTestLedger(t, f.handler(t))

	err := l.Send(context.Background(), audit.Entry{
		ID:               "e1",
		Kind:             audit.KindVerification,
		At:               time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC),
		Year:             "2025",
		User:             models.DiscordUser{ID: "42", Username: "jane", Discriminator: "0"},
		RegistrationName: "Jane Doe",
		Roles:            []string{"2025", "2025-Staff"},
	})
	require.NoError(t, err)

	f.mu.Lock()
	defer f.mu.Unlock()
	require.Len(t, f.paths, 1)
	assert.Contains(t, f.paths[0], "/spreadsheets/sheet1/values/Verifications")
	assert.Equal(t, [][]interface{}{{"e1", "2025-03-01T12:00:00Z", "2025", "42", "jane", "Jane Doe", "2025, 2025-Staff"}}, f.rows)
}

func TestLedgerAppendsYearChange(t *testing.T) {
	f := &fakeSheets{}
	l := newTestLedger(t, f.handler(t))

	require.NoError(t, l.Send(context.Background(), audit.Entry{
		ID: "e2", Kind: audit.KindYearCreated, Year: "2026", Failed: true, Summary: "channels failed",
		User: models.DiscordUser{ID: "7"},
	}))

	f.mu.Lock()
	defer f.mu.Unlock()
	assert.Contains(t, f.paths[0], SheetYearChanges)
	require.Len(t, f.rows, 1)
	assert.Equal(t, "year_created", f.rows[0][2])
	assert.Equal(t, "failed", f.rows[0][5])
}

func TestLedgerCount(t *testing.T) {
	f := &fakeSheets{}
	n, err := newTestLedger(t, f.handler(t)).Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestLedgerRemoteError(t *testing.T) {
	l := newTestLedger(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":{"code":403,"message":"denied"}}`, http.StatusForbidden)
	}))
	err := l.Send(context.Background(), audit.Entry{Kind: audit.KindVerification})
	assert.ErrorContains(t, err, "append verification row")
}

func TestNewRequiresSpreadsheet(t *testing.T) {
	_, err := NewWithOptions(context.Background(), "", option.WithoutAuthentication())
	assert.Error(t, err)

	_, err = New(context.Background(), "/does/not/exist.json", "sheet1")
	assert.ErrorContains(t, err, "service account json")
}
