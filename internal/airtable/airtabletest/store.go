// Package airtabletest provides an in-memory stand-in for the tabular store.
package airtabletest

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"sync"

	"registration-bot/internal/airtable"
)

// Call records one operation against the store.
type Call struct {
	Op       string
	Table    string
	Formula  airtable.Formula
	RecordID string
	Fields   airtable.Fields
}

// Store understands the formulas built by airtable.Eq, airtable.LowerEq and
// airtable.All. Any other formula fails the call.
type Store struct {
	mu     sync.Mutex
	tables map[string][]airtable.Record
	calls  []Call
	errs   map[string]error
	nextID int
}

func New() *Store {
	return &Store{tables: map[string][]airtable.Record{}, errs: map[string]error{}}
}

func (s *Store) Add(table string, rec airtable.Record) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if rec.Fields == nil {
		rec.Fields = airtable.Fields{}
	}
	s.tables[table] = append(s.tables[table], rec)
}

// FailOn makes every op ("find", "update", "create") on table return err.
func (s *Store) FailOn(op, table string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.errs[op+" "+table] = err
}

func (s *Store) Calls() []Call {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Call(nil), s.calls...)
}

// FindTables returns the tables hit by find calls, in order.
func (s *Store) FindTables() []string {
	var out []string
	for _, c := range s.Calls() {
		if c.Op == "find" {
			out = append(out, c.Table)
		}
	}
	return out
}

func (s *Store) Record(table, id string) (airtable.Record, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.tables[table] {
		if r.ID == id {
			return r, true
		}
	}
	return airtable.Record{}, false
}

var (
	eqPattern      = regexp.MustCompile(`^\{(\w+)\} = '(.*)'$`)
	lowerEqPattern = regexp.MustCompile(`^LOWER\(\{(\w+)\}\) = '(.*)'$`)
	unquoter       = strings.NewReplacer(`\\`, `\`, `\'`, `'`)
)

func (s *Store) Find(_ context.Context, table string, formula airtable.Formula, opts airtable.FindOptions) ([]airtable.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, Call{Op: "find", Table: table, Formula: formula})
	if err := s.errs["find "+table]; err != nil {
		return nil, err
	}

	match, err := matcher(formula)
	if err != nil {
		return nil, err
	}
	limit := opts.MaxRecords
	if limit <= 0 {
		limit = 1
	}
	var out []airtable.Record
	for _, r := range s.tables[table] {
		if match(r) {
			out = append(out, r)
			if len(out) == limit {
				break
			}
		}
	}
	return out, nil
}

func matcher(formula airtable.Formula) (func(airtable.Record) bool, error) {
	f := string(formula)
	if formula == airtable.All {
		return func(airtable.Record) bool { return true }, nil
	}
	if m := lowerEqPattern.FindStringSubmatch(f); m != nil {
		want := unquoter.Replace(m[2])
		return func(r airtable.Record) bool { return strings.ToLower(r.Fields.String(m[1])) == want }, nil
	}
	if m := eqPattern.FindStringSubmatch(f); m != nil {
		want := unquoter.Replace(m[2])
		return func(r airtable.Record) bool { return r.Fields.String(m[1]) == want }, nil
	}
	return nil, fmt.Errorf("airtabletest: unsupported formula %q", f)
}

func (s *Store) Update(_ context.Context, table, recordID string, fields airtable.Fields) (*airtable.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, Call{Op: "update", Table: table, RecordID: recordID, Fields: fields})
	if err := s.errs["update "+table]; err != nil {
		return nil, err
	}
	for i, r := range s.tables[table] {
		if r.ID != recordID {
			continue
		}
		for k, v := range fields {
			r.Fields[k] = v
		}
		s.tables[table][i] = r
		out := r
		return &out, nil
	}
	return nil, fmt.Errorf("airtabletest: record %s not found in %s", recordID, table)
}

func (s *Store) Create(_ context.Context, table string, fields airtable.Fields) (*airtable.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, Call{Op: "create", Table: table, Fields: fields})
	if err := s.errs["create "+table]; err != nil {
		return nil, err
	}
	s.nextID++
	rec := airtable.Record{ID: fmt.Sprintf("recNew%d", s.nextID), Fields: airtable.Fields{}}
	for k, v := range fields {
		rec.Fields[k] = v
	}
	s.tables[table] = append(s.tables[table], rec)
	out := rec
	return &out, nil
}
