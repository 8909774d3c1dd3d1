package schema

import "sort"

// YearSchema maps the logical fields of one year's registration table to
// remote field ids.
type YearSchema struct {
	Year    string
	TableID string
	Fields  map[Field]string
	// DisableVerification opts a year out even when it declares a code field.
	DisableVerification bool
}

// SettingsSchema describes the bot settings table. TableID is empty when the
// deployment keeps no settings table.
type SettingsSchema struct {
	TableID string
	Fields  map[Field]string
}

// Registry is the per-year schema table. It is built once at startup and
// never mutated, so it is safe for concurrent use.
type Registry struct {
	years    map[string]YearSchema
	order    []string
	byTable  map[string]string
	settings SettingsSchema
}

func NewRegistry(years []YearSchema, settings SettingsSchema) *Registry {
	r := &Registry{
		years:   make(map[string]YearSchema, len(years)),
		byTable: make(map[string]string, len(years)),
		settings: SettingsSchema{
			TableID: settings.TableID,
			Fields:  copyFields(settings.Fields),
		},
	}
	for _, y := range years {
		y.Fields = copyFields(y.Fields)
		r.years[y.Year] = y
		r.byTable[y.TableID] = y.Year
		r.order = append(r.order, y.Year)
	}
	// newest first
	sort.Slice(r.order, func(i, j int) bool { return r.order[i] > r.order[j] })
	return r
}

func copyFields(in map[Field]string) map[Field]string {
	out := make(map[Field]string, len(in))
	for k, v := range in {
		if v != "" {
			out[k] = v
		}
	}
	return out
}

func (r *Registry) FieldID(year string, f Field) (string, bool) {
	y, ok := r.years[year]
	if !ok {
		return "", false
	}
	id, ok := y.Fields[f]
	return id, ok
}

func (r *Registry) FieldExists(year string, f Field) bool {
	_, ok := r.FieldID(year, f)
	return ok
}

func (r *Registry) TableID(year string) (string, bool) {
	y, ok := r.years[year]
	if !ok {
		return "", false
	}
	return y.TableID, true
}

func (r *Registry) Year(tableID string) (string, bool) {
	y, ok := r.byTable[tableID]
	return y, ok
}

// Years returns every configured year, newest first.
func (r *Registry) Years() []string {
	return append([]string(nil), r.order...)
}

// YearsWithField returns the years declaring f, in registry order.
func (r *Registry) YearsWithField(f Field) []string {
	var out []string
	for _, y := range r.order {
		if r.FieldExists(y, f) {
			out = append(out, y)
		}
	}
	return out
}

func (r *Registry) SupportsVerification(year string) bool {
	y, ok := r.years[year]
	if !ok || y.DisableVerification {
		return false
	}
	_, ok = y.Fields[FieldVerificationCode]
	return ok
}

func (r *Registry) VerificationYears() []string {
	var out []string
	for _, y := range r.order {
		if r.SupportsVerification(y) {
			out = append(out, y)
		}
	}
	return out
}

// SettingsTable returns the settings table id, if one is configured.
func (r *Registry) SettingsTable() (string, bool) {
	return r.settings.TableID, r.settings.TableID != ""
}

func (r *Registry) SettingsFieldID(f Field) (string, bool) {
	if r.settings.TableID == "" {
		return "", false
	}
	id, ok := r.settings.Fields[f]
	return id, ok
}
