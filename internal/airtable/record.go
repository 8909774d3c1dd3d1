package airtable

import (
	"fmt"
	"strconv"
	"strings"
)

// Fields is keyed by remote field id.
type Fields map[string]any

type Record struct {
	ID          string `json:"id"`
	CreatedTime string `json:"createdTime,omitempty"`
	Fields      Fields `json:"fields"`
}

// String renders a cell as text. Multi-value cells are joined with ", ".
// Missing and empty cells both yield "".
func (f Fields) String(fieldID string) string {
	v, ok := f[fieldID]
	if !ok || v == nil {
		return ""
	}
	switch t := v.(type) {
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	case []any:
		parts := make([]string, 0, len(t))
		for _, p := range t {
			parts = append(parts, fmt.Sprint(p))
		}
		return strings.Join(parts, ", ")
	default:
		return fmt.Sprint(t)
	}
}
