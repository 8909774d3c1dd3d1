package airtable

import "strings"

// Formula is a filterByFormula predicate over remote field ids.
type Formula string

var quoteEscaper = strings.NewReplacer(`\`, `\\`, `'`, `\'`)

// Quote renders s as a single-quoted formula string literal.
func Quote(s string) string {
	return "'" + quoteEscaper.Replace(s) + "'"
}

func fieldRef(fieldID string) string {
	return "{" + fieldID + "}"
}

// Eq matches records whose field equals value exactly.
func Eq(fieldID, value string) Formula {
	return Formula(fieldRef(fieldID) + " = " + Quote(value))
}

// LowerEq compares the lower-cased field with value. Callers lower-case value.
func LowerEq(fieldID, value string) Formula {
	return Formula("LOWER(" + fieldRef(fieldID) + ") = " + Quote(value))
}

// All matches every record.
const All Formula = "TRUE()"
