package utils

import "strings"

// NormalizePlate reduces a recognized plate string to its canonical form:
// uppercase with every non-alphanumeric character removed. The same function
// is used on the write path (worker) and on every query path so that lookups
// never disagree with stored rows.
func NormalizePlate(plate string) string {
	var b strings.Builder
	b.Grow(len(plate))
	for _, r := range strings.ToUpper(plate) {
		if (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	return b.String()
}
