package ingest

import (
	"fmt"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/sharkAndshark/mapflow/internal/spatialstore"
	"github.com/sharkAndshark/mapflow/pkg/models"
)

var stripDiacritics = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// normalizeIdentifier lowercases a source column name, strips diacritics,
// and replaces every non-alphanumeric rune with `_` (spec §4.3 step 3).
func normalizeIdentifier(name string) string {
	folded, _, err := transform.String(stripDiacritics, name)
	if err != nil {
		folded = name
	}
	folded = strings.ToLower(folded)

	var b strings.Builder
	for _, r := range folded {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		} else {
			b.WriteByte('_')
		}
	}
	out := b.String()
	if out == "" {
		out = "col"
	}
	return out
}

// planSchema enumerates a source file's non-geometry columns into ordered,
// deduplicated, normalized ColumnSchema entries, and returns the geometry
// column's physical name separately (spec §4.3 step 3).
func planSchema(cols []spatialstore.SourceColumn) (plan []models.ColumnSchema, geomColumn string) {
	seen := map[string]int{}
	ordinal := 0
	for _, c := range cols {
		if c.IsGeometry {
			if geomColumn == "" {
				geomColumn = c.Name
			}
			continue
		}
		norm := normalizeIdentifier(c.Name)
		if n := seen[norm]; n > 0 {
			seen[norm] = n + 1
			norm = fmt.Sprintf("%s_%d", norm, n)
		} else {
			seen[norm] = 1
		}
		plan = append(plan, models.ColumnSchema{
			Ordinal:    ordinal,
			Original:   c.Name,
			Normalized: norm,
			Type:       spatialstore.MVTTypeOf(c.DuckDBType),
		})
		ordinal++
	}
	return plan, geomColumn
}
