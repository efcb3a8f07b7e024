package ingest

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sharkAndshark/mapflow/internal/spatialstore"
)

func TestNormalizeIdentifier(t *testing.T) {
	cases := map[string]string{
		"Population":  "population",
		"Café Name":   "cafe_name",
		"2020_Census": "2020_census",
		"":            "col",
	}
	for in, want := range cases {
		assert.Equal(t, want, normalizeIdentifier(in), "input %q", in)
	}
}

func TestPlanSchemaDeduplicatesNormalizedNames(t *testing.T) {
	cols := []spatialstore.SourceColumn{
		{Name: "Name", DuckDBType: "VARCHAR"},
		{Name: "name", DuckDBType: "VARCHAR"},
		{Name: "geom", DuckDBType: "GEOMETRY", IsGeometry: true},
		{Name: "Population", DuckDBType: "BIGINT"},
	}

	plan, geomColumn := planSchema(cols)

	assert.Equal(t, "geom", geomColumn)
	assert.Len(t, plan, 3)
	assert.Equal(t, "name", plan[0].Normalized)
	assert.Equal(t, "name_1", plan[1].Normalized)
	assert.Equal(t, "population", plan[2].Normalized)
	assert.Equal(t, "Population", plan[2].Original)
}
