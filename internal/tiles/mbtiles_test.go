package tiles

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sharkAndshark/mapflow/pkg/models"
)

func TestParseBounds(t *testing.T) {
	b, ok := parseBounds("-122.5,37.2,-121.8,37.9")
	assert.True(t, ok)
	assert.Equal(t, models.Bounds{-122.5, 37.2, -121.8, 37.9}, b)
}

func TestParseBoundsInvalid(t *testing.T) {
	_, ok := parseBounds("not-bounds")
	assert.False(t, ok)
}
