package tiles

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateCoordinate(t *testing.T) {
	assert.NoError(t, ValidateCoordinate(0, 0, 0))
	assert.NoError(t, ValidateCoordinate(3, 7, 7))
	assert.Error(t, ValidateCoordinate(-1, 0, 0))
	assert.Error(t, ValidateCoordinate(23, 0, 0))
	assert.Error(t, ValidateCoordinate(3, 8, 0))
	assert.Error(t, ValidateCoordinate(3, 0, 8))
}
