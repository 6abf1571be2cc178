package repository

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClampInt32(t *testing.T) {
	assert.Equal(t, int32(1965), clampInt32(1965))
	assert.Equal(t, int32(-3000), clampInt32(-3000))
	assert.Equal(t, int32(math.MaxInt32), clampInt32(math.MaxInt32+1))
	assert.Equal(t, int32(math.MinInt32), clampInt32(math.MinInt32-1))
}
