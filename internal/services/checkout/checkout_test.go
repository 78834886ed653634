package checkout

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMinorUnits(t *testing.T) {
	tests := []struct {
		price float64
		want  int64
	}{
		{500, 50000},
		{500.00, 50000},
		{123.45, 12345},
		{0.5, 50},
		{0, 0},
		{19.99, 1999},
		// Binary float noise must not shave a unit off.
		{29.03, 2903},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, MinorUnits(tt.price), "price %v", tt.price)
	}
}

func TestMajorUnits(t *testing.T) {
	assert.Equal(t, "500", MajorUnits(50000, "INR"))
	assert.Equal(t, "123.45", MajorUnits(12345, "INR"))
	assert.Equal(t, "0.5", MajorUnits(50, "INR"))
	assert.Equal(t, "0", MajorUnits(0, "INR"))
}
