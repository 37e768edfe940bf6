package progress

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClampPercentage(t *testing.T) {
	tests := []struct {
		name string
		in   float64
		want float64
	}{
		{name: "negative", in: -12.5, want: 0},
		{name: "zero", in: 0, want: 0},
		{name: "within", in: 42.5, want: 42.5},
		{name: "hundred", in: 100, want: 100},
		{name: "above", in: 150, want: 100},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, clampPercentage(tt.in))
		})
	}
}
