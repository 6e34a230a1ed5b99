package progress

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPercentage(t *testing.T) {
	tests := []struct {
		name      string
		completed float64
		required  int
		want      int
	}{
		{"zero", 0, 600, 0},
		{"rounds down", 103, 400, 25}, // 25.75
		{"exact", 300, 600, 50},
		{"full", 400, 400, 100},
		{"over-logged caps at 100", 453, 400, 100},
		{"fractional hours", 0.5, 600, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, percentage(tt.completed, tt.required))
		})
	}
}
