package timeutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseDurationSeconds(t *testing.T) {
	tests := []struct {
		name  string
		input any
		want  int
	}{
		{"hours minutes seconds", "01:30:00", 5400},
		{"minutes seconds", "10:00", 600},
		{"seconds only", "45", 45},
		{"numeric float", float64(300), 300},
		{"numeric int", 300, 300},
		{"empty string", "", 0},
		{"garbage segment", "bad:input", 0},
		{"partial garbage", "10:xx", 0},
		{"too many segments", "1:2:3:4", 0},
		{"nil", nil, 0},
		{"unsupported type", []string{"10"}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseDurationSeconds(tt.input))
		})
	}
}
