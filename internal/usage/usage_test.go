package usage

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCentsForCall(t *testing.T) {
	cases := []struct {
		name        string
		durationSec int
		rateCents   int64
		want        int64
	}{
		{"exact minute", 60, 10, 10},
		{"partial minute rounds up", 61, 10, 11},
		{"sub minute rounds up to one unit", 5, 10, 1},
		{"zero duration", 0, 10, 0},
		{"zero rate", 120, 0, 0},
		{"two minutes exact", 120, 25, 50},
		{"ninety seconds at odd rate", 90, 7, 11}, // 1.5 * 7 = 10.5 -> 11
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, CentsForCall(tc.durationSec, tc.rateCents))
		})
	}
}
