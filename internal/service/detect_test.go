package service

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"price_tracker/internal/domain"
)

// Policy under test: only confirmed price changes produce history
// rows (compact history), and the alert trigger is evaluated solely
// for changed prices.

func TestDetectChange(t *testing.T) {
	tests := []struct {
		name      string
		lastKnown int64
		snap      *domain.Snapshot
		want      changeOutcome
	}{
		{"price dropped", 35000, &domain.Snapshot{CurrentPrice: 28000}, changeChanged},
		{"price rose", 28000, &domain.Snapshot{CurrentPrice: 30000}, changeChanged},
		{"same price", 28000, &domain.Snapshot{CurrentPrice: 28000}, changeUnchanged},
		{"zero price rejected", 28000, &domain.Snapshot{CurrentPrice: 0}, changeRejected},
		{"negative price rejected", 28000, &domain.Snapshot{CurrentPrice: -1}, changeRejected},
		{"nil snapshot rejected", 28000, nil, changeRejected},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, detectChange(tt.lastKnown, tt.snap))
		})
	}
}

func TestShouldAlert(t *testing.T) {
	threshold := int64(30000)

	assert.False(t, shouldAlert(nil, 100))
	assert.True(t, shouldAlert(&threshold, 28000))
	assert.True(t, shouldAlert(&threshold, 30000), "at threshold fires")
	assert.False(t, shouldAlert(&threshold, 30001))
}
