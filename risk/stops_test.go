package risk

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestVolatilityStopLevels(t *testing.T) {
	t.Parallel()

	v := VolatilityStop{Multiplier: 2, RewardRatio: 2}

	stop, tp := v.Levels(100, 1.5, Long)
	assert.InDelta(t, 97.0, stop, 1e-12)
	assert.InDelta(t, 106.0, tp, 1e-12)

	stop, tp = v.Levels(100, 1.5, Short)
	assert.InDelta(t, 103.0, stop, 1e-12)
	assert.InDelta(t, 94.0, tp, 1e-12)
}

func TestVolatilityStopSize(t *testing.T) {
	t.Parallel()

	v := VolatilityStop{Multiplier: 2, RewardRatio: 3}

	shares, stop, risk := v.Size(50, 1.25, Long, 10000, 0.01)
	assert.InDelta(t, 47.5, stop, 1e-12)
	assert.Equal(t, 40, shares)
	assert.InDelta(t, 100.0, risk, 1e-9)

	shares, _, _ = v.Size(50, 1.25, Short, 10000, 0.01)
	assert.Equal(t, 40, shares)
}

func TestVolatilityStopFailsClosed(t *testing.T) {
	t.Parallel()

	v := VolatilityStop{Multiplier: 2, RewardRatio: 2}

	shares, _, risk := v.Size(50, 0, Long, 10000, 0.01)
	assert.Zero(t, shares)
	assert.Zero(t, risk)

	neg := VolatilityStop{Multiplier: -1, RewardRatio: 2}
	shares, _, _ = neg.Size(50, 1, Long, 10000, 0.01)
	assert.Zero(t, shares)
}
