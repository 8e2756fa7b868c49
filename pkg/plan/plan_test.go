package plan

import (
	"testing"

	"github.com/gregtusar/gerchik/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func baseInput(direction models.Direction) Input {
	return Input{
		Symbol:          "FHEUSDT",
		Direction:       direction,
		LevelPrice:      0.16137,
		ATR:             0.02,
		EntryMultiplier: 0.05,
		StopMultiplier:  0.25,
		RiskMultiples:   []float64{1, 2, 3},
		ReferencePrice:  0.162,
	}
}

func TestDeriveLong(t *testing.T) {
	p, err := Derive(baseInput(models.DirectionLong))
	require.NoError(t, err)

	assert.InDelta(t, 0.001, p.EntryBuffer, 1e-12)  // 0.02 * 0.05
	assert.InDelta(t, 0.005, p.StopBuffer, 1e-12)   // 0.02 * 0.25
	assert.InDelta(t, 0.16237, p.EntryPrice, 1e-12) // level + entry buffer
	assert.InDelta(t, 0.15637, p.StopPrice, 1e-12)  // level - stop buffer
	assert.InDelta(t, 0.006, p.RiskDistance, 1e-12)

	require.Len(t, p.Targets, 3)
	assert.Equal(t, 1.0, p.Targets[0].RRMultiple)
	assert.InDelta(t, 0.16837, p.Targets[0].TargetPrice, 1e-12)
	assert.InDelta(t, 0.17437, p.Targets[1].TargetPrice, 1e-12)
	assert.InDelta(t, 0.18037, p.Targets[2].TargetPrice, 1e-12)
}

func TestDeriveShort(t *testing.T) {
	p, err := Derive(baseInput(models.DirectionShort))
	require.NoError(t, err)

	assert.InDelta(t, 0.16037, p.EntryPrice, 1e-12) // level - entry buffer
	assert.InDelta(t, 0.16637, p.StopPrice, 1e-12)  // level + stop buffer
	assert.InDelta(t, 0.006, p.RiskDistance, 1e-12)

	require.Len(t, p.Targets, 3)
	assert.InDelta(t, 0.15437, p.Targets[0].TargetPrice, 1e-12)
}

func TestTriggerStatusLong(t *testing.T) {
	in := Input{
		Direction:       models.DirectionLong,
		LevelPrice:      100,
		ATR:             0,
		EntryMultiplier: 0,
		StopMultiplier:  0.1,
	}

	in.ReferencePrice = 100 // entry == 100
	p, err := Derive(in)
	require.NoError(t, err)
	assert.Equal(t, models.TriggerStatusTriggered, p.TriggerStatus)

	in.ReferencePrice = 99.999
	p, err = Derive(in)
	require.NoError(t, err)
	assert.Equal(t, models.TriggerStatusWaiting, p.TriggerStatus)
}

func TestTriggerStatusShort(t *testing.T) {
	in := Input{
		Direction:       models.DirectionShort,
		LevelPrice:      100,
		ATR:             0,
		EntryMultiplier: 0,
		StopMultiplier:  0.1,
	}

	in.ReferencePrice = 100
	p, err := Derive(in)
	require.NoError(t, err)
	assert.Equal(t, models.TriggerStatusTriggered, p.TriggerStatus)

	in.ReferencePrice = 100.001
	p, err = Derive(in)
	require.NoError(t, err)
	assert.Equal(t, models.TriggerStatusWaiting, p.TriggerStatus)
}

func TestInvalidDirection(t *testing.T) {
	in := baseInput("sideways")
	_, err := Derive(in)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `invalid trade direction "sideways"`)

	assert.Error(t, ValidateDirection(""))
	assert.NoError(t, ValidateDirection(models.DirectionLong))
	assert.NoError(t, ValidateDirection(models.DirectionShort))
}

func TestDegradedFlagCarriedThrough(t *testing.T) {
	in := baseInput(models.DirectionLong)
	in.Degraded = true

	p, err := Derive(in)
	require.NoError(t, err)
	assert.True(t, p.Degraded)
}

func TestNoTargets(t *testing.T) {
	in := baseInput(models.DirectionLong)
	in.RiskMultiples = nil

	p, err := Derive(in)
	require.NoError(t, err)
	assert.Empty(t, p.Targets)
}
