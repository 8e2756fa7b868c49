// Package plan derives an entry/stop/target trade plan from a key price
// level and the Gerchik ATR.
package plan

import (
	"fmt"
	"math"

	"github.com/gregtusar/gerchik/pkg/models"
)

// Input carries everything the derivation needs. ReferencePrice is the mark
// price when one was fetched; Degraded marks that the last daily close had
// to stand in for it.
type Input struct {
	Symbol          string
	Direction       models.Direction
	LevelPrice      float64
	ATR             float64
	EntryMultiplier float64
	StopMultiplier  float64
	RiskMultiples   []float64
	ReferencePrice  float64
	Degraded        bool
}

// ValidateDirection rejects anything but long/short. An invalid direction
// is a configuration error and is raised before any network fetch.
func ValidateDirection(d models.Direction) error {
	switch d {
	case models.DirectionLong, models.DirectionShort:
		return nil
	default:
		return fmt.Errorf("invalid trade direction %q: use %q or %q", d, models.DirectionLong, models.DirectionShort)
	}
}

// Derive builds the plan. Long entries sit above the level by an ATR
// fraction with the stop below it; short entries mirror that. Targets are
// multiples of the entry-to-stop distance.
func Derive(in Input) (*models.TradePlan, error) {
	if err := ValidateDirection(in.Direction); err != nil {
		return nil, err
	}

	entryBuffer := in.ATR * in.EntryMultiplier
	stopBuffer := in.ATR * in.StopMultiplier

	var entry, stop float64
	if in.Direction == models.DirectionLong {
		entry = in.LevelPrice + entryBuffer
		stop = in.LevelPrice - stopBuffer
	} else {
		entry = in.LevelPrice - entryBuffer
		stop = in.LevelPrice + stopBuffer
	}

	risk := math.Abs(entry - stop)

	status := models.TriggerStatusWaiting
	if in.Direction == models.DirectionLong && in.ReferencePrice >= entry {
		status = models.TriggerStatusTriggered
	}
	if in.Direction == models.DirectionShort && in.ReferencePrice <= entry {
		status = models.TriggerStatusTriggered
	}

	targets := make([]models.Target, 0, len(in.RiskMultiples))
	for _, multiple := range in.RiskMultiples {
		price := entry + risk*multiple
		if in.Direction == models.DirectionShort {
			price = entry - risk*multiple
		}
		targets = append(targets, models.Target{RRMultiple: multiple, TargetPrice: price})
	}

	return &models.TradePlan{
		Symbol:         in.Symbol,
		Direction:      in.Direction,
		LevelPrice:     in.LevelPrice,
		ATR:            in.ATR,
		EntryBuffer:    entryBuffer,
		StopBuffer:     stopBuffer,
		EntryPrice:     entry,
		StopPrice:      stop,
		RiskDistance:   risk,
		ReferencePrice: in.ReferencePrice,
		Degraded:       in.Degraded,
		TriggerStatus:  status,
		Targets:        targets,
	}, nil
}
