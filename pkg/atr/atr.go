// Package atr computes the Gerchik-style average true range: the mean of
// the middle three of the last five closed daily ranges, with the single
// smallest and single largest range discarded.
package atr

import (
	"fmt"
	"sort"
	"time"

	"github.com/gregtusar/gerchik/pkg/models"
)

// WindowSize is the number of closed daily candles the computation needs.
const WindowSize = 5

// InsufficientDataError reports fewer eligible closed candles than the
// window requires. It halts the computation; nothing retries it.
type InsufficientDataError struct {
	Got int
}

func (e *InsufficientDataError) Error() string {
	return fmt.Sprintf("not enough closed daily candles: got %d, need %d", e.Got, WindowSize)
}

// ClosedWindow filters the klines to candles whose close time is at or
// before now and keeps the chronological tail of WindowSize candles.
func ClosedWindow(klines []models.Kline, now time.Time) []models.Kline {
	closed := make([]models.Kline, 0, len(klines))
	for _, k := range klines {
		if k.Closed(now) {
			closed = append(closed, k)
		}
	}
	if len(closed) > WindowSize {
		closed = closed[len(closed)-WindowSize:]
	}
	return closed
}

// Compute derives the trimmed-mean ATR from raw klines. The still-open
// candle (and any future one) is excluded before windowing.
func Compute(klines []models.Kline, now time.Time) (*models.ATRResult, error) {
	window := ClosedWindow(klines, now)
	if len(window) < WindowSize {
		return nil, &InsufficientDataError{Got: len(window)}
	}

	rows := make([]models.DailyRow, len(window))
	ranges := make([]float64, len(window))
	for i, k := range window {
		dayRange := k.High - k.Low
		rows[i] = models.DailyRow{
			Date:  formatUTCDate(k.OpenTime),
			High:  k.High,
			Low:   k.Low,
			Close: k.Close,
			Range: dayRange,
		}
		ranges[i] = dayRange
	}

	sorted := append([]float64(nil), ranges...)
	sort.Float64s(sorted)

	// Drop exactly one min and one max, average the middle three.
	trimmed := append([]float64(nil), sorted[1:WindowSize-1]...)
	atr := mean(trimmed)

	lastClose := rows[len(rows)-1].Close

	return &models.ATRResult{
		Rows:          rows,
		SortedRanges:  sorted,
		DroppedMin:    sorted[0],
		DroppedMax:    sorted[len(sorted)-1],
		TrimmedRanges: trimmed,
		ATR:           atr,
		ATRPercent:    atr / lastClose * 100,
		LastClose:     lastClose,
	}, nil
}

func mean(values []float64) float64 {
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

func formatUTCDate(ms int64) string {
	return time.UnixMilli(ms).UTC().Format("2006-01-02") + " UTC"
}
