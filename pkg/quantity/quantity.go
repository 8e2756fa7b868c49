// Package quantity normalizes order quantities against a symbol's LOT_SIZE
// filter and resolves deferred quantity specifications (fixed USDT amount,
// percent of balance) into concrete numbers at submission time.
package quantity

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/gregtusar/gerchik/pkg/models"
)

// minNotionalUSDT is the exchange's minimum order value on USDⓈ-M futures.
const minNotionalUSDT = 5.0

// DecimalsCount derives quantity precision from a step size's textual form:
// the count of digits after the decimal point, zero when integral.
func DecimalsCount(decimalString string) int {
	dotIndex := strings.Index(decimalString, ".")
	if dotIndex == -1 {
		return 0
	}
	return len(decimalString) - dotIndex - 1
}

// FloorToStep rounds value down to a multiple of step. The math runs in
// scaled-integer space (scaled by 10^decimals) so that float steps like
// 0.001 do not accumulate representation error.
func FloorToStep(value, step float64, decimals int) float64 {
	factor := math.Pow(10, float64(decimals))
	scaledStep := step * factor
	return math.Floor(value*factor/scaledStep) * scaledStep / factor
}

// CeilToStep rounds value up to a multiple of step, in the same scaled
// space as FloorToStep.
func CeilToStep(value, step float64, decimals int) float64 {
	factor := math.Pow(10, float64(decimals))
	scaledStep := step * factor
	return math.Ceil(value*factor/scaledStep) * scaledStep / factor
}

func roundTo(value float64, decimals int) float64 {
	factor := math.Pow(10, float64(decimals))
	return math.Round(value*factor) / factor
}

// Normalize turns a raw desired quantity into an exchange-compliant one:
// floored to the step size, raised to minQty, then re-derived from the
// $5 minimum-notional floor if the value is still too small. Pure given its
// inputs; a nil filter falls back to step "1" / min "0".
func Normalize(filter *models.LotSizeFilter, rawQty, price float64) (float64, error) {
	stepStr := "1"
	minStr := "0"
	if filter != nil {
		if filter.StepSize != "" {
			stepStr = filter.StepSize
		}
		if filter.MinQty != "" {
			minStr = filter.MinQty
		}
	}

	step, err := strconv.ParseFloat(stepStr, 64)
	if err != nil {
		return 0, fmt.Errorf("parsing stepSize %q: %w", stepStr, err)
	}
	minQty, err := strconv.ParseFloat(minStr, 64)
	if err != nil {
		return 0, fmt.Errorf("parsing minQty %q: %w", minStr, err)
	}
	decimals := DecimalsCount(stepStr)

	qty := FloorToStep(rawQty, step, decimals)
	if qty < minQty {
		qty = minQty
	}

	if qty*price < minNotionalUSDT {
		qty = CeilToStep(minNotionalUSDT/price, step, decimals)
		if qty < minQty {
			qty = minQty
		}
	}

	return roundTo(qty, decimals), nil
}

// MarketData is the slice of the exchange client the resolution strategies
// need: price, lot filter, and balance lookups.
type MarketData interface {
	LotSizeFilter(ctx context.Context, symbol string) (*models.LotSizeFilter, error)
	CurrentPrice(ctx context.Context, symbol string) (float64, error)
	AvailableUSDT(ctx context.Context) (float64, error)
}

type specKind int

const (
	kindLiteral specKind = iota
	kindFixedUSDT
	kindPercentOfBalance
)

// Spec is a quantity given either as a literal contract amount or as a
// deferred computation from a USDT notional or a balance percentage. It is
// resolved exactly once, immediately before the order is signed.
type Spec struct {
	kind  specKind
	value float64
}

// Literal uses the amount as-is (still normalized against the lot filter).
func Literal(qty float64) Spec {
	return Spec{kind: kindLiteral, value: qty}
}

// FixedUSDT sizes the order to a target USDT notional at the current price.
func FixedUSDT(usdt float64) Spec {
	return Spec{kind: kindFixedUSDT, value: usdt}
}

// PercentOfBalance sizes the order to a percentage of the available USDT
// futures balance at the current price.
func PercentOfBalance(percent float64) Spec {
	return Spec{kind: kindPercentOfBalance, value: percent}
}

// Parse reads a quantity spec from its config form: a plain number, a
// "10usdt" notional, or a "10%" balance share.
func Parse(s string) (Spec, error) {
	s = strings.TrimSpace(strings.ToLower(s))
	switch {
	case strings.HasSuffix(s, "%"):
		pct, err := strconv.ParseFloat(strings.TrimSuffix(s, "%"), 64)
		if err != nil {
			return Spec{}, fmt.Errorf("invalid percent quantity %q: %w", s, err)
		}
		return PercentOfBalance(pct), nil
	case strings.HasSuffix(s, "usdt"):
		usdt, err := strconv.ParseFloat(strings.TrimSuffix(s, "usdt"), 64)
		if err != nil {
			return Spec{}, fmt.Errorf("invalid usdt quantity %q: %w", s, err)
		}
		return FixedUSDT(usdt), nil
	default:
		qty, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return Spec{}, fmt.Errorf("invalid quantity %q: %w", s, err)
		}
		return Literal(qty), nil
	}
}

// Resolve computes the concrete, exchange-compliant quantity for the
// symbol. The symbol travels as an explicit argument so deferred specs never
// depend on ambient state.
func (s Spec) Resolve(ctx context.Context, market MarketData, symbol string) (float64, error) {
	var rawQty, price float64

	switch s.kind {
	case kindLiteral:
		// Literal amounts pass through untouched; the caller chose the
		// exact contract quantity.
		return s.value, nil

	case kindFixedUSDT:
		var err error
		price, err = market.CurrentPrice(ctx, symbol)
		if err != nil {
			return 0, fmt.Errorf("fetching price for %s: %w", symbol, err)
		}
		rawQty = s.value / price

	case kindPercentOfBalance:
		balance, err := market.AvailableUSDT(ctx)
		if err != nil {
			return 0, fmt.Errorf("fetching USDT balance: %w", err)
		}
		price, err = market.CurrentPrice(ctx, symbol)
		if err != nil {
			return 0, fmt.Errorf("fetching price for %s: %w", symbol, err)
		}
		rawQty = balance * (s.value / 100) / price

	default:
		return 0, fmt.Errorf("unknown quantity spec kind %d", s.kind)
	}

	filter, err := market.LotSizeFilter(ctx, symbol)
	if err != nil {
		return 0, fmt.Errorf("fetching lot size filter for %s: %w", symbol, err)
	}

	return Normalize(filter, rawQty, price)
}
