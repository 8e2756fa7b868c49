package binance

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"

	"github.com/gregtusar/gerchik/pkg/models"
)

// Default public fallback hosts. fapi.binance.com is geo-blocked in some
// regions; the www mirrors answer the same data under different paths.
var (
	DefaultKlineEndpoints = []string{
		"https://fapi.binance.com/fapi/v1/klines",
		"https://www.binance.com/fapi/v1/klines",
		"https://www.binance.com/bapi/futures/v1/public/future/klines",
	}

	DefaultPremiumIndexEndpoints = []string{
		"https://fapi.binance.com/fapi/v1/premiumIndex",
		"https://www.binance.com/fapi/v1/premiumIndex",
	}
)

// AllEndpointsError reports that every candidate endpoint failed. It wraps
// the last underlying failure.
type AllEndpointsError struct {
	Attempts int
	Last     error
}

func (e *AllEndpointsError) Error() string {
	return fmt.Sprintf("all %d endpoints failed, last error: %v", e.Attempts, e.Last)
}

func (e *AllEndpointsError) Unwrap() error {
	return e.Last
}

var errUnknownShape = errors.New("unknown response shape")

// extractRows accepts the recognized payload shapes: a top-level array, an
// object carrying a "data" array, or an object carrying a "result" array.
// Anything else is a shape failure even on a 2xx response.
func extractRows(payload []byte) ([]json.RawMessage, error) {
	var rows []json.RawMessage
	if err := json.Unmarshal(payload, &rows); err == nil {
		return rows, nil
	}

	var wrapped struct {
		Data   []json.RawMessage `json:"data"`
		Result []json.RawMessage `json:"result"`
	}
	if err := json.Unmarshal(payload, &wrapped); err == nil {
		if wrapped.Data != nil {
			return wrapped.Data, nil
		}
		if wrapped.Result != nil {
			return wrapped.Result, nil
		}
	}
	return nil, errUnknownShape
}

// fetchWithFallback tries each candidate endpoint in order with the given
// query string and returns the first 2xx payload together with the endpoint
// that produced it. Candidates are tried strictly sequentially, never raced.
func (c *Client) fetchWithFallback(ctx context.Context, candidates []string, query string) (string, []byte, error) {
	var lastErr error

	for _, endpoint := range candidates {
		body, err := c.do(ctx, "GET", endpoint+"?"+query, false)
		if err != nil {
			lastErr = fmt.Errorf("%s: %w", endpoint, err)
			c.logger.WithError(err).WithField("endpoint", endpoint).Debug("Endpoint failed, trying next")
			continue
		}
		return endpoint, body, nil
	}

	return "", nil, &AllEndpointsError{Attempts: len(candidates), Last: lastErr}
}

// KlinesResult is a fallback kline fetch outcome; Endpoint records which
// candidate answered.
type KlinesResult struct {
	Endpoint string
	Klines   []models.Kline
}

// DailyKlines fetches daily candles for the symbol across the candidate
// endpoints. A 2xx response whose body is not a recognized array shape
// counts as a failure and falls through to the next candidate.
func (c *Client) DailyKlines(ctx context.Context, candidates []string, symbol string, limit int) (*KlinesResult, error) {
	query := BuildQueryString(Params{
		"symbol":   symbol,
		"interval": "1d",
		"limit":    limit,
	})

	var lastErr error
	for _, endpoint := range candidates {
		body, err := c.do(ctx, "GET", endpoint+"?"+query, false)
		if err != nil {
			lastErr = fmt.Errorf("%s: %w", endpoint, err)
			c.logger.WithError(err).WithField("endpoint", endpoint).Debug("Kline endpoint failed, trying next")
			continue
		}

		rows, err := extractRows(body)
		if err != nil {
			lastErr = fmt.Errorf("%s: %w", endpoint, err)
			continue
		}

		klines, err := parseKlines(rows)
		if err != nil {
			lastErr = fmt.Errorf("%s: %w", endpoint, err)
			continue
		}

		return &KlinesResult{Endpoint: endpoint, Klines: klines}, nil
	}

	return nil, &AllEndpointsError{Attempts: len(candidates), Last: lastErr}
}

// parseKlines maps 12-element kline arrays to candles. Indices: [0] open
// time, [2] high, [3] low, [4] close, [6] close time.
func parseKlines(rows []json.RawMessage) ([]models.Kline, error) {
	klines := make([]models.Kline, 0, len(rows))

	for _, row := range rows {
		var cells []json.RawMessage
		if err := json.Unmarshal(row, &cells); err != nil {
			return nil, fmt.Errorf("kline row is not an array: %w", err)
		}
		if len(cells) < 7 {
			return nil, fmt.Errorf("kline row has %d cells, want at least 7", len(cells))
		}

		openTime, err := coerceFloat(cells[0])
		if err != nil {
			return nil, err
		}
		high, err := coerceFloat(cells[2])
		if err != nil {
			return nil, err
		}
		low, err := coerceFloat(cells[3])
		if err != nil {
			return nil, err
		}
		closePrice, err := coerceFloat(cells[4])
		if err != nil {
			return nil, err
		}
		closeTime, err := coerceFloat(cells[6])
		if err != nil {
			return nil, err
		}

		klines = append(klines, models.Kline{
			OpenTime:  int64(openTime),
			High:      high,
			Low:       low,
			Close:     closePrice,
			CloseTime: int64(closeTime),
		})
	}

	return klines, nil
}

// MarkPrice fetches the symbol's mark price across the candidate endpoints.
// The payload is either a single premiumIndex object or an array to filter
// by symbol.
func (c *Client) MarkPrice(ctx context.Context, candidates []string, symbol string) (endpoint string, markPrice float64, err error) {
	query := BuildQueryString(Params{"symbol": symbol})

	endpoint, body, err := c.fetchWithFallback(ctx, candidates, query)
	if err != nil {
		return "", 0, err
	}

	var single models.PremiumIndex
	if err := json.Unmarshal(body, &single); err == nil && single.MarkPrice != "" {
		price, err := parseFinitePrice(single.MarkPrice)
		return endpoint, price, err
	}

	var many []models.PremiumIndex
	if err := json.Unmarshal(body, &many); err == nil {
		for _, row := range many {
			if row.Symbol != symbol || row.MarkPrice == "" {
				continue
			}
			price, err := parseFinitePrice(row.MarkPrice)
			return endpoint, price, err
		}
	}

	return "", 0, fmt.Errorf("%s: no mark price for %s in response", endpoint, symbol)
}

func parseFinitePrice(raw string) (float64, error) {
	price, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("parsing mark price %q: %w", raw, err)
	}
	if math.IsNaN(price) || math.IsInf(price, 0) {
		return 0, fmt.Errorf("mark price %q is not finite", raw)
	}
	return price, nil
}

// coerceFloat reads a kline cell that the mirrors serve either as a JSON
// number or as a quoted decimal string.
func coerceFloat(raw json.RawMessage) (float64, error) {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return strconv.ParseFloat(s, 64)
	}
	var f float64
	if err := json.Unmarshal(raw, &f); err != nil {
		return 0, fmt.Errorf("kline cell %s is neither number nor numeric string", raw)
	}
	return f, nil
}
