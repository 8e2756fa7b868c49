package models

import (
	"time"
)

// Kline is one daily futures candle, reduced to the fields the ATR
// computation reads from the exchange's 12-element kline arrays.
type Kline struct {
	OpenTime  int64
	High      float64
	Low       float64
	Close     float64
	CloseTime int64
}

// Closed reports whether the candle had finished by the given instant.
func (k Kline) Closed(now time.Time) bool {
	return k.CloseTime <= now.UnixMilli()
}

// DailyRow is a display row derived from one closed daily candle.
type DailyRow struct {
	Date  string  `json:"date"` // "YYYY-MM-DD UTC"
	High  float64 `json:"high"`
	Low   float64 `json:"low"`
	Close float64 `json:"close"`
	Range float64 `json:"range"`
}

// LotSizeFilter is the LOT_SIZE entry from a symbol's exchangeInfo filters.
// Step/min are kept as the exchange's decimal strings; the step's textual
// form carries the quantity precision.
type LotSizeFilter struct {
	StepSize string `json:"stepSize"`
	MinQty   string `json:"minQty"`
}

// Balance is one row of the futures account balance response.
type Balance struct {
	Asset            string `json:"asset"`
	Balance          string `json:"balance"`
	AvailableBalance string `json:"availableBalance"`
}

// Ticker is the last-trade price of a symbol.
type Ticker struct {
	Symbol string `json:"symbol"`
	Price  string `json:"price"`
}

// PremiumIndex carries the exchange-computed mark price of a symbol.
type PremiumIndex struct {
	Symbol    string `json:"symbol"`
	MarkPrice string `json:"markPrice"`
}
