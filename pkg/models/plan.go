package models

// ATRResult is the Gerchik-style trimmed-mean ATR over the last five closed
// daily candles: ranges sorted ascending, one min and one max dropped, the
// middle three averaged.
type ATRResult struct {
	Rows          []DailyRow `json:"rows"`
	SortedRanges  []float64  `json:"sortedRanges"`
	DroppedMin    float64    `json:"droppedMin"`
	DroppedMax    float64    `json:"droppedMax"`
	TrimmedRanges []float64  `json:"trimmedRanges"`
	ATR           float64    `json:"atrGerchik"`
	ATRPercent    float64    `json:"atrPercent"`
	LastClose     float64    `json:"lastClosePrice"`
}

type Direction string

const (
	DirectionLong  Direction = "long"
	DirectionShort Direction = "short"
)

type TriggerStatus string

const (
	TriggerStatusTriggered TriggerStatus = "triggered"
	TriggerStatusWaiting   TriggerStatus = "waiting"
)

// Target is one take-profit level expressed in risk units.
type Target struct {
	RRMultiple  float64 `json:"rrMultiple"`
	TargetPrice float64 `json:"targetPrice"`
}

// TradePlan is an entry/stop/target plan built around a key price level
// with ATR-proportional buffers. Degraded is set when the mark price could
// not be fetched and the last daily close stood in as the reference.
type TradePlan struct {
	Symbol         string        `json:"symbol"`
	Direction      Direction     `json:"tradeDirection"`
	LevelPrice     float64       `json:"levelPrice"`
	ATR            float64       `json:"atrGerchik"`
	EntryBuffer    float64       `json:"entryBuffer"`
	StopBuffer     float64       `json:"stopBuffer"`
	EntryPrice     float64       `json:"entryPrice"`
	StopPrice      float64       `json:"stopPrice"`
	RiskDistance   float64       `json:"riskDistance"`
	ReferencePrice float64       `json:"referenceCurrentPrice"`
	Degraded       bool          `json:"degraded"`
	TriggerStatus  TriggerStatus `json:"triggerStatus"`
	Targets        []Target      `json:"targets"`
}
