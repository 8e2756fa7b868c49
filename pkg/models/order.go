package models

type OrderSide string

const (
	OrderSideBuy  OrderSide = "BUY"
	OrderSideSell OrderSide = "SELL"
)

type PositionSide string

const (
	PositionSideBoth  PositionSide = "BOTH"
	PositionSideLong  PositionSide = "LONG"
	PositionSideShort PositionSide = "SHORT"
)

type WorkingType string

const (
	WorkingTypeMarkPrice     WorkingType = "MARK_PRICE"
	WorkingTypeContractPrice WorkingType = "CONTRACT_PRICE"
)

// OrderRequest describes one STOP_MARKET order. Quantity must be a concrete
// number by the time the request is signed; resolution from a quantity spec
// happens exactly once, before submission.
type OrderRequest struct {
	Symbol       string
	Side         OrderSide
	Quantity     float64
	StopPrice    float64
	PositionSide PositionSide

	// Optional extras, omitted from the signed query when unset.
	WorkingType  WorkingType
	PriceProtect bool
	ReduceOnly   bool
}

// OrderAck is the exchange's acknowledgment of a placed order.
type OrderAck struct {
	OrderID       int64  `json:"orderId"`
	Symbol        string `json:"symbol"`
	Status        string `json:"status"`
	ClientOrderID string `json:"clientOrderId"`
	Side          string `json:"side"`
	PositionSide  string `json:"positionSide"`
	Type          string `json:"type"`
	OrigQty       string `json:"origQty"`
	StopPrice     string `json:"stopPrice"`
	WorkingType   string `json:"workingType"`
	UpdateTime    int64  `json:"updateTime"`
}
