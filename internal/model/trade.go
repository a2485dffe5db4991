package model

// TradeRecord is an immutable simulated fill appended to the backtest ledger.
type TradeRecord struct {
	Timestamp  int64   `json:"timestamp"`
	Symbol     string  `json:"symbol"`
	Side       string  `json:"side"` // BUY or SELL
	Quantity   float64 `json:"quantity"`
	Price      float64 `json:"price"`
	Commission float64 `json:"commission"`
	Reason     string  `json:"reason"`
}

// Position is the single open long position of a backtest run.
// Created on a BUY fill, destroyed on the matching SELL fill.
type Position struct {
	Symbol    string  `json:"symbol"`
	Quantity  float64 `json:"quantity"`
	AvgPrice  float64 `json:"avg_price"`
	EntryTime int64   `json:"entry_time"`
}

// Value returns the mark-to-market value of the position at the given price.
func (p *Position) Value(price float64) float64 {
	return p.Quantity * price
}

// EquitySnapshot is a point-in-time valuation of cash plus mark-to-market
// position value, recorded once per processed signal.
type EquitySnapshot struct {
	Timestamp     int64   `json:"timestamp"`
	CashBalance   float64 `json:"cash_balance"`
	PositionValue float64 `json:"position_value"`
	TotalValue    float64 `json:"total_value"`
}
