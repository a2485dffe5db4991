package model

// SignalType represents the direction of a composite trading signal.
type SignalType string

const (
	SignalBuy  SignalType = "BUY"
	SignalSell SignalType = "SELL"
)

// Signal is a composite BUY/SELL event emitted when a quorum of indicator
// families agrees at the same timestamp. Reasons preserves the human-readable
// cause of each contributing family event in detection order.
type Signal struct {
	Type        SignalType `json:"type"`
	Symbol      string     `json:"symbol,omitempty"`
	Timeframe   string     `json:"timeframe,omitempty"`
	Timestamp   int64      `json:"timestamp"`
	Price       float64    `json:"price"`
	Confidence  float64    `json:"confidence"` // [0, 1]
	Reasons     []string   `json:"reasons"`
	FamilyCount int        `json:"family_count"` // indicator families that agreed
}
