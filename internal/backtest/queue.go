package backtest

import "cryptoquant/internal/model"

// tradeQueue is a FIFO of open BUY fills awaiting their closing SELL. The
// oldest unmatched BUY always pairs first; that ordering defines PnL
// attribution and must not change.
type tradeQueue struct {
	items []model.TradeRecord
}

func (q *tradeQueue) push(t model.TradeRecord) {
	q.items = append(q.items, t)
}

func (q *tradeQueue) pop() (model.TradeRecord, bool) {
	if len(q.items) == 0 {
		return model.TradeRecord{}, false
	}
	t := q.items[0]
	q.items = q.items[1:]
	return t, true
}

func (q *tradeQueue) len() int { return len(q.items) }
