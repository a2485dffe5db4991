// Package backtest replays composite signals against historical candles and
// reduces the resulting trade ledger into a performance report.
//
// The simulator is a pure computation over immutable inputs: one run owns its
// cash/position state exclusively, so any number of backtests may run in
// parallel as long as each receives its own candle slice and config snapshot.
package backtest

import (
	"sort"
	"strings"

	"cryptoquant/internal/model"
	"cryptoquant/internal/strategy"
)

// DefaultCommissionRate is the taker fee fraction applied to every fill.
const DefaultCommissionRate = 0.001

// finalCloseReason marks the synthetic liquidation fill appended when a
// position is still open after the last signal.
const finalCloseReason = "final position close"

// Ledger is the raw outcome of one simulation run.
type Ledger struct {
	FinalBalance float64                `json:"final_balance"`
	Trades       []model.TradeRecord    `json:"trades"`
	Equity       []model.EquitySnapshot `json:"equity"`
}

// Simulate replays signals chronologically against the candle series using a
// two-state machine per run: FLAT (no position) and LONG (one open position).
//
// BUY while FLAT opens a position sized to maxPositionSize of the cash
// balance; SELL while LONG fully closes it. Everything else is a silent skip:
// BUY while LONG, SELL while FLAT, insufficient cash, or a signal timestamp
// missing from the candle series. A position still open after the last signal
// is liquidated at the last candle's close so every run ends FLAT.
//
// Every signal that resolves to a price appends an equity snapshot, filled or
// skipped, marking the position at the signal price. The forced liquidation
// produces only its synthetic trade record, never a snapshot.
func Simulate(candles []model.Candle, signals []model.Signal, initialBalance float64, cfg strategy.Config, commissionRate float64) *Ledger {
	prices := model.PriceMap(candles)

	ordered := make([]model.Signal, len(signals))
	copy(ordered, signals)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Timestamp < ordered[j].Timestamp
	})

	ledger := &Ledger{}
	cash := initialBalance
	var position *model.Position

	for _, sig := range ordered {
		price, ok := prices[sig.Timestamp]
		if !ok {
			continue
		}

		switch {
		case sig.Type == model.SignalBuy && position == nil:
			quantity := (cash * cfg.MaxPositionSize) / price
			cost := quantity * price
			commission := cost * commissionRate
			if quantity > 0 && cash >= cost+commission {
				cash -= cost + commission
				position = &model.Position{
					Symbol:    sig.Symbol,
					Quantity:  quantity,
					AvgPrice:  price,
					EntryTime: sig.Timestamp,
				}
				ledger.Trades = append(ledger.Trades, model.TradeRecord{
					Timestamp:  sig.Timestamp,
					Symbol:     sig.Symbol,
					Side:       string(model.SignalBuy),
					Quantity:   quantity,
					Price:      price,
					Commission: commission,
					Reason:     strings.Join(sig.Reasons, "; "),
				})
			}

		case sig.Type == model.SignalSell && position != nil:
			proceeds := position.Quantity * price
			commission := proceeds * commissionRate
			cash += proceeds - commission
			ledger.Trades = append(ledger.Trades, model.TradeRecord{
				Timestamp:  sig.Timestamp,
				Symbol:     sig.Symbol,
				Side:       string(model.SignalSell),
				Quantity:   position.Quantity,
				Price:      price,
				Commission: commission,
				Reason:     strings.Join(sig.Reasons, "; "),
			})
			position = nil
		}

		positionValue := 0.0
		if position != nil {
			positionValue = position.Value(price)
		}
		ledger.Equity = append(ledger.Equity, model.EquitySnapshot{
			Timestamp:     sig.Timestamp,
			CashBalance:   cash,
			PositionValue: positionValue,
			TotalValue:    cash + positionValue,
		})
	}

	// Forced liquidation keeps every run's accounting closed.
	if position != nil && len(candles) > 0 {
		last := candles[len(candles)-1]
		proceeds := position.Quantity * last.Close
		commission := proceeds * commissionRate
		cash += proceeds - commission
		ledger.Trades = append(ledger.Trades, model.TradeRecord{
			Timestamp:  last.OpenTime,
			Symbol:     position.Symbol,
			Side:       string(model.SignalSell),
			Quantity:   position.Quantity,
			Price:      last.Close,
			Commission: commission,
			Reason:     finalCloseReason,
		})
	}

	ledger.FinalBalance = cash
	return ledger
}
