package types

import (
	"time"

	"github.com/moznion/go-optional"
)

type TradeStatus string

const (
	TradeStatusCreated TradeStatus = "CREATED"
	TradeStatusOpen    TradeStatus = "OPEN"
	TradeStatusClosed  TradeStatus = "CLOSED"
)

// Trade opens when the position leaves flat and closes when it returns to flat.
// Partial size changes update the same trade.
type Trade struct {
	ID     int         `yaml:"id" json:"id"`
	Symbol string      `yaml:"symbol" json:"symbol"`
	Status TradeStatus `yaml:"status" json:"status"`
	// Long is true when the trade was opened by a buy.
	Long bool `yaml:"long" json:"long"`
	// Size is the current absolute size of the trade. It is zero once closed.
	Size float64 `yaml:"size" json:"size"`
	// MaxSize is the largest absolute size the trade reached.
	MaxSize       float64                    `yaml:"max_size" json:"max_size"`
	OpenBarIndex  int                        `yaml:"open_bar_index" json:"open_bar_index"`
	CloseBarIndex optional.Option[int]       `yaml:"close_bar_index" json:"close_bar_index"`
	OpenTime      time.Time                  `yaml:"open_time" json:"open_time"`
	CloseTime     optional.Option[time.Time] `yaml:"close_time" json:"close_time"`
	// EntryPrice is the weighted average cost of the trade.
	EntryPrice float64 `yaml:"entry_price" json:"entry_price"`
	// ExitPrice is the weighted average price of all reducing fills.
	ExitPrice optional.Option[float64] `yaml:"exit_price" json:"exit_price"`
	// PnL is the realized gross profit and loss.
	PnL float64 `yaml:"pnl" json:"pnl"`
	// PnLNet is PnL minus Commission.
	PnLNet float64 `yaml:"pnl_net" json:"pnl_net"`
	// Commission is the total commission paid on entry and exit fills.
	Commission float64 `yaml:"commission" json:"commission"`
	// BarLength is the number of bars the trade was open.
	BarLength int `yaml:"bar_length" json:"bar_length"`
}

// IsOpen reports whether the trade still holds a position.
func (t *Trade) IsOpen() bool {
	return t.Status == TradeStatusOpen
}

// IsClosed reports whether the trade returned to flat.
func (t *Trade) IsClosed() bool {
	return t.Status == TradeStatusClosed
}
