package model

import "time"

// Action is the trade instruction carried by an intake signal.
type Action string

const (
	ActionBuy       Action = "BUY"
	ActionSell      Action = "SELL"
	ActionBuyClose  Action = "BUY_CLOSE"
	ActionSellClose Action = "SELL_CLOSE"

	// Aliases emitted by some upstream strategies, accepted by the
	// PnL reconstructor only.
	ActionCloseLong  Action = "CLOSE_LONG"
	ActionCloseShort Action = "CLOSE_SHORT"
)

// IsAvailable reports whether the action is executable by the engine.
func (a Action) IsAvailable() bool {
	switch a {
	case ActionBuy, ActionSell, ActionBuyClose, ActionSellClose:
		return true
	default:
		return false
	}
}

// Opens reports whether the action adds new exposure.
func (a Action) Opens() bool {
	return a == ActionBuy || a == ActionSell
}

// Closes reports whether the action reduces existing exposure.
func (a Action) Closes() bool {
	switch a {
	case ActionBuyClose, ActionSellClose, ActionCloseLong, ActionCloseShort:
		return true
	default:
		return false
	}
}

// Status is the lifecycle state of a persisted signal.
type Status string

const (
	StatusPending      Status = "pending"
	StatusSubmitted    Status = "submitted"
	StatusPartial      Status = "partial"
	StatusFilled       Status = "filled"
	StatusCancelled    Status = "cancelled"
	StatusRejected     Status = "rejected"
	StatusFailed       Status = "failed"
	StatusPriceInvalid Status = "price_invalid"
)

// Terminal reports whether no further automated transition can occur.
func (s Status) Terminal() bool {
	switch s {
	case StatusFilled, StatusCancelled, StatusRejected, StatusFailed, StatusPriceInvalid:
		return true
	default:
		return false
	}
}

// TerminalStatuses lists every terminal status, in a stable order for
// SQL NOT IN guards.
func TerminalStatuses() []Status {
	return []Status{StatusFilled, StatusCancelled, StatusRejected, StatusFailed, StatusPriceInvalid}
}

// Signal is a persisted trading signal row. Created by intake as
// pending, mutated only by the execution engine and the reconciler.
// Rows are never deleted by the core.
type Signal struct {
	ID          int64      `gorm:"primaryKey;autoIncrement" json:"id"`
	Symbol      string     `gorm:"not null" json:"symbol"`
	Action      Action     `gorm:"not null" json:"action"`
	Price       float64    `gorm:"not null" json:"price"`
	Timestamp   time.Time  `gorm:"column:timestamp;autoCreateTime" json:"timestamp"`
	Volume      int        `gorm:"default:1" json:"volume"`
	Strategy    string     `json:"strategy"`
	Processed   bool       `gorm:"default:false" json:"processed"`
	ProcessTime *time.Time `json:"process_time,omitempty"`
	OrderID     *string    `gorm:"column:order_id" json:"order_id,omitempty"`
	Status      Status     `gorm:"default:pending" json:"status"`
	Message     string     `json:"message,omitempty"`
}

func (Signal) TableName() string { return "trading_signals" }

// Account is the latest gateway-reported account snapshot. A single
// row (id=1) is kept up to date by the reconciler.
type Account struct {
	ID             int64     `gorm:"primaryKey" json:"-"`
	Balance        float64   `gorm:"not null" json:"balance"`
	Equity         float64   `gorm:"not null" json:"equity"`
	Available      float64   `gorm:"not null" json:"available"`
	PositionProfit float64   `gorm:"not null" json:"profit"`
	Timestamp      time.Time `gorm:"autoUpdateTime" json:"timestamp"`
}

func (Account) TableName() string { return "account_info" }
