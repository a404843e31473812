package card

import (
	"strconv"
	"time"

	"github.com/shopspring/decimal"
)

// Card is a beep card as listed by the card manager.
type Card struct {
	UUIC      int64           `json:"UUIC"`
	Balance   decimal.Decimal `json:"balance"`
	IsActive  bool            `json:"isActive"`
	UserID    string          `json:"userID,omitempty"`
	CreatedAt time.Time       `json:"createdAt"`
	UpdatedAt time.Time       `json:"updatedAt"`
}

// ID returns the card number in the form published to terminals.
func (c Card) ID() string {
	return strconv.FormatInt(c.UUIC, 10)
}

// OnboardStatus is the label shown next to a card.
func (c Card) OnboardStatus() string {
	if c.IsActive {
		return "OnBoarded"
	}
	return "Not Onboarded"
}

// Transaction is the latest tap-in or tap-out recorded for a card.
type Transaction struct {
	UUIC           int64           `json:"UUIC"`
	TapIn          bool            `json:"tapIn"`
	InitialBalance decimal.Decimal `json:"initialBalance"`
	PrevStation    string          `json:"prevStation"`
	CurrStation    string          `json:"currStation"`
	Distance       decimal.Decimal `json:"distance"`
	Fare           decimal.Decimal `json:"fare"`
	CurrBalance    decimal.Decimal `json:"currBalance"`
	CreatedAt      time.Time       `json:"createdAt"`
	UpdatedAt      time.Time       `json:"updatedAt"`
}

// Direction names the gate action of the transaction.
func (t Transaction) Direction() string {
	if t.TapIn {
		return "tap-in"
	}
	return "tap-out"
}

// Deducted returns the amount taken from the card by this transaction.
func (t Transaction) Deducted() decimal.Decimal {
	return t.InitialBalance.Sub(t.CurrBalance)
}
