// Package navigation handles what happens after a tap succeeds.
package navigation

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/beepcard/beep-tap/internal/domain/card"
	"github.com/beepcard/beep-tap/internal/domain/tap"
	"github.com/beepcard/beep-tap/internal/utils/sanitizer"
)

// Receipt pairs a successful attempt with the transaction it produced.
type Receipt struct {
	Attempt     tap.Attempt       `json:"attempt"`
	Transaction *card.Transaction `json:"transaction,omitempty"`
}

// TransactionNavigator fetches the card's latest transaction after each
// successful tap, the way the app moves to the transactions screen.
type TransactionNavigator struct {
	cards   card.Service
	timeout time.Duration
	log     zerolog.Logger

	mu       sync.RWMutex
	last     *Receipt
	inflight sync.WaitGroup
}

// NewTransactionNavigator creates a navigator. cards may be nil, in which
// case receipts carry no transaction.
func NewTransactionNavigator(cards card.Service, timeout time.Duration, log zerolog.Logger) *TransactionNavigator {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &TransactionNavigator{
		cards:   cards,
		timeout: timeout,
		log:     log.With().Str("component", "navigator").Logger(),
	}
}

// TapSucceeded implements tap.Navigator. The lookup runs in the background.
func (n *TransactionNavigator) TapSucceeded(attempt tap.Attempt) {
	n.inflight.Add(1)
	go func() {
		defer n.inflight.Done()
		n.store(n.lookup(attempt))
	}()
}

func (n *TransactionNavigator) lookup(attempt tap.Attempt) *Receipt {
	receipt := &Receipt{Attempt: attempt}
	if n.cards == nil {
		return receipt
	}

	ctx, cancel := context.WithTimeout(context.Background(), n.timeout)
	defer cancel()
	tx, err := n.cards.LatestTransaction(ctx, attempt.CardID)
	switch {
	case errors.Is(err, card.ErrNoTransactions):
		n.log.Info().Str("card", sanitizer.CardID(attempt.CardID)).Msg("tap succeeded, no transaction recorded yet")
	case err != nil:
		n.log.Warn().Err(err).Str("card", sanitizer.CardID(attempt.CardID)).Msg("failed to load transaction after tap")
	default:
		receipt.Transaction = tx
		n.log.Info().
			Str("card", sanitizer.CardID(attempt.CardID)).
			Str("direction", tx.Direction()).
			Str("station", tx.CurrStation).
			Str("fare", tx.Fare.StringFixed(2)).
			Str("balance", tx.CurrBalance.StringFixed(2)).
			Msg("tap completed")
	}
	return receipt
}

func (n *TransactionNavigator) store(r *Receipt) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.last = r
}

// LastReceipt returns the most recent receipt.
func (n *TransactionNavigator) LastReceipt() (Receipt, bool) {
	n.mu.RLock()
	defer n.mu.RUnlock()
	if n.last == nil {
		return Receipt{}, false
	}
	return *n.last, true
}

// Wait blocks until background lookups finish.
func (n *TransactionNavigator) Wait() {
	n.inflight.Wait()
}
