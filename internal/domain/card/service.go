package card

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/beepcard/beep-tap/internal/utils/sanitizer"
)

var (
	// ErrCardNotFound is returned when no card matches the requested number.
	ErrCardNotFound = errors.New("beep card not found")
	// ErrNoTransactions is returned when the card has no recorded transaction.
	ErrNoTransactions = errors.New("no transactions for card")
)

// IssuerPrefix is prepended to short card numbers typed by the user.
const IssuerPrefix = "637805"

// API is the remote card manager.
type API interface {
	ListCards(ctx context.Context) ([]Card, error)
	// LatestTransaction returns ErrNoTransactions when the card has none.
	LatestTransaction(ctx context.Context, cardID string) (*Transaction, error)
}

// Service exposes card lookups used by the CLI and the card selection endpoint.
type Service interface {
	List(ctx context.Context) ([]Card, error)
	Resolve(ctx context.Context, number string) (*Card, error)
	LatestTransaction(ctx context.Context, cardID string) (*Transaction, error)
}

type service struct {
	api API
	log zerolog.Logger
}

// NewService creates a card service backed by api.
func NewService(api API, log zerolog.Logger) Service {
	return &service{
		api: api,
		log: log.With().Str("component", "card-service").Logger(),
	}
}

func (s *service) List(ctx context.Context) ([]Card, error) {
	cards, err := s.api.ListCards(ctx)
	if err != nil {
		return nil, fmt.Errorf("list cards: %w", err)
	}
	return cards, nil
}

// Resolve finds a card by its full number or by the nine digits after the
// issuer prefix.
func (s *service) Resolve(ctx context.Context, number string) (*Card, error) {
	want := NormalizeNumber(number)
	cards, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	for i := range cards {
		if cards[i].ID() == want {
			return &cards[i], nil
		}
	}
	s.log.Debug().Str("card", sanitizer.CardID(want)).Msg("card not listed")
	return nil, ErrCardNotFound
}

func (s *service) LatestTransaction(ctx context.Context, cardID string) (*Transaction, error) {
	tx, err := s.api.LatestTransaction(ctx, NormalizeNumber(cardID))
	if err != nil {
		if errors.Is(err, ErrNoTransactions) {
			return nil, err
		}
		return nil, fmt.Errorf("latest transaction: %w", err)
	}
	return tx, nil
}

// NormalizeNumber trims the input and adds the issuer prefix to short numbers.
func NormalizeNumber(number string) string {
	n := strings.TrimSpace(number)
	if len(n) == 9 && !strings.HasPrefix(n, IssuerPrefix) {
		return IssuerPrefix + n
	}
	return n
}
