package cardapi

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/beepcard/beep-tap/internal/domain/card"
	"github.com/beepcard/beep-tap/internal/infrastructure/metrics"
)

// Client talks to the card manager HTTP API.
type Client struct {
	httpClient *resty.Client
}

// NewClient creates a client for baseURL. token, when set, is sent as a
// bearer token.
func NewClient(baseURL string, timeout time.Duration, token string) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	rc := resty.New().
		SetBaseURL(strings.TrimRight(baseURL, "/")).
		SetHeader("Accept", "application/json").
		SetHeader("User-Agent", "beep-tap/1.0").
		SetTimeout(timeout)
	if token != "" {
		rc.SetAuthToken(token)
	}
	return &Client{httpClient: rc}
}

// ListCards fetches every card registered with the card manager.
func (c *Client) ListCards(ctx context.Context) ([]card.Card, error) {
	timer := prometheus.NewTimer(metrics.CardAPIDuration.WithLabelValues("list_cards"))
	defer timer.ObserveDuration()

	var cards []card.Card
	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetResult(&cards).
		Get("/api/beepCardManager")
	if err != nil {
		return nil, fmt.Errorf("card manager request failed: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("card manager error (%d): %s", resp.StatusCode(), resp.String())
	}
	return cards, nil
}

// LatestTransaction fetches the latest transaction of cardID. A 404 means
// the card has none.
func (c *Client) LatestTransaction(ctx context.Context, cardID string) (*card.Transaction, error) {
	timer := prometheus.NewTimer(metrics.CardAPIDuration.WithLabelValues("latest_transaction"))
	defer timer.ObserveDuration()

	var tx card.Transaction
	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetResult(&tx).
		Get("/api/mrt/transactions/" + url.PathEscape(cardID))
	if err != nil {
		return nil, fmt.Errorf("transaction request failed: %w", err)
	}
	if resp.StatusCode() == http.StatusNotFound {
		return nil, card.ErrNoTransactions
	}
	if resp.IsError() {
		return nil, fmt.Errorf("transaction error (%d): %s", resp.StatusCode(), resp.String())
	}
	return &tx, nil
}
