// Package contract renders sale contracts through an external document
// service. The service receives the order details and returns a stable
// URL for the generated document.
package contract

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/lauraedgell33/autoscout-sub002/internal/order"
)

// Client calls the document rendering service.
type Client struct {
	client   *http.Client
	baseURL  string
	apiToken string
}

func NewClient(baseURL, apiToken string) *Client {
	return &Client{
		client:   &http.Client{Timeout: 30 * time.Second},
		baseURL:  baseURL,
		apiToken: apiToken,
	}
}

type renderRequest struct {
	Template  string    `json:"template"`
	OrderID   uuid.UUID `json:"order_id"`
	OrderCode string    `json:"order_code"`
	BuyerID   uuid.UUID `json:"buyer_id"`
	SellerID  uuid.UUID `json:"seller_id"`
	VehicleID uuid.UUID `json:"vehicle_id"`
	Amount    string    `json:"amount"`
	Currency  string    `json:"currency"`
}

type renderResponse struct {
	URL string `json:"url"`
}

// Generate renders a sale contract for the order and returns its URL.
func (c *Client) Generate(ctx context.Context, t *order.Transaction) (string, error) {
	body, err := json.Marshal(renderRequest{
		Template:  "vehicle-sale-contract",
		OrderID:   t.ID,
		OrderCode: t.Code,
		BuyerID:   t.BuyerID,
		SellerID:  t.SellerID,
		VehicleID: t.VehicleID,
		Amount:    order.FormatAmount(t.Amount),
		Currency:  t.Currency,
	})
	if err != nil {
		return "", fmt.Errorf("marshaling render request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/render", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	if c.apiToken != "" {
		req.Header.Set("Authorization", "Token "+c.apiToken)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("document service returned status %d", resp.StatusCode)
	}

	var rendered renderResponse
	if err := json.NewDecoder(resp.Body).Decode(&rendered); err != nil {
		return "", fmt.Errorf("decoding render response: %w", err)
	}

	if rendered.URL == "" {
		return "", fmt.Errorf("document service returned an empty url")
	}

	return rendered.URL, nil
}
