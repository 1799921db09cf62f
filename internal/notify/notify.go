// Package notify delivers order lifecycle events to interested parties.
// Delivery is fire and forget: a failed dispatch is logged and dropped,
// it never blocks or rolls back the transition that produced it.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
)

const dispatchTimeout = 5 * time.Second

// Dispatcher pushes events to a webhook endpoint when one is configured
// and always records them in the application log.
type Dispatcher struct {
	logger     *slog.Logger
	client     *http.Client
	webhookURL string
}

func NewDispatcher(logger *slog.Logger, webhookURL string) *Dispatcher {
	return &Dispatcher{
		logger:     logger,
		client:     &http.Client{Timeout: dispatchTimeout},
		webhookURL: webhookURL,
	}
}

type eventBody struct {
	Event   string    `json:"event"`
	OrderID uuid.UUID `json:"order_id"`
	SentAt  time.Time `json:"sent_at"`
}

// Dispatch records the event and, when a webhook is configured, posts it
// in the background.
func (d *Dispatcher) Dispatch(event string, orderID uuid.UUID) {
	d.logger.Info("order event", "event", event, "order_id", orderID)

	if d.webhookURL == "" {
		return
	}

	go func() {
		if err := d.post(event, orderID); err != nil {
			d.logger.Error("failed to deliver event webhook", "event", event, "order_id", orderID, "error", err)
		}
	}()
}

func (d *Dispatcher) post(event string, orderID uuid.UUID) error {
	body, err := json.Marshal(eventBody{Event: event, OrderID: orderID, SentAt: time.Now().UTC()})
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), dispatchTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.webhookURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to post event: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}

	return nil
}
