package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/fieldlink/feedback-engine/internal/config"
)

// ScriptDelivery pushes a generated script to the subject's channel.
type ScriptDelivery struct {
	TicketNumber string `json:"ticket_number"`
	SubmitterID  string `json:"submitter_id"`
	SubjectID    string `json:"subject_id"`
	Script       string `json:"script"`
}

// SubmitterNotice informs a submitter of a ticket-side event, such as a
// department clarification request.
type SubmitterNotice struct {
	TicketNumber string `json:"ticket_number"`
	SubmitterID  string `json:"submitter_id"`
	Kind         string `json:"kind"`
	Message      string `json:"message"`
}

// Notifier is the outbound notification channel. Delivery is
// at-most-once: a failed push is reported to the caller and not retried.
type Notifier interface {
	DeliverScript(ctx context.Context, delivery ScriptDelivery) error
	NotifySubmitter(ctx context.Context, notice SubmitterNotice) error
}

type webhookNotifier struct {
	webhookURL string
	client     *http.Client
}

// NewWebhookNotifier builds the default HTTP notifier.
func NewWebhookNotifier(cfg config.NotifyConfig) Notifier {
	return &webhookNotifier{
		webhookURL: cfg.WebhookURL,
		client:     &http.Client{Timeout: cfg.Timeout()},
	}
}

func (n *webhookNotifier) DeliverScript(ctx context.Context, delivery ScriptDelivery) error {
	return n.post(ctx, "script_delivery", delivery)
}

func (n *webhookNotifier) NotifySubmitter(ctx context.Context, notice SubmitterNotice) error {
	return n.post(ctx, "submitter_notice", notice)
}

func (n *webhookNotifier) post(ctx context.Context, event string, payload any) error {
	if n.webhookURL == "" {
		return fmt.Errorf("notify: webhook url not configured")
	}

	body := struct {
		Event   string `json:"event"`
		Payload any    `json:"payload"`
	}{Event: event, Payload: payload}

	raw, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("notify: marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.webhookURL, bytes.NewBuffer(raw))
	if err != nil {
		return fmt.Errorf("notify: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("notify: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusAccepted {
		return fmt.Errorf("notify: webhook returned status %d", resp.StatusCode)
	}
	return nil
}
