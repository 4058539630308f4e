// Package notify is the engine's output port for eligibility and execution
// events. The core guarantees emission, not delivery: the default sink just
// logs, and the webhook sink posts best-effort JSON to an external channel.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/solheir/heirkeeper/pkg/logging"
	"github.com/solheir/heirkeeper/pkg/models"
)

// EventType identifies what happened
type EventType string

const (
	EventRecordEligible   EventType = "record_eligible"
	EventClaimPrepared    EventType = "claim_prepared"
	EventExecutionSuccess EventType = "execution_success"
	EventExecutionFailed  EventType = "execution_failed"
)

// Event is one structured notification
type Event struct {
	Type      EventType                `json:"type"`
	Timestamp time.Time                `json:"timestamp"`
	RecordID  string                   `json:"record_id"`
	Kind      models.AssetKind         `json:"kind"`
	Amount    uint64                   `json:"amount"`
	Heirs     []models.Heir            `json:"heirs,omitempty"`
	Result    *models.ExecutionResult  `json:"result,omitempty"`
	Detail    string                   `json:"detail,omitempty"`
}

// Notifier delivers events. Implementations must not block the cycle for
// long; delivery guarantees are an external collaborator's concern.
type Notifier interface {
	Publish(ctx context.Context, event Event) error
}

// NewEvent builds an event from a record
func NewEvent(eventType EventType, record *models.InheritanceRecord) Event {
	return Event{
		Type:      eventType,
		Timestamp: time.Now().UTC(),
		RecordID:  record.ID(),
		Kind:      record.Kind,
		Amount:    record.Amount,
		Heirs:     record.Heirs,
	}
}

// LogNotifier writes events to the structured log. This is the default sink
// and satisfies the core's own delivery requirements on its own.
type LogNotifier struct {
	logger *logging.Logger
}

// NewLogNotifier creates a LogNotifier
func NewLogNotifier(logger *logging.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) Publish(_ context.Context, event Event) error {
	fields := logging.Fields{
		"record": event.RecordID,
		"kind":   string(event.Kind),
		"amount": event.Amount,
	}
	if event.Result != nil {
		fields["outcome"] = string(event.Result.Outcome)
		if event.Result.Reason != "" {
			fields["reason"] = event.Result.Reason
		}
		if event.Result.Outcome == models.OutcomeSuccess {
			fields["tx"] = event.Result.TxSig.String()
		}
	}
	if event.Detail != "" {
		fields["detail"] = event.Detail
	}
	n.logger.Info(string(event.Type), fields)
	return nil
}

// WebhookNotifier POSTs events as JSON to an external endpoint, best-effort
type WebhookNotifier struct {
	url    string
	client *http.Client
	logger *logging.Logger
}

// NewWebhookNotifier creates a WebhookNotifier
func NewWebhookNotifier(url string, logger *logging.Logger) *WebhookNotifier {
	return &WebhookNotifier{
		url:    url,
		client: &http.Client{Timeout: 10 * time.Second},
		logger: logger,
	}
}

func (n *WebhookNotifier) Publish(ctx context.Context, event Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to encode event: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to build webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("webhook delivery failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}
	return nil
}

// Multi fans one event out to several sinks; a failing sink is logged and
// does not block the others.
type Multi struct {
	sinks  []Notifier
	logger *logging.Logger
}

// NewMulti creates a fan-out notifier
func NewMulti(logger *logging.Logger, sinks ...Notifier) *Multi {
	return &Multi{sinks: sinks, logger: logger}
}

func (m *Multi) Publish(ctx context.Context, event Event) error {
	for _, sink := range m.sinks {
		if err := sink.Publish(ctx, event); err != nil {
			m.logger.Warn("notification sink failed", logging.Fields{
				"event": string(event.Type),
				"error": err.Error(),
			})
		}
	}
	return nil
}
