package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"roomkey/internal/config"
	domainIssue "roomkey/internal/domain/cardissue"
	"roomkey/internal/logger"
	"roomkey/pkg/mqtt"
)

// QueueEvent is the wire shape of a card-issue notification. It carries only
// identifiers: agents fetch the issue over HTTP, so the broker never sees
// guest data.
type QueueEvent struct {
	IssueID   uuid.UUID `json:"issueId"`
	HotelID   uuid.UUID `json:"hotelId"`
	CardType  string    `json:"cardType"`
	Timestamp time.Time `json:"timestamp"`
}

// MQTTNotifier publishes queue events so subscribed agents poll immediately.
type MQTTNotifier struct {
	client      *mqtt.Client
	topicPrefix string
	qos         byte
}

// NewMQTTNotifier connects to the broker and returns a notifier. Returns
// (nil, nil) when no broker is configured; callers treat a nil notifier as
// "polling only".
func NewMQTTNotifier(cfg config.MQTTConfig) (*MQTTNotifier, error) {
	if cfg.Broker == "" {
		return nil, nil
	}

	client := mqtt.NewClient(&mqtt.Config{
		Broker:   cfg.Broker,
		ClientID: cfg.ClientID,
		Username: cfg.Username,
		Password: cfg.Password,
	})
	if err := client.Connect(); err != nil {
		return nil, fmt.Errorf("failed to connect queue notifier: %w", err)
	}

	return &MQTTNotifier{
		client:      client,
		topicPrefix: cfg.TopicPrefix,
		qos:         byte(cfg.QoS),
	}, nil
}

// QueueTopic returns the per-hotel topic agents subscribe to.
func QueueTopic(prefix string, hotelID uuid.UUID) string {
	return fmt.Sprintf("%s/hotels/%s/card-issues", prefix, hotelID)
}

// CardIssueCreated publishes a queue event. Failures are logged, never
// propagated: the queue itself is the source of truth and agents will find
// the issue on their next poll.
func (n *MQTTNotifier) CardIssueCreated(ctx context.Context, issue *domainIssue.CardIssue) {
	event := QueueEvent{
		IssueID:   issue.ID,
		HotelID:   issue.HotelID,
		CardType:  string(issue.CardType),
		Timestamp: time.Now(),
	}

	payload, err := json.Marshal(event)
	if err != nil {
		logger.Error("failed to marshal queue event", zap.Error(err))
		return
	}

	topic := QueueTopic(n.topicPrefix, issue.HotelID)
	if err := n.client.Publish(topic, n.qos, payload); err != nil {
		logger.Warn("failed to publish queue event",
			zap.String("topic", topic),
			zap.Error(err),
		)
	}
}

// Close disconnects from the broker.
func (n *MQTTNotifier) Close() {
	if n != nil && n.client != nil {
		n.client.Disconnect()
	}
}
