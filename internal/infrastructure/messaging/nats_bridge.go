// Copyright The GroupCal Authors.
// SPDX-License-Identifier: MIT

// Package messaging publishes queue notifications to the NATS sinks that
// observe the scheduling engine.
package messaging

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/go-viper/mapstructure/v2"

	"github.com/groupcal/scheduling-service/internal/domain"
	"github.com/groupcal/scheduling-service/internal/domain/models"
	"github.com/groupcal/scheduling-service/internal/logging"
)

// INatsConn is the NATS connection interface the bridge needs.
type INatsConn interface {
	IsConnected() bool
	Publish(subj string, data []byte) error
}

// NatsNotificationBridge fans a queued-item notification out to the sink
// subjects interested in its category. The bridge is fire-and-forget end to
// end: each sink is attempted independently, failures are logged, and
// nothing propagates back to the caller that committed the message.
type NatsNotificationBridge struct {
	NatsConn INatsConn
}

// NewNatsNotificationBridge creates a new NatsNotificationBridge.
func NewNatsNotificationBridge(natsConn INatsConn) *NatsNotificationBridge {
	return &NatsNotificationBridge{
		NatsConn: natsConn,
	}
}

// sinkSubjects maps each notification category to the subjects it reaches.
// Both categories inform the monitor, change feed, and search indexer; the
// scheduler subjects split by queue.
var sinkSubjects = map[models.NotificationCategory][]string{
	models.CategoryInboxQueued: {
		models.QueuedMonitorSubject,
		models.QueuedChangesSubject,
		models.QueuedIndexerSubject,
		models.SchedulerInboxSubject,
	},
	models.CategoryOutboxQueued: {
		models.QueuedMonitorSubject,
		models.QueuedChangesSubject,
		models.QueuedIndexerSubject,
		models.SchedulerOutboxSubject,
	},
}

// Notify publishes the notification to every sink subject of the category.
func (b *NatsNotificationBridge) Notify(ctx context.Context, category models.NotificationCategory, notification models.QueueNotification) {
	subjects, ok := sinkSubjects[category]
	if !ok {
		slog.WarnContext(ctx, "unknown notification category, dropping",
			"category", category, "item_name", notification.ItemName)
		return
	}

	if b.NatsConn == nil || !b.NatsConn.IsConnected() {
		slog.WarnContext(ctx, "NATS connection not available, dropping notification",
			"category", category, "item_name", notification.ItemName)
		return
	}

	for _, subject := range subjects {
		data, err := b.payloadFor(ctx, subject, notification)
		if err != nil {
			slog.ErrorContext(ctx, "error building notification payload",
				logging.ErrKey, err, "subject", subject)
			continue
		}
		if err := b.NatsConn.Publish(subject, data); err != nil {
			slog.ErrorContext(ctx, "error publishing notification",
				logging.ErrKey, err, "subject", subject, "item_name", notification.ItemName)
			continue
		}
		slog.DebugContext(ctx, "published queue notification",
			"subject", subject, "item_name", notification.ItemName)
	}
}

// payloadFor builds the wire payload for a sink. The indexer expects its
// envelope with a generic map payload; every other sink takes the
// notification as-is.
func (b *NatsNotificationBridge) payloadFor(ctx context.Context, subject string, notification models.QueueNotification) ([]byte, error) {
	if subject != models.QueuedIndexerSubject {
		return json.Marshal(notification)
	}

	raw, err := json.Marshal(notification)
	if err != nil {
		return nil, err
	}
	var jsonData any
	if err := json.Unmarshal(raw, &jsonData); err != nil {
		return nil, err
	}

	// The indexer expects a map[string]any payload.
	var payload map[string]any
	config := mapstructure.DecoderConfig{
		TagName: "json",
		Result:  &payload,
	}
	decoder, err := mapstructure.NewDecoder(&config)
	if err != nil {
		return nil, err
	}
	if err := decoder.Decode(jsonData); err != nil {
		return nil, err
	}

	message := models.IndexerMessage{
		Action: models.IndexerActionCreated,
		Data:   payload,
		Tags:   []string{notification.Recipient, notification.ItemName},
	}
	return json.Marshal(message)
}

// Compile-time interface check
var _ domain.NotificationBridge = (*NatsNotificationBridge)(nil)
