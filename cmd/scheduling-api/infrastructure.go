// Copyright The GroupCal Authors.
// SPDX-License-Identifier: MIT

package main

import (
	"context"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/groupcal/scheduling-service/internal/domain"
	"github.com/groupcal/scheduling-service/internal/handlers"
	"github.com/groupcal/scheduling-service/internal/infrastructure/email"
	"github.com/groupcal/scheduling-service/internal/infrastructure/messaging"
	"github.com/groupcal/scheduling-service/internal/infrastructure/store"
	"github.com/groupcal/scheduling-service/internal/logging"
)

// keyValueStores bundles the NATS KV buckets the service depends on.
type keyValueStores struct {
	Inbox      jetstream.KeyValue
	Outbox     jetstream.KeyValue
	Principals jetstream.KeyValue
}

// setupNATS connects to NATS and arranges for the connection to drain
// cleanly on shutdown.
func setupNATS(ctx context.Context, env environment, gracefulCloseWG *sync.WaitGroup, done chan os.Signal) (*nats.Conn, error) {
	gracefulCloseWG.Add(1)

	natsConn, err := nats.Connect(
		env.NatsURL,
		nats.Name("groupcal-scheduling-service"),
		nats.DrainTimeout(15*time.Second),
		nats.ErrorHandler(func(_ *nats.Conn, sub *nats.Subscription, err error) {
			if sub != nil {
				slog.ErrorContext(ctx, "async NATS error",
					logging.ErrKey, err, "subject", sub.Subject)
				return
			}
			slog.ErrorContext(ctx, "async NATS error", logging.ErrKey, err)
		}),
		nats.ClosedHandler(func(conn *nats.Conn) {
			slog.InfoContext(ctx, "NATS connection closed", "last_error", conn.LastError())
			gracefulCloseWG.Done()
			// If the connection closed without a shutdown signal, the service
			// cannot do useful work anymore.
			select {
			case done <- os.Interrupt:
			default:
			}
		}),
	)
	if err != nil {
		gracefulCloseWG.Done()
		return nil, err
	}

	slog.InfoContext(ctx, "connected to NATS", "url", env.NatsURL)
	return natsConn, nil
}

// getKeyValueStores creates or binds the KV buckets for the service.
func getKeyValueStores(ctx context.Context, natsConn *nats.Conn) (*keyValueStores, error) {
	js, err := jetstream.New(natsConn)
	if err != nil {
		return nil, err
	}

	bind := func(name string) (jetstream.KeyValue, error) {
		kv, err := js.CreateOrUpdateKeyValue(ctx, jetstream.KeyValueConfig{
			Bucket:      name,
			Description: "groupcal scheduling service",
		})
		if err != nil {
			slog.ErrorContext(ctx, "error binding key-value bucket",
				logging.ErrKey, err, "bucket", name)
		}
		return kv, err
	}

	stores := &keyValueStores{}
	if stores.Inbox, err = bind(store.KVStoreNameSchedulingInbox); err != nil {
		return nil, err
	}
	if stores.Outbox, err = bind(store.KVStoreNameSchedulingOutbox); err != nil {
		return nil, err
	}
	if stores.Principals, err = bind(store.KVStoreNamePrincipals); err != nil {
		return nil, err
	}
	return stores, nil
}

// setupMailSender picks the SMTP sender when a relay host is configured and
// the logging no-op sender otherwise.
func setupMailSender(env environment) domain.MailSender {
	if !env.SMTPEnabled {
		slog.Info("SMTP_HOST not configured, outbound scheduling mail is disabled")
		return email.NewNoOpSender()
	}
	return email.NewSMTPSender(env.SMTP)
}

// createNatsSubscriptions subscribes the handler to the service's subjects.
// Subscriptions use a queue group so replicas share the work.
func createNatsSubscriptions(ctx context.Context, handler *handlers.SchedulingHandler, natsConn *nats.Conn, subjects []string) error {
	for _, subject := range subjects {
		_, err := natsConn.QueueSubscribe(subject, natsQueueGroup, func(msg *nats.Msg) {
			handler.HandleMessage(ctx, messaging.NewNatsMessage(msg))
		})
		if err != nil {
			slog.ErrorContext(ctx, "error subscribing to subject",
				logging.ErrKey, err, "subject", subject)
			return err
		}
		slog.InfoContext(ctx, "subscribed to subject", "subject", subject)
	}
	return nil
}
