// Copyright The GroupCal Authors.
// SPDX-License-Identifier: MIT

// Package main is the scheduling service: it consumes schedule-change
// requests over NATS, commits the resulting iTIP messages to the delivery
// queues, and relays outbox items as iMIP mail.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/groupcal/scheduling-service/internal/domain/models"
	"github.com/groupcal/scheduling-service/internal/handlers"
	"github.com/groupcal/scheduling-service/internal/infrastructure/directory"
	"github.com/groupcal/scheduling-service/internal/infrastructure/email"
	"github.com/groupcal/scheduling-service/internal/infrastructure/messaging"
	"github.com/groupcal/scheduling-service/internal/infrastructure/store"
	"github.com/groupcal/scheduling-service/internal/logging"
	"github.com/groupcal/scheduling-service/internal/service"
	"github.com/groupcal/scheduling-service/pkg/utils"
)

// natsQueueGroup is the queue group shared by service replicas.
const natsQueueGroup = "groupcal-scheduling-service"

func main() {
	env := parseEnv()
	parseFlags()

	logging.InitStructureLogConfig()

	// Setup graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	gracefulCloseWG := sync.WaitGroup{}

	otelShutdown, err := utils.SetupOTelSDK(ctx)
	if err != nil {
		slog.With(logging.ErrKey, err).Error("error setting up OpenTelemetry SDK")
		return
	}

	// Setup NATS connection
	natsConn, err := setupNATS(ctx, env, &gracefulCloseWG, done)
	if err != nil {
		slog.With(logging.ErrKey, err).Error("error setting up NATS")
		return
	}

	// Get the key-value stores for the service.
	stores, err := getKeyValueStores(ctx, natsConn)
	if err != nil {
		slog.With(logging.ErrKey, err).Error("error getting key-value stores")
		return
	}

	// Initialize services
	serviceConfig := service.ServiceConfig{
		QueueWorkers:       env.QueueWorkers,
		SuppressNewInvites: env.SuppressNewInvites,
	}
	queueRepository := store.NewNatsQueueRepository(stores.Inbox, stores.Outbox)
	principalDirectory := directory.NewNatsPrincipalDirectory(env.ServedDomains, stores.Principals)
	notificationBridge := messaging.NewNatsNotificationBridge(natsConn)

	instanceService := service.NewInstanceService()
	schedulingService := service.NewSchedulingService(
		service.NewRecipientResolver(principalDirectory, instanceService),
		service.NewRecurrenceRewriter(instanceService),
		service.NewDeliveryQueueService(queueRepository, notificationBridge),
		serviceConfig,
	)

	// Initialize handlers
	schedulingHandler := handlers.NewSchedulingHandler(schedulingService)

	// Create NATS subscriptions for the service.
	err = createNatsSubscriptions(ctx, schedulingHandler, natsConn, []string{
		models.ScheduleChangeSubject,
	})
	if err != nil {
		slog.With(logging.ErrKey, err).Error("error creating NATS subscriptions")
		return
	}

	// Start the outbox mail relay.
	mailSender := setupMailSender(env)
	relay := email.NewOutboxRelay(queueRepository, email.NewICSGenerator(), mailSender, env.RelayInterval)
	gracefulCloseWG.Add(1)
	go func() {
		defer gracefulCloseWG.Done()
		relay.Run(ctx)
	}()

	slog.InfoContext(ctx, "scheduling service ready",
		"served_domains", env.ServedDomains, "queue_workers", env.QueueWorkers)

	// This next line blocks until SIGINT or SIGTERM is received.
	<-done

	gracefulShutdown(natsConn, &gracefulCloseWG, cancel, otelShutdown)
}

// gracefulShutdown stops the relay, drains the NATS connection, and flushes
// telemetry before exiting.
func gracefulShutdown(natsConn *nats.Conn, gracefulCloseWG *sync.WaitGroup, cancel context.CancelFunc, otelShutdown func(context.Context) error) {
	slog.Info("shutting down scheduling service")
	cancel()

	if natsConn != nil && !natsConn.IsClosed() {
		if err := natsConn.Drain(); err != nil {
			slog.With(logging.ErrKey, err).Error("error draining NATS connection")
		}
	}

	waitCh := make(chan struct{})
	go func() {
		gracefulCloseWG.Wait()
		close(waitCh)
	}()
	select {
	case <-waitCh:
	case <-time.After(30 * time.Second):
		slog.Warn("graceful shutdown timed out")
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := otelShutdown(shutdownCtx); err != nil {
		slog.With(logging.ErrKey, err).Error("error shutting down OpenTelemetry SDK")
	}

	slog.Info("scheduling service stopped")
}
