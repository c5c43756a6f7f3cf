// Copyright The GroupCal Authors.
// SPDX-License-Identifier: MIT

// Package handlers dispatches incoming NATS messages to the scheduling
// services.
package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/groupcal/scheduling-service/internal/domain"
	"github.com/groupcal/scheduling-service/internal/domain/models"
	"github.com/groupcal/scheduling-service/internal/logging"
	"github.com/groupcal/scheduling-service/internal/service"
)

// SchedulingHandler handles schedule-change messages and events.
type SchedulingHandler struct {
	schedulingService *service.SchedulingService
}

// NewSchedulingHandler creates a new scheduling handler instance.
func NewSchedulingHandler(schedulingService *service.SchedulingService) *SchedulingHandler {
	return &SchedulingHandler{
		schedulingService: schedulingService,
	}
}

func (h *SchedulingHandler) HandlerReady() bool {
	return h.schedulingService.ServiceReady()
}

// HandleMessage implements domain.MessageHandler interface
func (h *SchedulingHandler) HandleMessage(ctx context.Context, msg domain.Message) {
	subject := msg.Subject()
	ctx = logging.AppendCtx(ctx, slog.String("subject", subject))
	slog.DebugContext(ctx, "handling NATS message")

	handlers := map[string]func(ctx context.Context, msg domain.Message) ([]byte, error){
		models.ScheduleChangeSubject: h.HandleScheduleChange,
	}

	handler, ok := handlers[subject]
	if !ok {
		slog.WarnContext(ctx, "unknown subject")
		h.respond(ctx, msg, nil)
		return
	}

	response, err := handler(ctx, msg)
	if err != nil {
		slog.ErrorContext(ctx, "error handling message", logging.ErrKey, err)
		h.respond(ctx, msg, errorReply(err))
		return
	}

	h.respond(ctx, msg, response)
}

// HandleScheduleChange is the message handler for the schedule-change
// subject. It runs one scheduling invocation and replies with the
// per-recipient outcomes.
func (h *SchedulingHandler) HandleScheduleChange(ctx context.Context, msg domain.Message) ([]byte, error) {
	if !h.schedulingService.ServiceReady() {
		slog.ErrorContext(ctx, "service not ready")
		return nil, fmt.Errorf("service not ready")
	}

	var changeMsg models.ScheduleChangeMessage
	if err := json.Unmarshal(msg.Data(), &changeMsg); err != nil {
		slog.ErrorContext(ctx, "error unmarshaling schedule change message", logging.ErrKey, err)
		return nil, err
	}

	if changeMsg.Container == nil || changeMsg.Container.Event == nil {
		slog.WarnContext(ctx, "invalid schedule change message: missing event container")
		return nil, fmt.Errorf("event container is required")
	}
	if changeMsg.Update == nil {
		slog.WarnContext(ctx, "invalid schedule change message: missing update descriptor")
		return nil, fmt.Errorf("update descriptor is required")
	}

	ctx = logging.AppendCtx(ctx, slog.String("event_uid", changeMsg.Container.Event.UID))

	result, err := h.schedulingService.ScheduleChange(ctx, changeMsg.Container, changeMsg.Update, changeMsg.SuppressNewInvites)
	if err != nil {
		slog.ErrorContext(ctx, "scheduling invocation failed", logging.ErrKey, err)
		return nil, err
	}

	reply, err := json.Marshal(models.ScheduleChangeReply{Result: result})
	if err != nil {
		slog.ErrorContext(ctx, "error marshaling schedule change reply", logging.ErrKey, err)
		return nil, err
	}

	slog.InfoContext(ctx, "schedule change handled",
		"action", result.Action, "status", result.Status, "outcomes", len(result.Outcomes))

	return reply, nil
}

// respond answers the request when a reply inbox is attached. Fire-and-forget
// publishes carry no reply and are left alone.
func (h *SchedulingHandler) respond(ctx context.Context, msg domain.Message, response []byte) {
	if !msg.HasReply() {
		slog.DebugContext(ctx, "handled NATS message (no reply expected)")
		return
	}
	if err := msg.Respond(response); err != nil {
		slog.ErrorContext(ctx, "error responding to NATS message", logging.ErrKey, err)
		return
	}
	slog.DebugContext(ctx, "responded to NATS message", "response", string(response))
}

func errorReply(err error) []byte {
	reply, marshalErr := json.Marshal(models.ScheduleChangeReply{Error: err.Error()})
	if marshalErr != nil {
		return nil
	}
	return reply
}
