// Copyright The GroupCal Authors.
// SPDX-License-Identifier: MIT

package messaging

import (
	"github.com/nats-io/nats.go"

	"github.com/groupcal/scheduling-service/internal/domain"
)

// NatsMessage adapts a [nats.Msg] to the domain message boundary the
// handlers consume.
type NatsMessage struct {
	msg *nats.Msg
}

// NewNatsMessage wraps a NATS message.
func NewNatsMessage(msg *nats.Msg) *NatsMessage {
	return &NatsMessage{msg: msg}
}

// Subject returns the message subject.
func (m *NatsMessage) Subject() string {
	return m.msg.Subject
}

// Data returns the message payload.
func (m *NatsMessage) Data() []byte {
	return m.msg.Data
}

// Respond answers the request on its reply inbox.
func (m *NatsMessage) Respond(data []byte) error {
	return m.msg.Respond(data)
}

// HasReply reports whether the requester expects a response.
func (m *NatsMessage) HasReply() bool {
	return m.msg.Reply != ""
}

// Compile-time interface check
var _ domain.Message = (*NatsMessage)(nil)
