// Copyright The GroupCal Authors.
// SPDX-License-Identifier: MIT

package domain

import "context"

// SchedulingMail is one outbound iMIP email: a rendered iTIP payload plus its
// envelope recipients.
type SchedulingMail struct {
	Recipients []string
	Subject    string
	Method     string // iTIP method, also carried in the text/calendar part
	Calendar   string // serialized iCalendar payload
	BodyText   string
}

// MailSender is the outbound mail boundary used by the outbox relay.
type MailSender interface {
	SendSchedulingMail(ctx context.Context, mail SchedulingMail) error
}
