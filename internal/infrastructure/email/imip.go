// Copyright The GroupCal Authors.
// SPDX-License-Identifier: MIT

// Package email renders queued scheduling messages as iMIP mail and sends
// them over SMTP.
package email

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/groupcal/scheduling-service/internal/domain/models"
)

// ICS constants for consistent values across all generated iCalendar payloads
const (
	ICSProdID         = "-//GroupCal//GroupCal Scheduling Service//EN"
	ICALVersion       = "2.0"
	ICALScale         = "GREGORIAN"
	ICALMaxLineLength = 75 // this is arbitrarily set to 75 characters to avoid long lines
)

// UTF-8 byte masks for line folding safety
const (
	UTF8TwoBitMask         = 0xC0 // Mask to isolate first two bits (11000000)
	UTF8ContinuationPrefix = 0x80 // UTF-8 continuation byte prefix (10000000)
)

// SchedulingICSGenerator renders an outgoing message as an iTIP iCalendar
// payload.
type SchedulingICSGenerator interface {
	GenerateSchedulingICS(msg *models.OutgoingMessage) (string, error)
}

// ICSGenerator generates iCalendar payloads for queued scheduling messages.
type ICSGenerator struct{}

// NewICSGenerator creates a new ICS generator
func NewICSGenerator() *ICSGenerator {
	return &ICSGenerator{}
}

// Ensure [ICSGenerator] implements [SchedulingICSGenerator]
var _ SchedulingICSGenerator = (*ICSGenerator)(nil)

// GenerateSchedulingICS renders the message's event and surviving overrides
// as one VCALENDAR carrying the message's iTIP method. All times are written
// in UTC.
func (g *ICSGenerator) GenerateSchedulingICS(msg *models.OutgoingMessage) (string, error) {
	if msg == nil || msg.Event == nil {
		return "", fmt.Errorf("outgoing message has no event")
	}
	if msg.Method == models.MethodNone {
		return "", fmt.Errorf("outgoing message has no scheduling method")
	}

	event := msg.Event
	dtstamp := time.Now().UTC().Format("20060102T150405Z")

	var ics strings.Builder

	ics.WriteString("BEGIN:VCALENDAR\r\n")
	ics.WriteString(fmt.Sprintf("VERSION:%s\r\n", ICALVersion))
	ics.WriteString(fmt.Sprintf("PRODID:%s\r\n", ICSProdID))
	ics.WriteString(fmt.Sprintf("CALSCALE:%s\r\n", ICALScale))
	ics.WriteString(fmt.Sprintf("METHOD:%s\r\n", msg.Method))

	g.writeEvent(&ics, event, msg, dtstamp)

	// One component per override, linked to the series by RECURRENCE-ID.
	for _, key := range sortedOverrideKeys(msg.Overrides) {
		g.writeOverride(&ics, event, msg.Overrides[key], msg, dtstamp)
	}

	ics.WriteString("END:VCALENDAR\r\n")

	return ics.String(), nil
}

func (g *ICSGenerator) writeEvent(ics *strings.Builder, event *models.Event, msg *models.OutgoingMessage, dtstamp string) {
	ics.WriteString("BEGIN:VEVENT\r\n")
	ics.WriteString(fmt.Sprintf("UID:%s\r\n", event.UID))
	ics.WriteString(fmt.Sprintf("DTSTAMP:%s\r\n", dtstamp))
	ics.WriteString(fmt.Sprintf("SEQUENCE:%d\r\n", event.Sequence))
	ics.WriteString(fmt.Sprintf("ORGANIZER:mailto:%s\r\n", event.Organizer))
	ics.WriteString(fmt.Sprintf("DTSTART:%s\r\n", formatICSTime(event.Start)))
	if event.End != nil {
		ics.WriteString(fmt.Sprintf("DTEND:%s\r\n", formatICSTime(*event.End)))
	}
	if event.Due != nil {
		ics.WriteString(fmt.Sprintf("DUE:%s\r\n", formatICSTime(*event.Due)))
	}

	if event.RecurrenceRule != "" {
		ics.WriteString(fmt.Sprintf("RRULE:%s\r\n", event.RecurrenceRule))
	}
	if len(event.RecurrenceDates) > 0 {
		ics.WriteString(fmt.Sprintf("RDATE:%s\r\n", joinICSTimes(event.RecurrenceDates)))
	}
	if len(event.ExceptionDates) > 0 {
		ics.WriteString(fmt.Sprintf("EXDATE:%s\r\n", joinICSTimes(event.ExceptionDates)))
	}

	g.writeTextProperties(ics, event.Summary, event.Description, event.Location)

	if msg.Method == models.MethodCancel {
		ics.WriteString("STATUS:CANCELLED\r\n")
	}

	for _, attendee := range event.Attendees {
		ics.WriteString(formatAttendee(attendee))
	}

	ics.WriteString("END:VEVENT\r\n")
}

func (g *ICSGenerator) writeOverride(ics *strings.Builder, event *models.Event, o *models.Override, msg *models.OutgoingMessage, dtstamp string) {
	ics.WriteString("BEGIN:VEVENT\r\n")
	ics.WriteString(fmt.Sprintf("UID:%s\r\n", event.UID))
	ics.WriteString(fmt.Sprintf("RECURRENCE-ID:%s\r\n", formatICSTime(o.RecurrenceID)))
	ics.WriteString(fmt.Sprintf("DTSTAMP:%s\r\n", dtstamp))
	ics.WriteString(fmt.Sprintf("SEQUENCE:%d\r\n", event.Sequence))
	ics.WriteString(fmt.Sprintf("ORGANIZER:mailto:%s\r\n", event.Organizer))

	start := o.RecurrenceID
	if o.Start != nil {
		start = *o.Start
	}
	ics.WriteString(fmt.Sprintf("DTSTART:%s\r\n", formatICSTime(start)))
	if o.End != nil {
		ics.WriteString(fmt.Sprintf("DTEND:%s\r\n", formatICSTime(*o.End)))
	}

	// Fields not overridden fall back to the series values.
	summary := event.Summary
	if o.Summary != "" {
		summary = o.Summary
	}
	description := event.Description
	if o.Description != "" {
		description = o.Description
	}
	location := event.Location
	if o.Location != "" {
		location = o.Location
	}
	g.writeTextProperties(ics, summary, description, location)

	if msg.Method == models.MethodCancel {
		ics.WriteString("STATUS:CANCELLED\r\n")
	}

	attendees := event.Attendees
	if o.Attendees != nil {
		attendees = o.Attendees
	}
	for _, attendee := range attendees {
		ics.WriteString(formatAttendee(attendee))
	}

	ics.WriteString("END:VEVENT\r\n")
}

func (g *ICSGenerator) writeTextProperties(ics *strings.Builder, summary, description, location string) {
	if summary != "" {
		ics.WriteString(fmt.Sprintf("SUMMARY:%s\r\n", escapeICSText(summary)))
	}
	if description != "" {
		ics.WriteString(fmt.Sprintf("DESCRIPTION:%s\r\n", escapeICSText(description)))
	}
	if location != "" {
		ics.WriteString(fmt.Sprintf("LOCATION:%s\r\n", escapeICSText(location)))
	}
}

// formatAttendee renders one ATTENDEE property with its parameters.
func formatAttendee(a models.Attendee) string {
	var params strings.Builder
	if a.CommonName != "" {
		params.WriteString(fmt.Sprintf(";CN=%s", a.CommonName))
	}
	if a.Role != "" {
		params.WriteString(fmt.Sprintf(";ROLE=%s", a.Role))
	}
	if a.ParticipationStatus != "" {
		params.WriteString(fmt.Sprintf(";PARTSTAT=%s", a.ParticipationStatus))
	}
	if a.RSVP {
		params.WriteString(";RSVP=TRUE")
	}
	return fmt.Sprintf("ATTENDEE%s:mailto:%s\r\n", params.String(), a.Address)
}

func formatICSTime(t time.Time) string {
	return t.UTC().Format("20060102T150405Z")
}

func joinICSTimes(instants []time.Time) string {
	formatted := make([]string, len(instants))
	for i, t := range instants {
		formatted[i] = formatICSTime(t)
	}
	return strings.Join(formatted, ",")
}

func sortedOverrideKeys(overrides map[string]*models.Override) []string {
	keys := make([]string, 0, len(overrides))
	for key := range overrides {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// escapeICSText escapes special characters in ICS text fields
func escapeICSText(text string) string {
	// Escape special characters according to RFC5545
	text = strings.ReplaceAll(text, "\\", "\\\\")
	text = strings.ReplaceAll(text, "\n", "\\n")
	text = strings.ReplaceAll(text, ",", "\\,")
	text = strings.ReplaceAll(text, ";", "\\;")

	// Fold long lines (75 characters max per line, continued lines start with space)
	return foldICSLine(text, ICALMaxLineLength)
}

// foldICSLine folds long lines according to RFC5545 (75 octets max)
func foldICSLine(line string, maxLength int) string {
	if len(line) <= maxLength {
		return line
	}

	var folded strings.Builder
	remaining := line
	first := true

	for len(remaining) > 0 {
		cutLength := maxLength
		if !first {
			cutLength = maxLength - 1 // Account for leading space on continued lines
		}

		if len(remaining) <= cutLength {
			if !first {
				folded.WriteString("\r\n ")
			}
			folded.WriteString(remaining)
			break
		}

		// Find a safe place to break (not in the middle of a UTF-8 sequence)
		breakPoint := cutLength
		for breakPoint > 0 && remaining[breakPoint-1]&UTF8TwoBitMask == UTF8ContinuationPrefix {
			breakPoint--
		}

		if !first {
			folded.WriteString("\r\n ")
		}
		folded.WriteString(remaining[:breakPoint])
		remaining = remaining[breakPoint:]
		first = false
	}

	return folded.String()
}
