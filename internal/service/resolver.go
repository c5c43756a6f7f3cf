// Copyright The GroupCal Authors.
// SPDX-License-Identifier: MIT

package service

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/groupcal/scheduling-service/internal/domain"
	"github.com/groupcal/scheduling-service/internal/domain/models"
	"github.com/groupcal/scheduling-service/internal/logging"
)

// RecipientResolver expands a scheduling action into the set of per-attendee
// recipient views, classifying each attendee as internal (inbox delivery) or
// external (outbox mail relay) and computing the recurrence instances each
// recipient is entitled to see. Instance-level removals are checked against
// the series expansion so a cancellation never names an instant the series
// does not define.
type RecipientResolver struct {
	Directory domain.PrincipalDirectory
	Expander  domain.InstanceExpander
}

// NewRecipientResolver creates a new RecipientResolver.
func NewRecipientResolver(directory domain.PrincipalDirectory, expander domain.InstanceExpander) *RecipientResolver {
	return &RecipientResolver{Directory: directory, Expander: expander}
}

// Resolve computes the recipient views for the action. Attendees whose
// address cannot be classified are returned as failed outcomes; the rest of
// the set is unaffected. An event with no attendees and no removals is an
// invalid operation.
func (r *RecipientResolver) Resolve(ctx context.Context, action models.Action, container *models.EventContainer, update *models.UpdateDescriptor) ([]models.RecipientView, []models.RecipientOutcome, error) {
	if container == nil || container.Event == nil {
		return nil, nil, domain.NewValidationError("event container is required", domain.ErrInvalidOperation)
	}
	event := container.Event

	if len(event.Attendees) == 0 && len(update.RemovedAttendees) == 0 {
		return nil, nil, domain.NewValidationError(
			"scheduling requested on an event with no attendees", domain.ErrInvalidOperation)
	}

	var views []models.RecipientView
	var failures []models.RecipientOutcome

	appendView := func(view models.RecipientView) {
		principal, err := r.Directory.LookupPrincipal(ctx, view.Address)
		if err != nil {
			slog.WarnContext(ctx, "could not classify attendee address",
				logging.ErrKey, err, "address", view.Address)
			failures = append(failures, models.RecipientOutcome{
				Recipient: view.Address,
				Status:    models.DeliveryFailed,
				Reason:    fmt.Sprintf("%s: %s", domain.ErrRecipientResolution.Error(), err.Error()),
			})
			return
		}
		if principal != nil {
			view.Class = models.DeliveryClassInbox
			view.PrincipalHref = principal.Href
		} else {
			view.Class = models.DeliveryClassOutbox
		}
		views = append(views, view)
	}

	switch action {
	case models.ActionRequest:
		r.resolveRequest(container, update, appendView, &failures)

	case models.ActionCancel:
		// Every current attendee is told the full instance set is cancelled.
		for _, a := range event.Attendees {
			appendView(models.RecipientView{
				Address: a.Address,
				Method:  models.MethodCancel,
			})
		}

	case models.ActionRefresh:
		// Unchanged attendee set, full current view. The message resends the
		// event's current state, so it goes out as a REQUEST.
		for _, a := range event.Attendees {
			appendView(models.RecipientView{
				Address: a.Address,
				Method:  models.MethodRequest,
			})
		}

	case models.ActionReply:
		// Targeted solely at the organizer.
		appendView(models.RecipientView{
			Address: event.Organizer,
			Method:  models.MethodReply,
		})

	case models.ActionNone:
		// No recipients.

	default:
		return nil, nil, domain.NewValidationError(
			fmt.Sprintf("cannot resolve recipients for action %q", action), domain.ErrInvalidOperation)
	}

	return views, failures, nil
}

// resolveRequest builds views for a REQUEST: cancellations for removed
// attendees first, invitations for added attendees, and updates for the
// remaining attendees when a substantive field changed.
func (r *RecipientResolver) resolveRequest(container *models.EventContainer, update *models.UpdateDescriptor, appendView func(models.RecipientView), failures *[]models.RecipientOutcome) {
	event := container.Event

	for _, removal := range update.RemovedAttendees {
		view := models.RecipientView{
			Address: removal.Address,
			Method:  models.MethodCancel,
		}
		if !removal.RemovedFromEntireSeries() {
			instances, err := r.instanceStarts(event, removal.Instances)
			if err != nil {
				*failures = append(*failures, models.RecipientOutcome{
					Recipient: removal.Address,
					Status:    models.DeliveryFailed,
					Reason:    err.Error(),
				})
				continue
			}
			view.ExcludedInstances = instances
		}
		appendView(view)
	}

	for _, address := range update.AddedAttendees {
		if event.HasAttendee(address) {
			// On the base series: entire series minus the instances whose
			// overrides exclude the attendee. An override naming the
			// attendee is authoritative for its own instance.
			appendView(models.RecipientView{
				Address:           address,
				Method:            models.MethodRequest,
				ExcludedInstances: overrideExclusions(container, address),
				NewlyInvited:      true,
			})
			continue
		}

		// Not on the base series: visible only at the recurrence-ids where
		// an override names them.
		visible := overrideInclusions(container, address)
		if len(visible) == 0 {
			*failures = append(*failures, models.RecipientOutcome{
				Recipient: address,
				Status:    models.DeliveryFailed,
				Reason:    "added attendee does not appear on the event or any override",
			})
			continue
		}
		appendView(models.RecipientView{
			Address:          address,
			Method:           models.MethodRequest,
			VisibleInstances: visible,
			NewlyInvited:     true,
		})
	}

	// A substantive change renegotiates with every attendee who stays on the
	// event, not only the added ones.
	if update.HasSubstantiveChange() {
		for _, a := range event.Attendees {
			if update.IsAdded(a.Address) {
				continue
			}
			if _, removed := update.Removal(a.Address); removed {
				continue
			}
			appendView(models.RecipientView{
				Address:           a.Address,
				Method:            models.MethodRequest,
				ExcludedInstances: overrideExclusions(container, a.Address),
			})
		}
	}
}

// instanceStarts normalizes the instants and verifies each one is an
// instance start the series actually defines. A cancellation naming an
// instant outside the series would corrupt the recipient's calendar.
func (r *RecipientResolver) instanceStarts(event *models.Event, instants []time.Time) ([]time.Time, error) {
	normalized := normalizeInstants(instants)
	for _, t := range normalized {
		ok, err := r.Expander.IsInstanceStart(event, t)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, domain.NewValidationError(
				fmt.Sprintf("instant %s is not an instance of the series", t.Format(time.RFC3339)))
		}
	}
	return normalized, nil
}

// overrideExclusions returns the recurrence-ids of overrides that replace the
// attendee list and omit the address.
func overrideExclusions(container *models.EventContainer, address string) []time.Time {
	var excluded []time.Time
	for _, o := range container.Overrides {
		if o.Attendees != nil && !o.HasAttendee(address, container.Event) {
			excluded = append(excluded, o.RecurrenceID.UTC())
		}
	}
	return normalizeInstants(excluded)
}

// overrideInclusions returns the recurrence-ids of overrides that name the
// address on their replaced attendee list.
func overrideInclusions(container *models.EventContainer, address string) []time.Time {
	var visible []time.Time
	for _, o := range container.Overrides {
		if o.Attendees != nil && o.HasAttendee(address, container.Event) {
			visible = append(visible, o.RecurrenceID.UTC())
		}
	}
	return normalizeInstants(visible)
}

// normalizeInstants sorts instants ascending in UTC.
func normalizeInstants(instants []time.Time) []time.Time {
	if len(instants) == 0 {
		return nil
	}
	out := make([]time.Time, len(instants))
	for i, t := range instants {
		out[i] = t.UTC()
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Before(out[j]) })
	return out
}
