// Copyright The GroupCal Authors.
// SPDX-License-Identifier: MIT

package domain

import (
	"context"

	"github.com/groupcal/scheduling-service/internal/domain/models"
)

// PrincipalDirectory classifies attendee addresses. Lookup returns a
// principal for addresses served by this system, (nil, nil) for well-formed
// external addresses, and an error for addresses that cannot be classified
// at all.
type PrincipalDirectory interface {
	LookupPrincipal(ctx context.Context, address string) (*models.Principal, error)
}
