// Copyright The GroupCal Authors.
// SPDX-License-Identifier: MIT

// Package directory classifies attendee addresses as internal principals or
// external recipients.
package directory

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/groupcal/scheduling-service/internal/domain"
	"github.com/groupcal/scheduling-service/internal/domain/models"
	"github.com/groupcal/scheduling-service/internal/infrastructure/store"
	"github.com/groupcal/scheduling-service/internal/logging"
)

// NatsPrincipalDirectory resolves attendee addresses against the set of mail
// domains this deployment serves, with a NATS KV alias index layered on top
// for addresses whose principal href does not follow the default scheme.
//
// An address in a served domain without an alias record maps to the default
// principal href derived from its local part. An address outside the served
// domains is external. A lookup is an error only when the address cannot be
// classified at all.
type NatsPrincipalDirectory struct {
	servedDomains map[string]struct{}
	aliases       *store.NatsBaseRepository[models.Principal]
	keyBuilder    *store.KeyBuilder
}

// NewNatsPrincipalDirectory creates a directory over the served domains and
// an optional alias KV bucket (nil disables alias lookups).
func NewNatsPrincipalDirectory(servedDomains []string, aliasKV store.INatsKeyValue) *NatsPrincipalDirectory {
	domains := make(map[string]struct{}, len(servedDomains))
	for _, d := range servedDomains {
		domains[strings.ToLower(d)] = struct{}{}
	}
	return &NatsPrincipalDirectory{
		servedDomains: domains,
		aliases:       store.NewNatsBaseRepository[models.Principal](aliasKV, "principal"),
		keyBuilder:    store.NewKeyBuilder(""),
	}
}

// LookupPrincipal classifies the address. It returns the principal for an
// internal recipient, (nil, nil) for an external one, and an error when the
// address is malformed or the alias index cannot be consulted.
func (d *NatsPrincipalDirectory) LookupPrincipal(ctx context.Context, address string) (*models.Principal, error) {
	local, mailDomain, err := splitAddress(address)
	if err != nil {
		return nil, err
	}

	if d.aliases.IsReady() {
		principal, err := d.aliases.Get(ctx, d.keyBuilder.PrincipalKey(strings.ToLower(address)))
		if err == nil {
			return principal, nil
		}
		if domain.GetErrorType(err) != domain.ErrorTypeNotFound {
			slog.ErrorContext(ctx, "principal alias lookup failed",
				logging.ErrKey, err, "address", address)
			return nil, domain.NewUnavailableError(
				fmt.Sprintf("could not consult principal aliases for %q", address), err)
		}
	}

	if _, served := d.servedDomains[mailDomain]; served {
		return &models.Principal{
			Href:    "/principals/" + local,
			Address: address,
		}, nil
	}

	return nil, nil
}

// splitAddress separates a mail address into its local part and lowercased
// domain, rejecting anything that could not be delivered either way.
func splitAddress(address string) (local, mailDomain string, err error) {
	at := strings.LastIndex(address, "@")
	if at <= 0 || at == len(address)-1 {
		return "", "", domain.NewValidationError(
			fmt.Sprintf("address %q is not a valid mail address", address))
	}
	return address[:at], strings.ToLower(address[at+1:]), nil
}

// Compile-time interface check
var _ domain.PrincipalDirectory = (*NatsPrincipalDirectory)(nil)
