package service

import (
	"context"
	"time"

	"agencyhub/internal/agency/models"
	"agencyhub/internal/platform/tracing"
	id "agencyhub/pkg/domain"
	dErrors "agencyhub/pkg/domain-errors"
)

// ListDiscoverable returns the public listing: active public agencies with
// member counts derived from the ledger on every call. Pending memberships
// are not counted.
func (s *Service) ListDiscoverable(ctx context.Context) (_ []models.Listing, err error) {
	ctx, span := tracing.Start(ctx, s.tracer, "agency.ListDiscoverable")
	defer func() { tracing.Finish(span, err) }()
	defer s.metrics.ObserveDiscovery(time.Now())

	agencies, err := s.agencies.ListListed(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list agencies")
	}
	ids := make([]id.AgencyID, len(agencies))
	for i, a := range agencies {
		ids[i] = a.ID
	}
	counts, err := s.memberships.CountActiveByAgencies(ctx, ids)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to count members")
	}
	listings := make([]models.Listing, len(agencies))
	for i, a := range agencies {
		listings[i] = models.Listing{
			ID:               a.ID,
			Slug:             a.Slug,
			Name:             a.Name,
			Branding:         a.Branding,
			AcceptingMembers: a.AcceptingMembers,
			MemberCount:      counts[a.ID],
		}
	}
	return listings, nil
}
