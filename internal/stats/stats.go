// Package stats is the client side of the recruiter performance stats
// collaborator. Stats are best-effort: a recruiter with no record yields nil,
// and callers must tolerate errors.
package stats

import (
	"context"

	id "agencyhub/pkg/domain"
)

//go:generate mockgen -source=stats.go -destination=mocks/mock_provider.go -package=mocks

// Stats is the collaborator's performance summary of one recruiter.
type Stats struct {
	Revenue        float64 `json:"revenue"`
	Placements     int     `json:"placements"`
	TimeToFillDays float64 `json:"time_to_fill_days"`
}

type Provider interface {
	GetStats(ctx context.Context, recruiterID id.RecruiterID) (*Stats, error)
}

// Noop is the provider used when no collaborator is configured.
type Noop struct{}

func (Noop) GetStats(context.Context, id.RecruiterID) (*Stats, error) { return nil, nil }
