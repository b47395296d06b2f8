package audit

import (
	"context"
	"time"

	id "agencyhub/pkg/domain"
)

// EventCategory classifies audit events by their primary purpose.
// Downstream consumers route on it.
type EventCategory string

const (
	// CategorySecurity covers changes to who may act for an agency: role
	// changes, removals, approvals, agency deletion.
	CategorySecurity EventCategory = "security"

	// CategoryOperations covers routine lifecycle activity: join requests,
	// applications, team edits, listing changes.
	CategoryOperations EventCategory = "operations"
)

// Event is emitted from domain logic to capture key actions. Keep it
// transport-agnostic so stores and sinks can fan out.
type Event struct {
	Category  EventCategory
	Timestamp time.Time
	AgencyID  id.AgencyID
	// Subject is the recruiter the action applies to, when there is one.
	Subject id.RecruiterID
	// ActorID is the recruiter who performed the action. Empty for platform
	// admin operations.
	ActorID  id.RecruiterID
	Action   string
	Reason   string
	Resource string
	// RequestID is the correlation id from the HTTP request context.
	RequestID string
	ClientIP  string
	Device    string
}

type AuditEvent string

const (
	// Agency registry
	EventAgencyCreated         AuditEvent = "agency_created"
	EventAgencyUpdated         AuditEvent = "agency_updated"
	EventAgencyDeleted         AuditEvent = "agency_deleted"
	EventAgencyStatusChanged   AuditEvent = "agency_status_changed"
	EventAgencyAcceptanceOpen  AuditEvent = "agency_accepting_members"
	EventAgencyAcceptanceClose AuditEvent = "agency_not_accepting_members"

	// Membership ledger
	EventJoinRequested      AuditEvent = "membership_join_requested"
	EventMemberInvited      AuditEvent = "membership_invited"
	EventMemberApproved     AuditEvent = "membership_approved"
	EventJoinRejected       AuditEvent = "membership_rejected"
	EventMemberRemoved      AuditEvent = "membership_removed"
	EventMemberRoleChanged  AuditEvent = "membership_role_changed"
	EventMemberTeamAssigned AuditEvent = "membership_team_assigned"

	// Application queue
	EventApplicationSubmitted AuditEvent = "application_submitted"
	EventApplicationAccepted  AuditEvent = "application_accepted"
	EventApplicationDeclined  AuditEvent = "application_declined"

	// Team registry
	EventTeamCreated AuditEvent = "team_created"
	EventTeamDeleted AuditEvent = "team_deleted"
)

// eventCategories maps each audit event to its category.
var eventCategories = map[AuditEvent]EventCategory{
	EventAgencyDeleted:       CategorySecurity,
	EventAgencyStatusChanged: CategorySecurity,
	EventMemberInvited:       CategorySecurity,
	EventMemberApproved:      CategorySecurity,
	EventMemberRemoved:       CategorySecurity,
	EventMemberRoleChanged:   CategorySecurity,
	EventApplicationAccepted: CategorySecurity,

	EventAgencyCreated:         CategoryOperations,
	EventAgencyUpdated:         CategoryOperations,
	EventAgencyAcceptanceOpen:  CategoryOperations,
	EventAgencyAcceptanceClose: CategoryOperations,
	EventJoinRequested:         CategoryOperations,
	EventJoinRejected:          CategoryOperations,
	EventMemberTeamAssigned:    CategoryOperations,
	EventApplicationSubmitted:  CategoryOperations,
	EventApplicationDeclined:   CategoryOperations,
	EventTeamCreated:           CategoryOperations,
	EventTeamDeleted:           CategoryOperations,
}

// Category returns the EventCategory for this audit event.
// Unknown events default to CategoryOperations.
func (e AuditEvent) Category() EventCategory {
	if cat, ok := eventCategories[e]; ok {
		return cat
	}
	return CategoryOperations
}

// Store persists audit events. Postgres writes go to the outbox inside the
// caller's transaction, so an event exists only if its change committed.
type Store interface {
	Append(ctx context.Context, event Event) error
	ListByAgency(ctx context.Context, agencyID id.AgencyID) ([]Event, error)
}

// Publisher captures structured audit events. It is append-only and uses the
// storage layer for persistence so tests can swap sinks easily.
type Publisher struct {
	store Store
}

func NewPublisher(store Store) *Publisher {
	return &Publisher{store: store}
}

func (p *Publisher) Emit(ctx context.Context, base Event) error {
	if base.Timestamp.IsZero() {
		base.Timestamp = time.Now()
	}
	if base.Category == "" {
		base.Category = AuditEvent(base.Action).Category()
	}
	return p.store.Append(ctx, base)
}

func (p *Publisher) List(ctx context.Context, agencyID id.AgencyID) ([]Event, error) {
	return p.store.ListByAgency(ctx, agencyID)
}
