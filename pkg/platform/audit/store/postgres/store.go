package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	id "agencyhub/pkg/domain"
	audit "agencyhub/pkg/platform/audit"
	txcontext "agencyhub/pkg/platform/tx"

	"github.com/google/uuid"
)

// AggregateAgency is the outbox aggregate type used for agency lifecycle events.
const AggregateAgency = "agency"

// Store implements audit.Store using the transactional outbox pattern.
// Events are written to the outbox table and published to Kafka by the relay.
type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

type dbExecutor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func (s *Store) execer(ctx context.Context) dbExecutor {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return s.db
}

// Payload is the JSON document stored in the outbox and published to Kafka.
type Payload struct {
	ID        string `json:"id"`
	Category  string `json:"category"`
	Timestamp string `json:"timestamp"`
	AgencyID  string `json:"agency_id,omitempty"`
	Subject   string `json:"subject,omitempty"`
	ActorID   string `json:"actor_id,omitempty"`
	Action    string `json:"action"`
	Reason    string `json:"reason,omitempty"`
	Resource  string `json:"resource,omitempty"`
	RequestID string `json:"request_id,omitempty"`
	ClientIP  string `json:"client_ip,omitempty"`
	Device    string `json:"device,omitempty"`
}

func toPayload(eventID uuid.UUID, event audit.Event) Payload {
	p := Payload{
		ID:        eventID.String(),
		Category:  string(audit.AuditEvent(event.Action).Category()),
		Timestamp: event.Timestamp.UTC().Format(time.RFC3339Nano),
		Action:    event.Action,
		Reason:    event.Reason,
		Resource:  event.Resource,
		RequestID: event.RequestID,
		ClientIP:  event.ClientIP,
		Device:    event.Device,
	}
	if !event.AgencyID.IsNil() {
		p.AgencyID = event.AgencyID.String()
	}
	if !event.Subject.IsNil() {
		p.Subject = event.Subject.String()
	}
	if !event.ActorID.IsNil() {
		p.ActorID = event.ActorID.String()
	}
	return p
}

// Append writes an audit event to the outbox table. When ctx carries a
// transaction the insert joins it.
func (s *Store) Append(ctx context.Context, event audit.Event) error {
	eventID := uuid.New()
	payloadBytes, err := json.Marshal(toPayload(eventID, event))
	if err != nil {
		return fmt.Errorf("marshal audit payload: %w", err)
	}

	aggregateType := "audit"
	aggregateID := eventID.String()
	if !event.AgencyID.IsNil() {
		aggregateType = AggregateAgency
		aggregateID = event.AgencyID.String()
	}

	query := `
		INSERT INTO outbox (id, aggregate_type, aggregate_id, event_type, payload, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err = s.execer(ctx).ExecContext(ctx, query,
		eventID,
		aggregateType,
		aggregateID,
		event.Action,
		payloadBytes,
		event.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("insert outbox entry: %w", err)
	}
	return nil
}

// ListByAgency returns the agency's audit trail, oldest first.
func (s *Store) ListByAgency(ctx context.Context, agencyID id.AgencyID) ([]audit.Event, error) {
	query := `
		SELECT payload
		FROM outbox
		WHERE aggregate_type = $1 AND aggregate_id = $2
		ORDER BY created_at ASC, id ASC
	`
	rows, err := s.execer(ctx).QueryContext(ctx, query, AggregateAgency, agencyID.String())
	if err != nil {
		return nil, fmt.Errorf("query outbox: %w", err)
	}
	defer rows.Close()

	var events []audit.Event
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("scan outbox payload: %w", err)
		}
		event, err := DecodePayload(raw)
		if err != nil {
			return nil, err
		}
		events = append(events, event)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate outbox: %w", err)
	}
	return events, nil
}

// DecodePayload turns a stored outbox payload back into an audit.Event.
func DecodePayload(raw []byte) (audit.Event, error) {
	var p Payload
	if err := json.Unmarshal(raw, &p); err != nil {
		return audit.Event{}, fmt.Errorf("decode audit payload: %w", err)
	}
	event := audit.Event{
		Category:  audit.EventCategory(p.Category),
		Action:    p.Action,
		Reason:    p.Reason,
		Resource:  p.Resource,
		RequestID: p.RequestID,
		ClientIP:  p.ClientIP,
		Device:    p.Device,
	}
	if ts, err := time.Parse(time.RFC3339Nano, p.Timestamp); err == nil {
		event.Timestamp = ts
	}
	if p.AgencyID != "" {
		if v, err := id.ParseAgencyID(p.AgencyID); err == nil {
			event.AgencyID = v
		}
	}
	if p.Subject != "" {
		if v, err := id.ParseRecruiterID(p.Subject); err == nil {
			event.Subject = v
		}
	}
	if p.ActorID != "" {
		if v, err := id.ParseRecruiterID(p.ActorID); err == nil {
			event.ActorID = v
		}
	}
	return event, nil
}
