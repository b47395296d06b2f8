package audit

import (
	"context"
	"log/slog"

	"agencyhub/pkg/attrs"
	id "agencyhub/pkg/domain"
	"agencyhub/pkg/requestcontext"
)

// Emitter is what services hold: it writes the audit log line and hands the
// structured event to the publisher. Attributes are slog-style key/value
// pairs; agency_id, recruiter_id, actor_id, reason and resource are lifted
// into the event.
type Emitter struct {
	logger    *slog.Logger
	publisher EventPublisher
}

//go:generate mockgen -source=emitter.go -destination=mocks/mock_publisher.go -package=mocks

// EventPublisher persists events; *Publisher satisfies it.
type EventPublisher interface {
	Emit(ctx context.Context, base Event) error
}

// NewEmitter tolerates nil logger and publisher so services work unwired.
func NewEmitter(logger *slog.Logger, publisher EventPublisher) *Emitter {
	return &Emitter{logger: logger, publisher: publisher}
}

// Emit logs and publishes one audit event. Inside a transaction a publish
// failure must abort the caller's unit of work, so the error is returned.
func (e *Emitter) Emit(ctx context.Context, event AuditEvent, attributes ...any) error {
	if e == nil {
		return nil
	}
	requestID := requestcontext.RequestID(ctx)
	if e.logger != nil {
		args := append([]any{}, attributes...)
		if requestID != "" {
			args = append(args, "request_id", requestID)
		}
		args = append(args, "event", string(event), "log_type", "audit")
		e.logger.InfoContext(ctx, string(event), args...)
	}
	if e.publisher == nil {
		return nil
	}

	ev := Event{
		Category:  event.Category(),
		Timestamp: requestcontext.Now(ctx),
		Action:    string(event),
		Reason:    attrs.String(attributes, "reason"),
		Resource:  attrs.String(attributes, "resource"),
		RequestID: requestID,
		ClientIP:  requestcontext.ClientIP(ctx),
		Device:    requestcontext.Device(ctx),
	}
	if v, err := id.ParseAgencyID(attrs.String(attributes, "agency_id")); err == nil {
		ev.AgencyID = v
	}
	if v, err := id.ParseRecruiterID(attrs.String(attributes, "recruiter_id")); err == nil {
		ev.Subject = v
	}
	if v, err := id.ParseRecruiterID(attrs.String(attributes, "actor_id")); err == nil {
		ev.ActorID = v
	}
	return e.publisher.Emit(ctx, ev)
}
