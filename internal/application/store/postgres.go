package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"agencyhub/internal/application/models"
	"agencyhub/internal/platform/postgres"
	id "agencyhub/pkg/domain"
	"agencyhub/pkg/platform/sentinel"
	txcontext "agencyhub/pkg/platform/tx"
)

// PostgresStore persists applications. The partial unique index on pending
// rows backs the one-pending-per-pair rule.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

type dbExecutor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *PostgresStore) execer(ctx context.Context) dbExecutor {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return s.db
}

const applicationColumns = `id, agency_id, recruiter_id, status, message, created_at, resolved_at, resolved_by`

func (s *PostgresStore) Create(ctx context.Context, a *models.Application) error {
	_, err := s.execer(ctx).ExecContext(ctx, `
		INSERT INTO applications (`+applicationColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, uuid.UUID(a.ID), uuid.UUID(a.AgencyID), uuid.UUID(a.RecruiterID), string(a.Status), a.Message,
		a.CreatedAt, nullableTime(a.ResolvedAt), nullableRecruiter(a.ResolvedBy))
	if err != nil {
		if postgres.IsUniqueViolation(err) {
			return sentinel.ErrAlreadyUsed
		}
		if postgres.IsForeignKeyViolation(err) {
			return sentinel.ErrNotFound
		}
		return fmt.Errorf("insert application: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, applicationID id.ApplicationID) (*models.Application, error) {
	a, err := scan(s.execer(ctx).QueryRowContext(ctx,
		`SELECT `+applicationColumns+` FROM applications WHERE id = $1`, uuid.UUID(applicationID)))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("scan application: %w", err)
	}
	return a, nil
}

// FindForUpdate locks the application row for the rest of the enclosing
// transaction so concurrent resolutions queue behind each other.
func (s *PostgresStore) FindForUpdate(ctx context.Context, applicationID id.ApplicationID) (*models.Application, error) {
	query := `SELECT ` + applicationColumns + ` FROM applications WHERE id = $1`
	if _, ok := txcontext.From(ctx); ok {
		query += ` FOR UPDATE`
	}
	a, err := scan(s.execer(ctx).QueryRowContext(ctx, query, uuid.UUID(applicationID)))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("scan application: %w", err)
	}
	return a, nil
}

// Resolve moves a pending application to its final status. The status guard
// keeps a resolution from overwriting one that committed first.
func (s *PostgresStore) Resolve(ctx context.Context, a *models.Application) error {
	exec := s.execer(ctx)
	res, err := exec.ExecContext(ctx, `
		UPDATE applications SET status = $2, resolved_at = $3, resolved_by = $4
		WHERE id = $1 AND status = 'pending'
	`, uuid.UUID(a.ID), string(a.Status), nullableTime(a.ResolvedAt), nullableRecruiter(a.ResolvedBy))
	if err != nil {
		return fmt.Errorf("resolve application: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 1 {
		return nil
	}
	var exists bool
	if err := exec.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM applications WHERE id = $1)`, uuid.UUID(a.ID)).Scan(&exists); err != nil {
		return fmt.Errorf("check application: %w", err)
	}
	if !exists {
		return sentinel.ErrNotFound
	}
	return sentinel.ErrInvalidState
}

func (s *PostgresStore) ListPendingByAgency(ctx context.Context, agencyID id.AgencyID) ([]*models.Application, error) {
	return s.list(ctx, `SELECT `+applicationColumns+` FROM applications
		WHERE agency_id = $1 AND status = 'pending' ORDER BY created_at, id`, uuid.UUID(agencyID))
}

func (s *PostgresStore) ListByRecruiter(ctx context.Context, recruiterID id.RecruiterID) ([]*models.Application, error) {
	return s.list(ctx, `SELECT `+applicationColumns+` FROM applications
		WHERE recruiter_id = $1 ORDER BY created_at, id`, uuid.UUID(recruiterID))
}

func (s *PostgresStore) IDsByAgency(ctx context.Context, agencyID id.AgencyID) ([]id.ApplicationID, error) {
	rows, err := s.execer(ctx).QueryContext(ctx,
		`SELECT id FROM applications WHERE agency_id = $1`, uuid.UUID(agencyID))
	if err != nil {
		return nil, fmt.Errorf("query application ids: %w", err)
	}
	defer rows.Close()
	var ids []id.ApplicationID
	for rows.Next() {
		var raw uuid.UUID
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("scan application id: %w", err)
		}
		ids = append(ids, id.ApplicationID(raw))
	}
	return ids, rows.Err()
}

func (s *PostgresStore) DeleteByIDs(ctx context.Context, ids []id.ApplicationID) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	raw := make([]string, len(ids))
	for i, aid := range ids {
		raw[i] = aid.String()
	}
	res, err := s.execer(ctx).ExecContext(ctx,
		`DELETE FROM applications WHERE id = ANY($1::uuid[])`, pq.Array(raw))
	if err != nil {
		return 0, fmt.Errorf("delete applications: %w", err)
	}
	n, err := res.RowsAffected()
	return int(n), err
}

func (s *PostgresStore) DeleteByRecruiter(ctx context.Context, recruiterID id.RecruiterID) (int, error) {
	res, err := s.execer(ctx).ExecContext(ctx,
		`DELETE FROM applications WHERE recruiter_id = $1`, uuid.UUID(recruiterID))
	if err != nil {
		return 0, fmt.Errorf("delete recruiter applications: %w", err)
	}
	n, err := res.RowsAffected()
	return int(n), err
}

func (s *PostgresStore) list(ctx context.Context, query string, args ...any) ([]*models.Application, error) {
	rows, err := s.execer(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query applications: %w", err)
	}
	defer rows.Close()

	out := make([]*models.Application, 0)
	for rows.Next() {
		a, err := scan(rows)
		if err != nil {
			return nil, fmt.Errorf("scan application: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scan(row scanner) (*models.Application, error) {
	var (
		a                          models.Application
		aid, agencyID, recruiterID uuid.UUID
		status                     string
		resolvedAt                 sql.NullTime
		resolvedBy                 uuid.NullUUID
	)
	err := row.Scan(&aid, &agencyID, &recruiterID, &status, &a.Message, &a.CreatedAt, &resolvedAt, &resolvedBy)
	if err != nil {
		return nil, err
	}
	a.ID = id.ApplicationID(aid)
	a.AgencyID = id.AgencyID(agencyID)
	a.RecruiterID = id.RecruiterID(recruiterID)
	a.Status = models.Status(status)
	if resolvedAt.Valid {
		t := resolvedAt.Time
		a.ResolvedAt = &t
	}
	if resolvedBy.Valid {
		r := id.RecruiterID(resolvedBy.UUID)
		a.ResolvedBy = &r
	}
	return &a, nil
}

func nullableTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

func nullableRecruiter(r *id.RecruiterID) uuid.NullUUID {
	if r == nil {
		return uuid.NullUUID{}
	}
	return uuid.NullUUID{UUID: uuid.UUID(*r), Valid: true}
}
