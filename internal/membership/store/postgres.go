package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"agencyhub/internal/membership/models"
	"agencyhub/internal/platform/postgres"
	id "agencyhub/pkg/domain"
	"agencyhub/pkg/platform/sentinel"
	txcontext "agencyhub/pkg/platform/tx"
)

// PostgresStore persists memberships. Uniqueness of (agency, recruiter) and of
// the owner row is enforced by indexes; violations surface as
// sentinel.ErrAlreadyUsed.
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

const membershipColumns = `id, agency_id, recruiter_id, role, status, team_id, created_at, updated_at`

func (s *PostgresStore) Create(ctx context.Context, m *models.Membership) error {
	_, err := s.execer(ctx).ExecContext(ctx, `
		INSERT INTO memberships (`+membershipColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, uuid.UUID(m.ID), uuid.UUID(m.AgencyID), uuid.UUID(m.RecruiterID),
		string(m.Role), string(m.Status), nullableTeam(m.TeamID), m.CreatedAt, m.UpdatedAt)
	if err != nil {
		if postgres.IsUniqueViolation(err) {
			return sentinel.ErrAlreadyUsed
		}
		return fmt.Errorf("insert membership: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, membershipID id.MembershipID) (*models.Membership, error) {
	row := s.execer(ctx).QueryRowContext(ctx,
		`SELECT `+membershipColumns+` FROM memberships WHERE id = $1`, uuid.UUID(membershipID))
	return scanOne(row)
}

func (s *PostgresStore) FindByAgencyAndRecruiter(ctx context.Context, agencyID id.AgencyID, recruiterID id.RecruiterID) (*models.Membership, error) {
	row := s.execer(ctx).QueryRowContext(ctx,
		`SELECT `+membershipColumns+` FROM memberships WHERE agency_id = $1 AND recruiter_id = $2`,
		uuid.UUID(agencyID), uuid.UUID(recruiterID))
	return scanOne(row)
}

func (s *PostgresStore) ListByAgency(ctx context.Context, agencyID id.AgencyID) ([]*models.Membership, error) {
	return s.list(ctx, `SELECT `+membershipColumns+` FROM memberships
		WHERE agency_id = $1 ORDER BY created_at, id`, uuid.UUID(agencyID))
}

func (s *PostgresStore) ListByRecruiter(ctx context.Context, recruiterID id.RecruiterID) ([]*models.Membership, error) {
	return s.list(ctx, `SELECT `+membershipColumns+` FROM memberships
		WHERE recruiter_id = $1 ORDER BY created_at, id`, uuid.UUID(recruiterID))
}

// FindForUpdate locks the target row for the rest of the enclosing
// transaction.
func (s *PostgresStore) FindForUpdate(ctx context.Context, membershipID id.MembershipID) (*models.Membership, error) {
	query := `SELECT ` + membershipColumns + ` FROM memberships WHERE id = $1`
	if _, ok := txcontext.From(ctx); ok {
		query += ` FOR UPDATE`
	}
	return scanOne(s.execer(ctx).QueryRowContext(ctx, query, uuid.UUID(membershipID)))
}

// FindForShare reads the caller's row and, inside a transaction, holds a
// share lock on it so a concurrent demotion or removal waits for the caller.
func (s *PostgresStore) FindForShare(ctx context.Context, agencyID id.AgencyID, recruiterID id.RecruiterID) (*models.Membership, error) {
	query := `SELECT ` + membershipColumns + ` FROM memberships WHERE agency_id = $1 AND recruiter_id = $2`
	if _, ok := txcontext.From(ctx); ok {
		query += ` FOR SHARE`
	}
	return scanOne(s.execer(ctx).QueryRowContext(ctx, query, uuid.UUID(agencyID), uuid.UUID(recruiterID)))
}

func (s *PostgresStore) UpdateStatus(ctx context.Context, m *models.Membership) error {
	return s.update(ctx, `UPDATE memberships SET status = $2, updated_at = $3 WHERE id = $1`,
		uuid.UUID(m.ID), string(m.Status), m.UpdatedAt)
}

func (s *PostgresStore) UpdateRole(ctx context.Context, m *models.Membership) error {
	return s.update(ctx, `UPDATE memberships SET role = $2, updated_at = $3 WHERE id = $1`,
		uuid.UUID(m.ID), string(m.Role), m.UpdatedAt)
}

func (s *PostgresStore) UpdateTeam(ctx context.Context, m *models.Membership) error {
	return s.update(ctx, `UPDATE memberships SET team_id = $2, updated_at = $3 WHERE id = $1`,
		uuid.UUID(m.ID), nullableTeam(m.TeamID), m.UpdatedAt)
}

func (s *PostgresStore) update(ctx context.Context, query string, args ...any) error {
	res, err := s.execer(ctx).ExecContext(ctx, query, args...)
	if err != nil {
		if postgres.IsUniqueViolation(err) {
			return sentinel.ErrAlreadyUsed
		}
		if postgres.IsForeignKeyViolation(err) {
			return sentinel.ErrNotFound
		}
		return fmt.Errorf("update membership: %w", err)
	}
	return requireRow(res)
}

func (s *PostgresStore) Delete(ctx context.Context, membershipID id.MembershipID) error {
	res, err := s.execer(ctx).ExecContext(ctx, `DELETE FROM memberships WHERE id = $1`, uuid.UUID(membershipID))
	if err != nil {
		return fmt.Errorf("delete membership: %w", err)
	}
	return requireRow(res)
}

// DeletePending removes a join request. A row that was approved in the
// meantime is kept and reported as sentinel.ErrInvalidState.
func (s *PostgresStore) DeletePending(ctx context.Context, membershipID id.MembershipID) error {
	exec := s.execer(ctx)
	res, err := exec.ExecContext(ctx,
		`DELETE FROM memberships WHERE id = $1 AND status = 'pending'`, uuid.UUID(membershipID))
	if err != nil {
		return fmt.Errorf("delete pending membership: %w", err)
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
		`SELECT EXISTS (SELECT 1 FROM memberships WHERE id = $1)`, uuid.UUID(membershipID)).Scan(&exists); err != nil {
		return fmt.Errorf("check membership: %w", err)
	}
	if !exists {
		return sentinel.ErrNotFound
	}
	return sentinel.ErrInvalidState
}

func (s *PostgresStore) DeleteByIDs(ctx context.Context, ids []id.MembershipID) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	raw := make([]string, len(ids))
	for i, mid := range ids {
		raw[i] = mid.String()
	}
	res, err := s.execer(ctx).ExecContext(ctx,
		`DELETE FROM memberships WHERE id = ANY($1::uuid[])`, pq.Array(raw))
	if err != nil {
		return 0, fmt.Errorf("delete memberships: %w", err)
	}
	n, err := res.RowsAffected()
	return int(n), err
}

func (s *PostgresStore) ClearTeam(ctx context.Context, teamID id.TeamID) (int, error) {
	res, err := s.execer(ctx).ExecContext(ctx,
		`UPDATE memberships SET team_id = NULL, updated_at = now() WHERE team_id = $1`, uuid.UUID(teamID))
	if err != nil {
		return 0, fmt.Errorf("clear team: %w", err)
	}
	n, err := res.RowsAffected()
	return int(n), err
}

func (s *PostgresStore) CountActiveByAgencies(ctx context.Context, agencyIDs []id.AgencyID) (map[id.AgencyID]int, error) {
	counts := make(map[id.AgencyID]int)
	if len(agencyIDs) == 0 {
		return counts, nil
	}
	raw := make([]string, len(agencyIDs))
	for i, a := range agencyIDs {
		raw[i] = a.String()
	}
	rows, err := s.execer(ctx).QueryContext(ctx, `
		SELECT agency_id, count(*)
		FROM memberships
		WHERE agency_id = ANY($1::uuid[]) AND status = 'active'
		GROUP BY agency_id
	`, pq.Array(raw))
	if err != nil {
		return nil, fmt.Errorf("count active memberships: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var agencyID uuid.UUID
		var n int
		if err := rows.Scan(&agencyID, &n); err != nil {
			return nil, fmt.Errorf("scan membership count: %w", err)
		}
		counts[id.AgencyID(agencyID)] = n
	}
	return counts, rows.Err()
}

func (s *PostgresStore) DeleteByRecruiter(ctx context.Context, recruiterID id.RecruiterID) (int, error) {
	res, err := s.execer(ctx).ExecContext(ctx,
		`DELETE FROM memberships WHERE recruiter_id = $1`, uuid.UUID(recruiterID))
	if err != nil {
		return 0, fmt.Errorf("delete recruiter memberships: %w", err)
	}
	n, err := res.RowsAffected()
	return int(n), err
}

func (s *PostgresStore) list(ctx context.Context, query string, args ...any) ([]*models.Membership, error) {
	rows, err := s.execer(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query memberships: %w", err)
	}
	defer rows.Close()

	out := make([]*models.Membership, 0)
	for rows.Next() {
		m, err := scan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate memberships: %w", err)
	}
	return out, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scan(row scanner) (*models.Membership, error) {
	var (
		m                          models.Membership
		mid, agencyID, recruiterID uuid.UUID
		role, status               string
		teamID                     uuid.NullUUID
	)
	if err := row.Scan(&mid, &agencyID, &recruiterID, &role, &status, &teamID, &m.CreatedAt, &m.UpdatedAt); err != nil {
		return nil, err
	}
	m.ID = id.MembershipID(mid)
	m.AgencyID = id.AgencyID(agencyID)
	m.RecruiterID = id.RecruiterID(recruiterID)
	m.Role = models.Role(role)
	m.Status = models.Status(status)
	if teamID.Valid {
		t := id.TeamID(teamID.UUID)
		m.TeamID = &t
	}
	return &m, nil
}

func scanOne(row *sql.Row) (*models.Membership, error) {
	m, err := scan(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("scan membership: %w", err)
	}
	return m, nil
}

func nullableTeam(teamID *id.TeamID) uuid.NullUUID {
	if teamID == nil {
		return uuid.NullUUID{}
	}
	return uuid.NullUUID{UUID: uuid.UUID(*teamID), Valid: true}
}

func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}
