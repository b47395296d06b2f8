package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"agencyhub/internal/platform/postgres"
	"agencyhub/internal/team/models"
	id "agencyhub/pkg/domain"
	"agencyhub/pkg/platform/sentinel"
	txcontext "agencyhub/pkg/platform/tx"
)

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

func (s *PostgresStore) Create(ctx context.Context, t *models.Team) error {
	_, err := s.execer(ctx).ExecContext(ctx, `
		INSERT INTO teams (id, agency_id, name, specialization, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`, uuid.UUID(t.ID), uuid.UUID(t.AgencyID), t.Name, t.Specialization, t.CreatedAt)
	if err != nil {
		if postgres.IsUniqueViolation(err) {
			return sentinel.ErrAlreadyUsed
		}
		if postgres.IsForeignKeyViolation(err) {
			return sentinel.ErrNotFound
		}
		return fmt.Errorf("insert team: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, teamID id.TeamID) (*models.Team, error) {
	var (
		t             models.Team
		tid, agencyID uuid.UUID
	)
	err := s.execer(ctx).QueryRowContext(ctx, `
		SELECT id, agency_id, name, specialization, created_at FROM teams WHERE id = $1
	`, uuid.UUID(teamID)).Scan(&tid, &agencyID, &t.Name, &t.Specialization, &t.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find team: %w", err)
	}
	t.ID = id.TeamID(tid)
	t.AgencyID = id.AgencyID(agencyID)
	return &t, nil
}

func (s *PostgresStore) ListByAgency(ctx context.Context, agencyID id.AgencyID) ([]*models.Team, error) {
	rows, err := s.execer(ctx).QueryContext(ctx, `
		SELECT id, name, specialization, created_at FROM teams
		WHERE agency_id = $1 ORDER BY lower(name)
	`, uuid.UUID(agencyID))
	if err != nil {
		return nil, fmt.Errorf("list teams: %w", err)
	}
	defer rows.Close()

	out := make([]*models.Team, 0)
	for rows.Next() {
		var (
			t   models.Team
			tid uuid.UUID
		)
		if err := rows.Scan(&tid, &t.Name, &t.Specialization, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan team: %w", err)
		}
		t.ID = id.TeamID(tid)
		t.AgencyID = agencyID
		out = append(out, &t)
	}
	return out, rows.Err()
}

func (s *PostgresStore) Delete(ctx context.Context, teamID id.TeamID) error {
	res, err := s.execer(ctx).ExecContext(ctx, `DELETE FROM teams WHERE id = $1`, uuid.UUID(teamID))
	if err != nil {
		return fmt.Errorf("delete team: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *PostgresStore) DeleteByIDs(ctx context.Context, ids []id.TeamID) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	raw := make([]string, len(ids))
	for i, tid := range ids {
		raw[i] = tid.String()
	}
	res, err := s.execer(ctx).ExecContext(ctx, `DELETE FROM teams WHERE id = ANY($1::uuid[])`, pq.Array(raw))
	if err != nil {
		return 0, fmt.Errorf("delete teams: %w", err)
	}
	n, err := res.RowsAffected()
	return int(n), err
}
