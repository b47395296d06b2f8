package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"agencyhub/internal/platform/postgres"
	"agencyhub/internal/recruiter/models"
	id "agencyhub/pkg/domain"
	"agencyhub/pkg/platform/sentinel"
	txcontext "agencyhub/pkg/platform/tx"
)

// PostgresStore persists recruiter profiles. Email uniqueness is enforced by a
// unique index on lower(email).
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

type dbExecutor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *PostgresStore) execer(ctx context.Context) dbExecutor {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return s.db
}

const recruiterColumns = `id, email, display_name, available, created_at, updated_at`

func (s *PostgresStore) Create(ctx context.Context, r *models.Recruiter) error {
	_, err := s.execer(ctx).ExecContext(ctx, `
		INSERT INTO recruiters (`+recruiterColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, uuid.UUID(r.ID), models.NormalizeEmail(r.Email), r.DisplayName, r.Available, r.CreatedAt, r.UpdatedAt)
	if err != nil {
		if postgres.IsUniqueViolation(err) {
			return sentinel.ErrAlreadyUsed
		}
		return fmt.Errorf("insert recruiter: %w", err)
	}
	return nil
}

func (s *PostgresStore) Update(ctx context.Context, r *models.Recruiter) error {
	res, err := s.execer(ctx).ExecContext(ctx, `
		UPDATE recruiters SET email = $2, display_name = $3, available = $4, updated_at = $5
		WHERE id = $1
	`, uuid.UUID(r.ID), models.NormalizeEmail(r.Email), r.DisplayName, r.Available, r.UpdatedAt)
	if err != nil {
		if postgres.IsUniqueViolation(err) {
			return sentinel.ErrAlreadyUsed
		}
		return fmt.Errorf("update recruiter: %w", err)
	}
	if n, err := res.RowsAffected(); err != nil {
		return fmt.Errorf("rows affected: %w", err)
	} else if n == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, recruiterID id.RecruiterID) (*models.Recruiter, error) {
	return s.findOne(ctx, `SELECT `+recruiterColumns+` FROM recruiters WHERE id = $1`, uuid.UUID(recruiterID))
}

func (s *PostgresStore) FindByEmail(ctx context.Context, email string) (*models.Recruiter, error) {
	return s.findOne(ctx, `SELECT `+recruiterColumns+` FROM recruiters WHERE lower(email) = $1`, models.NormalizeEmail(email))
}

func (s *PostgresStore) Delete(ctx context.Context, recruiterID id.RecruiterID) error {
	res, err := s.execer(ctx).ExecContext(ctx, `DELETE FROM recruiters WHERE id = $1`, uuid.UUID(recruiterID))
	if err != nil {
		if postgres.IsForeignKeyViolation(err) {
			return sentinel.ErrInvalidState
		}
		return fmt.Errorf("delete recruiter: %w", err)
	}
	if n, err := res.RowsAffected(); err != nil {
		return fmt.Errorf("rows affected: %w", err)
	} else if n == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *PostgresStore) findOne(ctx context.Context, query string, arg any) (*models.Recruiter, error) {
	var (
		r   models.Recruiter
		rid uuid.UUID
	)
	err := s.execer(ctx).QueryRowContext(ctx, query, arg).
		Scan(&rid, &r.Email, &r.DisplayName, &r.Available, &r.CreatedAt, &r.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find recruiter: %w", err)
	}
	r.ID = id.RecruiterID(rid)
	return &r, nil
}
