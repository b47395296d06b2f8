package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"agencyhub/internal/agency/models"
	"agencyhub/internal/platform/postgres"
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

const agencyColumns = `id, slug, name, description, logo_url, website, contact_email,
	owner_id, visibility, accepting_members, status, created_at, updated_at`

func (s *PostgresStore) Create(ctx context.Context, a *models.Agency) error {
	_, err := s.execer(ctx).ExecContext(ctx, `
		INSERT INTO agencies (`+agencyColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`, uuid.UUID(a.ID), a.Slug, a.Name, a.Branding.Description, a.Branding.LogoURL, a.Branding.Website,
		a.Branding.ContactEmail, uuid.UUID(a.OwnerID), string(a.Visibility), a.AcceptingMembers,
		string(a.Status), a.CreatedAt, a.UpdatedAt)
	if err != nil {
		if postgres.IsUniqueViolation(err) {
			return sentinel.ErrAlreadyUsed
		}
		if postgres.IsForeignKeyViolation(err) {
			return sentinel.ErrNotFound
		}
		return fmt.Errorf("insert agency: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, agencyID id.AgencyID) (*models.Agency, error) {
	return scanOne(s.execer(ctx).QueryRowContext(ctx,
		`SELECT `+agencyColumns+` FROM agencies WHERE id = $1`, uuid.UUID(agencyID)))
}

func (s *PostgresStore) FindBySlug(ctx context.Context, slug string) (*models.Agency, error) {
	return scanOne(s.execer(ctx).QueryRowContext(ctx,
		`SELECT `+agencyColumns+` FROM agencies WHERE slug = $1`, slug))
}

func (s *PostgresStore) Update(ctx context.Context, a *models.Agency) error {
	res, err := s.execer(ctx).ExecContext(ctx, `
		UPDATE agencies
		SET name = $2, description = $3, logo_url = $4, website = $5, contact_email = $6,
		    visibility = $7, accepting_members = $8, status = $9, updated_at = $10
		WHERE id = $1
	`, uuid.UUID(a.ID), a.Name, a.Branding.Description, a.Branding.LogoURL, a.Branding.Website,
		a.Branding.ContactEmail, string(a.Visibility), a.AcceptingMembers, string(a.Status), a.UpdatedAt)
	if err != nil {
		return fmt.Errorf("update agency: %w", err)
	}
	return requireRow(res)
}

func (s *PostgresStore) Delete(ctx context.Context, agencyID id.AgencyID) error {
	res, err := s.execer(ctx).ExecContext(ctx, `DELETE FROM agencies WHERE id = $1`, uuid.UUID(agencyID))
	if err != nil {
		return fmt.Errorf("delete agency: %w", err)
	}
	return requireRow(res)
}

func (s *PostgresStore) ListListed(ctx context.Context) ([]*models.Agency, error) {
	rows, err := s.execer(ctx).QueryContext(ctx, `
		SELECT `+agencyColumns+` FROM agencies
		WHERE status = 'active' AND visibility = 'public'
		ORDER BY name, slug
	`)
	if err != nil {
		return nil, fmt.Errorf("list agencies: %w", err)
	}
	defer rows.Close()

	out := make([]*models.Agency, 0)
	for rows.Next() {
		a, err := scan(rows)
		if err != nil {
			return nil, fmt.Errorf("scan agency: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (s *PostgresStore) CountOwnedBy(ctx context.Context, recruiterID id.RecruiterID) (int, error) {
	var n int
	err := s.execer(ctx).QueryRowContext(ctx,
		`SELECT count(*) FROM agencies WHERE owner_id = $1`, uuid.UUID(recruiterID)).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count owned agencies: %w", err)
	}
	return n, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scan(row scanner) (*models.Agency, error) {
	var (
		a                  models.Agency
		aid, ownerID       uuid.UUID
		visibility, status string
	)
	err := row.Scan(&aid, &a.Slug, &a.Name, &a.Branding.Description, &a.Branding.LogoURL,
		&a.Branding.Website, &a.Branding.ContactEmail, &ownerID, &visibility, &a.AcceptingMembers,
		&status, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return nil, err
	}
	a.ID = id.AgencyID(aid)
	a.OwnerID = id.RecruiterID(ownerID)
	a.Visibility = models.Visibility(visibility)
	a.Status = models.Status(status)
	return &a, nil
}

func scanOne(row *sql.Row) (*models.Agency, error) {
	a, err := scan(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("scan agency: %w", err)
	}
	return a, nil
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
