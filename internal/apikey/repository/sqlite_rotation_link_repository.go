package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"

	apikeyDomain "github.com/allisson/keyguard/internal/apikey/domain"
	"github.com/allisson/keyguard/internal/database"
	apperrors "github.com/allisson/keyguard/internal/errors"
)

// SQLiteRotationLinkRepository implements RotationLink persistence for SQLite.
type SQLiteRotationLinkRepository struct {
	db *sql.DB
}

// Create inserts a new RotationLink.
func (s *SQLiteRotationLinkRepository) Create(ctx context.Context, link *apikeyDomain.RotationLink) error {
	querier := database.GetTx(ctx, s.db)

	query := `INSERT INTO rotation_links (` + rotationLinkColumns + `) VALUES (?, ?, ?, ?)`

	_, err := querier.ExecContext(
		ctx,
		query,
		link.OldKeyID.String(),
		link.NewKeyID.String(),
		link.GracePeriodEnd.UTC(),
		link.CreatedAt.UTC(),
	)
	if err != nil {
		return apperrors.Wrap(err, "failed to create rotation link")
	}
	return nil
}

// Get returns ErrRotationNotFound when oldKeyID has no link.
func (s *SQLiteRotationLinkRepository) Get(
	ctx context.Context,
	oldKeyID uuid.UUID,
) (*apikeyDomain.RotationLink, error) {
	querier := database.GetTx(ctx, s.db)

	query := `SELECT ` + rotationLinkColumns + ` FROM rotation_links WHERE old_key_id = ?`

	return scanRotationLink(querier.QueryRowContext(ctx, query, oldKeyID.String()), scanUUID)
}

// Delete removes the link for oldKeyID if present.
func (s *SQLiteRotationLinkRepository) Delete(ctx context.Context, oldKeyID uuid.UUID) error {
	querier := database.GetTx(ctx, s.db)

	if _, err := querier.ExecContext(ctx, `DELETE FROM rotation_links WHERE old_key_id = ?`, oldKeyID.String()); err != nil {
		return apperrors.Wrap(err, "failed to delete rotation link")
	}
	return nil
}

// ListElapsed returns links whose grace period ended at or before now, oldest first.
func (s *SQLiteRotationLinkRepository) ListElapsed(
	ctx context.Context,
	now time.Time,
) ([]*apikeyDomain.RotationLink, error) {
	querier := database.GetTx(ctx, s.db)

	query := `SELECT ` + rotationLinkColumns + ` FROM rotation_links
			  WHERE grace_period_end <= ?
			  ORDER BY grace_period_end ASC`

	rows, err := querier.QueryContext(ctx, query, now.UTC())
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list elapsed rotation links")
	}
	defer func() {
		_ = rows.Close()
	}()

	return scanRotationLinks(rows, scanUUID)
}

// NewSQLiteRotationLinkRepository creates a new SQLite RotationLink repository.
func NewSQLiteRotationLinkRepository(db *sql.DB) *SQLiteRotationLinkRepository {
	return &SQLiteRotationLinkRepository{db: db}
}
