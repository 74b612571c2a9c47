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

// MySQLRotationLinkRepository implements RotationLink persistence for MySQL.
type MySQLRotationLinkRepository struct {
	db *sql.DB
}

// Create inserts a new RotationLink using BINARY(16) key IDs.
func (m *MySQLRotationLinkRepository) Create(ctx context.Context, link *apikeyDomain.RotationLink) error {
	querier := database.GetTx(ctx, m.db)

	oldID, err := link.OldKeyID.MarshalBinary()
	if err != nil {
		return apperrors.Wrap(err, "failed to marshal old key id")
	}
	newID, err := link.NewKeyID.MarshalBinary()
	if err != nil {
		return apperrors.Wrap(err, "failed to marshal new key id")
	}

	query := `INSERT INTO rotation_links (` + rotationLinkColumns + `) VALUES (?, ?, ?, ?)`

	if _, err := querier.ExecContext(ctx, query, oldID, newID, link.GracePeriodEnd, link.CreatedAt); err != nil {
		return apperrors.Wrap(err, "failed to create rotation link")
	}
	return nil
}

// Get returns ErrRotationNotFound when oldKeyID has no link.
func (m *MySQLRotationLinkRepository) Get(
	ctx context.Context,
	oldKeyID uuid.UUID,
) (*apikeyDomain.RotationLink, error) {
	querier := database.GetTx(ctx, m.db)

	id, err := oldKeyID.MarshalBinary()
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to marshal old key id")
	}

	query := `SELECT ` + rotationLinkColumns + ` FROM rotation_links WHERE old_key_id = ?`

	return scanRotationLink(querier.QueryRowContext(ctx, query, id), scanBinaryUUID)
}

// Delete removes the link for oldKeyID if present.
func (m *MySQLRotationLinkRepository) Delete(ctx context.Context, oldKeyID uuid.UUID) error {
	querier := database.GetTx(ctx, m.db)

	id, err := oldKeyID.MarshalBinary()
	if err != nil {
		return apperrors.Wrap(err, "failed to marshal old key id")
	}

	if _, err := querier.ExecContext(ctx, `DELETE FROM rotation_links WHERE old_key_id = ?`, id); err != nil {
		return apperrors.Wrap(err, "failed to delete rotation link")
	}
	return nil
}

// ListElapsed returns links whose grace period ended at or before now, oldest first.
func (m *MySQLRotationLinkRepository) ListElapsed(
	ctx context.Context,
	now time.Time,
) ([]*apikeyDomain.RotationLink, error) {
	querier := database.GetTx(ctx, m.db)

	query := `SELECT ` + rotationLinkColumns + ` FROM rotation_links
			  WHERE grace_period_end <= ?
			  ORDER BY grace_period_end ASC`

	rows, err := querier.QueryContext(ctx, query, now)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list elapsed rotation links")
	}
	defer func() {
		_ = rows.Close()
	}()

	return scanRotationLinks(rows, scanBinaryUUID)
}

// NewMySQLRotationLinkRepository creates a new MySQL RotationLink repository.
func NewMySQLRotationLinkRepository(db *sql.DB) *MySQLRotationLinkRepository {
	return &MySQLRotationLinkRepository{db: db}
}
