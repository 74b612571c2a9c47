package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"

	apikeyDomain "github.com/allisson/keyguard/internal/apikey/domain"
	"github.com/allisson/keyguard/internal/database"
	apperrors "github.com/allisson/keyguard/internal/errors"
)

const rotationLinkColumns = `old_key_id, new_key_id, grace_period_end, created_at`

// PostgreSQLRotationLinkRepository implements RotationLink persistence for PostgreSQL.
type PostgreSQLRotationLinkRepository struct {
	db *sql.DB
}

// Create inserts a new RotationLink. An old key can have at most one link.
func (p *PostgreSQLRotationLinkRepository) Create(ctx context.Context, link *apikeyDomain.RotationLink) error {
	querier := database.GetTx(ctx, p.db)

	query := `INSERT INTO rotation_links (` + rotationLinkColumns + `) VALUES ($1, $2, $3, $4)`

	_, err := querier.ExecContext(ctx, query, link.OldKeyID, link.NewKeyID, link.GracePeriodEnd, link.CreatedAt)
	if err != nil {
		return apperrors.Wrap(err, "failed to create rotation link")
	}
	return nil
}

// Get returns ErrRotationNotFound when oldKeyID has no link.
func (p *PostgreSQLRotationLinkRepository) Get(
	ctx context.Context,
	oldKeyID uuid.UUID,
) (*apikeyDomain.RotationLink, error) {
	querier := database.GetTx(ctx, p.db)

	query := `SELECT ` + rotationLinkColumns + ` FROM rotation_links WHERE old_key_id = $1`

	return scanRotationLink(querier.QueryRowContext(ctx, query, oldKeyID), scanUUID)
}

// Delete removes the link for oldKeyID if present.
func (p *PostgreSQLRotationLinkRepository) Delete(ctx context.Context, oldKeyID uuid.UUID) error {
	querier := database.GetTx(ctx, p.db)

	if _, err := querier.ExecContext(ctx, `DELETE FROM rotation_links WHERE old_key_id = $1`, oldKeyID); err != nil {
		return apperrors.Wrap(err, "failed to delete rotation link")
	}
	return nil
}

// ListElapsed returns links whose grace period ended at or before now, oldest first.
func (p *PostgreSQLRotationLinkRepository) ListElapsed(
	ctx context.Context,
	now time.Time,
) ([]*apikeyDomain.RotationLink, error) {
	querier := database.GetTx(ctx, p.db)

	query := `SELECT ` + rotationLinkColumns + ` FROM rotation_links
			  WHERE grace_period_end <= $1
			  ORDER BY grace_period_end ASC`

	rows, err := querier.QueryContext(ctx, query, now)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list elapsed rotation links")
	}
	defer func() {
		_ = rows.Close()
	}()

	return scanRotationLinks(rows, scanUUID)
}

// NewPostgreSQLRotationLinkRepository creates a new PostgreSQL RotationLink repository.
func NewPostgreSQLRotationLinkRepository(db *sql.DB) *PostgreSQLRotationLinkRepository {
	return &PostgreSQLRotationLinkRepository{db: db}
}

func scanRotationLinkRow(row rowScanner, scanID idScanner) (*apikeyDomain.RotationLink, error) {
	var link apikeyDomain.RotationLink

	oldDest, convertOld := scanID(&link.OldKeyID)
	newDest, convertNew := scanID(&link.NewKeyID)
	if err := row.Scan(oldDest, newDest, &link.GracePeriodEnd, &link.CreatedAt); err != nil {
		return nil, err
	}
	if err := convertOld(); err != nil {
		return nil, err
	}
	if err := convertNew(); err != nil {
		return nil, err
	}

	link.GracePeriodEnd = link.GracePeriodEnd.UTC()
	link.CreatedAt = link.CreatedAt.UTC()
	return &link, nil
}

func scanRotationLink(row *sql.Row, scanID idScanner) (*apikeyDomain.RotationLink, error) {
	link, err := scanRotationLinkRow(row, scanID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apikeyDomain.ErrRotationNotFound
		}
		return nil, apperrors.Wrap(err, "failed to get rotation link")
	}
	return link, nil
}

func scanRotationLinks(rows *sql.Rows, scanID idScanner) ([]*apikeyDomain.RotationLink, error) {
	links := make([]*apikeyDomain.RotationLink, 0)
	for rows.Next() {
		link, err := scanRotationLinkRow(rows, scanID)
		if err != nil {
			return nil, apperrors.Wrap(err, "failed to scan rotation link")
		}
		links = append(links, link)
	}

	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(err, "failed to iterate rotation links")
	}
	return links, nil
}
