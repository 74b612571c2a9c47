package repository

import (
	"context"
	"database/sql"
	"time"

	apikeyDomain "github.com/allisson/keyguard/internal/apikey/domain"
	"github.com/allisson/keyguard/internal/database"
	apperrors "github.com/allisson/keyguard/internal/errors"
)

// MySQLAuditEventRepository implements AuditEvent persistence for MySQL.
type MySQLAuditEventRepository struct {
	db *sql.DB
}

// Create inserts a new AuditEvent using BINARY(16) IDs. Nil metadata is stored as NULL.
func (m *MySQLAuditEventRepository) Create(ctx context.Context, event *apikeyDomain.AuditEvent) error {
	querier := database.GetTx(ctx, m.db)

	metadataJSON, err := marshalMetadata(event.Metadata)
	if err != nil {
		return err
	}

	id, err := event.ID.MarshalBinary()
	if err != nil {
		return apperrors.Wrap(err, "failed to marshal audit event id")
	}

	var keyID []byte
	if event.KeyID != nil {
		if keyID, err = event.KeyID.MarshalBinary(); err != nil {
			return apperrors.Wrap(err, "failed to marshal audit event key id")
		}
	}

	query := `INSERT INTO audit_events (` + auditEventColumns + `)
			  VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err = querier.ExecContext(
		ctx,
		query,
		id,
		string(event.EventType),
		nullableBytes(keyID),
		event.Actor,
		string(event.Outcome),
		event.Reason,
		event.RequestID,
		nullableBytes(metadataJSON),
		nullableBytes(event.Signature),
		event.IsSigned,
		event.CreatedAt,
	)
	if err != nil {
		return apperrors.Wrap(err, "failed to create audit event")
	}
	return nil
}

// List retrieves audit events ordered by created_at descending with pagination.
// Both time bounds are inclusive; nil means unbounded.
func (m *MySQLAuditEventRepository) List(
	ctx context.Context,
	offset, limit int,
	createdAtFrom, createdAtTo *time.Time,
) ([]*apikeyDomain.AuditEvent, error) {
	querier := database.GetTx(ctx, m.db)

	query, args := buildAuditListQuery(offset, limit, createdAtFrom, createdAtTo, questionMark)

	rows, err := querier.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list audit events")
	}
	defer func() {
		_ = rows.Close()
	}()

	return scanAuditEvents(rows, true)
}

// NewMySQLAuditEventRepository creates a new MySQL AuditEvent repository.
func NewMySQLAuditEventRepository(db *sql.DB) *MySQLAuditEventRepository {
	return &MySQLAuditEventRepository{db: db}
}
