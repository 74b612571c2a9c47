package repository

import (
	"context"
	"database/sql"
	"time"

	apikeyDomain "github.com/allisson/keyguard/internal/apikey/domain"
	"github.com/allisson/keyguard/internal/database"
	apperrors "github.com/allisson/keyguard/internal/errors"
)

// SQLiteAuditEventRepository implements AuditEvent persistence for SQLite.
type SQLiteAuditEventRepository struct {
	db *sql.DB
}

// Create inserts a new AuditEvent. Metadata is stored as JSON text.
func (s *SQLiteAuditEventRepository) Create(ctx context.Context, event *apikeyDomain.AuditEvent) error {
	querier := database.GetTx(ctx, s.db)

	metadataJSON, err := marshalMetadata(event.Metadata)
	if err != nil {
		return err
	}
	var metadata any
	if metadataJSON != nil {
		metadata = string(metadataJSON)
	}

	var keyID any
	if event.KeyID != nil {
		keyID = event.KeyID.String()
	}

	query := `INSERT INTO audit_events (` + auditEventColumns + `)
			  VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err = querier.ExecContext(
		ctx,
		query,
		event.ID.String(),
		string(event.EventType),
		keyID,
		event.Actor,
		string(event.Outcome),
		event.Reason,
		event.RequestID,
		metadata,
		nullableBytes(event.Signature),
		event.IsSigned,
		event.CreatedAt.UTC(),
	)
	if err != nil {
		return apperrors.Wrap(err, "failed to create audit event")
	}
	return nil
}

// List retrieves audit events ordered by created_at descending with pagination.
// Both time bounds are inclusive; nil means unbounded.
func (s *SQLiteAuditEventRepository) List(
	ctx context.Context,
	offset, limit int,
	createdAtFrom, createdAtTo *time.Time,
) ([]*apikeyDomain.AuditEvent, error) {
	querier := database.GetTx(ctx, s.db)

	query, args := buildAuditListQuery(offset, limit, createdAtFrom, createdAtTo, questionMark)

	rows, err := querier.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list audit events")
	}
	defer func() {
		_ = rows.Close()
	}()

	return scanAuditEvents(rows, false)
}

// NewSQLiteAuditEventRepository creates a new SQLite AuditEvent repository.
func NewSQLiteAuditEventRepository(db *sql.DB) *SQLiteAuditEventRepository {
	return &SQLiteAuditEventRepository{db: db}
}
