package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	apikeyDomain "github.com/allisson/keyguard/internal/apikey/domain"
	"github.com/allisson/keyguard/internal/database"
	apperrors "github.com/allisson/keyguard/internal/errors"
)

const auditEventColumns = `id, event_type, key_id, actor, outcome, reason, request_id, metadata, signature, is_signed, created_at`

// PostgreSQLAuditEventRepository implements AuditEvent persistence for PostgreSQL.
// Audit events are append-only.
type PostgreSQLAuditEventRepository struct {
	db *sql.DB
}

// Create inserts a new AuditEvent. Nil metadata is stored as NULL.
func (p *PostgreSQLAuditEventRepository) Create(ctx context.Context, event *apikeyDomain.AuditEvent) error {
	querier := database.GetTx(ctx, p.db)

	metadataJSON, err := marshalMetadata(event.Metadata)
	if err != nil {
		return err
	}

	var keyID uuid.NullUUID
	if event.KeyID != nil {
		keyID = uuid.NullUUID{UUID: *event.KeyID, Valid: true}
	}

	query := `INSERT INTO audit_events (` + auditEventColumns + `)
			  VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

	_, err = querier.ExecContext(
		ctx,
		query,
		event.ID,
		string(event.EventType),
		keyID,
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
func (p *PostgreSQLAuditEventRepository) List(
	ctx context.Context,
	offset, limit int,
	createdAtFrom, createdAtTo *time.Time,
) ([]*apikeyDomain.AuditEvent, error) {
	querier := database.GetTx(ctx, p.db)

	query, args := buildAuditListQuery(offset, limit, createdAtFrom, createdAtTo, func(n int) string {
		return fmt.Sprintf("$%d", n)
	})

	rows, err := querier.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list audit events")
	}
	defer func() {
		_ = rows.Close()
	}()

	return scanAuditEvents(rows, false)
}

// NewPostgreSQLAuditEventRepository creates a new PostgreSQL AuditEvent repository.
func NewPostgreSQLAuditEventRepository(db *sql.DB) *PostgreSQLAuditEventRepository {
	return &PostgreSQLAuditEventRepository{db: db}
}

func marshalMetadata(metadata map[string]any) ([]byte, error) {
	if metadata == nil {
		return nil, nil
	}
	data, err := json.Marshal(metadata)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to marshal audit event metadata")
	}
	return data, nil
}

// nullableBytes binds an empty slice as NULL.
func nullableBytes(b []byte) any {
	if len(b) == 0 {
		return nil
	}
	return b
}

func buildAuditListQuery(
	offset, limit int,
	createdAtFrom, createdAtTo *time.Time,
	placeholder func(n int) string,
) (string, []any) {
	var conditions []string
	var args []any

	if createdAtFrom != nil {
		args = append(args, createdAtFrom.UTC())
		conditions = append(conditions, "created_at >= "+placeholder(len(args)))
	}
	if createdAtTo != nil {
		args = append(args, createdAtTo.UTC())
		conditions = append(conditions, "created_at <= "+placeholder(len(args)))
	}

	var query strings.Builder
	query.WriteString(`SELECT ` + auditEventColumns + ` FROM audit_events`)
	if len(conditions) > 0 {
		query.WriteString(" WHERE ")
		query.WriteString(strings.Join(conditions, " AND "))
	}
	query.WriteString(" ORDER BY created_at DESC, id DESC")

	args = append(args, limit)
	query.WriteString(" LIMIT " + placeholder(len(args)))
	args = append(args, offset)
	query.WriteString(" OFFSET " + placeholder(len(args)))

	return query.String(), args
}

// scanAuditEvents reads audit event rows. binaryIDs selects MySQL's BINARY(16) encoding.
func scanAuditEvents(rows *sql.Rows, binaryIDs bool) ([]*apikeyDomain.AuditEvent, error) {
	events := make([]*apikeyDomain.AuditEvent, 0)
	for rows.Next() {
		var event apikeyDomain.AuditEvent
		var eventType, outcome string
		var metadataJSON, signature []byte
		var rawID, rawKeyID []byte
		var keyID uuid.NullUUID

		var idDest, keyIDDest any = &event.ID, &keyID
		if binaryIDs {
			idDest, keyIDDest = &rawID, &rawKeyID
		}

		err := rows.Scan(
			idDest,
			&eventType,
			keyIDDest,
			&event.Actor,
			&outcome,
			&event.Reason,
			&event.RequestID,
			&metadataJSON,
			&signature,
			&event.IsSigned,
			&event.CreatedAt,
		)
		if err != nil {
			return nil, apperrors.Wrap(err, "failed to scan audit event")
		}

		if binaryIDs {
			if err := event.ID.UnmarshalBinary(rawID); err != nil {
				return nil, apperrors.Wrap(err, "failed to unmarshal audit event id")
			}
			if rawKeyID != nil {
				if err := keyID.UUID.UnmarshalBinary(rawKeyID); err != nil {
					return nil, apperrors.Wrap(err, "failed to unmarshal audit event key id")
				}
				keyID.Valid = true
			}
		}
		if keyID.Valid {
			id := keyID.UUID
			event.KeyID = &id
		}

		event.EventType = apikeyDomain.AuditEventType(eventType)
		event.Outcome = apikeyDomain.AuditOutcome(outcome)
		event.CreatedAt = event.CreatedAt.UTC()
		if len(signature) > 0 {
			event.Signature = signature
		}

		if metadataJSON != nil {
			if err := json.Unmarshal(metadataJSON, &event.Metadata); err != nil {
				return nil, apperrors.Wrap(err, "failed to unmarshal audit event metadata")
			}
		}

		events = append(events, &event)
	}

	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(err, "failed to iterate audit events")
	}
	return events, nil
}
