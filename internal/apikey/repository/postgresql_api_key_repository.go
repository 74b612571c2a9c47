// Package repository implements data persistence for API keys, rotation links
// and audit events on PostgreSQL, MySQL and SQLite.
package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	apikeyDomain "github.com/allisson/keyguard/internal/apikey/domain"
	"github.com/allisson/keyguard/internal/database"
	apperrors "github.com/allisson/keyguard/internal/errors"
)

const apiKeyColumns = `id, secret_hash, key_prefix, role, name, status, created_at, expires_at, last_used_at`

// PostgreSQLAPIKeyRepository implements APIKey persistence for PostgreSQL.
// Uses native UUID types with transaction support via database.GetTx().
type PostgreSQLAPIKeyRepository struct {
	db *sql.DB
}

// Create inserts a new APIKey. A duplicate secret hash violates the unique constraint.
func (p *PostgreSQLAPIKeyRepository) Create(ctx context.Context, key *apikeyDomain.APIKey) error {
	querier := database.GetTx(ctx, p.db)

	query := `INSERT INTO api_keys (` + apiKeyColumns + `)
			  VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	_, err := querier.ExecContext(
		ctx,
		query,
		key.ID,
		key.SecretHash,
		key.KeyPrefix,
		string(key.Role),
		key.Name,
		string(key.Status),
		key.CreatedAt,
		key.ExpiresAt,
		key.LastUsedAt,
	)
	if err != nil {
		return apperrors.Wrap(err, "failed to create api key")
	}
	return nil
}

// Update overwrites the mutable fields of an existing APIKey.
func (p *PostgreSQLAPIKeyRepository) Update(ctx context.Context, key *apikeyDomain.APIKey) error {
	querier := database.GetTx(ctx, p.db)

	query := `UPDATE api_keys
			  SET role = $1,
			      name = $2,
			      status = $3,
			      expires_at = $4,
			      last_used_at = $5
			  WHERE id = $6`

	result, err := querier.ExecContext(
		ctx,
		query,
		string(key.Role),
		key.Name,
		string(key.Status),
		key.ExpiresAt,
		key.LastUsedAt,
		key.ID,
	)
	if err != nil {
		return apperrors.Wrap(err, "failed to update api key")
	}
	return requireAffected(result, apikeyDomain.ErrKeyNotFound)
}

// UpdateLastUsed only moves last_used_at forward.
func (p *PostgreSQLAPIKeyRepository) UpdateLastUsed(ctx context.Context, keyID uuid.UUID, usedAt time.Time) error {
	querier := database.GetTx(ctx, p.db)

	query := `UPDATE api_keys SET last_used_at = $1
			  WHERE id = $2 AND (last_used_at IS NULL OR last_used_at < $1)`

	if _, err := querier.ExecContext(ctx, query, usedAt, keyID); err != nil {
		return apperrors.Wrap(err, "failed to update api key last used time")
	}
	return nil
}

// Get retrieves an APIKey by ID. Returns ErrKeyNotFound if it doesn't exist.
func (p *PostgreSQLAPIKeyRepository) Get(ctx context.Context, keyID uuid.UUID) (*apikeyDomain.APIKey, error) {
	querier := database.GetTx(ctx, p.db)

	query := `SELECT ` + apiKeyColumns + ` FROM api_keys WHERE id = $1`

	return scanAPIKey(querier.QueryRowContext(ctx, query, keyID), scanUUID)
}

// GetBySecretHash retrieves an APIKey by its token hash. Returns ErrKeyNotFound if it doesn't exist.
func (p *PostgreSQLAPIKeyRepository) GetBySecretHash(
	ctx context.Context,
	secretHash string,
) (*apikeyDomain.APIKey, error) {
	querier := database.GetTx(ctx, p.db)

	query := `SELECT ` + apiKeyColumns + ` FROM api_keys WHERE secret_hash = $1`

	return scanAPIKey(querier.QueryRowContext(ctx, query, secretHash), scanUUID)
}

// List retrieves keys matching filter ordered by created_at descending.
func (p *PostgreSQLAPIKeyRepository) List(
	ctx context.Context,
	filter apikeyDomain.KeyFilter,
) ([]*apikeyDomain.APIKey, error) {
	querier := database.GetTx(ctx, p.db)

	query, args := buildListQuery(filter, func(n int) string { return fmt.Sprintf("$%d", n) })

	rows, err := querier.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list api keys")
	}
	defer func() {
		_ = rows.Close()
	}()

	return scanAPIKeys(rows, scanUUID)
}

// NewPostgreSQLAPIKeyRepository creates a new PostgreSQL APIKey repository.
func NewPostgreSQLAPIKeyRepository(db *sql.DB) *PostgreSQLAPIKeyRepository {
	return &PostgreSQLAPIKeyRepository{db: db}
}

// rowScanner is satisfied by both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

// idScanner scans a database id column into target. It returns the scan
// destination and a function converting it once Scan has run.
type idScanner func(target *uuid.UUID) (any, func() error)

// scanUUID is used by drivers that scan UUID columns directly (PostgreSQL, SQLite text).
func scanUUID(target *uuid.UUID) (any, func() error) {
	return target, func() error { return nil }
}

// scanBinaryUUID is used by MySQL's BINARY(16) columns.
func scanBinaryUUID(target *uuid.UUID) (any, func() error) {
	var raw []byte
	return &raw, func() error {
		if err := target.UnmarshalBinary(raw); err != nil {
			return apperrors.Wrap(err, "failed to unmarshal uuid")
		}
		return nil
	}
}

func scanAPIKeyRow(row rowScanner, scanID idScanner) (*apikeyDomain.APIKey, error) {
	var key apikeyDomain.APIKey
	var role, status string
	var expiresAt, lastUsedAt sql.NullTime

	idDest, convertID := scanID(&key.ID)
	err := row.Scan(
		idDest,
		&key.SecretHash,
		&key.KeyPrefix,
		&role,
		&key.Name,
		&status,
		&key.CreatedAt,
		&expiresAt,
		&lastUsedAt,
	)
	if err != nil {
		return nil, err
	}
	if err := convertID(); err != nil {
		return nil, err
	}

	key.Role = apikeyDomain.Role(role)
	key.Status = apikeyDomain.Status(status)
	key.CreatedAt = key.CreatedAt.UTC()
	key.ExpiresAt = nullTimePtr(expiresAt)
	key.LastUsedAt = nullTimePtr(lastUsedAt)

	return &key, nil
}

func scanAPIKey(row *sql.Row, scanID idScanner) (*apikeyDomain.APIKey, error) {
	key, err := scanAPIKeyRow(row, scanID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apikeyDomain.ErrKeyNotFound
		}
		return nil, apperrors.Wrap(err, "failed to get api key")
	}
	return key, nil
}

func scanAPIKeys(rows *sql.Rows, scanID idScanner) ([]*apikeyDomain.APIKey, error) {
	keys := make([]*apikeyDomain.APIKey, 0)
	for rows.Next() {
		key, err := scanAPIKeyRow(rows, scanID)
		if err != nil {
			return nil, apperrors.Wrap(err, "failed to scan api key")
		}
		keys = append(keys, key)
	}

	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(err, "failed to iterate api keys")
	}
	return keys, nil
}

// buildListQuery renders the list query with the dialect's placeholder style.
func buildListQuery(filter apikeyDomain.KeyFilter, placeholder func(n int) string) (string, []any) {
	var conditions []string
	var args []any

	if filter.Role != "" {
		args = append(args, string(filter.Role))
		conditions = append(conditions, "role = "+placeholder(len(args)))
	}
	if filter.Status != "" {
		args = append(args, string(filter.Status))
		conditions = append(conditions, "status = "+placeholder(len(args)))
	}

	var query strings.Builder
	query.WriteString(`SELECT ` + apiKeyColumns + ` FROM api_keys`)
	if len(conditions) > 0 {
		query.WriteString(" WHERE ")
		query.WriteString(strings.Join(conditions, " AND "))
	}
	query.WriteString(" ORDER BY created_at DESC, id DESC")

	limit := filter.Limit
	if limit <= 0 {
		limit = apikeyDomain.DefaultListLimit
	}
	args = append(args, limit)
	query.WriteString(" LIMIT " + placeholder(len(args)))
	args = append(args, filter.Offset)
	query.WriteString(" OFFSET " + placeholder(len(args)))

	return query.String(), args
}

func requireAffected(result sql.Result, notFound error) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return apperrors.Wrap(err, "failed to read affected rows")
	}
	if affected == 0 {
		return notFound
	}
	return nil
}

func nullTimePtr(value sql.NullTime) *time.Time {
	if !value.Valid {
		return nil
	}
	t := value.Time.UTC()
	return &t
}
