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

// SQLiteAPIKeyRepository implements APIKey persistence for SQLite.
// IDs are stored as text. Timestamps must be UTC so their text form sorts chronologically.
type SQLiteAPIKeyRepository struct {
	db *sql.DB
}

// Create inserts a new APIKey.
func (s *SQLiteAPIKeyRepository) Create(ctx context.Context, key *apikeyDomain.APIKey) error {
	querier := database.GetTx(ctx, s.db)

	query := `INSERT INTO api_keys (` + apiKeyColumns + `)
			  VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := querier.ExecContext(
		ctx,
		query,
		key.ID.String(),
		key.SecretHash,
		key.KeyPrefix,
		string(key.Role),
		key.Name,
		string(key.Status),
		key.CreatedAt.UTC(),
		utcPtr(key.ExpiresAt),
		utcPtr(key.LastUsedAt),
	)
	if err != nil {
		return apperrors.Wrap(err, "failed to create api key")
	}
	return nil
}

// Update overwrites the mutable fields of an existing APIKey.
func (s *SQLiteAPIKeyRepository) Update(ctx context.Context, key *apikeyDomain.APIKey) error {
	querier := database.GetTx(ctx, s.db)

	query := `UPDATE api_keys
			  SET role = ?,
			      name = ?,
			      status = ?,
			      expires_at = ?,
			      last_used_at = ?
			  WHERE id = ?`

	result, err := querier.ExecContext(
		ctx,
		query,
		string(key.Role),
		key.Name,
		string(key.Status),
		utcPtr(key.ExpiresAt),
		utcPtr(key.LastUsedAt),
		key.ID.String(),
	)
	if err != nil {
		return apperrors.Wrap(err, "failed to update api key")
	}
	return requireAffected(result, apikeyDomain.ErrKeyNotFound)
}

// UpdateLastUsed only moves last_used_at forward.
func (s *SQLiteAPIKeyRepository) UpdateLastUsed(ctx context.Context, keyID uuid.UUID, usedAt time.Time) error {
	querier := database.GetTx(ctx, s.db)

	usedAt = usedAt.UTC()
	query := `UPDATE api_keys SET last_used_at = ?
			  WHERE id = ? AND (last_used_at IS NULL OR last_used_at < ?)`

	if _, err := querier.ExecContext(ctx, query, usedAt, keyID.String(), usedAt); err != nil {
		return apperrors.Wrap(err, "failed to update api key last used time")
	}
	return nil
}

// Get retrieves an APIKey by ID. Returns ErrKeyNotFound if it doesn't exist.
func (s *SQLiteAPIKeyRepository) Get(ctx context.Context, keyID uuid.UUID) (*apikeyDomain.APIKey, error) {
	querier := database.GetTx(ctx, s.db)

	query := `SELECT ` + apiKeyColumns + ` FROM api_keys WHERE id = ?`

	return scanAPIKey(querier.QueryRowContext(ctx, query, keyID.String()), scanUUID)
}

// GetBySecretHash retrieves an APIKey by its token hash. Returns ErrKeyNotFound if it doesn't exist.
func (s *SQLiteAPIKeyRepository) GetBySecretHash(
	ctx context.Context,
	secretHash string,
) (*apikeyDomain.APIKey, error) {
	querier := database.GetTx(ctx, s.db)

	query := `SELECT ` + apiKeyColumns + ` FROM api_keys WHERE secret_hash = ?`

	return scanAPIKey(querier.QueryRowContext(ctx, query, secretHash), scanUUID)
}

// List retrieves keys matching filter ordered by created_at descending.
func (s *SQLiteAPIKeyRepository) List(
	ctx context.Context,
	filter apikeyDomain.KeyFilter,
) ([]*apikeyDomain.APIKey, error) {
	querier := database.GetTx(ctx, s.db)

	query, args := buildListQuery(filter, questionMark)

	rows, err := querier.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list api keys")
	}
	defer func() {
		_ = rows.Close()
	}()

	return scanAPIKeys(rows, scanUUID)
}

// NewSQLiteAPIKeyRepository creates a new SQLite APIKey repository.
func NewSQLiteAPIKeyRepository(db *sql.DB) *SQLiteAPIKeyRepository {
	return &SQLiteAPIKeyRepository{db: db}
}

// utcPtr normalizes an optional timestamp. A nil pointer binds as NULL.
func utcPtr(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC()
}
