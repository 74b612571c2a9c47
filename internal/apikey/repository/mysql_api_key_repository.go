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

// MySQLAPIKeyRepository implements APIKey persistence for MySQL.
// Uses BINARY(16) for UUID storage with transaction support via database.GetTx().
// The DSN must set parseTime=true.
type MySQLAPIKeyRepository struct {
	db *sql.DB
}

// Create inserts a new APIKey using BINARY(16) for its ID.
func (m *MySQLAPIKeyRepository) Create(ctx context.Context, key *apikeyDomain.APIKey) error {
	querier := database.GetTx(ctx, m.db)

	id, err := key.ID.MarshalBinary()
	if err != nil {
		return apperrors.Wrap(err, "failed to marshal api key id")
	}

	query := `INSERT INTO api_keys (` + apiKeyColumns + `)
			  VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err = querier.ExecContext(
		ctx,
		query,
		id,
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

// Update overwrites the mutable fields of an existing APIKey. MySQL reports
// zero affected rows for no-op updates, so a missing key is not detected here.
func (m *MySQLAPIKeyRepository) Update(ctx context.Context, key *apikeyDomain.APIKey) error {
	querier := database.GetTx(ctx, m.db)

	id, err := key.ID.MarshalBinary()
	if err != nil {
		return apperrors.Wrap(err, "failed to marshal api key id")
	}

	query := `UPDATE api_keys
			  SET role = ?,
			      name = ?,
			      status = ?,
			      expires_at = ?,
			      last_used_at = ?
			  WHERE id = ?`

	_, err = querier.ExecContext(
		ctx,
		query,
		string(key.Role),
		key.Name,
		string(key.Status),
		key.ExpiresAt,
		key.LastUsedAt,
		id,
	)
	if err != nil {
		return apperrors.Wrap(err, "failed to update api key")
	}
	return nil
}

// UpdateLastUsed only moves last_used_at forward.
func (m *MySQLAPIKeyRepository) UpdateLastUsed(ctx context.Context, keyID uuid.UUID, usedAt time.Time) error {
	querier := database.GetTx(ctx, m.db)

	id, err := keyID.MarshalBinary()
	if err != nil {
		return apperrors.Wrap(err, "failed to marshal api key id")
	}

	query := `UPDATE api_keys SET last_used_at = ?
			  WHERE id = ? AND (last_used_at IS NULL OR last_used_at < ?)`

	if _, err := querier.ExecContext(ctx, query, usedAt, id, usedAt); err != nil {
		return apperrors.Wrap(err, "failed to update api key last used time")
	}
	return nil
}

// Get retrieves an APIKey by ID. Returns ErrKeyNotFound if it doesn't exist.
func (m *MySQLAPIKeyRepository) Get(ctx context.Context, keyID uuid.UUID) (*apikeyDomain.APIKey, error) {
	querier := database.GetTx(ctx, m.db)

	id, err := keyID.MarshalBinary()
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to marshal api key id")
	}

	query := `SELECT ` + apiKeyColumns + ` FROM api_keys WHERE id = ?`

	return scanAPIKey(querier.QueryRowContext(ctx, query, id), scanBinaryUUID)
}

// GetBySecretHash retrieves an APIKey by its token hash. Returns ErrKeyNotFound if it doesn't exist.
func (m *MySQLAPIKeyRepository) GetBySecretHash(
	ctx context.Context,
	secretHash string,
) (*apikeyDomain.APIKey, error) {
	querier := database.GetTx(ctx, m.db)

	query := `SELECT ` + apiKeyColumns + ` FROM api_keys WHERE secret_hash = ?`

	return scanAPIKey(querier.QueryRowContext(ctx, query, secretHash), scanBinaryUUID)
}

// List retrieves keys matching filter ordered by created_at descending.
func (m *MySQLAPIKeyRepository) List(
	ctx context.Context,
	filter apikeyDomain.KeyFilter,
) ([]*apikeyDomain.APIKey, error) {
	querier := database.GetTx(ctx, m.db)

	query, args := buildListQuery(filter, questionMark)

	rows, err := querier.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list api keys")
	}
	defer func() {
		_ = rows.Close()
	}()

	return scanAPIKeys(rows, scanBinaryUUID)
}

// NewMySQLAPIKeyRepository creates a new MySQL APIKey repository.
func NewMySQLAPIKeyRepository(db *sql.DB) *MySQLAPIKeyRepository {
	return &MySQLAPIKeyRepository{db: db}
}

func questionMark(int) string {
	return "?"
}
