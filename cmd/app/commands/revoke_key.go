package commands

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	apikeyUseCase "github.com/allisson/keyguard/internal/apikey/usecase"
)

// RunRevokeKey revokes a key immediately. Revoking an already revoked key
// succeeds again.
func RunRevokeKey(
	ctx context.Context,
	keyUseCase apikeyUseCase.KeyUseCase,
	logger *slog.Logger,
	writer io.Writer,
	keyID string,
	format string,
) error {
	id, err := parseKeyID(keyID)
	if err != nil {
		return err
	}

	revoked, err := keyUseCase.Revoke(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to revoke api key: %w", err)
	}

	logger.Info("revoke completed", slog.String("key_id", id.String()), slog.Bool("revoked", revoked))

	if format == "json" {
		return writeJSON(writer, map[string]interface{}{
			"id":      id.String(),
			"revoked": revoked,
		})
	}

	_, _ = fmt.Fprintf(writer, "API key %s revoked: %t\n", id, revoked)
	return nil
}
