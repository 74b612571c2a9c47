package commands

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	apikeyDomain "github.com/allisson/keyguard/internal/apikey/domain"
	apikeyUseCase "github.com/allisson/keyguard/internal/apikey/usecase"
)

// RunRotateKey issues a replacement for an existing key. The old key keeps
// validating until the grace period ends. graceMinutes of 0 uses the
// configured default and an empty role keeps the old key's role.
func RunRotateKey(
	ctx context.Context,
	keyUseCase apikeyUseCase.KeyUseCase,
	logger *slog.Logger,
	writer io.Writer,
	keyID string,
	graceMinutes int,
	role string,
	format string,
) error {
	id, err := parseKeyID(keyID)
	if err != nil {
		return err
	}
	if graceMinutes < 0 {
		return fmt.Errorf("grace period must not be negative")
	}

	input := &apikeyDomain.RotateKeyInput{
		OldKeyID:    id,
		GracePeriod: time.Duration(graceMinutes) * time.Minute,
	}
	if role != "" {
		parsedRole, err := apikeyDomain.ParseRole(role)
		if err != nil {
			return err
		}
		input.NewRole = &parsedRole
	}

	issued, err := keyUseCase.RotateWithGracePeriod(ctx, input)
	if err != nil {
		return fmt.Errorf("failed to rotate api key: %w", err)
	}

	logger.Info("api key rotated",
		slog.String("old_key_id", id.String()),
		slog.String("new_key_id", issued.Key.ID.String()),
	)

	if format == "json" {
		return writeJSON(writer, map[string]interface{}{
			"id":               issued.Key.ID.String(),
			"token":            issued.PlainToken,
			"rotated_from":     id.String(),
			"role":             issued.Key.Role,
			"grace_period_end": issued.GracePeriodEnd,
		})
	}

	_, _ = fmt.Fprintf(writer, "API key rotated successfully\n\n")
	_, _ = fmt.Fprintf(writer, "Old key ID:       %s\n", id)
	_, _ = fmt.Fprintf(writer, "New key ID:       %s\n", issued.Key.ID)
	_, _ = fmt.Fprintf(writer, "Role:             %s\n", issued.Key.Role)
	_, _ = fmt.Fprintf(writer, "Grace period end: %s\n", formatOptionalTime(issued.GracePeriodEnd))
	_, _ = fmt.Fprintf(writer, "Token:            %s\n\n", issued.PlainToken)
	_, _ = fmt.Fprintf(writer, "WARNING: Save this token now. It cannot be retrieved again.\n")
	return nil
}
