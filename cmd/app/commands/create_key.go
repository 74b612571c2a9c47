package commands

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	apikeyDomain "github.com/allisson/keyguard/internal/apikey/domain"
	apikeyUseCase "github.com/allisson/keyguard/internal/apikey/usecase"
)

// RunCreateKey issues a new API key and prints its token. The token is shown
// exactly once; only its hash is stored.
//
// expiryDays < 0 applies the configured default, 0 issues a key that never expires.
func RunCreateKey(
	ctx context.Context,
	keyUseCase apikeyUseCase.KeyUseCase,
	logger *slog.Logger,
	writer io.Writer,
	role, name string,
	expiryDays int,
	format string,
) error {
	parsedRole, err := apikeyDomain.ParseRole(role)
	if err != nil {
		return err
	}

	input := &apikeyDomain.GenerateKeyInput{
		Role: parsedRole,
		Name: name,
	}
	if expiryDays >= 0 {
		input.ExpiryDays = &expiryDays
	}

	logger.Info("creating api key", slog.String("role", string(parsedRole)), slog.String("name", name))

	issued, err := keyUseCase.Generate(ctx, input)
	if err != nil {
		return fmt.Errorf("failed to create api key: %w", err)
	}

	if format == "json" {
		return writeJSON(writer, map[string]interface{}{
			"id":         issued.Key.ID.String(),
			"token":      issued.PlainToken,
			"key_prefix": issued.Key.KeyPrefix,
			"role":       issued.Key.Role,
			"name":       issued.Key.Name,
			"expires_at": issued.Key.ExpiresAt,
		})
	}

	_, _ = fmt.Fprintf(writer, "API key created successfully\n\n")
	_, _ = fmt.Fprintf(writer, "ID:         %s\n", issued.Key.ID)
	_, _ = fmt.Fprintf(writer, "Role:       %s\n", issued.Key.Role)
	_, _ = fmt.Fprintf(writer, "Name:       %s\n", issued.Key.Name)
	_, _ = fmt.Fprintf(writer, "Expires at: %s\n", formatOptionalTime(issued.Key.ExpiresAt))
	_, _ = fmt.Fprintf(writer, "Token:      %s\n\n", issued.PlainToken)
	_, _ = fmt.Fprintf(writer, "WARNING: Save this token now. It cannot be retrieved again.\n")
	return nil
}
