package commands

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	apikeyUseCase "github.com/allisson/keyguard/internal/apikey/usecase"
)

// RunSweepRotations completes every rotation whose grace period has elapsed.
func RunSweepRotations(
	ctx context.Context,
	keyUseCase apikeyUseCase.KeyUseCase,
	logger *slog.Logger,
	writer io.Writer,
	format string,
) error {
	completed, err := keyUseCase.SweepRotations(ctx)
	if err != nil {
		return fmt.Errorf("failed to sweep rotations: %w", err)
	}

	logger.Info("rotation sweep completed", slog.Int("completed", completed))

	if format == "json" {
		return writeJSON(writer, map[string]interface{}{
			"completed": completed,
		})
	}

	_, _ = fmt.Fprintf(writer, "Completed %d elapsed rotation(s)\n", completed)
	return nil
}
