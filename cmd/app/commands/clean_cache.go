package commands

import (
	"context"
	"fmt"
	"io"
	"log/slog"
)

// CachePurger deletes expired entries from the distributed cache tier.
type CachePurger interface {
	PurgeExpired(ctx context.Context) (int64, error)
}

// RunCleanCache removes expired rows from the distributed credential cache.
func RunCleanCache(
	ctx context.Context,
	purger CachePurger,
	logger *slog.Logger,
	writer io.Writer,
	format string,
) error {
	count, err := purger.PurgeExpired(ctx)
	if err != nil {
		return fmt.Errorf("failed to clean cache: %w", err)
	}

	logger.Info("cache cleanup completed", slog.Int64("deleted_count", count))

	if format == "json" {
		return writeJSON(writer, map[string]interface{}{
			"deleted_count": count,
		})
	}

	_, _ = fmt.Fprintf(writer, "Deleted %d expired cache entries\n", count)
	return nil
}
