package commands

import (
	"fmt"
	"io"
	"log/slog"

	cryptoService "github.com/allisson/keyguard/internal/crypto/service"
)

// RunCreateSigningKey prints a fresh audit signing key in the format expected
// by AUDIT_SIGNING_KEY.
func RunCreateSigningKey(logger *slog.Logger, writer io.Writer, format string) error {
	encoded, err := cryptoService.GenerateSigningKey()
	if err != nil {
		return fmt.Errorf("failed to generate signing key: %w", err)
	}

	logger.Info("audit signing key generated")

	if format == "json" {
		return writeJSON(writer, map[string]interface{}{
			"audit_signing_key": encoded,
		})
	}

	_, _ = fmt.Fprintf(writer, "# Audit signing key (keep it secret, losing it makes existing signatures unverifiable)\n")
	_, _ = fmt.Fprintf(writer, "AUDIT_SIGNING_KEY=%s\n", encoded)
	return nil
}
