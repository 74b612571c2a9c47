package main

import (
	"context"
	"io"
	"log/slog"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/allisson/keyguard/internal/apikey/usecase"
	"github.com/allisson/keyguard/internal/app"
	"github.com/allisson/keyguard/internal/config"
)

// stdout is where command results are printed.
var stdout io.Writer = os.Stdout

func getCommands(version string) []*cli.Command {
	return append(getSystemCommands(version), getKeyCommands()...)
}

func formatFlag() *cli.StringFlag {
	return &cli.StringFlag{
		Name:    "format",
		Aliases: []string{"f"},
		Value:   "text",
		Usage:   "Output format: 'text' or 'json'",
	}
}

// withContainer builds a container from the environment for the duration of fn.
func withContainer(ctx context.Context, fn func(container *app.Container) error) error {
	container := app.NewContainer(config.Load())
	defer func() {
		if err := container.Shutdown(ctx); err != nil {
			container.Logger().Error("failed to shutdown container", slog.Any("error", err))
		}
	}()
	return fn(container)
}

// withKeyUseCase is withContainer for commands that only need the key use case.
func withKeyUseCase(
	ctx context.Context,
	fn func(keyUseCase usecase.KeyUseCase, logger *slog.Logger) error,
) error {
	return withContainer(ctx, func(container *app.Container) error {
		keyUseCase, err := container.KeyUseCase()
		if err != nil {
			return err
		}
		return fn(keyUseCase, container.Logger())
	})
}
