package main

import (
	"context"
	"log/slog"

	"github.com/urfave/cli/v3"

	"github.com/allisson/keyguard/cmd/app/commands"
	"github.com/allisson/keyguard/internal/apikey/usecase"
	"github.com/allisson/keyguard/internal/app"
)

func keyIDFlag(usage string) *cli.StringFlag {
	return &cli.StringFlag{
		Name:     "id",
		Aliases:  []string{"i"},
		Required: true,
		Usage:    usage,
	}
}

func getKeyCommands() []*cli.Command {
	return []*cli.Command{
		{
			Name:  "create-key",
			Usage: "Issue a new API key",
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:     "role",
					Aliases:  []string{"r"},
					Required: true,
					Usage:    "Role of the key (viewer, operator or admin)",
				},
				&cli.StringFlag{
					Name:    "name",
					Aliases: []string{"n"},
					Usage:   "Human-readable key name",
				},
				&cli.IntFlag{
					Name:    "expiry-days",
					Aliases: []string{"e"},
					Value:   -1,
					Usage:   "Days until the key expires (0 = never, omit for the configured default)",
				},
				formatFlag(),
			},
			Action: func(ctx context.Context, cmd *cli.Command) error {
				return withKeyUseCase(ctx, func(keyUseCase usecase.KeyUseCase, logger *slog.Logger) error {
					return commands.RunCreateKey(
						ctx,
						keyUseCase,
						logger,
						stdout,
						cmd.String("role"),
						cmd.String("name"),
						int(cmd.Int("expiry-days")),
						cmd.String("format"),
					)
				})
			},
		},
		{
			Name:  "revoke-key",
			Usage: "Revoke an API key immediately",
			Flags: []cli.Flag{keyIDFlag("Key ID (UUID)"), formatFlag()},
			Action: func(ctx context.Context, cmd *cli.Command) error {
				return withKeyUseCase(ctx, func(keyUseCase usecase.KeyUseCase, logger *slog.Logger) error {
					return commands.RunRevokeKey(ctx, keyUseCase, logger, stdout, cmd.String("id"), cmd.String("format"))
				})
			},
		},
		{
			Name:  "rotate-key",
			Usage: "Issue a replacement key while the old one stays valid for a grace period",
			Flags: []cli.Flag{
				keyIDFlag("ID of the key to rotate (UUID)"),
				&cli.IntFlag{
					Name:    "grace-minutes",
					Aliases: []string{"g"},
					Usage:   "Minutes the old key keeps validating (0 = configured default)",
				},
				&cli.StringFlag{
					Name:    "role",
					Aliases: []string{"r"},
					Usage:   "Role of the replacement key (omit to keep the current role)",
				},
				formatFlag(),
			},
			Action: func(ctx context.Context, cmd *cli.Command) error {
				return withKeyUseCase(ctx, func(keyUseCase usecase.KeyUseCase, logger *slog.Logger) error {
					return commands.RunRotateKey(
						ctx,
						keyUseCase,
						logger,
						stdout,
						cmd.String("id"),
						int(cmd.Int("grace-minutes")),
						cmd.String("role"),
						cmd.String("format"),
					)
				})
			},
		},
		{
			Name:  "sweep-rotations",
			Usage: "Complete every rotation whose grace period has elapsed",
			Flags: []cli.Flag{formatFlag()},
			Action: func(ctx context.Context, cmd *cli.Command) error {
				return withKeyUseCase(ctx, func(keyUseCase usecase.KeyUseCase, logger *slog.Logger) error {
					return commands.RunSweepRotations(ctx, keyUseCase, logger, stdout, cmd.String("format"))
				})
			},
		},
		{
			Name:  "create-signing-key",
			Usage: "Generate a key for signing audit events",
			Flags: []cli.Flag{formatFlag()},
			Action: func(ctx context.Context, cmd *cli.Command) error {
				return withContainer(ctx, func(container *app.Container) error {
					return commands.RunCreateSigningKey(container.Logger(), stdout, cmd.String("format"))
				})
			},
		},
	}
}
