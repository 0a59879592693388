// Package cmd provides the CLI commands for expkit.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/knadh/koanf/providers/env/v2"
	"github.com/knadh/koanf/v2"
	"github.com/urfave/cli/v3"

	"github.com/fclairamb/expkit/internal/apperrors"
	"github.com/fclairamb/expkit/internal/config"
	"github.com/fclairamb/expkit/internal/device"
	"github.com/fclairamb/expkit/internal/gitrepo"
	"github.com/fclairamb/expkit/internal/logging"
	"github.com/fclairamb/expkit/internal/runpath"
	"github.com/fclairamb/expkit/internal/tracking"
	"github.com/fclairamb/expkit/internal/version"
)

var (
	// konfig is the global koanf instance.
	konfig = koanf.New(".")

	// logSetup owns the one-shot logging configuration for this process.
	logSetup = &logging.Setup{}
)

// verboseFlag is the shared verbose flag for all commands.
var verboseFlag = &cli.BoolFlag{
	Name:  "verbose",
	Usage: "Enable verbose logging",
}

// setupLogging configures the global logger based on the verbose flag,
// EXP_LOG_FORMAT and the --log-file flag.
func setupLogging(cmd *cli.Command) {
	level := slog.LevelInfo
	if cmd.Bool("verbose") {
		level = slog.LevelDebug
	}

	envVal := os.Getenv("EXP_LOG_FORMAT")
	format, known := logging.ParseFormat(envVal)

	_, err := logSetup.Configure(logging.Options{
		Level:  level,
		Format: format,
		File:   cmd.String("log-file"),
	})
	if err != nil {
		// Logging must never take the tool down; fall back to the default logger.
		slog.Warn("failed to configure logging", "error", err)
	}

	if !known {
		slog.Warn("Invalid EXP_LOG_FORMAT value, using text format", "value", envVal)
	}

	if level == slog.LevelDebug {
		slog.Debug("Verbose logging enabled")
	}
}

// NewApp creates the CLI application.
func NewApp() *cli.Command {
	return &cli.Command{
		Name:    "expkit",
		Usage:   "Small utilities for ML experiment projects: run directories, repo info, devices, configs, tracking",
		Version: version.Version,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-file",
				Usage:   "Also write logs to this rotating file",
				Sources: cli.EnvVars("EXP_LOG_FILE"),
			},
			verboseFlag,
		},
		Before: func(ctx context.Context, _ *cli.Command) (context.Context, error) {
			// Load environment variables with EXP_ prefix
			if err := konfig.Load(env.Provider(".", env.Opt{
				Prefix: "EXP_",
			}), nil); err != nil {
				return ctx, fmt.Errorf("load env: %w", err)
			}

			return ctx, nil
		},
		Commands: []*cli.Command{
			runDirCommand(),
			repoCommand(),
			deviceCommand(),
			configCommand(),
			trackCommand(),
			envCommand(),
		},
	}
}

// runDirCommand creates the run-dir subcommand.
func runDirCommand() *cli.Command {
	return &cli.Command{
		Name:      "run-dir",
		Usage:     "Create a unique timestamped run directory inside the enclosing git repository",
		ArgsUsage: "[namespace]",
		Flags: []cli.Flag{
			verboseFlag,
		},
		Before: func(ctx context.Context, cmd *cli.Command) (context.Context, error) {
			setupLogging(cmd)
			return ctx, nil
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			namespace := cmd.Args().First()

			path, err := runpath.Create(ctx, namespace)
			if err != nil {
				return fmt.Errorf("create run directory: %w", err)
			}

			displayPath(path)
			return nil
		},
	}
}

// repoCommand creates the repo subcommand.
func repoCommand() *cli.Command {
	return &cli.Command{
		Name:  "repo",
		Usage: "Inspect the enclosing git repository",
		Commands: []*cli.Command{
			{
				Name:  "root",
				Usage: "Print the repository root path",
				Flags: []cli.Flag{
					verboseFlag,
				},
				Before: func(ctx context.Context, cmd *cli.Command) (context.Context, error) {
					setupLogging(cmd)
					return ctx, nil
				},
				Action: func(_ context.Context, _ *cli.Command) error {
					root, err := gitrepo.RootPath()
					if err != nil {
						return err
					}
					displayPath(root)
					return nil
				},
			},
			{
				Name:  "revision",
				Usage: "Print the current HEAD commit hash",
				Flags: []cli.Flag{
					verboseFlag,
				},
				Before: func(ctx context.Context, cmd *cli.Command) (context.Context, error) {
					setupLogging(cmd)
					return ctx, nil
				},
				Action: func(ctx context.Context, _ *cli.Command) error {
					hash, err := gitrepo.CommitHash(ctx)
					if err != nil {
						return err
					}
					displayRevision(hash)
					return nil
				},
			},
			{
				Name:  "status",
				Usage: "Show repository root, revision, dirtiness and remote",
				Flags: []cli.Flag{
					verboseFlag,
				},
				Before: func(ctx context.Context, cmd *cli.Command) (context.Context, error) {
					setupLogging(cmd)
					return ctx, nil
				},
				Action: func(ctx context.Context, _ *cli.Command) error {
					root, err := gitrepo.RootPath()
					if err != nil {
						return err
					}

					hash, err := gitrepo.CommitHash(ctx)
					if err != nil {
						return err
					}

					dirty, err := gitrepo.IsDirty(root)
					if err != nil {
						return err
					}

					remote, err := gitrepo.RemoteURL(root)
					if err != nil && !errors.Is(err, apperrors.ErrRemoteNotConfigured) {
						return err
					}

					displayRepoStatus(root, hash, dirty, remote)
					return nil
				},
			},
		},
	}
}

// deviceCommand creates the device subcommand.
func deviceCommand() *cli.Command {
	return &cli.Command{
		Name:  "device",
		Usage: "Print the compute device that would be selected",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "override",
				Aliases: []string{"o"},
				Usage:   "Force a specific device (cpu, cuda or mps)",
			},
			verboseFlag,
		},
		Before: func(ctx context.Context, cmd *cli.Command) (context.Context, error) {
			setupLogging(cmd)
			return ctx, nil
		},
		Action: func(_ context.Context, cmd *cli.Command) error {
			caps := device.Probe()

			selected, err := caps.Select(cmd.String("override"))
			if err != nil {
				return err
			}

			displayDevice(selected, caps)
			return nil
		},
	}
}

// configCommand creates the config subcommand.
func configCommand() *cli.Command {
	return &cli.Command{
		Name:  "config",
		Usage: "Load and inspect experiment configuration",
		Commands: []*cli.Command{
			{
				Name:      "show",
				Usage:     "Load a named config with key=value overrides and print the result",
				ArgsUsage: "<name> [key=value...]",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "dir",
						Aliases: []string{"d"},
						Usage:   "Config directory (default: <repo-root>/conf)",
					},
					verboseFlag,
				},
				Before: func(ctx context.Context, cmd *cli.Command) (context.Context, error) {
					setupLogging(cmd)
					return ctx, nil
				},
				Action: func(_ context.Context, cmd *cli.Command) error {
					if cmd.Args().Len() < 1 {
						return apperrors.ErrConfigNameRequired
					}

					name := cmd.Args().First()
					overrides := cmd.Args().Tail()

					opts := []config.LoaderOption{config.WithLogger(slog.Default())}
					if dir := cmd.String("dir"); dir != "" {
						opts = append(opts, config.WithDir(dir))
					}

					loader := config.NewLoader(opts...)
					k, err := loader.Load(name, overrides...)
					if err != nil {
						return fmt.Errorf("load config: %w", err)
					}

					return displayConfig(k)
				},
			},
		},
	}
}

// trackCommand creates the track subcommand.
func trackCommand() *cli.Command {
	uriFlag := &cli.StringFlag{
		Name:    "uri",
		Usage:   "Tracking server URI",
		Sources: cli.EnvVars("MLFLOW_TRACKING_URI"),
	}
	tokenFlag := &cli.StringFlag{
		Name:    "token",
		Usage:   "API token for hosted tracking servers",
		Sources: cli.EnvVars("DATABRICKS_TOKEN"),
	}

	return &cli.Command{
		Name:  "track",
		Usage: "Check connectivity to the experiment tracking server",
		Commands: []*cli.Command{
			{
				Name:  "ping",
				Usage: "Test the connection to the tracking server",
				Flags: []cli.Flag{
					uriFlag,
					tokenFlag,
					verboseFlag,
				},
				Before: func(ctx context.Context, cmd *cli.Command) (context.Context, error) {
					setupLogging(cmd)
					return ctx, nil
				},
				Action: func(ctx context.Context, cmd *cli.Command) error {
					client, err := setupTrackingClient(cmd)
					if err != nil {
						return err
					}

					if err := client.Ping(ctx); err != nil {
						return fmt.Errorf("connection test failed: %w", err)
					}

					displayConnectionOK(cmd.String("uri"))
					return nil
				},
			},
			{
				Name:  "check",
				Usage: "Check whether an experiment exists on the tracking server",
				Flags: []cli.Flag{
					uriFlag,
					tokenFlag,
					&cli.StringFlag{
						Name:    "name",
						Aliases: []string{"n"},
						Usage:   "Experiment name to look up",
					},
					&cli.StringFlag{
						Name:    "id",
						Usage:   "Experiment ID to look up",
						Sources: cli.EnvVars("MLFLOW_EXPERIMENT_ID"),
					},
					verboseFlag,
				},
				Before: func(ctx context.Context, cmd *cli.Command) (context.Context, error) {
					setupLogging(cmd)
					return ctx, nil
				},
				Action: func(ctx context.Context, cmd *cli.Command) error {
					client, err := setupTrackingClient(cmd)
					if err != nil {
						return err
					}

					name := cmd.String("name")
					id := cmd.String("id")

					exists, err := client.ExperimentExists(ctx, name, id)
					if err != nil {
						return fmt.Errorf("check experiment: %w", err)
					}

					displayExperimentCheck(name, id, exists)
					return nil
				},
			},
		},
	}
}

// envCommand creates the env subcommand.
func envCommand() *cli.Command {
	return &cli.Command{
		Name:  "env",
		Usage: "Load tracker variables from a .env file and show the result",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "file",
				Aliases: []string{"f"},
				Usage:   "Path to the .env file (default: search upward from the working directory)",
			},
			verboseFlag,
		},
		Before: func(ctx context.Context, cmd *cli.Command) (context.Context, error) {
			setupLogging(cmd)
			return ctx, nil
		},
		Action: func(_ context.Context, cmd *cli.Command) error {
			values, err := tracking.LoadEnv(cmd.String("file"))
			if err != nil {
				return fmt.Errorf("load env file: %w", err)
			}

			displayTrackerEnv(values)
			return nil
		},
	}
}

// setupTrackingClient creates the tracking client from command flags.
func setupTrackingClient(cmd *cli.Command) (*tracking.Client, error) {
	uri := cmd.String("uri")
	if uri == "" {
		return nil, apperrors.ErrTrackerURIRequired
	}

	opts := []tracking.ClientOption{tracking.WithLogger(slog.Default())}
	if token := cmd.String("token"); token != "" {
		opts = append(opts, tracking.WithToken(token))
	}

	return tracking.NewClient(uri, opts...), nil
}
