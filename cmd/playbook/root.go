// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Playbook Contributors

package main

import (
	"errors"
	"io"
	"io/fs"
	"log/slog"

	"github.com/joho/godotenv"
	"github.com/playbook-dev/playbook/internal/config"
	"github.com/playbook-dev/playbook/internal/secrets"
	pberr "github.com/playbook-dev/playbook/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// NewRootCmd creates the root playbook command with all subcommands registered.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "playbook",
		Short:         "Playbook: tactical play notes with semantic search",
		Long:          "Playbook stores tactical plays for map and agent combinations and finds similar plays by meaning.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return initViper(cmd)
		},
	}

	// Global flags: these map to viper keys via initViper.
	root.PersistentFlags().StringP("config", "c", "", "path to config file")
	root.PersistentFlags().String("data-dir", "", "path to data directory (sqlite backend)")
	root.PersistentFlags().BoolP("verbose", "v", false, "enable debug logging")

	root.AddCommand(
		newStartCmd(),
		newStatusCmd(),
		newVersionCmd(),
		newSecretCmd(),
		newImportCmd(),
		newConfigCmd(),
	)

	return root
}

// initViper sets up the global Viper with defaults, env bindings, flag
// bindings, and optional config file so the standard precedence
// (flag > env > file > defaults) is handled uniformly.
func initViper(cmd *cobra.Command) error {
	// A .env file in the working directory feeds the environment. Variables
	// already set take precedence over it.
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return pberr.Errorf(pberr.CodeConfigLoadReadFailure, "reading .env: %w", err)
	}

	v := viper.GetViper()

	config.SetDefaults(v)
	config.SetupEnv(v)

	if cfgFile, _ := cmd.Flags().GetString("config"); cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return pberr.Errorf(pberr.CodeConfigLoadReadFailure, "reading config file: %w", err)
		}
	} else {
		// SetConfigType is omitted so Viper does not try the bare name,
		// which collides with a ./playbook binary.
		v.SetConfigName("playbook")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.config/playbook")
		v.AddConfigPath("/etc/playbook")
		// No config file is fine: defaults and env vars still apply.
		// Parse or permission errors must surface.
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return pberr.Errorf(pberr.CodeConfigLoadReadFailure, "reading config: %w", err)
			}
		}
	}

	// Bind persistent flags to viper keys.
	if err := v.BindPFlag("storage.data_dir", cmd.Root().PersistentFlags().Lookup("data-dir")); err != nil {
		return pberr.Errorf(pberr.CodeCLISetupFailure, "binding data-dir flag: %w", err)
	}
	if err := v.BindPFlag("verbose", cmd.Root().PersistentFlags().Lookup("verbose")); err != nil {
		return pberr.Errorf(pberr.CodeCLISetupFailure, "binding verbose flag: %w", err)
	}

	setupLogging(cmd.ErrOrStderr(), v.GetBool("verbose"))
	return nil
}

// setupLogging installs the default slog logger used by every package.
func setupLogging(w io.Writer, verbose bool) {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})))
}

// loadConfig resolves keyring:// references held by the global Viper and
// decodes the validated configuration.
func loadConfig() (*config.Config, error) {
	v := viper.GetViper()

	if err := secrets.ResolveViperSecrets(v, secretStoreFactory()); err != nil {
		return nil, pberr.Wrapf(err, pberr.CodeCLISetupFailure, "resolving secrets")
	}

	cfg, err := config.FromViper(v)
	if err != nil {
		return nil, pberr.Wrapf(err, pberr.CodeCLISetupFailure, "loading config")
	}
	return cfg, nil
}
