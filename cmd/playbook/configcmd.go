// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Playbook Contributors

package main

import (
	"fmt"

	"github.com/playbook-dev/playbook/internal/config"
	pberr "github.com/playbook-dev/playbook/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

const redacted = "<redacted>"

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage playbook configuration",
	}
	cmd.AddCommand(newConfigInitCmd(), newConfigShowCmd(), newConfigValidateCmd())
	return cmd
}

func newConfigInitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write the default commented config file",
		RunE:  runConfigInit,
	}
	cmd.Flags().String("path", "", "destination (default ~/.config/playbook/playbook.yaml)")
	cmd.Flags().Bool("force", false, "overwrite an existing file")
	return cmd
}

func newConfigShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration with secrets redacted",
		RunE:  runConfigShow,
	}
}

func newConfigValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate <file>",
		Short: "Check a config file without starting the server",
		Long: "Load a config file on top of the defaults and PLAYBOOK_ environment overrides and report every\n" +
			"validation error. keyring:// references are not resolved.",
		Args: cobra.ExactArgs(1),
		RunE: runConfigValidate,
	}
}

func runConfigValidate(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(args[0])
	if err != nil {
		return err
	}
	_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s is valid (backend=%s, provider=%s, dimensions=%d)\n",
		args[0], cfg.Storage.Backend, cfg.Embedding.Provider, cfg.Storage.VectorDimensions)
	return nil
}

func runConfigInit(cmd *cobra.Command, _ []string) error {
	path, _ := cmd.Flags().GetString("path")
	force, _ := cmd.Flags().GetBool("force")

	if path == "" {
		var err error
		if path, err = config.DefaultConfigPath(); err != nil {
			return err
		}
	}

	if err := config.WriteDefault(path, force); err != nil {
		return err
	}

	_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Wrote default config to %s\n", path)
	return nil
}

func runConfigShow(cmd *cobra.Command, _ []string) error {
	// Validate first so show reports the same errors start would.
	if _, err := config.FromViper(viper.GetViper()); err != nil {
		return err
	}

	settings := viper.AllSettings()
	redact(settings, "embedding", "api_key")
	redact(settings, "storage", "dsn")

	data, err := yaml.Marshal(settings)
	if err != nil {
		return pberr.Wrapf(err, pberr.CodeCLISetupFailure, "encoding config")
	}
	if used := viper.ConfigFileUsed(); used != "" {
		_, _ = fmt.Fprintf(cmd.OutOrStdout(), "# from %s\n", used)
	}
	_, err = cmd.OutOrStdout().Write(data)
	return err
}

func redact(settings map[string]any, section, key string) {
	m, ok := settings[section].(map[string]any)
	if !ok {
		return
	}
	if v, ok := m[key].(string); ok && v != "" {
		m[key] = redacted
	}
}
