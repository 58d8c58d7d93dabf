// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Playbook Contributors

package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	pberr "github.com/playbook-dev/playbook/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func newStartCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "start",
		Short: "Start the playbook API server",
		Long:  "Load configuration, open the play store, connect the embedding provider, and serve the HTTP API.",
		RunE:  runStart,
	}

	cmd.Flags().String("listen", "", "override listen address (host:port)")
	_ = viper.BindPFlag("networking.listen", cmd.Flags().Lookup("listen"))

	return cmd
}

func runStart(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	cfg.WarnInsecurePermissions(viper.ConfigFileUsed())

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := WireApp(ctx, cfg)
	if err != nil {
		return pberr.Wrapf(err, pberr.CodeCLISetupFailure, "wiring playbook")
	}
	defer func() { _ = app.Close() }()

	if _, err := fmt.Fprintf(cmd.OutOrStdout(), "Starting playbook on %s (backend=%s, provider=%s)\n",
		cfg.Networking.Listen, cfg.Storage.Backend, cfg.Embedding.Provider); err != nil {
		return err
	}

	return app.Start(ctx)
}
