// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Playbook Contributors

package main

import (
	"fmt"

	"github.com/playbook-dev/playbook/internal/embedding"
	pberr "github.com/playbook-dev/playbook/pkg/errors"
	"github.com/spf13/cobra"
)

func newStatusCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show status of a running playbook server",
		Long:  "Query the running server's status endpoint and display the embedding provider state.",
		RunE:  runStatus,
	}

	cmd.Flags().String("address", "127.0.0.1:8000", "server address to check")

	return cmd
}

func runStatus(cmd *cobra.Command, _ []string) error {
	addr, _ := cmd.Flags().GetString("address")
	out := cmd.OutOrStdout()

	var body struct {
		Status    string            `json:"status"`
		Version   string            `json:"version"`
		Embedding *embedding.Status `json:"embedding"`
	}
	if err := newAPIClient(addr).getJSON("/api/v1/status", &body); err != nil {
		if pberr.HasCode(err, pberr.CodeCLIServerDown) {
			_, _ = fmt.Fprintf(out, "Playbook at %s is not running (connection refused)\n", addr)
			return nil
		}
		_, _ = fmt.Fprintf(out, "Playbook at %s: %s\n", addr, err)
		return nil
	}

	_, _ = fmt.Fprintf(out, "Playbook at %s: %s (version %s)\n", addr, body.Status, body.Version)
	if e := body.Embedding; e != nil {
		state := "available"
		if !e.Health.Available {
			state = "cooling down"
		}
		_, _ = fmt.Fprintf(out, "Embedding: %s/%s, %s (successes=%d, failures=%d)\n",
			e.Provider, e.Model, state, e.Health.SuccessCount, e.Health.FailureCount)
		if e.Health.LastError != "" {
			_, _ = fmt.Fprintf(out, "Last error: %s\n", e.Health.LastError)
		}
	}
	return nil
}
