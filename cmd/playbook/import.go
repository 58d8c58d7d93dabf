// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Playbook Contributors

package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/playbook-dev/playbook/internal/play"
	"github.com/playbook-dev/playbook/internal/store"
	pberr "github.com/playbook-dev/playbook/pkg/errors"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// seedFile is the document accepted by `playbook import`. A top-level
// playbook_id applies to every entry that does not set its own.
type seedFile struct {
	PlaybookID string      `yaml:"playbook_id"`
	Plays      []seedEntry `yaml:"plays"`
}

type seedEntry struct {
	PlaybookID      string `yaml:"playbook_id"`
	Map             string `yaml:"map"`
	Agent           string `yaml:"agent"`
	EnemyAgent      string `yaml:"enemy_agent"`
	PlayDescription string `yaml:"play_description"`
	UserID          string `yaml:"user_id"`
}

// playCreator is the part of the play service the importer needs.
type playCreator interface {
	Create(ctx context.Context, in play.CreateInput) (*store.Play, error)
}

func newImportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import <file.yaml>",
		Short: "Seed plays from a YAML file",
		Long: "Create every play listed in a YAML file through the play service, computing embeddings with the\n" +
			"configured provider. Use - to read the document from stdin.",
		Args: cobra.ExactArgs(1),
		RunE: runImport,
	}
	cmd.Flags().String("playbook-id", "", "playbook_id for entries that do not set one (overrides the file)")
	cmd.Flags().Bool("dry-run", false, "parse and count entries without creating plays")
	return cmd
}

func runImport(cmd *cobra.Command, args []string) error {
	seed, err := readSeed(cmd.InOrStdin(), args[0])
	if err != nil {
		return err
	}
	if override, _ := cmd.Flags().GetString("playbook-id"); override != "" {
		seed.PlaybookID = override
	}

	out := cmd.OutOrStdout()
	if dryRun, _ := cmd.Flags().GetBool("dry-run"); dryRun {
		_, _ = fmt.Fprintf(out, "%d plays would be imported\n", len(seed.Plays))
		return nil
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	app, err := WireApp(cmd.Context(), cfg)
	if err != nil {
		return pberr.Wrapf(err, pberr.CodeCLISetupFailure, "wiring playbook")
	}
	defer func() { _ = app.Close() }()

	return importPlays(cmd.Context(), out, app.Plays, seed)
}

func readSeed(stdin io.Reader, path string) (*seedFile, error) {
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, pberr.Wrapf(err, pberr.CodeCLIInputInvalid, "reading %s", path)
	}

	var seed seedFile
	if err := yaml.Unmarshal(data, &seed); err != nil {
		return nil, pberr.Wrapf(err, pberr.CodeCLIInputInvalid, "parsing %s", path)
	}
	if len(seed.Plays) == 0 {
		return nil, pberr.Errorf(pberr.CodeCLIInputInvalid, "%s contains no plays", path)
	}
	return &seed, nil
}

// importPlays creates every entry, continuing past rejected entries, and
// reports an error when any entry could not be created. An upstream
// embedding failure stops the import, since the remaining entries would
// hit the same provider.
func importPlays(ctx context.Context, out io.Writer, plays playCreator, seed *seedFile) error {
	var attempted, failed int
	for i, e := range seed.Plays {
		playbookID := e.PlaybookID
		if playbookID == "" {
			playbookID = seed.PlaybookID
		}

		attempted++
		p, err := plays.Create(ctx, play.CreateInput{
			PlaybookID:      playbookID,
			Map:             e.Map,
			Agent:           e.Agent,
			EnemyAgent:      e.EnemyAgent,
			PlayDescription: e.PlayDescription,
			UserID:          e.UserID,
		})
		if err != nil {
			failed++
			_, _ = fmt.Fprintf(out, "entry %d (%s/%s): %s\n", i+1, e.Map, e.Agent, err)
			if pberr.IsUpstreamFailure(err) {
				break
			}
			continue
		}
		_, _ = fmt.Fprintf(out, "created %s (%s/%s)\n", p.ID, p.Map, p.Agent)
	}

	total := len(seed.Plays)
	_, _ = fmt.Fprintf(out, "Imported %d of %d plays\n", attempted-failed, total)
	if attempted < total {
		return pberr.Errorf(pberr.CodeCLIImportFailure,
			"embedding provider failed; stopped after entry %d of %d", attempted, total)
	}
	if failed > 0 {
		return pberr.Errorf(pberr.CodeCLIImportFailure, "%d of %d plays failed to import", failed, total)
	}
	return nil
}
