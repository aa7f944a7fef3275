package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"strings"

	"eventflow/models"
	"eventflow/services"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// eventFile describes one tournament to load, e.g.
//
//	name: Friday Cup
//	mode: elimination
//	entrants: [Ann, Ben, Cat]
type eventFile struct {
	Name       string   `yaml:"name"`
	Mode       string   `yaml:"mode"`
	Background string   `yaml:"background"`
	Entrants   []string `yaml:"entrants"`
	Performers []string `yaml:"performers"`
}

func parseEventFile(r io.Reader) (*eventFile, error) {
	var ev eventFile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&ev); err != nil {
		return nil, fmt.Errorf("failed to parse event file: %w", err)
	}

	if strings.TrimSpace(ev.Name) == "" {
		return nil, fmt.Errorf("event file: name is required")
	}
	mode, ok := models.ParseMode(ev.Mode)
	if !ok {
		return nil, fmt.Errorf("event file: unknown mode %q", ev.Mode)
	}
	ev.Mode = string(mode)
	switch {
	case mode == models.ModeElimination && len(ev.Performers) > 0:
		return nil, fmt.Errorf("event file: performers need mode sequential")
	case mode == models.ModeSequential && len(ev.Entrants) > 0:
		return nil, fmt.Errorf("event file: entrants need mode elimination")
	}
	return &ev, nil
}

func newImportCommand(opts *rootOptions) *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "import",
		Short: "Create a tournament from a YAML event file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(file)
			if err != nil {
				return err
			}
			defer f.Close()

			ev, err := parseEventFile(f)
			if err != nil {
				return err
			}

			db, err := openDB(opts)
			if err != nil {
				return err
			}
			if err := models.Migrate(db); err != nil {
				return fmt.Errorf("failed to migrate database: %w", err)
			}

			hub := services.NewHub(0)
			bracket := services.NewBracketService(db, hub)
			performance := services.NewPerformanceService(db, hub)
			tournaments := services.NewTournamentService(db, hub, bracket, performance)

			t, err := importEvent(cmd.Context(), tournaments, ev)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s\n", t.ID)
			return nil
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "event YAML file")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

// importEvent creates the tournament and seeds its bracket or roster.
func importEvent(ctx context.Context, tournaments *services.TournamentService, ev *eventFile) (*models.Tournament, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	var background *string
	if ev.Background != "" {
		background = &ev.Background
	}

	t, err := tournaments.Create(ctx, ev.Name, background, ev.Mode)
	if err != nil {
		return nil, err
	}

	switch {
	case len(ev.Entrants) > 0:
		if _, err := tournaments.Bracket.Generate(ctx, t.ID, ev.Entrants); err != nil {
			return nil, err
		}
	case len(ev.Performers) > 0:
		if _, err := tournaments.Performance.ReplaceRoster(ctx, t.ID, ev.Performers); err != nil {
			return nil, err
		}
	}
	log.Printf("✅ Imported %q (%s) as %s", t.Name, t.ID, t.Mode)
	return t, nil
}
