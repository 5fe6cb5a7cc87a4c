package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/ssematimba/gate-check/internal/attendance"
	"github.com/ssematimba/gate-check/internal/config"
	"github.com/ssematimba/gate-check/internal/matcher"
	"github.com/ssematimba/gate-check/internal/store/postgres"
)

var enrollCmd = &cobra.Command{
	Use:   "enroll <export.json>",
	Short: "Bulk import enrolled templates from a JSON export",
	Long: `Import people and their face descriptors from an enrollment export.
The export is a JSON array of entries:

  [{"person_id": 1, "population": "student", "name": "Alice",
    "descriptor": [0.12, -0.08, ...]}, ...]

Entries for people already on the roster update their name. With --replace,
existing templates of each imported person are deleted first.`,
	Args: cobra.ExactArgs(1),
	RunE: runEnroll,
}

func init() {
	rootCmd.AddCommand(enrollCmd)

	enrollCmd.Flags().Bool("replace", false, "Delete existing templates of each imported person first")
	enrollCmd.Flags().Bool("check-duplicates", true, "Warn when a descriptor matches an already-enrolled person")
}

// duplicateChecker flags descriptors that match a different, already-enrolled
// person. It indexes existing templates once and adds imported ones as it
// goes, so duplicates inside the export file are caught too.
type duplicateChecker struct {
	indexes map[attendance.Population]*matcher.Index
	opts    matcher.Options
}

func newDuplicateChecker(ctx context.Context, templates *postgres.TemplateRepository, cfg *config.Config, entries []enrollEntry) (*duplicateChecker, error) {
	c := &duplicateChecker{
		indexes: make(map[attendance.Population]*matcher.Index),
		opts:    matcher.Options{Threshold: cfg.Engine.Threshold, MaxDistance: cfg.Engine.MaxDistance},
	}

	for _, e := range entries {
		if _, ok := c.indexes[e.Population]; ok {
			continue
		}
		existing, err := templates.ListTemplates(ctx, e.Population)
		if err != nil {
			return nil, fmt.Errorf("listing %s templates: %w", e.Population, err)
		}
		ix := matcher.NewIndex(e.Population)
		ix.Build(existing)
		c.indexes[e.Population] = ix
	}
	return c, nil
}

// check reports a conflicting person id, or 0 when the descriptor is clean.
func (c *duplicateChecker) check(e enrollEntry) int64 {
	ix := c.indexes[e.Population]
	result := ix.Match(e.Descriptor, c.opts)
	if result.Matched && result.PersonID != e.PersonID {
		return result.PersonID
	}
	return 0
}

func (c *duplicateChecker) add(id int64, e enrollEntry) {
	c.indexes[e.Population].Add(attendance.Template{
		ID:         id,
		PersonID:   e.PersonID,
		Population: e.Population,
		Descriptor: e.Descriptor,
	})
}

// enrollEntry is one person+descriptor pair in the export file.
type enrollEntry struct {
	PersonID   int64                 `json:"person_id"`
	Population attendance.Population `json:"population"`
	Name       string                `json:"name"`
	Descriptor []float32             `json:"descriptor"`
}

func readEnrollFile(path string) ([]enrollEntry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read export file: %w", err)
	}
	var entries []enrollEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("parse export file: %w", err)
	}
	return entries, nil
}

func validateEnrollEntry(e enrollEntry) error {
	if !e.Population.Valid() {
		return fmt.Errorf("invalid population %q", e.Population)
	}
	if e.PersonID <= 0 {
		return fmt.Errorf("invalid person id %d", e.PersonID)
	}
	if e.Name == "" {
		return fmt.Errorf("person %d has no name", e.PersonID)
	}
	if len(e.Descriptor) == 0 {
		return fmt.Errorf("person %d has an empty descriptor", e.PersonID)
	}
	return nil
}

func runEnroll(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	entries, err := readEnrollFile(args[0])
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		fmt.Println("Export file contains no entries, nothing to do")
		return nil
	}

	for i, e := range entries {
		if err := validateEnrollEntry(e); err != nil {
			return fmt.Errorf("entry %d: %w", i, err)
		}
	}

	pool, err := postgres.Initialize(&cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to initialize PostgreSQL: %w", err)
	}
	defer pool.Close()

	roster := postgres.NewRosterRepository(pool)
	templates := postgres.NewTemplateRepository(pool)
	replace := mustGetBool(cmd, "replace")
	ctx := context.Background()

	var checker *duplicateChecker
	if mustGetBool(cmd, "check-duplicates") {
		checker, err = newDuplicateChecker(ctx, templates, cfg, entries)
		if err != nil {
			return err
		}
	}

	fmt.Printf("Importing %d enrollment entries\n\n", len(entries))

	bar := progressbar.NewOptions(len(entries),
		progressbar.OptionSetDescription("Enrolling"),
		progressbar.OptionShowCount(),
		progressbar.OptionShowIts(),
		progressbar.OptionSetItsString("entries"),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionSetPredictTime(true),
		progressbar.OptionFullWidth(),
	)

	// Only the first entry per person triggers the template wipe, so an
	// export with several descriptors per person keeps all of them.
	replaced := make(map[string]bool)

	var imported, suspect int
	for _, e := range entries {
		if checker != nil {
			if other := checker.check(e); other != 0 {
				suspect++
				fmt.Printf("\nWarning: descriptor for person %d matches already-enrolled person %d\n", e.PersonID, other)
			}
		}

		if err := roster.SavePerson(ctx, attendance.Person{
			ID:         e.PersonID,
			Name:       e.Name,
			Population: e.Population,
		}); err != nil {
			return fmt.Errorf("saving person %d: %w", e.PersonID, err)
		}

		key := fmt.Sprintf("%s/%d", e.Population, e.PersonID)
		if replace && !replaced[key] {
			if err := templates.DeleteTemplates(ctx, e.Population, e.PersonID); err != nil {
				return fmt.Errorf("replacing templates for person %d: %w", e.PersonID, err)
			}
			replaced[key] = true
		}

		id, err := templates.SaveTemplate(ctx, attendance.Template{
			PersonID:   e.PersonID,
			Population: e.Population,
			Descriptor: e.Descriptor,
		})
		if err != nil {
			return fmt.Errorf("saving template for person %d: %w", e.PersonID, err)
		}
		if checker != nil {
			checker.add(id, e)
		}

		imported++
		_ = bar.Add(1)
	}

	fmt.Printf("\n\nImported %d templates\n", imported)
	if suspect > 0 {
		fmt.Printf("%d descriptors matched a different enrolled person, review them\n", suspect)
	}
	return nil
}
