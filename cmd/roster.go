package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ssematimba/gate-check/internal/attendance"
	"github.com/ssematimba/gate-check/internal/config"
	"github.com/ssematimba/gate-check/internal/store/postgres"
)

var rosterCmd = &cobra.Command{
	Use:   "roster",
	Short: "List people on the roster",
	RunE:  runRoster,
}

func init() {
	rootCmd.AddCommand(rosterCmd)

	rosterCmd.Flags().String("population", "student", "Population to list (student or teacher)")
	rosterCmd.Flags().String("search", "", "Filter by name (case- and diacritic-insensitive)")
}

func runRoster(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	population := attendance.Population(mustGetString(cmd, "population"))
	if !population.Valid() {
		return fmt.Errorf("invalid population %q", population)
	}

	pool, err := postgres.Initialize(&cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to initialize PostgreSQL: %w", err)
	}
	defer pool.Close()

	roster := postgres.NewRosterRepository(pool)
	ctx := context.Background()

	var people []attendance.Person
	if search := mustGetString(cmd, "search"); search != "" {
		people, err = roster.SearchByName(ctx, population, search)
	} else {
		people, err = roster.List(ctx, population)
	}
	if err != nil {
		return fmt.Errorf("querying roster: %w", err)
	}

	if len(people) == 0 {
		fmt.Println("No people found")
		return nil
	}

	for _, p := range people {
		fmt.Printf("%6d  %s\n", p.ID, p.Name)
	}
	fmt.Printf("\n%d people\n", len(people))
	return nil
}
