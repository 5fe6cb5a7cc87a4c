package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/ssematimba/gate-check/internal/attendance"
	"github.com/ssematimba/gate-check/internal/config"
	"github.com/ssematimba/gate-check/internal/store/postgres"
)

var dayCmd = &cobra.Command{
	Use:   "day",
	Short: "Show the attendance records of one day",
	RunE:  runDay,
}

func init() {
	rootCmd.AddCommand(dayCmd)

	dayCmd.Flags().String("population", "student", "Population to show (student or teacher)")
	dayCmd.Flags().String("date", "", "Date to show as YYYY-MM-DD (defaults to today)")
}

func runDay(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	population := attendance.Population(mustGetString(cmd, "population"))
	if !population.Valid() {
		return fmt.Errorf("invalid population %q", population)
	}

	date := mustGetString(cmd, "date")
	if date == "" {
		date = attendance.DateOf(time.Now())
	} else if _, err := time.Parse(attendance.DateFormat, date); err != nil {
		return fmt.Errorf("invalid date %q, expected YYYY-MM-DD", date)
	}

	pool, err := postgres.Initialize(&cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to initialize PostgreSQL: %w", err)
	}
	defer pool.Close()

	ledger := postgres.NewLedgerRepository(pool)
	outcomes, err := ledger.ListDay(context.Background(), population, date)
	if err != nil {
		return fmt.Errorf("querying attendance: %w", err)
	}

	if len(outcomes) == 0 {
		fmt.Printf("No attendance records for %s on %s\n", population, date)
		return nil
	}

	fmt.Printf("Attendance for %s on %s:\n\n", population, date)
	for _, o := range outcomes {
		fmt.Printf("%s  %6d  %-9s  %-10s  %s\n",
			o.Timestamp.Format("15:04:05"), o.PersonID, o.Direction, o.Status, o.Method)
	}
	fmt.Printf("\n%d records\n", len(outcomes))
	return nil
}
