package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ssematimba/gate-check/internal/attendance"
	"github.com/ssematimba/gate-check/internal/config"
	"github.com/ssematimba/gate-check/internal/session"
	"github.com/ssematimba/gate-check/internal/store/postgres"
)

var verifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Resolve a single probe against the roster and policy",
	Long: `Resolve one probe the same way a kiosk session would: identify the
person, apply the time policy, and record attendance. Useful for smoke
testing an enrollment or a policy file without a kiosk.`,
	RunE: runVerify,
}

func init() {
	rootCmd.AddCommand(verifyCmd)

	verifyCmd.Flags().String("population", "student", "Population to verify against (student or teacher)")
	verifyCmd.Flags().String("direction", "check_in", "Direction to record (check_in or check_out)")
	verifyCmd.Flags().String("code", "", "Code payload to resolve")
	verifyCmd.Flags().String("descriptor", "", "Path to a JSON file with a face descriptor (array of floats)")
}

// readDescriptor loads a descriptor from a JSON file.
func readDescriptor(path string) ([]float32, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read descriptor file: %w", err)
	}
	var descriptor []float32
	if err := json.Unmarshal(data, &descriptor); err != nil {
		return nil, fmt.Errorf("parse descriptor file: %w", err)
	}
	if len(descriptor) == 0 {
		return nil, errors.New("descriptor file is empty")
	}
	return descriptor, nil
}

func buildProbe(cmd *cobra.Command) (*attendance.Probe, error) {
	code := mustGetString(cmd, "code")
	descriptorPath := mustGetString(cmd, "descriptor")

	switch {
	case code != "" && descriptorPath != "":
		return nil, errors.New("--code and --descriptor are mutually exclusive")
	case code != "":
		return &attendance.Probe{Kind: attendance.ProbeCode, Payload: code}, nil
	case descriptorPath != "":
		descriptor, err := readDescriptor(descriptorPath)
		if err != nil {
			return nil, err
		}
		return &attendance.Probe{Kind: attendance.ProbeBiometric, Descriptor: descriptor}, nil
	default:
		return nil, errors.New("either --code or --descriptor is required")
	}
}

func runVerify(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	probe, err := buildProbe(cmd)
	if err != nil {
		return err
	}

	pool, err := postgres.Initialize(&cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to initialize PostgreSQL: %w", err)
	}
	defer pool.Close()

	evaluator, err := cfg.Evaluator()
	if err != nil {
		return fmt.Errorf("invalid policy: %w", err)
	}

	population := attendance.Population(mustGetString(cmd, "population"))
	direction := attendance.Direction(mustGetString(cmd, "direction"))

	sess, err := session.New(session.Deps{
		Roster:    postgres.NewRosterRepository(pool),
		Templates: postgres.NewTemplateRepository(pool),
		Ledger:    postgres.NewLedgerRepository(pool),
		Evaluator: evaluator,
	}, cfg.SessionOptions(population, direction))
	if err != nil {
		return err
	}
	defer sess.Stop()

	event, err := sess.Submit(context.Background(), probe)
	if err != nil {
		return fmt.Errorf("resolving probe: %w", err)
	}

	out, err := json.MarshalIndent(event, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding event: %w", err)
	}
	fmt.Println(string(out))

	if event.Type == session.EventRejected {
		os.Exit(1)
	}
	return nil
}
