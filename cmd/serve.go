package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/ssematimba/gate-check/internal/config"
	"github.com/ssematimba/gate-check/internal/geo"
	"github.com/ssematimba/gate-check/internal/session"
	"github.com/ssematimba/gate-check/internal/store"
	"github.com/ssematimba/gate-check/internal/store/mariadb"
	"github.com/ssematimba/gate-check/internal/store/postgres"
	"github.com/ssematimba/gate-check/internal/web"
	"github.com/ssematimba/gate-check/internal/web/handlers"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the kiosk API server",
	Long: `Start the attendance kiosk API server.
Kiosk frontends create scanning sessions, post decoded probes and stream
outcome events; operators get the roster search and the attendance day view.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().Int("port", 0, "Port to listen on (overrides GATECHECK_PORT)")
	serveCmd.Flags().String("host", "", "Host to bind to (overrides GATECHECK_HOST)")
}

// staticLocator reports a fixed kiosk position. Gate kiosks don't move; the
// position comes from deployment configuration.
type staticLocator struct {
	point geo.Point
}

func (l *staticLocator) Current(ctx context.Context) (*geo.Point, error) {
	p := l.point
	return &p, nil
}

// deviceLocator builds a locator from GATECHECK_DEVICE_LAT/LON. Returns nil
// when the position is not configured; geofenced check-ins then reject with
// location_unavailable.
func deviceLocator() (session.Locator, error) {
	latEnv := os.Getenv("GATECHECK_DEVICE_LAT")
	lonEnv := os.Getenv("GATECHECK_DEVICE_LON")
	if latEnv == "" && lonEnv == "" {
		return nil, nil
	}

	lat, err := strconv.ParseFloat(latEnv, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid GATECHECK_DEVICE_LAT %q", latEnv)
	}
	lon, err := strconv.ParseFloat(lonEnv, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid GATECHECK_DEVICE_LON %q", lonEnv)
	}

	point := geo.Point{Latitude: lat, Longitude: lon}
	if !point.Valid() {
		return nil, fmt.Errorf("device position (%f, %f) out of range", lat, lon)
	}
	return &staticLocator{point: point}, nil
}

// buildLedger picks the attendance ledger backend. Schools that keep
// attendance in the existing administration database set LEGACY_DATABASE_DSN;
// everyone else gets the PostgreSQL ledger.
func buildLedger(cfg *config.Config, pool *postgres.Pool) (store.Ledger, func(), error) {
	if cfg.Legacy.DSN == "" {
		return postgres.NewLedgerRepository(pool), func() {}, nil
	}

	fmt.Println("Connecting to legacy MariaDB ledger...")
	legacyPool, err := mariadb.NewPool(cfg.Legacy.DSN)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to legacy database: %w", err)
	}
	if err := legacyPool.EnsureSchema(context.Background()); err != nil {
		legacyPool.Close()
		return nil, nil, fmt.Errorf("failed to prepare legacy schema: %w", err)
	}
	return mariadb.NewLedgerRepository(legacyPool), func() { legacyPool.Close() }, nil
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	if cfg.Database.URL == "" {
		return errors.New("DATABASE_URL environment variable is required")
	}

	fmt.Println("Connecting to PostgreSQL database...")
	pool, err := postgres.Initialize(&cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to initialize PostgreSQL: %w", err)
	}
	defer pool.Close()

	ledger, closeLedger, err := buildLedger(cfg, pool)
	if err != nil {
		return err
	}
	defer closeLedger()

	evaluator, err := cfg.Evaluator()
	if err != nil {
		return fmt.Errorf("invalid policy: %w", err)
	}

	locator, err := deviceLocator()
	if err != nil {
		return err
	}

	deps := handlers.SessionDeps{
		Roster:    postgres.NewRosterRepository(pool),
		Templates: postgres.NewTemplateRepository(pool),
		Ledger:    ledger,
		Evaluator: evaluator,
		Locator:   locator,
	}
	manager := handlers.NewSessionManager(deps, cfg.SessionOptions)

	host := cfg.Server.Host
	port := cfg.Server.Port
	if flagHost := mustGetString(cmd, "host"); flagHost != "" {
		host = flagHost
	}
	if flagPort := mustGetInt(cmd, "port"); flagPort != 0 {
		port = flagPort
	}

	server := web.NewServer(host, port, manager, deps, evaluator)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigChan
		fmt.Println("\nShutting down...")

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			fmt.Printf("Error during shutdown: %v\n", err)
		}
	}()

	fmt.Printf("Starting Gate Check kiosk API on http://%s:%d\n", host, port)
	fmt.Println("Press Ctrl+C to stop")

	if err := server.Start(); err != nil {
		return fmt.Errorf("starting server: %w", err)
	}
	return nil
}
