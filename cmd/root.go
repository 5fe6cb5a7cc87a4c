package cmd

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "gate-check",
	Short: "Attendance verification engine for school gate kiosks",
	Long: `Gate Check runs the attendance verification engine: it resolves scanned
codes and face descriptors against the school roster, applies the school's
time and geofence policy, and records each person's attendance at most once
per day and direction.`,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)
}

func initConfig() {
	// .env file is optional, don't fail if not found
	_ = godotenv.Load()
}
