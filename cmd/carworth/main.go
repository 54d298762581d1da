package main

import (
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

const (
	appName = "carworth"
	version = "v1.2.0"
)

var configPath string

func main() {
	zerolog.TimeFieldFormat = time.RFC3339
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})

	// Optional .env for API keys and DSNs. Absence is not an error.
	_ = godotenv.Load()

	rootCmd := &cobra.Command{
		Use:     appName,
		Short:   "Vehicle valuation blending and refresh scheduling engine",
		Version: version,
		Long: `carworth blends depreciation-model estimates with live market listings
to value used vehicles, projects future values and sell windows, and keeps
tracked vehicles fresh on plan-driven refresh schedules.`,
	}
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to YAML config file")

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and the scheduled refresh loop",
		RunE:  runServe,
	}

	batchCmd := &cobra.Command{
		Use:   "batch",
		Short: "Run one scheduled refresh batch and exit",
		RunE:  runBatch,
	}
	batchCmd.Flags().Duration("window", 30*time.Minute, "Deadline for the batch run")

	valuateCmd := &cobra.Command{
		Use:   "valuate",
		Short: "Value a single vehicle from the command line",
		RunE:  runValuate,
	}
	valuateCmd.Flags().String("make", "", "Vehicle make (required)")
	valuateCmd.Flags().String("model", "", "Vehicle model (required)")
	valuateCmd.Flags().Int("year", 0, "Model year (required)")
	valuateCmd.Flags().String("trim", "", "Trim level")
	valuateCmd.Flags().String("fuel", "", "Fuel type")
	valuateCmd.Flags().Int("mileage", 0, "Current odometer miles")
	valuateCmd.Flags().Int("annual-mileage", 12000, "Estimated miles per year")
	valuateCmd.Flags().String("condition", "good", "Condition (excellent|good|fair|poor)")
	valuateCmd.Flags().String("region", "", "Region or market area")
	valuateCmd.MarkFlagRequired("make")
	valuateCmd.MarkFlagRequired("model")
	valuateCmd.MarkFlagRequired("year")

	rootCmd.AddCommand(serveCmd, batchCmd, valuateCmd)

	if err := rootCmd.Execute(); err != nil {
		log.Error().Err(err).Msg("command failed")
		os.Exit(1)
	}
}
