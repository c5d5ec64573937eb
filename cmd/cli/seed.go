package cli

import (
	"context"

	"agrolink/internal/config"
	"agrolink/internal/seed"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var seedFile string

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Load default automation rules from a YAML file",
	Run:   runSeed,
}

func init() {
	seedCmd.Flags().StringVar(&seedFile, "file", "", "rule file (default from config automation.seed_file)")
	rootCmd.AddCommand(seedCmd)
}

func runSeed(cmd *cobra.Command, args []string) {
	cfg := config.Load()
	if err := config.InitLogger(cfg); err != nil {
		logrus.Fatalf("Failed to initialize logger: %v", err)
	}
	appLogger := logrus.StandardLogger()

	path := seedFile
	if path == "" {
		path = cfg.Automation.SeedFile
	}
	if path == "" {
		appLogger.Fatal("no seed file configured")
	}

	db := openDatabase(cfg, appLogger)
	migrate(db, appLogger)

	file, err := seed.Load(path)
	if err != nil {
		appLogger.Fatalf("seed: %v", err)
	}
	inserted, err := seed.Apply(context.Background(), db, appLogger, file)
	if err != nil {
		appLogger.Fatalf("seed: %v", err)
	}
	appLogger.Infof("seed: %d rules inserted from %s", inserted, path)
}
