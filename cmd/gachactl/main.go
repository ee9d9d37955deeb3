package main

import (
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/Coxwtwo/gacha-ocr/pkg/catalog"
	"github.com/Coxwtwo/gacha-ocr/pkg/gamecfg"
	"github.com/Coxwtwo/gacha-ocr/pkg/history"
)

var (
	flagConfigDir  string
	flagCatalogDir string
)

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "gachactl",
		Short: "Batch OCR ingest and pull-history analysis for gacha screenshots",
		Long: `gachactl drives the screenshot pipeline from the command line:
process a directory of gacha history screenshots into the draw ledger,
work through the review queue, and print per-banner statistics.

The database is taken from DB_DSN, same as the server.`,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
		},
	}
	cmd.PersistentFlags().StringVar(&flagConfigDir, "config-dir", "data/config", "directory holding game_processing_config_*.json")
	cmd.PersistentFlags().StringVar(&flagCatalogDir, "catalog-dir", "data/catalog", "directory holding game_catalog_*.json")

	cmd.AddCommand(newProcessCmd())
	cmd.AddCommand(newAnalyzeCmd())
	cmd.AddCommand(newReviewCmd())
	return cmd
}

func openStore() (*history.Store, error) {
	dsn := os.Getenv("DB_DSN")
	if dsn == "" {
		return nil, fmt.Errorf("DB_DSN not set in environment")
	}
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	return history.NewStore(db), nil
}

func loadGame(gameID string) (*gamecfg.GameConfig, *catalog.Set, error) {
	m := gamecfg.NewManager(flagConfigDir, flagCatalogDir)
	cfg, err := m.Load(gameID)
	if err != nil {
		return nil, nil, err
	}
	cats, err := catalog.LoadGame(flagCatalogDir, gameID)
	if err != nil {
		return nil, nil, err
	}
	return cfg, cats, nil
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
