package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/Coxwtwo/gacha-ocr/pkg/batch"
	"github.com/Coxwtwo/gacha-ocr/pkg/catalog"
	"github.com/Coxwtwo/gacha-ocr/pkg/gamecfg"
	"github.com/Coxwtwo/gacha-ocr/pkg/history"
	"github.com/Coxwtwo/gacha-ocr/pkg/ocr"
)

var (
	cfg       Config
	jwtSecret []byte
	manager   *gamecfg.Manager
	store     *history.Store
)

func main() {
	// Auto-load ./.env if present (no external dependency) before reading vars
	loadDotEnv()
	cfg = LoadConfig()
	initLogger(cfg.LogLevel)

	secret := cfg.JWTSecret
	if secret == "" {
		secret = "dev-insecure-secret-change" // development fallback
	}
	jwtSecret = []byte(secret)

	// Support a lightweight migrate command: `./gacha-ocr migrate`
	// It runs AutoMigrate and seeding then exits. Useful for CI or manual DB setup.
	if len(os.Args) > 1 && os.Args[1] == "migrate" {
		initDB(cfg.DBDSN)
		fmt.Println("migration and seeding completed")
		return
	}

	initDB(cfg.DBDSN)
	manager = gamecfg.NewManager(cfg.ConfigDir, cfg.CatalogDir)
	store = history.NewStore(db)

	if cfg.WatchGame != "" {
		go watchInbox(cfg.WatchGame)
	}

	r := gin.Default()
	setupRoutes(r)
	r.Run(cfg.Addr)
}

func initLogger(level string) {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
}

// watchInbox runs the filesystem watcher for one game's inbox directory
// alongside the HTTP server. The watcher's appends go through the same
// store, so records ingested here show up in the API immediately.
func watchInbox(gameID string) {
	gameCfg, err := manager.Load(gameID)
	if err != nil {
		log.Error().Err(err).Str("game", gameID).Msg("watch: cannot load game config")
		return
	}
	cats, err := catalog.LoadGame(cfg.CatalogDir, gameID)
	if err != nil {
		log.Error().Err(err).Str("game", gameID).Msg("watch: cannot load catalogs")
		return
	}
	pipe := batch.NewPipeline(gameCfg, cats, ocr.NewTesseract(cfg.OCRLanguage))
	runner := batch.NewRunner(pipe, store, cfg.Workers)
	w := batch.NewWatcher(runner, cfg.InboxDir, cfg.RescanSpec)
	if err := w.Watch(context.Background()); err != nil {
		log.Error().Err(err).Str("dir", cfg.InboxDir).Msg("inbox watcher stopped")
	}
}

// loadDotEnv loads key=value pairs from a local .env file into the environment
// without overwriting variables that are already set. Lines starting with # are ignored.
func loadDotEnv() {
	path := ".env"
	if _, err := os.Stat(path); err != nil {
		return // no .env file
	}
	f, err := os.Open(filepath.Clean(path))
	if err != nil {
		return
	}
	defer f.Close()
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		// split on first '='
		if eq := strings.IndexByte(line, '='); eq > 0 {
			key := strings.TrimSpace(line[:eq])
			val := strings.TrimSpace(line[eq+1:])
			if _, exists := os.LookupEnv(key); !exists {
				_ = os.Setenv(key, val)
			}
		}
	}
}
