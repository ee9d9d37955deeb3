package main

import (
	"os"
	"strconv"

	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Addr      string `yaml:"addr"`
	DBDSN     string `yaml:"db_dsn"`
	JWTSecret string `yaml:"jwt_secret"`

	ConfigDir  string `yaml:"config_dir"`
	CatalogDir string `yaml:"catalog_dir"`
	InboxDir   string `yaml:"inbox_dir"`

	WatchGame   string `yaml:"watch_game"`
	RescanSpec  string `yaml:"rescan_spec"`
	OCRLanguage string `yaml:"ocr_language"`
	Workers     int    `yaml:"workers"`

	LogLevel string `yaml:"log_level"`
}

// LoadConfig reads config.yaml (or CONFIG_PATH) if present, then applies
// env overrides and defaults. The DB DSN stays env-only friendly so the
// same binary works in compose and bare-metal setups.
func LoadConfig() Config {
	var cfg Config

	configPath := "config.yaml"
	if envPath := os.Getenv("CONFIG_PATH"); envPath != "" {
		configPath = envPath
	}
	if data, err := os.ReadFile(configPath); err == nil {
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			log.Fatal().Err(err).Str("path", configPath).Msg("cannot parse config file")
		}
		log.Info().Str("path", configPath).Msg("loaded config file")
	}

	envOverride(&cfg.Addr, "ADDR")
	envOverride(&cfg.DBDSN, "DB_DSN")
	envOverride(&cfg.JWTSecret, "JWT_SECRET")
	envOverride(&cfg.ConfigDir, "CONFIG_DIR")
	envOverride(&cfg.CatalogDir, "CATALOG_DIR")
	envOverride(&cfg.InboxDir, "INBOX_DIR")
	envOverride(&cfg.WatchGame, "WATCH_GAME")
	envOverride(&cfg.RescanSpec, "RESCAN_SPEC")
	envOverride(&cfg.OCRLanguage, "OCR_LANGUAGE")
	envOverrideInt(&cfg.Workers, "WORKERS")
	envOverride(&cfg.LogLevel, "LOG_LEVEL")

	if cfg.Addr == "" {
		cfg.Addr = ":8081"
	}
	if cfg.ConfigDir == "" {
		cfg.ConfigDir = "data/config"
	}
	if cfg.CatalogDir == "" {
		cfg.CatalogDir = "data/catalog"
	}
	if cfg.InboxDir == "" {
		cfg.InboxDir = "inbox"
	}
	if cfg.OCRLanguage == "" {
		cfg.OCRLanguage = "chi_sim+eng"
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
	return cfg
}

func envOverride(field *string, key string) {
	if v := os.Getenv(key); v != "" {
		*field = v
	}
}

func envOverrideInt(field *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*field = n
		}
	}
}
