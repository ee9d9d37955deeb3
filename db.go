package main

import (
	"os"
	"strings"

	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/Coxwtwo/gacha-ocr/models"
)

var db *gorm.DB

func initDB(dsn string) {
	var err error
	if dsn == "" {
		log.Fatal().Msg("DB_DSN is not set. This service requires a Postgres DSN.")
	}
	db, err = gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect postgres database")
	}
	// Control schema migrations with env DB_AUTO_MIGRATE (default true).
	shouldMigrate := true
	if v := os.Getenv("DB_AUTO_MIGRATE"); v != "" {
		lv := strings.ToLower(v)
		if lv == "false" || lv == "0" || lv == "no" {
			shouldMigrate = false
		}
	}
	// Roles first so the users FK can be applied safely.
	if shouldMigrate {
		if err := db.AutoMigrate(&models.Role{}); err != nil {
			log.Warn().Err(err).Msg("migration warning (roles)")
		}
	}
	seedRoles()

	if shouldMigrate {
		// Migrate models individually so a failure on one doesn't block others
		if err := db.AutoMigrate(&models.User{}); err != nil {
			log.Warn().Err(err).Msg("migration warning (users)")
		}
		if err := db.AutoMigrate(&models.DrawRecord{}); err != nil {
			log.Warn().Err(err).Msg("migration warning (draw_records)")
		}
		if err := db.AutoMigrate(&models.Screenshot{}); err != nil {
			log.Warn().Err(err).Msg("migration warning (screenshots)")
		}
		if err := db.AutoMigrate(&models.AuditEntry{}); err != nil {
			log.Warn().Err(err).Msg("migration warning (audit_entries)")
		}
		if err := ensureDedupIndex(); err != nil {
			log.Warn().Err(err).Msg("warning: ensuring dedup index failed")
		}
	}
	seedAdmin()
}

// ensureDedupIndex creates the partial unique index that backs ledger
// idempotency. Only confirmed rows participate: needs_review and rejected
// rows may legitimately share a key with the row that superseded them.
func ensureDedupIndex() error {
	return db.Exec(`CREATE UNIQUE INDEX IF NOT EXISTS idx_draw_records_dedup_confirmed
		ON draw_records (game_id, dedup_key)
		WHERE status = 'confirmed'`).Error
}

func seedRoles() {
	roles := []models.Role{{Name: "administrator", Description: "full access"}, {Name: "user", Description: "regular user"}}
	for _, r := range roles {
		var cnt int64
		db.Model(&models.Role{}).Where("name = ?", r.Name).Count(&cnt)
		if cnt == 0 {
			db.Create(&r)
		}
	}
}

func seedAdmin() {
	var count int64
	db.Model(&models.User{}).Where("username = ?", "admin").Count(&count)
	if count != 0 {
		return
	}
	var role models.Role
	if err := db.Where("name = ?", "administrator").First(&role).Error; err != nil {
		log.Warn().Err(err).Msg("failed to find administrator role")
	}
	rid := role.ID
	admin := models.User{Username: "admin", RoleID: &rid}
	hashedPassword, _ := bcrypt.GenerateFromPassword([]byte("admin123"), bcrypt.DefaultCost)
	admin.HashedPassword = hashedPassword
	db.Create(&admin)
	log.Info().Msg("seeded admin user: username=admin, password=admin123")
}
