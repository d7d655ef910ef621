package database

import (
	"fmt"
	"os"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/voicereachhq/dialer-services-backend/internal/models"
)

// DB is the global database instance
var DB *gorm.DB

// InitDB initializes the database connection and performs migrations
func InitDB() (*gorm.DB, error) {
	host := getEnv("DB_HOST", "")
	port := getEnv("DB_PORT", "")
	user := getEnv("DB_USER", "")
	password := getEnv("DB_PASSWORD", "")
	dbname := getEnv("DB_NAME", "")
	sslmode := getEnv("DB_SSLMODE", "disable")

	if host == "" || port == "" || user == "" || password == "" || dbname == "" {
		return nil, fmt.Errorf("missing required database environment variables. Please check your .env file")
	}

	dsn := fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		host, port, user, password, dbname, sslmode)

	gormLogger := logger.New(
		logrus.New(),
		logger.Config{
			SlowThreshold:             time.Second,
			LogLevel:                  logger.Error,
			IgnoreRecordNotFoundError: true,
			Colorful:                  true,
		},
	)

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: gormLogger,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database connection: %w", err)
	}
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(100)
	sqlDB.SetConnMaxLifetime(time.Hour)

	// gen_random_uuid() needs pgcrypto on Postgres < 13
	if err := db.Exec("CREATE EXTENSION IF NOT EXISTS pgcrypto").Error; err != nil {
		return nil, fmt.Errorf("failed to enable pgcrypto extension: %w", err)
	}

	err = db.AutoMigrate(
		&models.Agent{},
		&models.Contact{},
		&models.Campaign{},
		&models.CallLog{},
		&models.CallRecord{},
		&models.CompliancePolicy{},
		&models.ComplianceViolation{},
		&models.DNCEntry{},
		&models.ProviderSettings{},
	)
	if err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	// Partial unique index: a provider call id identifies at most one call
	// record, but failed attempts never get one
	err = db.Exec(`
		CREATE UNIQUE INDEX IF NOT EXISTS idx_call_records_provider_call_id_unique
		ON call_records(provider_call_id)
		WHERE provider_call_id IS NOT NULL AND provider_call_id <> ''
	`).Error
	if err != nil {
		logrus.Warnf("Failed to create unique index on call_records.provider_call_id: %v", err)
	}

	// The worker claims the oldest queued row per campaign on every tick
	err = db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_call_logs_campaign_status_created
		ON call_logs(campaign_id, status, created_at)
	`).Error
	if err != nil {
		logrus.Warnf("Failed to create claim index on call_logs: %v", err)
	}

	// Ceiling checks count call records per (contact, number) over time
	err = db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_call_records_contact_number_created
		ON call_records(contact_id, to_number, created_at)
	`).Error
	if err != nil {
		logrus.Warnf("Failed to create ceiling index on call_records: %v", err)
	}

	DB = db

	logrus.Info("Database connection established and migrations completed")
	return db, nil
}

// GetDB returns the global database instance
func GetDB() *gorm.DB {
	return DB
}

// getEnv gets an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}
