package database

import (
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	"gorm.io/gorm/schema"
)

const (
	maxRetries = 5
	retryDelay = 3 * time.Second
)

// Config holds database connection settings
type Config struct {
	DSN          string
	Schema       string
	MaxOpenConns int
	MaxIdleConns int
}

// NewConnection opens a Postgres pool, retrying while the server comes up
func NewConnection(cfg Config, log *logrus.Logger) (*gorm.DB, error) {
	var (
		db  *gorm.DB
		err error
	)

	for i := 0; i < maxRetries; i++ {
		db, err = open(cfg)
		if err == nil {
			return db, nil
		}

		log.WithError(err).Warnf("Failed to connect to database (try %d/%d)", i+1, maxRetries)
		if i < maxRetries-1 {
			time.Sleep(retryDelay)
		}
	}

	return nil, fmt.Errorf("failed to connect to database: %w", err)
}

// NamingStrategy places every table in the given Postgres schema
func NamingStrategy(name string) schema.NamingStrategy {
	if name == "" {
		return schema.NamingStrategy{}
	}
	return schema.NamingStrategy{TablePrefix: name + "."}
}

func open(cfg Config) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(cfg.DSN), &gorm.Config{
		SkipDefaultTransaction: true,
		NamingStrategy:         NamingStrategy(cfg.Schema),
		Logger:                 logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	if cfg.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	sqlDB.SetConnMaxLifetime(30 * time.Minute)

	if err := sqlDB.Ping(); err != nil {
		return nil, err
	}
	return db, nil
}

// Bootstrap creates the schema and migrates the given models into it
func Bootstrap(db *gorm.DB, schema string, models ...interface{}) error {
	if schema != "" {
		if err := db.Exec(fmt.Sprintf(`CREATE SCHEMA IF NOT EXISTS "%s"`, schema)).Error; err != nil {
			return fmt.Errorf("failed to create schema %s: %w", schema, err)
		}
	}
	if err := db.AutoMigrate(models...); err != nil {
		return fmt.Errorf("failed to migrate models: %w", err)
	}
	return nil
}

// Ping checks that the database answers a trivial query
func Ping(db *gorm.DB) error {
	var one int
	return db.Raw("SELECT 1").Scan(&one).Error
}
