package database

import (
	"context"
	"fmt"

	"github.com/cenkalti/backoff/v4"
	"github.com/kinfolio/kinfolio/internal/database/migration_20250612_0000"
	"github.com/kinfolio/kinfolio/internal/database/migrations"
	"github.com/uptrace/opentelemetry-go-extra/otelgorm"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// NewDatabase connects to the Postgres server backing the document store,
// retrying with exponential backoff while the server comes up.
func NewDatabase(
	ctx context.Context,
	log *zap.SugaredLogger,
	host string,
	user string,
	password string,
	dbname string,
	port string,
	sslmode string,
) (*gorm.DB, string, error) {
	dsn := fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=%s",
		host, user, password, dbname, port, sslmode)
	var db *gorm.DB
	connectDb := func() error {
		var err error
		db, err = gorm.Open(postgres.Open(dsn), &gorm.Config{
			Logger:         logger.Default.LogMode(logger.Silent),
			TranslateError: true,
		})
		if err != nil {
			log.Warnf("database connection failed, retrying: %s", err)
			return err
		}
		return nil
	}
	err := backoff.Retry(connectDb, backoff.WithContext(backoff.NewExponentialBackOff(), ctx))
	if err != nil {
		return nil, "", err
	}
	if err := db.Use(otelgorm.NewPlugin()); err != nil {
		return nil, "", err
	}
	return db, dsn, nil
}

// NewTestDatabase returns an in-memory sqlite database for unit tests.
func NewTestDatabase() (*gorm.DB, error) {
	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		return nil, err
	}
	if err := Migrations().Migrate(context.Background(), db); err != nil {
		return nil, err
	}
	return db, nil
}

// Migrations returns the full, ordered migration history of the schema.
func Migrations() *migrations.Migrations {
	return migrations.New(
		migration_20250612_0000.Migrate(),
	)
}
