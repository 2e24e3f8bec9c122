package migrations

import (
	"context"

	"github.com/go-gormigrate/gormigrate/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"
)

var tracer trace.Tracer

func init() {
	tracer = otel.Tracer("github.com/kinfolio/kinfolio/internal/database/migrations")
}

type Migrations struct {
	Migrations  []*gormigrate.Migration
	GormOptions *gormigrate.Options
}

// New builds the migration set in the order the steps were shipped.
func New(steps ...*gormigrate.Migration) *Migrations {
	return &Migrations{
		GormOptions: &gormigrate.Options{
			TableName:      "kinfolio_migrations",
			IDColumnName:   "id",
			IDColumnSize:   40,
			UseTransaction: false,
		},
		Migrations: steps,
	}
}

func (m *Migrations) Migrate(ctx context.Context, db *gorm.DB) error {
	_, span := tracer.Start(ctx, "Migrate")
	defer span.End()
	return gormigrate.New(db, m.GormOptions, m.Migrations).Migrate()
}

func (m *Migrations) RollbackLast(ctx context.Context, db *gorm.DB) error {
	_, span := tracer.Start(ctx, "RollbackLast")
	defer span.End()
	return gormigrate.New(db, m.GormOptions, m.Migrations).RollbackLast()
}
