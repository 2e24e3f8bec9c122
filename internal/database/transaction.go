package database

import (
	"context"
	"database/sql"
	"strings"

	"github.com/cockroachdb/cockroach-go/v2/crdb/crdbgorm"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type TransactionFunc func(
	ctx context.Context, fn func(tx *gorm.DB) error, opts ...*sql.TxOptions,
) error

func Silent(db *gorm.DB) *gorm.DB {
	return db.Session(&gorm.Session{
		Logger: db.Logger.LogMode(logger.Silent),
	})
}

type Dialect int

const (
	DialectSqlLite Dialect = iota
	DialectPostgreSQL
	DialectCockroachDB
)

// GetTransactionFunc sniffs the server we are connected to and returns a
// transaction wrapper appropriate for it. CockroachDB needs its client-side
// retry loop for serialization failures.
func GetTransactionFunc(db *gorm.DB) (TransactionFunc, Dialect, error) {
	version := ""
	_ = Silent(db).Raw("SELECT version()").Scan(&version).Error

	dialect := DialectSqlLite
	if strings.HasPrefix(version, "PostgreSQL") {
		dialect = DialectPostgreSQL
	} else if strings.HasPrefix(version, "CockroachDB") {
		dialect = DialectCockroachDB
	}

	if dialect == DialectCockroachDB {
		return func(ctx context.Context, fn func(tx *gorm.DB) error, opts ...*sql.TxOptions) error {
			var o *sql.TxOptions = nil
			if len(opts) > 0 {
				o = opts[0]
			}
			return crdbgorm.ExecuteTx(ctx, db, o, fn)
		}, dialect, nil
	}
	return func(ctx context.Context, fn func(tx *gorm.DB) error, opts ...*sql.TxOptions) error {
		var o *sql.TxOptions = nil
		if len(opts) > 0 {
			o = opts[0]
		}
		return db.WithContext(ctx).Transaction(fn, o)
	}, dialect, nil
}
