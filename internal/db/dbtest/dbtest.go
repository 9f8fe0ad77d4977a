// Package dbtest opens throwaway in-memory databases for tests.
package dbtest

import (
	"fmt"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/stdlib"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// PostgresEnv names the variable holding the DSN of a scratch Postgres
// database. Tests needing real row locks skip when it is unset.
const PostgresEnv = "TEST_DATABASE_URL"

// Open returns a fresh SQLite database migrated for models. A single
// connection serializes access the way row locks would.
func Open(tb testing.TB, models ...any) *gorm.DB {
	tb.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_foreign_keys=on", uuid.NewString())
	gdb, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:  gormlogger.Default.LogMode(gormlogger.Silent),
		NowFunc: func() time.Time { return time.Now().UTC() },
	})
	if err != nil {
		tb.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := gdb.DB()
	if err != nil {
		tb.Fatalf("sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	tb.Cleanup(func() { _ = sqlDB.Close() })

	if len(models) > 0 {
		if err := gdb.AutoMigrate(models...); err != nil {
			tb.Fatalf("migrate: %v", err)
		}
	}
	return gdb
}

// OpenPostgres migrates models into a fresh schema of the database named by
// TEST_DATABASE_URL and drops the schema on cleanup.
func OpenPostgres(tb testing.TB, models ...any) *gorm.DB {
	tb.Helper()

	dsn := strings.TrimSpace(os.Getenv(PostgresEnv))
	if dsn == "" {
		tb.Skipf("%s not set", PostgresEnv)
	}
	cfg, err := pgx.ParseConfig(dsn)
	if err != nil {
		tb.Fatalf("parse %s: %v", PostgresEnv, err)
	}
	schema := "test_" + strings.ReplaceAll(uuid.NewString(), "-", "")

	admin := stdlib.OpenDB(*cfg.Copy())
	if _, err := admin.Exec(`create schema ` + schema); err != nil {
		_ = admin.Close()
		tb.Fatalf("create schema: %v", err)
	}
	tb.Cleanup(func() {
		_, _ = admin.Exec(`drop schema if exists ` + schema + ` cascade`)
		_ = admin.Close()
	})

	scoped := cfg.Copy()
	scoped.RuntimeParams["search_path"] = schema
	sqlDB := stdlib.OpenDB(*scoped)
	sqlDB.SetMaxOpenConns(20)
	tb.Cleanup(func() { _ = sqlDB.Close() })

	gdb, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{
		Logger:  gormlogger.Default.LogMode(gormlogger.Silent),
		NowFunc: func() time.Time { return time.Now().UTC() },
	})
	if err != nil {
		tb.Fatalf("open postgres: %v", err)
	}
	if len(models) > 0 {
		if err := gdb.AutoMigrate(models...); err != nil {
			tb.Fatalf("migrate: %v", err)
		}
	}
	return gdb
}

func PtrTime(v time.Time) *time.Time { return &v }
