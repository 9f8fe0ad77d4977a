package db

import (
	"fmt"
	"time"

	"guestbot/internal/auth"
	"guestbot/internal/directory"
	"guestbot/internal/pushes"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func Connect(dsn string) (*gorm.DB, error) {
	gdb, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger:  gormlogger.Default.LogMode(gormlogger.Error),
		NowFunc: func() time.Time { return time.Now().UTC() },
	})
	if err != nil {
		return nil, err
	}
	sqlDB, err := gdb.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(20)
	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetConnMaxLifetime(30 * time.Minute)
	return gdb, nil
}

// Close releases the pool behind gdb.
func Close(gdb *gorm.DB) error {
	sqlDB, err := gdb.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func AutoMigrateAndIndexes(gdb *gorm.DB) error {
	if err := gdb.AutoMigrate(
		&directory.User{},
		&pushes.PushJob{},
		&pushes.DeliveryLog{},
		&auth.AdminUser{},
	); err != nil {
		return err
	}

	stmts := []string{
		`create index if not exists idx_push_pending on push_jobs(status, scheduled_at);`,
		`create index if not exists idx_push_lock on push_jobs(status, locked_at);`,
		`create index if not exists idx_push_logs_push on push_delivery_logs(push_id);`,
	}
	for _, s := range stmts {
		if err := gdb.Exec(s).Error; err != nil {
			return fmt.Errorf("index exec failed: %w (sql=%s)", err, s)
		}
	}
	return nil
}
