package auth

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
)

type AdminUser struct {
	ID           uint64    `gorm:"primaryKey"`
	Username     string    `gorm:"size:100;uniqueIndex;not null"`
	PasswordHash string    `gorm:"not null"`
	CreatedAt    time.Time `gorm:"not null"`
}

// EnsureAdmin creates the admin account when it does not exist yet.
// An existing account keeps its password.
func EnsureAdmin(ctx context.Context, db *gorm.DB, username, password string) (created bool, err error) {
	var existing AdminUser
	err = db.WithContext(ctx).Where("username = ?", username).First(&existing).Error
	if err == nil {
		return false, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return false, err
	}
	if password == "" {
		return false, errors.New("ADMIN_PASSWORD is required to create the admin account")
	}

	hash, err := HashPassword(password)
	if err != nil {
		return false, err
	}
	u := AdminUser{Username: username, PasswordHash: hash, CreatedAt: time.Now().UTC()}
	if err := db.WithContext(ctx).Create(&u).Error; err != nil {
		return false, err
	}
	return true, nil
}
