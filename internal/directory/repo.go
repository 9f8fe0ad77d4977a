package directory

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type Repo struct {
	DB *gorm.DB
}

// Upsert records a user or refreshes their profile fields.
func (r *Repo) Upsert(ctx context.Context, u User) error {
	now := time.Now().UTC()
	u.CreatedAt = now
	u.UpdatedAt = now
	return r.DB.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"username", "first_name", "last_name", "updated_at"}),
	}).Create(&u).Error
}

// AllIDs returns every known account id as of now.
func (r *Repo) AllIDs(ctx context.Context) ([]int64, error) {
	var ids []int64
	if err := r.DB.WithContext(ctx).Model(&User{}).Order("user_id asc").Pluck("user_id", &ids).Error; err != nil {
		return nil, err
	}
	return ids, nil
}

func (r *Repo) Count(ctx context.Context) (int64, error) {
	var n int64
	err := r.DB.WithContext(ctx).Model(&User{}).Count(&n).Error
	return n, err
}

func (r *Repo) List(ctx context.Context, limit int) ([]User, error) {
	var out []User
	err := r.DB.WithContext(ctx).Order("created_at desc").Limit(limit).Find(&out).Error
	return out, err
}
