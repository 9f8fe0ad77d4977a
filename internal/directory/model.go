package directory

import "time"

// User is a bot account known to the directory. UserID is the Telegram id.
type User struct {
	UserID    int64   `gorm:"primaryKey;autoIncrement:false"`
	Username  *string `gorm:"size:255"`
	FirstName *string `gorm:"size:255"`
	LastName  *string `gorm:"size:255"`
	CreatedAt time.Time
	UpdatedAt time.Time
}
