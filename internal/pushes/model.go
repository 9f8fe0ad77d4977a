package pushes

import (
	"database/sql/driver"
	"time"

	"github.com/lib/pq"
	"gorm.io/gorm"
	"gorm.io/gorm/schema"
)

type Status string

const (
	StatusPending        Status = "pending"
	StatusProcessing     Status = "processing"
	StatusSent           Status = "sent"
	StatusSentWithErrors Status = "sent_with_errors"
	StatusFailed         Status = "failed"
)

// Terminal reports whether no further processing happens in this status.
func (s Status) Terminal() bool {
	return s == StatusSent || s == StatusSentWithErrors || s == StatusFailed
}

const (
	DeliverySent   = "sent"
	DeliveryFailed = "failed"
)

// TargetIDs is the frozen explicit recipient list of a job.
// Stored as bigint[] on Postgres and as the same array literal in a text
// column elsewhere.
type TargetIDs pq.Int64Array

func (t TargetIDs) Value() (driver.Value, error) {
	return pq.Int64Array(t).Value()
}

func (t *TargetIDs) Scan(src any) error {
	return (*pq.Int64Array)(t).Scan(src)
}

func (TargetIDs) GormDataType() string {
	return "int64array"
}

func (TargetIDs) GormDBDataType(db *gorm.DB, _ *schema.Field) string {
	if db.Dialector.Name() == "postgres" {
		return "bigint[]"
	}
	return "text"
}

type PushJob struct {
	ID uint64 `gorm:"primaryKey"`

	Message       string    `gorm:"type:text;not null"`
	SendToAll     bool      `gorm:"not null;default:false"`
	TargetUserIDs TargetIDs `gorm:"column:target_user_ids"`

	ScheduledAt *time.Time
	Status      Status `gorm:"type:text;index;not null;default:'pending'"`

	LockedAt *time.Time
	LockedBy *string `gorm:"type:text"`
	Attempts int     `gorm:"not null;default:0"`

	LastError    *string `gorm:"type:text"`
	TotalTargets int     `gorm:"not null;default:0"`
	SuccessCount int     `gorm:"not null;default:0"`
	FailCount    int     `gorm:"not null;default:0"`

	IsSent bool `gorm:"not null;default:false"`
	SentAt *time.Time

	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

// DeliveryLog is one recipient attempt outcome. Append-only.
type DeliveryLog struct {
	ID         uint64    `gorm:"primaryKey"`
	PushID     uint64    `gorm:"index;not null"`
	Push       *PushJob  `gorm:"foreignKey:PushID;constraint:OnDelete:CASCADE" json:"-"`
	UserID     int64     `gorm:"not null"`
	Status     string    `gorm:"type:text;not null"`
	Error      *string   `gorm:"type:text"`
	DurationMS int64     `gorm:"column:duration_ms"`
	CreatedAt  time.Time `gorm:"not null"`
}

func (DeliveryLog) TableName() string { return "push_delivery_logs" }
