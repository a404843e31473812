package entities

import "time"

// TapAttempt is the persisted form of a resolved tap.
type TapAttempt struct {
	ID         string    `gorm:"type:varchar(32);primaryKey"`
	Generation uint64    `gorm:"not null"`
	CardID     string    `gorm:"type:varchar(15);not null;index"`
	Room       string    `gorm:"type:varchar(36)"`
	Result     string    `gorm:"type:varchar(16);not null;index"`
	Reason     string    `gorm:"type:varchar(64)"`
	Detail     string    `gorm:"type:text"`
	StartedAt  time.Time `gorm:"not null"`
	FinishedAt time.Time `gorm:"not null;index"`
	CreatedAt  time.Time `gorm:"autoCreateTime"`
}

func (TapAttempt) TableName() string {
	return "tap_attempts"
}
