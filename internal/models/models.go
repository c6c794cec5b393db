package models

import (
	"time"
)

// Media maps a canonical public URL to the backend object holding its bytes.
// The URL is immutable once created; the file id is never exposed to clients.
type Media struct {
	URL       string  `gorm:"primaryKey;type:varchar(512);not null"`
	FileID    string  `gorm:"type:varchar(256);not null"`
	SizeBytes int64   `gorm:"not null;default:0"`
	Views     float64 `gorm:"not null;default:0"`
}

// DailyStat holds sampled traffic accumulators for one UTC calendar date.
// Values are compensated estimates, not exact counts.
type DailyStat struct {
	Date      string  `gorm:"primaryKey;type:varchar(10);not null"`
	Requests  float64 `gorm:"not null;default:0"`
	Bandwidth float64 `gorm:"not null;default:0"`
	Visitors  float64 `gorm:"not null;default:0"`
}

type AccessLog struct {
	ID        uint      `gorm:"primaryKey;autoIncrement"`
	Timestamp time.Time `gorm:"index;not null"`
	Method    string    `gorm:"type:varchar(10);not null"`
	Path      string    `gorm:"type:text;not null;index:,length:256"`
	Status    int       `gorm:"not null;index"`
	Duration  time.Duration
	ClientIP  string `gorm:"type:varchar(45);not null"`
	UserAgent string `gorm:"type:text"`
	BytesSent int    `gorm:"not null;default:0"`
}

func (Media) TableName() string {
	return "media"
}

func (DailyStat) TableName() string {
	return "daily_stats"
}

func (AccessLog) TableName() string {
	return "access_logs"
}
