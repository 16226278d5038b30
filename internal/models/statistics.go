package models

import (
	"time"

	"gorm.io/gorm"
)

// EventType is the kind of lifecycle event being counted.
type EventType string

const (
	EventCertificateIssued  EventType = "certificate_issued"
	EventCertificateRevoked EventType = "certificate_revoked"
	EventPDFRegenerated     EventType = "pdf_regenerated"
)

// Statistics tracks lifecycle event counts per course type per day.
type Statistics struct {
	ID           string         `gorm:"type:varchar(36);primaryKey" json:"id"`
	EventType    EventType      `gorm:"type:varchar(50);not null;index" json:"event_type"`
	CourseTypeID string         `gorm:"type:varchar(191);index" json:"course_type_id,omitempty"` // empty for the global counter
	Date         time.Time      `gorm:"type:date;not null;index" json:"date"`
	Count        int64          `gorm:"not null;default:0" json:"count"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
	DeletedAt    gorm.DeletedAt `gorm:"index" json:"-"`
}

func (Statistics) TableName() string {
	return "statistics"
}

// StatisticsSummary aggregates lifetime totals.
type StatisticsSummary struct {
	TotalIssued      int64 `json:"total_issued"`
	TotalRevoked     int64 `json:"total_revoked"`
	TotalRegenerated int64 `json:"total_regenerated"`
}

// TimeSeriesPoint is one day of event counts.
type TimeSeriesPoint struct {
	Date  string `json:"date"`
	Count int64  `json:"count"`
}
