package services

import (
	"fmt"
	"time"

	"TC-CERT/internal"
	"TC-CERT/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type StatisticsService struct{}

func NewStatisticsService() *StatisticsService {
	return &StatisticsService{}
}

// IncrementStat increments the daily counter for an event type and optional
// course type. It uses upsert logic to either create a new record or
// increment an existing one.
func (s *StatisticsService) IncrementStat(eventType models.EventType, courseTypeID string) error {
	today := time.Now().UTC().Truncate(24 * time.Hour)

	var stat models.Statistics
	query := internal.DB.Where("event_type = ? AND date = ?", eventType, today)
	if courseTypeID != "" {
		query = query.Where("course_type_id = ?", courseTypeID)
	} else {
		query = query.Where("course_type_id IS NULL OR course_type_id = ''")
	}

	result := query.First(&stat)
	if result.Error != nil {
		stat = models.Statistics{
			ID:           uuid.New().String(),
			EventType:    eventType,
			CourseTypeID: courseTypeID,
			Date:         today,
			Count:        1,
		}
		if err := internal.DB.Create(&stat).Error; err != nil {
			// Another request may have created the row first; increment it.
			return s.incrementExisting(eventType, courseTypeID, today)
		}
		return nil
	}

	return s.incrementExisting(eventType, courseTypeID, today)
}

func (s *StatisticsService) incrementExisting(eventType models.EventType, courseTypeID string, date time.Time) error {
	query := internal.DB.Model(&models.Statistics{}).
		Where("event_type = ? AND date = ?", eventType, date)
	if courseTypeID != "" {
		query = query.Where("course_type_id = ?", courseTypeID)
	} else {
		query = query.Where("course_type_id IS NULL OR course_type_id = ''")
	}
	return query.UpdateColumn("count", gorm.Expr("count + 1")).Error
}

// record bumps the global counter and the per-course-type counter for one
// lifecycle event. Counter failures are logged, never propagated; statistics
// must not break issuance.
func (s *StatisticsService) record(eventType models.EventType, courseTypeID string) {
	if err := s.IncrementStat(eventType, ""); err != nil {
		fmt.Printf("Warning: failed to record global %s stat: %v\n", eventType, err)
	}
	if courseTypeID != "" {
		if err := s.IncrementStat(eventType, courseTypeID); err != nil {
			fmt.Printf("Warning: failed to record %s stat for course type %s: %v\n", eventType, courseTypeID, err)
		}
	}
}

func (s *StatisticsService) RecordIssued(courseTypeID string) {
	s.record(models.EventCertificateIssued, courseTypeID)
}

func (s *StatisticsService) RecordRevoked(courseTypeID string) {
	s.record(models.EventCertificateRevoked, courseTypeID)
}

func (s *StatisticsService) RecordRegenerated(courseTypeID string) {
	s.record(models.EventPDFRegenerated, courseTypeID)
}

func (s *StatisticsService) sumEvent(eventType models.EventType) (int64, error) {
	var total int64
	err := internal.DB.Model(&models.Statistics{}).
		Where("event_type = ? AND (course_type_id IS NULL OR course_type_id = '')", eventType).
		Select("COALESCE(SUM(count), 0)").
		Scan(&total).Error
	if err != nil {
		return 0, fmt.Errorf("failed to sum %s events: %w", eventType, err)
	}
	return total, nil
}

// GetSummary returns lifetime totals across all course types. Issued totals
// fall back to the certificates table when counter tracking started after
// certificates already existed.
func (s *StatisticsService) GetSummary() (*models.StatisticsSummary, error) {
	summary := &models.StatisticsSummary{}

	var historicalIssued int64
	if err := internal.DB.Model(&models.Certificate{}).Count(&historicalIssued).Error; err != nil {
		fmt.Printf("Warning: failed to count certificates: %v\n", err)
	}

	issued, err := s.sumEvent(models.EventCertificateIssued)
	if err != nil {
		return nil, err
	}
	if historicalIssued > issued {
		summary.TotalIssued = historicalIssued
	} else {
		summary.TotalIssued = issued
	}

	if summary.TotalRevoked, err = s.sumEvent(models.EventCertificateRevoked); err != nil {
		return nil, err
	}
	if summary.TotalRegenerated, err = s.sumEvent(models.EventPDFRegenerated); err != nil {
		return nil, err
	}

	return summary, nil
}

// CourseTypeStats is the per-course-type breakdown of lifecycle events.
type CourseTypeStats struct {
	CourseTypeID   string `json:"course_type_id"`
	CourseTypeName string `json:"course_type_name"`
	Issued         int64  `json:"issued"`
	Revoked        int64  `json:"revoked"`
	Regenerated    int64  `json:"regenerated"`
}

// GetCourseTypeStats returns lifecycle totals per course type.
func (s *StatisticsService) GetCourseTypeStats() ([]CourseTypeStats, error) {
	var courseTypes []models.CourseType
	if err := internal.DB.Find(&courseTypes).Error; err != nil {
		return nil, fmt.Errorf("failed to load course types: %w", err)
	}

	var stats []CourseTypeStats
	for _, ct := range courseTypes {
		entry := CourseTypeStats{
			CourseTypeID:   ct.ID,
			CourseTypeName: ct.Name,
		}

		sum := func(eventType models.EventType) int64 {
			var n int64
			internal.DB.Model(&models.Statistics{}).
				Where("event_type = ? AND course_type_id = ?", eventType, ct.ID).
				Select("COALESCE(SUM(count), 0)").
				Scan(&n)
			return n
		}

		entry.Issued = sum(models.EventCertificateIssued)
		entry.Revoked = sum(models.EventCertificateRevoked)
		entry.Regenerated = sum(models.EventPDFRegenerated)

		// Counters may postdate the certificates table; the table is the
		// source of truth for issuance.
		var certCount int64
		internal.DB.Model(&models.Certificate{}).
			Where("course_type_id = ?", ct.ID).
			Count(&certCount)
		if certCount > entry.Issued {
			entry.Issued = certCount
		}

		stats = append(stats, entry)
	}
	return stats, nil
}

// GetTimeSeries returns daily counts for one event type over the trailing
// window.
func (s *StatisticsService) GetTimeSeries(eventType models.EventType, days int, courseTypeID string) ([]models.TimeSeriesPoint, error) {
	startDate := time.Now().UTC().AddDate(0, 0, -days).Truncate(24 * time.Hour)

	query := internal.DB.Model(&models.Statistics{}).
		Where("event_type = ? AND date >= ?", eventType, startDate)
	if courseTypeID != "" {
		query = query.Where("course_type_id = ?", courseTypeID)
	} else {
		query = query.Where("course_type_id IS NULL OR course_type_id = ''")
	}

	var rows []struct {
		Date  time.Time
		Count int64
	}
	err := query.
		Select("date, SUM(count) as count").
		Group("date").
		Order("date ASC").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get time series data: %w", err)
	}

	points := make([]models.TimeSeriesPoint, 0, len(rows))
	for _, r := range rows {
		points = append(points, models.TimeSeriesPoint{
			Date:  r.Date.Format("2006-01-02"),
			Count: r.Count,
		})
	}
	return points, nil
}
