package services

import (
	"database/sql"
	"fmt"
	"strconv"
	"strings"

	"TC-CERT/internal"
	"TC-CERT/internal/models"
)

// NumberingService hands out certificate numbers of the form
// "{courseTypeCode}-{year}-NNNNN", sequential and gapless within each
// prefix. The sequence is materialized as the maximum already-issued number
// matching the prefix; the fixed-width zero-padded suffix makes the
// lexicographic MAX also the numeric max.
//
// This is a read-then-compute sequence: two truly concurrent issuances for
// the same prefix can compute the same next number. Callers run issuance
// loops sequentially to keep that window small, and the unique index on
// certificates.number turns a lost race into a storage error instead of a
// duplicate.
type NumberingService struct{}

func NewNumberingService() *NumberingService {
	return &NumberingService{}
}

// NextNumber returns the next certificate number for the given course type
// code and year.
func (s *NumberingService) NextNumber(courseTypeCode string, year int) (string, error) {
	prefix := fmt.Sprintf("%s-%d-", courseTypeCode, year)

	// Soft-deleted certificates keep their numbers, so the scan is unscoped:
	// a number is never handed out twice even after its certificate is gone.
	var max sql.NullString
	err := internal.DB.Unscoped().
		Model(&models.Certificate{}).
		Where("number LIKE ?", prefix+"%").
		Select("MAX(number)").
		Scan(&max).Error
	if err != nil {
		return "", fmt.Errorf("failed to query max certificate number for prefix %s: %w", prefix, err)
	}

	seq := 0
	if max.Valid && max.String != "" {
		idx := strings.LastIndex(max.String, "-")
		n, err := strconv.Atoi(max.String[idx+1:])
		if err != nil {
			return "", fmt.Errorf("malformed certificate number %q for prefix %s", max.String, prefix)
		}
		seq = n
	}

	return fmt.Sprintf("%s%05d", prefix, seq+1), nil
}
