package models

import (
	"time"

	dErrors "warden/pkg/domain-errors"
)

// Period selects the lookback window for new-account counts.
type Period string

const (
	PeriodDay   Period = "day"
	PeriodWeek  Period = "week"
	PeriodMonth Period = "month"
)

// ParsePeriod creates a Period from external input, validating it.
func ParsePeriod(s string) (Period, error) {
	switch Period(s) {
	case PeriodDay, PeriodWeek, PeriodMonth:
		return Period(s), nil
	}
	return "", dErrors.New(dErrors.CodeInvalidInput, "invalid period: must be 'day', 'week' or 'month'")
}

// WindowStart returns the start of the lookback window ending at now.
func (p Period) WindowStart(now time.Time) time.Time {
	switch p {
	case PeriodDay:
		return now.AddDate(0, 0, -1)
	case PeriodWeek:
		return now.AddDate(0, 0, -7)
	default:
		return now.AddDate(0, -1, 0)
	}
}

// BucketUnit selects the grouping granularity for creation histograms.
type BucketUnit string

const (
	BucketDay   BucketUnit = "day"
	BucketWeek  BucketUnit = "week"
	BucketMonth BucketUnit = "month"
)

// ParseBucketUnit creates a BucketUnit from external input, validating it.
func ParseBucketUnit(s string) (BucketUnit, error) {
	switch BucketUnit(s) {
	case BucketDay, BucketWeek, BucketMonth:
		return BucketUnit(s), nil
	}
	return "", dErrors.New(dErrors.CodeInvalidInput, "invalid bucket unit: must be 'day', 'week' or 'month'")
}

// Bucket is one entry of a creation histogram, keyed by the bucket start date.
type Bucket struct {
	Date  string `json:"date"`
	Count int    `json:"count"`
}

// Snapshot is a point-in-time census of the account base. Active counts
// accounts without an unlifted restriction.
type Snapshot struct {
	Total  int64 `json:"total"`
	Banned int64 `json:"banned"`
	Active int64 `json:"active"`
}
