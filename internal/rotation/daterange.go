// Package rotation reconciles date-ranged department assignments, sub-department
// rotations and on-call shifts. Everything in it is a pure function of the
// snapshots it is given.
package rotation

import (
	"time"

	"github.com/noah-isme/clinical-rotation-api/internal/models"
	appErrors "github.com/noah-isme/clinical-rotation-api/pkg/errors"
)

// DateLayout is the calendar-date format every record stores.
const DateLayout = "2006-01-02"

// DateRange is an inclusive calendar range in ISO date form.
type DateRange struct {
	Start string `json:"startDate"`
	End   string `json:"endDate"`
}

// NewDateRange builds a range without validating it.
func NewDateRange(start, end string) DateRange {
	return DateRange{Start: start, End: end}
}

// Overlaps compares ISO dates lexicographically. Touching ranges overlap.
func Overlaps(start1, end1, start2, end2 string) bool {
	return start1 <= end2 && end1 >= start2
}

// Overlaps reports whether r and other share at least one day.
func (r DateRange) Overlaps(other DateRange) bool {
	return Overlaps(r.Start, r.End, other.Start, other.End)
}

// Contains reports whether date falls inside r.
func (r DateRange) Contains(date string) bool {
	return r.Start <= date && date <= r.End
}

// IsZero reports whether neither bound is set.
func (r DateRange) IsZero() bool {
	return r.Start == "" && r.End == ""
}

// Validate checks that both bounds are ISO dates and start <= end.
func (r DateRange) Validate() error {
	if r.Start == "" || r.End == "" {
		return appErrors.Clone(appErrors.ErrValidation, "start and end dates are required")
	}
	if _, err := ParseDate(r.Start); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid start date")
	}
	if _, err := ParseDate(r.End); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid end date")
	}
	if r.Start > r.End {
		return appErrors.Clone(appErrors.ErrValidation, "end date must not be before start date")
	}
	return nil
}

// ParseDate parses an ISO calendar date.
func ParseDate(value string) (time.Time, error) {
	return time.Parse(DateLayout, value)
}

// FormatDate renders t as an ISO calendar date.
func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}

// WeekOf returns the Monday..Sunday week containing date.
func WeekOf(date string) (DateRange, error) {
	t, err := ParseDate(date)
	if err != nil {
		return DateRange{}, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid date")
	}
	monday := StartOfWeek(t)
	return DateRange{Start: FormatDate(monday), End: FormatDate(monday.AddDate(0, 0, 6))}, nil
}

// StartOfWeek rolls t back to the Monday of its week. Sunday belongs to the
// week that began six days earlier.
func StartOfWeek(t time.Time) time.Time {
	offset := (int(t.Weekday()) + 6) % 7
	y, m, d := t.AddDate(0, 0, -offset).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// AssignmentRange returns the range covered by an assignment.
func AssignmentRange(a models.Assignment) DateRange {
	return DateRange{Start: a.StartDate, End: a.EndDate}
}

// RotationRange returns the range covered by a rotation.
func RotationRange(r models.ClinicalRotation) DateRange {
	return DateRange{Start: r.StartDate, End: r.EndDate}
}
