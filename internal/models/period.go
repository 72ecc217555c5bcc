package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	appErrors "github.com/noah-isme/uniflow-academic-api/pkg/errors"
)

// PeriodType represents the kind of academic period.
type PeriodType string

const (
	PeriodTypeFirstSemester  PeriodType = "first-semester"
	PeriodTypeSecondSemester PeriodType = "second-semester"
	PeriodTypeSummer         PeriodType = "summer"
	PeriodTypeSpecial        PeriodType = "special"
)

const (
	MinPeriodYear       = 1900
	MaxPeriodYear       = 2100
	MaxPeriodNameLength = 255
)

// PeriodTypes lists the canonical period types in display order.
var PeriodTypes = []PeriodType{
	PeriodTypeFirstSemester,
	PeriodTypeSecondSemester,
	PeriodTypeSummer,
	PeriodTypeSpecial,
}

// ParsePeriodType matches raw against the canonical hyphenated values. Matching is case-sensitive.
func ParsePeriodType(raw string) (PeriodType, error) {
	switch PeriodType(raw) {
	case PeriodTypeFirstSemester:
		return PeriodTypeFirstSemester, nil
	case PeriodTypeSecondSemester:
		return PeriodTypeSecondSemester, nil
	case PeriodTypeSummer:
		return PeriodTypeSummer, nil
	case PeriodTypeSpecial:
		return PeriodTypeSpecial, nil
	default:
		return "", appErrors.Clone(appErrors.ErrInvalidPeriodType, fmt.Sprintf("invalid period type: %s", raw))
	}
}

// Period is an academic term owned by a single student.
type Period struct {
	ID        string     `db:"id" json:"id"`
	Name      string     `db:"name" json:"name"`
	Type      PeriodType `db:"type" json:"type"`
	Year      int        `db:"year" json:"year"`
	StartDate Date       `db:"start_date" json:"startDate"`
	EndDate   Date       `db:"end_date" json:"endDate"`
	StudentID string     `db:"student_id" json:"studentId"`
	IsActive  bool       `db:"is_active" json:"isActive"`
	CreatedAt time.Time  `db:"created_at" json:"createdAt"`
	UpdatedAt time.Time  `db:"updated_at" json:"updatedAt"`
}

// NewPeriodParams carries the caller-supplied fields for NewPeriod.
type NewPeriodParams struct {
	Name      string
	Type      PeriodType
	Year      int
	StartDate Date
	EndDate   Date
	StudentID string
}

// NewPeriod builds an inactive period with a fresh identifier and validates it.
func NewPeriod(p NewPeriodParams, now time.Time) (Period, error) {
	period := Period{
		ID:        uuid.NewString(),
		Name:      p.Name,
		Type:      p.Type,
		Year:      p.Year,
		StartDate: p.StartDate,
		EndDate:   p.EndDate,
		StudentID: p.StudentID,
		IsActive:  false,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := period.Validate(); err != nil {
		return Period{}, err
	}
	return period, nil
}

// Validate checks the period invariants.
func (p Period) Validate() error {
	if p.StartDate.IsZero() || p.EndDate.IsZero() {
		return appErrors.Clone(appErrors.ErrInvalidPeriod, "start date and end date are required")
	}
	if !p.StartDate.Before(p.EndDate) {
		return appErrors.Clone(appErrors.ErrInvalidPeriod, "start date must be before end date")
	}
	if p.Year < MinPeriodYear || p.Year > MaxPeriodYear {
		return appErrors.Clone(appErrors.ErrInvalidPeriod, fmt.Sprintf("year must be between %d and %d", MinPeriodYear, MaxPeriodYear))
	}
	if strings.TrimSpace(p.Name) == "" {
		return appErrors.Clone(appErrors.ErrInvalidPeriod, "period name is required")
	}
	if len([]rune(p.Name)) > MaxPeriodNameLength {
		return appErrors.Clone(appErrors.ErrInvalidPeriod, fmt.Sprintf("period name must be at most %d characters", MaxPeriodNameLength))
	}
	return nil
}

// PeriodUpdate is a typed partial update. Nil fields keep their current value.
type PeriodUpdate struct {
	Name      *string
	Type      *PeriodType
	Year      *int
	StartDate *Date
	EndDate   *Date
}

// IsEmpty reports whether no field is set.
func (u PeriodUpdate) IsEmpty() bool {
	return u.Name == nil && u.Type == nil && u.Year == nil && u.StartDate == nil && u.EndDate == nil
}

// WithUpdates returns a copy of p with the supplied fields applied, re-validated.
// A blank name is treated as not supplied.
func (p Period) WithUpdates(u PeriodUpdate, now time.Time) (Period, error) {
	next := p
	if u.Name != nil && strings.TrimSpace(*u.Name) != "" {
		next.Name = *u.Name
	}
	if u.Type != nil {
		next.Type = *u.Type
	}
	if u.Year != nil {
		next.Year = *u.Year
	}
	if u.StartDate != nil {
		next.StartDate = *u.StartDate
	}
	if u.EndDate != nil {
		next.EndDate = *u.EndDate
	}
	next.UpdatedAt = now
	if err := next.Validate(); err != nil {
		return Period{}, err
	}
	return next, nil
}

// Activated returns a copy of p flagged active.
func (p Period) Activated(now time.Time) (Period, error) {
	return p.withActive(true, now)
}

// Deactivated returns a copy of p flagged inactive.
func (p Period) Deactivated(now time.Time) (Period, error) {
	return p.withActive(false, now)
}

func (p Period) withActive(active bool, now time.Time) (Period, error) {
	next := p
	next.IsActive = active
	next.UpdatedAt = now
	if err := next.Validate(); err != nil {
		return Period{}, err
	}
	return next, nil
}

// IsCurrentOn reports whether day falls strictly between the start and end dates.
func (p Period) IsCurrentOn(day Date) bool {
	return p.StartDate.Before(day) && p.EndDate.After(day)
}

// IsUpcomingOn reports whether the period starts after day.
func (p Period) IsUpcomingOn(day Date) bool {
	return p.StartDate.After(day)
}

// IsFinishedOn reports whether the period ended before day.
func (p Period) IsFinishedOn(day Date) bool {
	return p.EndDate.Before(day)
}

// DurationDays returns the number of days between start and end.
func (p Period) DurationDays() int {
	return p.StartDate.DaysUntil(p.EndDate)
}

// PeriodFilter narrows list queries. Nil fields are unset.
type PeriodFilter struct {
	Type     *PeriodType
	Year     *int
	IsActive *bool
}

// IsEmpty reports whether every filter is unset.
func (f PeriodFilter) IsEmpty() bool {
	return f.Type == nil && f.Year == nil && f.IsActive == nil
}

// Matches reports whether p satisfies every set filter.
func (f PeriodFilter) Matches(p Period) bool {
	if f.Type != nil && p.Type != *f.Type {
		return false
	}
	if f.Year != nil && p.Year != *f.Year {
		return false
	}
	if f.IsActive != nil && p.IsActive != *f.IsActive {
		return false
	}
	return true
}
