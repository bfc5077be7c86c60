package entity

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"orgsync-api/core/entity"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// Audience values
const (
	AudienceMembers  = "members"
	AudienceAlumni   = "alumni"
	AudienceBoth     = "both"
	AudienceSpecific = "specific"
)

// Event categories
const (
	EventTypeGeneral      = "general"
	EventTypeGame         = "game"
	EventTypeMeeting      = "meeting"
	EventTypeSocial       = "social"
	EventTypeFundraiser   = "fundraiser"
	EventTypePhilanthropy = "philanthropy"
)

// Event is an organization event as stored by the events CRUD layer.
type Event struct {
	OrganizationID     uuid.UUID       `db:"organization_id" json:"organization_id"`
	Title              string          `db:"title" json:"title"`
	Description        *string         `db:"description" json:"description,omitempty"`
	Location           *string         `db:"location" json:"location,omitempty"`
	StartDate          time.Time       `db:"start_date" json:"start_date"`
	EndDate            *time.Time      `db:"end_date" json:"end_date,omitempty"`
	EventType          string          `db:"event_type" json:"event_type"`
	Audience           string          `db:"audience" json:"audience"`
	TargetUserIDs      pq.StringArray  `db:"target_user_ids" json:"target_user_ids,omitempty"`
	RecurrenceRule     *RecurrenceRule `db:"recurrence_rule" json:"recurrence_rule,omitempty"`
	RecurrenceParentID *uuid.UUID      `db:"recurrence_parent_id" json:"recurrence_parent_id,omitempty"`
	entity.BaseEntity
}

// TargetUsers parses TargetUserIDs, dropping values that are not UUIDs.
func (e *Event) TargetUsers() []uuid.UUID {
	users := make([]uuid.UUID, 0, len(e.TargetUserIDs))
	for _, raw := range e.TargetUserIDs {
		if id, err := uuid.Parse(raw); err == nil {
			users = append(users, id)
		}
	}
	return users
}

type OccurrenceType string

const (
	OccurrenceDaily   OccurrenceType = "daily"
	OccurrenceWeekly  OccurrenceType = "weekly"
	OccurrenceMonthly OccurrenceType = "monthly"
)

// RecurrenceRule is stored as JSONB on the anchor event. RecurrenceEndDate is
// an exclusive bound; it is always written back as RFC3339.
type RecurrenceRule struct {
	OccurrenceType    OccurrenceType `json:"occurrence_type"`
	DayOfWeek         []int          `json:"day_of_week,omitempty"`
	DayOfMonth        int            `json:"day_of_month,omitempty"`
	RecurrenceEndDate *time.Time     `json:"recurrence_end_date,omitempty"`
}

// UnmarshalJSON also accepts a date-only recurrence_end_date. A date covers
// that whole day in UTC, so it becomes midnight of the following day.
func (r *RecurrenceRule) UnmarshalJSON(data []byte) error {
	type plain RecurrenceRule
	aux := struct {
		*plain
		RecurrenceEndDate *string `json:"recurrence_end_date"`
	}{plain: (*plain)(r)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}

	r.RecurrenceEndDate = nil
	if aux.RecurrenceEndDate == nil || *aux.RecurrenceEndDate == "" {
		return nil
	}
	end, err := parseEndDate(*aux.RecurrenceEndDate)
	if err != nil {
		return err
	}
	r.RecurrenceEndDate = &end
	return nil
}

func parseEndDate(value string) (time.Time, error) {
	if day, err := time.Parse(time.DateOnly, value); err == nil {
		return day.AddDate(0, 0, 1), nil
	}
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02T15:04:05"} {
		if t, err := time.Parse(layout, value); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("recurrence_end_date %q is neither a date nor an RFC3339 time", value)
}

func (r RecurrenceRule) Value() (driver.Value, error) {
	return json.Marshal(r)
}

func (r *RecurrenceRule) Scan(value any) error {
	if value == nil {
		return nil
	}
	switch v := value.(type) {
	case []byte:
		return json.Unmarshal(v, r)
	case string:
		return json.Unmarshal([]byte(v), r)
	}
	return errors.New("type assertion to []byte failed")
}

// Occurrence is one concrete instance produced from a recurrence rule.
type Occurrence struct {
	Start time.Time
	End   time.Time
}
