package recurrence

import (
	"testing"
	"time"

	"orgsync-api/modules/event/entity"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func date(y int, m time.Month, d, h, minute int) time.Time {
	return time.Date(y, m, d, h, minute, 0, 0, time.UTC)
}

func ptr[T any](v T) *T { return &v }

func TestExpand_WeeklyTwoWeeksFromMonday(t *testing.T) {
	start := date(2025, time.March, 3, 9, 0) // Monday
	end := start.Add(90 * time.Minute)
	rule := &entity.RecurrenceRule{
		OccurrenceType:    entity.OccurrenceWeekly,
		DayOfWeek:         []int{1, 3},
		RecurrenceEndDate: ptr(start.AddDate(0, 0, 14)),
	}

	got, err := Expand(start, end, rule)
	require.NoError(t, err)
	require.Len(t, got, 4)

	for _, occ := range got {
		assert.Contains(t, []time.Weekday{time.Monday, time.Wednesday}, occ.Start.Weekday())
		assert.Equal(t, 90*time.Minute, occ.End.Sub(occ.Start))
		assert.Equal(t, 9, occ.Start.Hour())
	}
	assert.Equal(t, start, got[0].Start)
	assert.Equal(t, date(2025, time.March, 12, 9, 0), got[3].Start)
}

func TestExpand_MonthlySkipsShortMonths(t *testing.T) {
	start := date(2025, time.January, 31, 18, 0)
	rule := &entity.RecurrenceRule{
		OccurrenceType:    entity.OccurrenceMonthly,
		DayOfMonth:        31,
		RecurrenceEndDate: ptr(date(2025, time.May, 1, 0, 0)),
	}

	got, err := Expand(start, start.Add(time.Hour), rule)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, date(2025, time.January, 31, 18, 0), got[0].Start)
	assert.Equal(t, date(2025, time.March, 31, 18, 0), got[1].Start)
	for _, occ := range got {
		assert.NotEqual(t, time.February, occ.Start.Month())
	}
}

func TestExpand_MonthlyStartsOnOrAfterAnchor(t *testing.T) {
	start := date(2025, time.January, 20, 12, 0)
	rule := &entity.RecurrenceRule{
		OccurrenceType:    entity.OccurrenceMonthly,
		DayOfMonth:        10,
		RecurrenceEndDate: ptr(date(2025, time.April, 1, 0, 0)),
	}

	got, err := Expand(start, time.Time{}, rule)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, date(2025, time.February, 10, 12, 0), got[0].Start)
	assert.Equal(t, date(2025, time.March, 10, 12, 0), got[1].Start)
	assert.Equal(t, time.Hour, got[0].End.Sub(got[0].Start))
}

func TestExpand_DailyBoundIsExclusive(t *testing.T) {
	start := date(2025, time.March, 3, 9, 0)
	rule := &entity.RecurrenceRule{
		OccurrenceType:    entity.OccurrenceDaily,
		RecurrenceEndDate: ptr(date(2025, time.March, 8, 9, 0)),
	}

	got, err := Expand(start, start.Add(time.Hour), rule)
	require.NoError(t, err)
	require.Len(t, got, 5)
	assert.Equal(t, date(2025, time.March, 7, 9, 0), got[4].Start)
}

func TestExpand_DefaultHorizonIsSixMonths(t *testing.T) {
	start := date(2025, time.January, 1, 8, 0)
	rule := &entity.RecurrenceRule{OccurrenceType: entity.OccurrenceDaily}

	got, err := Expand(start, start.Add(time.Hour), rule)
	require.NoError(t, err)
	require.Len(t, got, 181)
	assert.Equal(t, date(2025, time.June, 30, 8, 0), got[len(got)-1].Start)
}

func TestExpand_CapsOccurrences(t *testing.T) {
	start := date(2025, time.January, 1, 8, 0)
	rule := &entity.RecurrenceRule{
		OccurrenceType:    entity.OccurrenceDaily,
		RecurrenceEndDate: ptr(start.AddDate(5, 0, 0)),
	}

	got, err := Expand(start, start.Add(time.Hour), rule)
	require.NoError(t, err)
	assert.Len(t, got, 731)
}

func TestExpand_InvalidRules(t *testing.T) {
	start := date(2025, time.March, 3, 9, 0)

	tests := []struct {
		name string
		rule *entity.RecurrenceRule
		end  time.Time
	}{
		{name: "nil rule", rule: nil},
		{name: "unknown type", rule: &entity.RecurrenceRule{OccurrenceType: "yearly"}},
		{name: "weekly without days", rule: &entity.RecurrenceRule{OccurrenceType: entity.OccurrenceWeekly}},
		{name: "weekly day out of range", rule: &entity.RecurrenceRule{OccurrenceType: entity.OccurrenceWeekly, DayOfWeek: []int{7}}},
		{name: "monthly day zero", rule: &entity.RecurrenceRule{OccurrenceType: entity.OccurrenceMonthly}},
		{name: "monthly day 32", rule: &entity.RecurrenceRule{OccurrenceType: entity.OccurrenceMonthly, DayOfMonth: 32}},
		{
			name: "end date before anchor",
			rule: &entity.RecurrenceRule{OccurrenceType: entity.OccurrenceDaily, RecurrenceEndDate: ptr(start.Add(-time.Hour))},
		},
		{
			name: "anchor ends before start",
			rule: &entity.RecurrenceRule{OccurrenceType: entity.OccurrenceDaily},
			end:  start.Add(-time.Minute),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Expand(start, tt.end, tt.rule)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalidRule)
		})
	}
}

func TestExpand_DateOnlyEndDateIncludesLastDay(t *testing.T) {
	var rule entity.RecurrenceRule
	require.NoError(t, rule.Scan([]byte(`{"occurrence_type":"weekly","day_of_week":[1],"recurrence_end_date":"2025-06-30"}`)))

	start := date(2025, time.June, 2, 18, 0) // Monday
	got, err := Expand(start, start.Add(time.Hour), &rule)
	require.NoError(t, err)

	require.Len(t, got, 5)
	assert.Equal(t, date(2025, time.June, 30, 18, 0), got[4].Start)
	for _, occ := range got {
		assert.Equal(t, time.Monday, occ.Start.Weekday())
	}
}
