package entity

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecurrenceRule_ScanEndDate(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want *time.Time
	}{
		{
			name: "date only covers the whole day",
			raw:  `{"occurrence_type":"weekly","day_of_week":[1],"recurrence_end_date":"2025-06-30"}`,
			want: ptrTime(time.Date(2025, time.July, 1, 0, 0, 0, 0, time.UTC)),
		},
		{
			name: "rfc3339 is kept as is",
			raw:  `{"occurrence_type":"weekly","day_of_week":[1],"recurrence_end_date":"2025-06-30T12:00:00Z"}`,
			want: ptrTime(time.Date(2025, time.June, 30, 12, 0, 0, 0, time.UTC)),
		},
		{
			name: "missing",
			raw:  `{"occurrence_type":"daily"}`,
		},
		{
			name: "null",
			raw:  `{"occurrence_type":"daily","recurrence_end_date":null}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var rule RecurrenceRule
			require.NoError(t, rule.Scan([]byte(tt.raw)))

			if tt.want == nil {
				assert.Nil(t, rule.RecurrenceEndDate)
				return
			}
			require.NotNil(t, rule.RecurrenceEndDate)
			assert.True(t, tt.want.Equal(*rule.RecurrenceEndDate), "got %s", rule.RecurrenceEndDate)
		})
	}
}

func TestRecurrenceRule_ScanKeepsOtherFields(t *testing.T) {
	var rule RecurrenceRule
	require.NoError(t, rule.Scan(`{"occurrence_type":"monthly","day_of_month":15,"recurrence_end_date":"2025-12-31"}`))

	assert.Equal(t, OccurrenceMonthly, rule.OccurrenceType)
	assert.Equal(t, 15, rule.DayOfMonth)
	require.NotNil(t, rule.RecurrenceEndDate)
}

func TestRecurrenceRule_ScanRejectsGarbageEndDate(t *testing.T) {
	var rule RecurrenceRule
	err := rule.Scan([]byte(`{"occurrence_type":"daily","recurrence_end_date":"next june"}`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "recurrence_end_date")
}

func TestRecurrenceRule_ValueRoundTrip(t *testing.T) {
	var rule RecurrenceRule
	require.NoError(t, rule.Scan([]byte(`{"occurrence_type":"weekly","day_of_week":[1,3],"recurrence_end_date":"2025-06-30"}`)))

	stored, err := rule.Value()
	require.NoError(t, err)

	var again RecurrenceRule
	require.NoError(t, again.Scan(stored))
	assert.Equal(t, rule.DayOfWeek, again.DayOfWeek)
	assert.True(t, rule.RecurrenceEndDate.Equal(*again.RecurrenceEndDate))
}

func ptrTime(t time.Time) *time.Time { return &t }
