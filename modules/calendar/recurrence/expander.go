// Package recurrence expands a recurrence rule into concrete occurrences.
package recurrence

import (
	"errors"
	"fmt"
	"time"

	"orgsync-api/core/constants"
	"orgsync-api/modules/event/entity"
)

var ErrInvalidRule = errors.New("invalid recurrence rule")

// Expand returns the occurrences of rule starting at anchorStart, in order.
// Every occurrence starts strictly before the bound, which is the rule's end
// date or anchorStart plus six months. A zero anchorEnd means the default
// event duration. Occurrences keep the anchor's time of day and duration.
func Expand(anchorStart, anchorEnd time.Time, rule *entity.RecurrenceRule) ([]entity.Occurrence, error) {
	if err := Validate(rule); err != nil {
		return nil, err
	}
	if anchorStart.IsZero() {
		return nil, fmt.Errorf("%w: anchor start is required", ErrInvalidRule)
	}

	duration := constants.DefaultEventDuration
	if !anchorEnd.IsZero() {
		if anchorEnd.Before(anchorStart) {
			return nil, fmt.Errorf("%w: anchor ends before it starts", ErrInvalidRule)
		}
		duration = anchorEnd.Sub(anchorStart)
	}

	bound := Bound(anchorStart, rule)
	if !bound.After(anchorStart) {
		return nil, fmt.Errorf("%w: end date %s is not after the anchor", ErrInvalidRule, bound.Format(time.RFC3339))
	}

	var starts []time.Time
	switch rule.OccurrenceType {
	case entity.OccurrenceDaily:
		starts = expandDaily(anchorStart, bound)
	case entity.OccurrenceWeekly:
		starts = expandWeekly(anchorStart, bound, rule.DayOfWeek)
	case entity.OccurrenceMonthly:
		starts = expandMonthly(anchorStart, bound, rule.DayOfMonth)
	}

	occurrences := make([]entity.Occurrence, 0, len(starts))
	for _, start := range starts {
		occurrences = append(occurrences, entity.Occurrence{Start: start, End: start.Add(duration)})
	}
	return occurrences, nil
}

// Bound is the exclusive upper limit for occurrence starts.
func Bound(anchorStart time.Time, rule *entity.RecurrenceRule) time.Time {
	if rule != nil && rule.RecurrenceEndDate != nil && !rule.RecurrenceEndDate.IsZero() {
		return *rule.RecurrenceEndDate
	}
	return anchorStart.AddDate(0, constants.DefaultRecurrenceHorizonMonths, 0)
}

func Validate(rule *entity.RecurrenceRule) error {
	if rule == nil {
		return fmt.Errorf("%w: rule is required", ErrInvalidRule)
	}
	switch rule.OccurrenceType {
	case entity.OccurrenceDaily:
	case entity.OccurrenceWeekly:
		if len(rule.DayOfWeek) == 0 {
			return fmt.Errorf("%w: weekly rule needs at least one day_of_week", ErrInvalidRule)
		}
		for _, d := range rule.DayOfWeek {
			if d < 0 || d > 6 {
				return fmt.Errorf("%w: day_of_week %d out of range", ErrInvalidRule, d)
			}
		}
	case entity.OccurrenceMonthly:
		if rule.DayOfMonth < 1 || rule.DayOfMonth > 31 {
			return fmt.Errorf("%w: day_of_month %d out of range", ErrInvalidRule, rule.DayOfMonth)
		}
	default:
		return fmt.Errorf("%w: unknown occurrence_type %q", ErrInvalidRule, rule.OccurrenceType)
	}
	return nil
}

// at builds a time on the given calendar date with the anchor's clock.
func at(anchor time.Time, year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, anchor.Hour(), anchor.Minute(), anchor.Second(), anchor.Nanosecond(), anchor.Location())
}

func expandDaily(anchor, bound time.Time) []time.Time {
	var starts []time.Time
	y, m, d := anchor.Date()
	for i := 0; len(starts) < constants.MaxRecurrenceOccurrences; i++ {
		start := at(anchor, y, m, d+i)
		if !start.Before(bound) {
			break
		}
		starts = append(starts, start)
	}
	return starts
}

func expandWeekly(anchor, bound time.Time, days []int) []time.Time {
	var wanted [7]bool
	for _, d := range days {
		wanted[d] = true
	}

	var starts []time.Time
	y, m, d := anchor.Date()
	for i := 0; len(starts) < constants.MaxRecurrenceOccurrences; i++ {
		start := at(anchor, y, m, d+i)
		if !start.Before(bound) {
			break
		}
		if wanted[start.Weekday()] {
			starts = append(starts, start)
		}
	}
	return starts
}

// expandMonthly skips months that are shorter than dayOfMonth.
func expandMonthly(anchor, bound time.Time, dayOfMonth int) []time.Time {
	var starts []time.Time
	y, m, _ := anchor.Date()
	for i := 0; len(starts) < constants.MaxRecurrenceOccurrences; i++ {
		first := at(anchor, y, m+time.Month(i), 1)
		if !first.Before(bound) {
			break
		}
		if daysIn(first) < dayOfMonth {
			continue
		}
		start := at(anchor, first.Year(), first.Month(), dayOfMonth)
		if start.Before(anchor) {
			continue
		}
		if !start.Before(bound) {
			break
		}
		starts = append(starts, start)
	}
	return starts
}

func daysIn(t time.Time) int {
	return time.Date(t.Year(), t.Month()+1, 0, 0, 0, 0, 0, t.Location()).Day()
}
