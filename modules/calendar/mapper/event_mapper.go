package mapper

import (
	"errors"
	"fmt"
	"maps"
	"time"

	"orgsync-api/core/constants"
	eventEntity "orgsync-api/modules/event/entity"

	"github.com/google/uuid"
	"google.golang.org/api/calendar/v3"
)

// ExtendedPropertyEventID is the private extended property that carries the
// source event id on every remote copy.
const ExtendedPropertyEventID = "orgEventId"

var ErrInvalidEvent = errors.New("event cannot be mapped")

// ToGoogleEvent maps an organization event to the Google Calendar wire shape.
// Times are emitted in UTC; a missing end defaults to one hour after start.
func ToGoogleEvent(event *eventEntity.Event) (*calendar.Event, error) {
	if event == nil {
		return nil, fmt.Errorf("%w: nil event", ErrInvalidEvent)
	}
	if event.Title == "" {
		return nil, fmt.Errorf("%w: title is required", ErrInvalidEvent)
	}
	if event.StartDate.IsZero() {
		return nil, fmt.Errorf("%w: start date is required", ErrInvalidEvent)
	}

	start := event.StartDate.UTC()
	end := start.Add(constants.DefaultEventDuration)
	if event.EndDate != nil && !event.EndDate.IsZero() {
		end = event.EndDate.UTC()
		if end.Before(start) {
			return nil, fmt.Errorf("%w: end date is before start date", ErrInvalidEvent)
		}
	}

	wire := &calendar.Event{
		Summary: event.Title,
		Start:   toEventDateTime(start),
		End:     toEventDateTime(end),
	}
	if event.Description != nil && *event.Description != "" {
		wire.Description = *event.Description
	}
	if event.Location != nil && *event.Location != "" {
		wire.Location = *event.Location
	}
	if event.ID != uuid.Nil {
		wire.ExtendedProperties = &calendar.EventExtendedProperties{
			Private: map[string]string{ExtendedPropertyEventID: event.ID.String()},
		}
	}
	return wire, nil
}

func toEventDateTime(t time.Time) *calendar.EventDateTime {
	return &calendar.EventDateTime{
		DateTime: t.Format(time.RFC3339),
		TimeZone: constants.DefaultSyncTimezone,
	}
}

// CloneGoogleEvent returns a copy that shares no mutable state with src.
func CloneGoogleEvent(src *calendar.Event) *calendar.Event {
	if src == nil {
		return nil
	}
	dst := *src
	if src.Start != nil {
		start := *src.Start
		dst.Start = &start
	}
	if src.End != nil {
		end := *src.End
		dst.End = &end
	}
	if src.ExtendedProperties != nil {
		dst.ExtendedProperties = &calendar.EventExtendedProperties{
			Private: maps.Clone(src.ExtendedProperties.Private),
			Shared:  maps.Clone(src.ExtendedProperties.Shared),
		}
	}
	return &dst
}
