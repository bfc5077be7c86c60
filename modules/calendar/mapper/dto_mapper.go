package mapper

import (
	"time"

	coreEntity "orgsync-api/core/entity"
	"orgsync-api/modules/calendar/dto"
	"orgsync-api/modules/calendar/entity"
)

func ToConnectionResponse(conn *entity.CalendarConnection) *dto.ConnectionResponse {
	resp := &dto.ConnectionResponse{
		ID:               conn.ID.String(),
		Provider:         conn.Provider,
		CalendarEmail:    conn.CalendarEmail,
		Status:           string(conn.Status),
		TargetCalendarID: conn.TargetCalendarID,
		ConnectedAt:      conn.CreatedAt.Format(time.RFC3339),
	}
	if conn.LastSyncAt != nil {
		at := conn.LastSyncAt.Format(time.RFC3339)
		resp.LastSyncAt = &at
	}
	return resp
}

func ToPreferenceResponse(pref *entity.SyncPreference) *dto.PreferenceResponse {
	return &dto.PreferenceResponse{
		OrganizationID:   pref.OrganizationID.String(),
		SyncGeneral:      pref.SyncGeneral,
		SyncGame:         pref.SyncGame,
		SyncMeeting:      pref.SyncMeeting,
		SyncSocial:       pref.SyncSocial,
		SyncFundraiser:   pref.SyncFundraiser,
		SyncPhilanthropy: pref.SyncPhilanthropy,
	}
}

// ApplyPreferenceUpdate copies the flags present in req onto pref.
func ApplyPreferenceUpdate(pref *entity.SyncPreference, req *dto.UpdatePreferencesRequest) {
	set := func(dst *bool, src *bool) {
		if src != nil {
			*dst = *src
		}
	}
	set(&pref.SyncGeneral, req.SyncGeneral)
	set(&pref.SyncGame, req.SyncGame)
	set(&pref.SyncMeeting, req.SyncMeeting)
	set(&pref.SyncSocial, req.SyncSocial)
	set(&pref.SyncFundraiser, req.SyncFundraiser)
	set(&pref.SyncPhilanthropy, req.SyncPhilanthropy)
}

func ToSyncEntryResponse(entry *entity.SyncEntry) dto.SyncEntryResponse {
	return dto.SyncEntryResponse{
		EventID:        entry.EventID.String(),
		OrganizationID: entry.OrganizationID.String(),
		GoogleEventID:  entry.GoogleEventID,
		SyncStatus:     string(entry.SyncStatus),
		LastError:      entry.LastError,
		UpdatedAt:      entry.UpdatedAt.Format(time.RFC3339),
	}
}

func ToPaginatedSyncEntries(entries []entity.SyncEntry, totalItems, pageNumber, pageSize int) *coreEntity.Pagination[dto.SyncEntryResponse] {
	items := make([]dto.SyncEntryResponse, 0, len(entries))
	for i := range entries {
		items = append(items, ToSyncEntryResponse(&entries[i]))
	}

	totalPages := 0
	if pageSize > 0 {
		totalPages = (totalItems + pageSize - 1) / pageSize
	}

	return &coreEntity.Pagination[dto.SyncEntryResponse]{
		Items:      items,
		TotalItems: totalItems,
		TotalPages: totalPages,
		PageNumber: pageNumber,
		PageSize:   pageSize,
	}
}
