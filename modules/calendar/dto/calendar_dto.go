package dto

// ========== Connection DTOs ==========

type AuthURLResponse struct {
	URL   string `json:"url"`
	State string `json:"state"`
}

type ConnectionResponse struct {
	ID               string  `json:"id"`
	Provider         string  `json:"provider"`
	CalendarEmail    string  `json:"calendar_email"`
	Status           string  `json:"status"`
	TargetCalendarID string  `json:"target_calendar_id"`
	LastSyncAt       *string `json:"last_sync_at,omitempty"`
	ConnectedAt      string  `json:"connected_at"`
}

// ========== Preference DTOs ==========

type PreferenceResponse struct {
	OrganizationID   string `json:"organization_id"`
	SyncGeneral      bool   `json:"sync_general"`
	SyncGame         bool   `json:"sync_game"`
	SyncMeeting      bool   `json:"sync_meeting"`
	SyncSocial       bool   `json:"sync_social"`
	SyncFundraiser   bool   `json:"sync_fundraiser"`
	SyncPhilanthropy bool   `json:"sync_philanthropy"`
}

// UpdatePreferencesRequest only changes the flags that are present.
type UpdatePreferencesRequest struct {
	SyncGeneral      *bool `json:"sync_general"`
	SyncGame         *bool `json:"sync_game"`
	SyncMeeting      *bool `json:"sync_meeting"`
	SyncSocial       *bool `json:"sync_social"`
	SyncFundraiser   *bool `json:"sync_fundraiser"`
	SyncPhilanthropy *bool `json:"sync_philanthropy"`
}

// ========== Ledger DTOs ==========

type SyncEntryResponse struct {
	EventID        string  `json:"event_id"`
	OrganizationID string  `json:"organization_id"`
	GoogleEventID  string  `json:"google_event_id,omitempty"`
	SyncStatus     string  `json:"sync_status"`
	LastError      *string `json:"last_error,omitempty"`
	UpdatedAt      string  `json:"updated_at"`
}

// ========== Internal sync hook DTOs ==========

type SyncEventRequest struct {
	Operation      string `json:"operation"`
	OrganizationID string `json:"organization_id"`
	Async          bool   `json:"async"`
}

type ExpandEventRequest struct {
	Async bool `json:"async"`
}

type EnqueuedResponse struct {
	TaskID string `json:"task_id"`
	Queue  string `json:"queue"`
}
