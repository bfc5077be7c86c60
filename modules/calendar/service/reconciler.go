package service

import (
	"context"
	"errors"

	"orgsync-api/core/logger"
	"orgsync-api/core/params"
	"orgsync-api/modules/calendar/entity"
	"orgsync-api/modules/calendar/provider"
	eventEntity "orgsync-api/modules/event/entity"

	"github.com/google/uuid"
	"google.golang.org/api/calendar/v3"
)

type Operation string

const (
	OperationCreate Operation = "create"
	OperationUpdate Operation = "update"
	OperationDelete Operation = "delete"
)

func (o Operation) Valid() bool {
	switch o {
	case OperationCreate, OperationUpdate, OperationDelete:
		return true
	}
	return false
}

type Outcome string

const (
	OutcomeSynced  Outcome = "synced"
	OutcomeFailed  Outcome = "failed"
	OutcomeDeleted Outcome = "deleted"
	OutcomeSkipped Outcome = "skipped"
	OutcomeNoop    Outcome = "noop"
)

// Result is the outcome of reconciling one (event, user) pair.
type Result struct {
	UserID   uuid.UUID `json:"user_id"`
	Outcome  Outcome   `json:"outcome"`
	RemoteID string    `json:"remote_id,omitempty"`
	Error    string    `json:"error,omitempty"`
}

const errNoValidToken = "no valid calendar token"

type EntryStore interface {
	Get(ctx context.Context, eventID, userID uuid.UUID) (*entity.SyncEntry, error)
	Upsert(ctx context.Context, entry *entity.SyncEntry) error
	ListByEvent(ctx context.Context, eventID uuid.UUID) ([]entity.SyncEntry, error)
	ListByUser(ctx context.Context, userID uuid.UUID, p params.QueryParams) ([]entity.SyncEntry, int, error)
}

type TokenProvider interface {
	GetValidToken(ctx context.Context, userID uuid.UUID) *UserToken
	MarkSynced(ctx context.Context, userID uuid.UUID)
}

// Reconciler drives one (event, user) pair through the sync state machine
// and records the outcome in the ledger.
//
//	op      no entry   synced              failed/deleted
//	create  insert     no-op               insert (update if a remote id survives a failure)
//	update  insert     update, 404 insert  insert (update if a remote id survives a failure)
//	delete  no-op      delete              delete if a remote id survives, else no-op
type Reconciler struct {
	entries  EntryStore
	tokens   TokenProvider
	provider provider.CalendarProvider
}

func NewReconciler(entries EntryStore, tokens TokenProvider, provider provider.CalendarProvider) *Reconciler {
	return &Reconciler{entries: entries, tokens: tokens, provider: provider}
}

// Upsert handles create and update for one user. wire must not be shared
// with other goroutines.
func (r *Reconciler) Upsert(ctx context.Context, op Operation, event *eventEntity.Event, orgID, userID uuid.UUID, wire *calendar.Event) Result {
	result := Result{UserID: userID}

	entry, err := r.entries.Get(ctx, event.ID, userID)
	if err != nil {
		logger.Error("Reconciler:Upsert:GetEntry:Error", "error", err, "event_id", event.ID, "user_id", userID)
		result.Outcome = OutcomeFailed
		result.Error = err.Error()
		return result
	}

	if op == OperationCreate && entry != nil && entry.SyncStatus == entity.SyncStatusSynced {
		result.Outcome = OutcomeNoop
		result.RemoteID = entry.GoogleEventID
		return result
	}

	token := r.tokens.GetValidToken(ctx, userID)
	if token == nil {
		result.Outcome = OutcomeSkipped
		return result
	}

	next := &entity.SyncEntry{
		EventID:        event.ID,
		UserID:         userID,
		OrganizationID: orgID,
	}

	if entry.HasRemote() && entry.SyncStatus != entity.SyncStatusDeleted {
		next.GoogleEventID = entry.GoogleEventID
		err = r.provider.Update(ctx, token.AccessToken, token.CalendarID, entry.GoogleEventID, wire)
		if errors.Is(err, provider.ErrRemoteNotFound) {
			logger.Info("Reconciler:Upsert:RemoteVanished", "event_id", event.ID, "user_id", userID, "remote_id", entry.GoogleEventID)
			next.GoogleEventID, err = r.provider.Insert(ctx, token.AccessToken, token.CalendarID, wire)
		}
	} else {
		next.GoogleEventID, err = r.provider.Insert(ctx, token.AccessToken, token.CalendarID, wire)
	}

	if err != nil {
		msg := err.Error()
		next.SyncStatus = entity.SyncStatusFailed
		next.LastError = &msg
		result.Outcome = OutcomeFailed
		result.Error = msg
	} else {
		next.SyncStatus = entity.SyncStatusSynced
		result.Outcome = OutcomeSynced
		r.tokens.MarkSynced(ctx, userID)
	}
	result.RemoteID = next.GoogleEventID

	r.record(ctx, next, &result)
	return result
}

// Delete retires one ledger entry. It always leaves the entry deleted or
// failed, except for entries that are already deleted.
func (r *Reconciler) Delete(ctx context.Context, entry entity.SyncEntry) Result {
	result := Result{UserID: entry.UserID, RemoteID: entry.GoogleEventID}

	if entry.SyncStatus == entity.SyncStatusDeleted {
		result.Outcome = OutcomeNoop
		return result
	}

	// A failed entry without a remote id has nothing to clean up and keeps
	// its last error. One that still carries a remote id (a failed update)
	// points at a live remote event, so it goes through the remote delete.
	if entry.SyncStatus == entity.SyncStatusFailed && !entry.HasRemote() {
		result.Outcome = OutcomeNoop
		return result
	}

	next := entry
	next.LastError = nil

	if !entry.HasRemote() {
		next.SyncStatus = entity.SyncStatusDeleted
		result.Outcome = OutcomeDeleted
		r.record(ctx, &next, &result)
		return result
	}

	var err error
	token := r.tokens.GetValidToken(ctx, entry.UserID)
	if token == nil {
		err = errors.New(errNoValidToken)
	} else {
		err = r.provider.Delete(ctx, token.AccessToken, token.CalendarID, entry.GoogleEventID)
		if errors.Is(err, provider.ErrRemoteNotFound) {
			err = nil
		}
	}

	if err != nil {
		msg := err.Error()
		next.SyncStatus = entity.SyncStatusFailed
		next.LastError = &msg
		result.Outcome = OutcomeFailed
		result.Error = msg
	} else {
		next.SyncStatus = entity.SyncStatusDeleted
		result.Outcome = OutcomeDeleted
		r.tokens.MarkSynced(ctx, entry.UserID)
	}

	r.record(ctx, &next, &result)
	return result
}

// record writes the ledger entry. A failed write after remote success leaves
// an orphaned remote event; it is reported as a failure.
func (r *Reconciler) record(ctx context.Context, entry *entity.SyncEntry, result *Result) {
	if err := r.entries.Upsert(ctx, entry); err != nil {
		logger.Error("Reconciler:Record:Error",
			"error", err,
			"event_id", entry.EventID,
			"user_id", entry.UserID,
			"remote_id", entry.GoogleEventID,
			"sync_status", entry.SyncStatus,
		)
		result.Outcome = OutcomeFailed
		result.Error = "ledger write failed: " + err.Error()
	}
}
