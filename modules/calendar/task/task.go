// Package task runs calendar sync off the request path.
package task

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"orgsync-api/core/logger"
	"orgsync-api/modules/calendar/service"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
)

const (
	TypeEventSync        = "calendar:event_sync"
	TypeRecurrenceExpand = "calendar:recurrence_expand"
)

type EventSyncPayload struct {
	EventID        uuid.UUID         `json:"event_id"`
	OrganizationID uuid.UUID         `json:"organization_id"`
	Operation      service.Operation `json:"operation"`
}

type RecurrenceExpandPayload struct {
	EventID uuid.UUID `json:"event_id"`
}

func NewEventSyncTask(p EventSyncPayload) (*asynq.Task, error) {
	if !p.Operation.Valid() {
		return nil, fmt.Errorf("invalid operation %q", p.Operation)
	}
	payload, err := json.Marshal(p)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TypeEventSync, payload), nil
}

func NewRecurrenceExpandTask(p RecurrenceExpandPayload) (*asynq.Task, error) {
	payload, err := json.Marshal(p)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TypeRecurrenceExpand, payload), nil
}

// Syncer is implemented by *service.Orchestrator.
type Syncer interface {
	SyncEventByID(ctx context.Context, eventID, orgID uuid.UUID, op service.Operation) (*service.SyncReport, error)
	ExpandEventByID(ctx context.Context, eventID uuid.UUID) (*service.SyncReport, error)
}

// Handler consumes calendar tasks. Per-user sync failures live in the
// ledger and never fail the task.
type Handler struct {
	syncer Syncer
}

func NewHandler(syncer Syncer) *Handler {
	return &Handler{syncer: syncer}
}

func (h *Handler) Register(mux *asynq.ServeMux) {
	mux.HandleFunc(TypeEventSync, h.HandleEventSync)
	mux.HandleFunc(TypeRecurrenceExpand, h.HandleRecurrenceExpand)
}

func (h *Handler) HandleEventSync(ctx context.Context, t *asynq.Task) error {
	var p EventSyncPayload
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		return fmt.Errorf("decode payload: %v: %w", err, asynq.SkipRetry)
	}
	if p.EventID == uuid.Nil || !p.Operation.Valid() {
		return fmt.Errorf("invalid payload for event %s op %q: %w", p.EventID, p.Operation, asynq.SkipRetry)
	}

	report, err := h.syncer.SyncEventByID(ctx, p.EventID, p.OrganizationID, p.Operation)
	if err != nil {
		logger.Warn("CalendarTask:HandleEventSync:Error", "error", err, "event_id", p.EventID, "operation", p.Operation)
		return skipRetry(err)
	}

	logger.Info("CalendarTask:HandleEventSync:Done",
		"run_id", report.RunID,
		"event_id", p.EventID,
		"operation", p.Operation,
		"synced", report.Synced,
		"failed", report.Failed,
		"deleted", report.Deleted,
	)
	return nil
}

func (h *Handler) HandleRecurrenceExpand(ctx context.Context, t *asynq.Task) error {
	var p RecurrenceExpandPayload
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		return fmt.Errorf("decode payload: %v: %w", err, asynq.SkipRetry)
	}
	if p.EventID == uuid.Nil {
		return fmt.Errorf("missing event id: %w", asynq.SkipRetry)
	}

	report, err := h.syncer.ExpandEventByID(ctx, p.EventID)
	if err != nil {
		logger.Warn("CalendarTask:HandleRecurrenceExpand:Error", "error", err, "event_id", p.EventID)
		return skipRetry(err)
	}

	logger.Info("CalendarTask:HandleRecurrenceExpand:Done",
		"run_id", report.RunID,
		"event_id", p.EventID,
		"events", len(report.EventIDs),
		"synced", report.Synced,
		"failed", report.Failed,
	)
	return nil
}

func skipRetry(err error) error {
	if errors.Is(err, asynq.SkipRetry) {
		return err
	}
	return fmt.Errorf("%w: %w", err, asynq.SkipRetry)
}

// Enqueuer is implemented by *queue.Client.
type Enqueuer interface {
	Enqueue(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// Dispatcher builds and enqueues calendar tasks.
type Dispatcher struct {
	queue Enqueuer
}

func NewDispatcher(queue Enqueuer) *Dispatcher {
	return &Dispatcher{queue: queue}
}

func (d *Dispatcher) EnqueueEventSync(ctx context.Context, eventID, orgID uuid.UUID, op service.Operation) (*asynq.TaskInfo, error) {
	t, err := NewEventSyncTask(EventSyncPayload{EventID: eventID, OrganizationID: orgID, Operation: op})
	if err != nil {
		return nil, err
	}
	return d.queue.Enqueue(ctx, t)
}

func (d *Dispatcher) EnqueueRecurrenceExpand(ctx context.Context, eventID uuid.UUID) (*asynq.TaskInfo, error) {
	t, err := NewRecurrenceExpandTask(RecurrenceExpandPayload{EventID: eventID})
	if err != nil {
		return nil, err
	}
	return d.queue.Enqueue(ctx, t)
}
