package controller

import (
	"context"
	stdErrors "errors"

	"orgsync-api/core/errors"
	"orgsync-api/core/logger"
	"orgsync-api/modules/calendar/dto"
	"orgsync-api/modules/calendar/recurrence"
	"orgsync-api/modules/calendar/service"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/labstack/echo/v4"
)

// SyncServiceInterface is implemented by *service.Orchestrator.
type SyncServiceInterface interface {
	SyncEventByID(ctx context.Context, eventID, orgID uuid.UUID, op service.Operation) (*service.SyncReport, error)
	ExpandEventByID(ctx context.Context, eventID uuid.UUID) (*service.SyncReport, error)
}

// DispatcherInterface is implemented by *task.Dispatcher.
type DispatcherInterface interface {
	EnqueueEventSync(ctx context.Context, eventID, orgID uuid.UUID, op service.Operation) (*asynq.TaskInfo, error)
	EnqueueRecurrenceExpand(ctx context.Context, eventID uuid.UUID) (*asynq.TaskInfo, error)
}

// InternalSyncEvent is called by the events CRUD layer after a mutation.
// Per-user failures are part of the report and never change the status.
// POST /api/v1/internal/calendar/events/:id/sync
func (controller *CalendarController) InternalSyncEvent(c echo.Context) error {
	ctx := c.Request().Context()

	eventID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return controller.BadRequest(errors.ErrInvalidInput, "Invalid event id")
	}

	requestData := new(dto.SyncEventRequest)
	if err := c.Bind(requestData); err != nil {
		return controller.BadRequest(errors.ErrInvalidRequestData, "Invalid request data")
	}

	op := service.Operation(requestData.Operation)
	if !op.Valid() {
		return controller.BadRequest(errors.ErrInvalidInput, "operation must be create, update or delete")
	}

	var orgID uuid.UUID
	if requestData.OrganizationID != "" {
		if orgID, err = uuid.Parse(requestData.OrganizationID); err != nil {
			return controller.BadRequest(errors.ErrInvalidInput, "Invalid organization id")
		}
	}

	if requestData.Async {
		info, errEnqueue := controller.Dispatcher.EnqueueEventSync(ctx, eventID, orgID, op)
		if errEnqueue != nil {
			return controller.InternalServerError(errors.ErrSyncFailed, "enqueue sync failed")
		}
		return controller.SuccessResponse(c, dto.EnqueuedResponse{TaskID: info.ID, Queue: info.Queue}, "sync enqueued")
	}

	report, errSync := controller.SyncService.SyncEventByID(ctx, eventID, orgID, op)
	if errSync != nil {
		return controller.syncError(c, errSync)
	}

	return controller.SuccessResponse(c, report, "sync completed")
}

// InternalExpandEvent expands a recurring definition and syncs every instance.
// POST /api/v1/internal/calendar/events/:id/expand
func (controller *CalendarController) InternalExpandEvent(c echo.Context) error {
	ctx := c.Request().Context()

	eventID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return controller.BadRequest(errors.ErrInvalidInput, "Invalid event id")
	}

	requestData := new(dto.ExpandEventRequest)
	if err := c.Bind(requestData); err != nil {
		return controller.BadRequest(errors.ErrInvalidRequestData, "Invalid request data")
	}

	if requestData.Async {
		info, errEnqueue := controller.Dispatcher.EnqueueRecurrenceExpand(ctx, eventID)
		if errEnqueue != nil {
			return controller.InternalServerError(errors.ErrSyncFailed, "enqueue expansion failed")
		}
		return controller.SuccessResponse(c, dto.EnqueuedResponse{TaskID: info.ID, Queue: info.Queue}, "expansion enqueued")
	}

	report, errExpand := controller.SyncService.ExpandEventByID(ctx, eventID)
	if errExpand != nil {
		return controller.syncError(c, errExpand)
	}

	return controller.SuccessResponse(c, report, "expansion completed")
}

func (controller *CalendarController) syncError(c echo.Context, err error) error {
	logger.Warn("CalendarController:Sync:Error", "error", err, "path", c.Path())
	if stdErrors.Is(err, service.ErrEventNotFound) {
		return controller.NotFound(errors.ErrNotFound, "event not found")
	}
	if stdErrors.Is(err, recurrence.ErrInvalidRule) {
		return controller.BadRequest(errors.ErrInvalidInput, err.Error())
	}
	return controller.ErrorResponse(c, errors.NewAppError(errors.ErrSyncFailed, err.Error(), err))
}
