package controller

import (
	"context"

	"orgsync-api/core/controller"
	coreEntity "orgsync-api/core/entity"
	"orgsync-api/core/errors"
	"orgsync-api/core/middleware"
	"orgsync-api/core/params"
	"orgsync-api/modules/calendar/dto"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

// CalendarServiceInterface is implemented by *service.CalendarService.
type CalendarServiceInterface interface {
	GetAuthURL(ctx context.Context, userID uuid.UUID) (*dto.AuthURLResponse, *errors.AppError)
	HandleCallback(ctx context.Context, code, state string) (*dto.ConnectionResponse, *errors.AppError)
	GetConnection(ctx context.Context, userID uuid.UUID) (*dto.ConnectionResponse, *errors.AppError)
	Disconnect(ctx context.Context, userID uuid.UUID) *errors.AppError
	GetPreferences(ctx context.Context, userID, orgID uuid.UUID) (*dto.PreferenceResponse, *errors.AppError)
	UpdatePreferences(ctx context.Context, userID, orgID uuid.UUID, req *dto.UpdatePreferencesRequest) (*dto.PreferenceResponse, *errors.AppError)
	ListEntries(ctx context.Context, userID uuid.UUID, p params.QueryParams) (*coreEntity.Pagination[dto.SyncEntryResponse], *errors.AppError)
}

type CalendarController struct {
	controller.BaseController
	CalendarService CalendarServiceInterface
	SyncService     SyncServiceInterface
	Dispatcher      DispatcherInterface
}

func NewCalendarController(calendarSvc CalendarServiceInterface, syncSvc SyncServiceInterface, dispatcher DispatcherInterface) *CalendarController {
	return &CalendarController{
		BaseController:  controller.NewBaseController(),
		CalendarService: calendarSvc,
		SyncService:     syncSvc,
		Dispatcher:      dispatcher,
	}
}

// PrivateConnect returns the Google consent URL for the current user.
// GET /api/v1/private/calendar/connect
func (controller *CalendarController) PrivateConnect(c echo.Context) error {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		return controller.Unauthorized(errors.ErrUnauthorized, "Invalid user")
	}

	resp, errGet := controller.CalendarService.GetAuthURL(c.Request().Context(), userID)
	if errGet != nil {
		return controller.ErrorResponse(c, errGet)
	}

	return controller.SuccessResponse(c, resp, "get auth url success")
}

// PublicCallback completes the authorization handshake.
// GET /api/v1/public/calendar/callback?code=...&state=...
func (controller *CalendarController) PublicCallback(c echo.Context) error {
	if reason := c.QueryParam("error"); reason != "" {
		return controller.BadRequest(errors.ErrInvalidInput, "Authorization denied", reason)
	}

	code := c.QueryParam("code")
	state := c.QueryParam("state")
	if code == "" || state == "" {
		return controller.BadRequest(errors.ErrInvalidInput, "code and state are required")
	}

	resp, errCallback := controller.CalendarService.HandleCallback(c.Request().Context(), code, state)
	if errCallback != nil {
		return controller.ErrorResponse(c, errCallback)
	}

	return controller.SuccessResponse(c, resp, "calendar connected")
}

// GET /api/v1/private/calendar/connection
func (controller *CalendarController) PrivateGetConnection(c echo.Context) error {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		return controller.Unauthorized(errors.ErrUnauthorized, "Invalid user")
	}

	resp, errGet := controller.CalendarService.GetConnection(c.Request().Context(), userID)
	if errGet != nil {
		return controller.ErrorResponse(c, errGet)
	}

	return controller.SuccessResponse(c, resp, "get connection success")
}

// DELETE /api/v1/private/calendar/connection
func (controller *CalendarController) PrivateDisconnect(c echo.Context) error {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		return controller.Unauthorized(errors.ErrUnauthorized, "Invalid user")
	}

	if errDelete := controller.CalendarService.Disconnect(c.Request().Context(), userID); errDelete != nil {
		return controller.ErrorResponse(c, errDelete)
	}

	return controller.SuccessResponse(c, nil, "disconnect success")
}

// GET /api/v1/private/calendar/preferences/:org_id
func (controller *CalendarController) PrivateGetPreferences(c echo.Context) error {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		return controller.Unauthorized(errors.ErrUnauthorized, "Invalid user")
	}

	orgID, err := uuid.Parse(c.Param("org_id"))
	if err != nil {
		return controller.BadRequest(errors.ErrInvalidInput, "Invalid organization id")
	}

	resp, errGet := controller.CalendarService.GetPreferences(c.Request().Context(), userID, orgID)
	if errGet != nil {
		return controller.ErrorResponse(c, errGet)
	}

	return controller.SuccessResponse(c, resp, "get preferences success")
}

// PUT /api/v1/private/calendar/preferences/:org_id
func (controller *CalendarController) PrivateUpdatePreferences(c echo.Context) error {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		return controller.Unauthorized(errors.ErrUnauthorized, "Invalid user")
	}

	orgID, err := uuid.Parse(c.Param("org_id"))
	if err != nil {
		return controller.BadRequest(errors.ErrInvalidInput, "Invalid organization id")
	}

	requestData := new(dto.UpdatePreferencesRequest)
	if err := c.Bind(requestData); err != nil {
		return controller.BadRequest(errors.ErrInvalidRequestData, "Invalid request data")
	}

	resp, errUpdate := controller.CalendarService.UpdatePreferences(c.Request().Context(), userID, orgID, requestData)
	if errUpdate != nil {
		return controller.ErrorResponse(c, errUpdate)
	}

	return controller.SuccessResponse(c, resp, "update preferences success")
}

// PrivateListEntries pages through the current user's sync ledger.
// GET /api/v1/private/calendar/entries?page=1&limit=20
func (controller *CalendarController) PrivateListEntries(c echo.Context) error {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		return controller.Unauthorized(errors.ErrUnauthorized, "Invalid user")
	}

	queryParams := params.NewQueryParams(c)

	resp, errGet := controller.CalendarService.ListEntries(c.Request().Context(), userID, *queryParams)
	if errGet != nil {
		return controller.ErrorResponse(c, errGet)
	}

	return controller.SuccessResponse(c, resp, "list entries success")
}
