package router

import (
	"orgsync-api/core/middleware"
	"orgsync-api/modules/calendar/controller"

	"github.com/labstack/echo/v4"
)

type CalendarRouter struct {
	controller *controller.CalendarController
}

func NewCalendarRouter(controller *controller.CalendarController) *CalendarRouter {
	return &CalendarRouter{
		controller: controller,
	}
}

func (r *CalendarRouter) Setup(e *echo.Echo, mw *middleware.Middleware) {
	v1 := e.Group("/api/v1")

	// Private routes (require authentication)
	calendarRoutes := v1.Group("/private/calendar")
	calendarRoutes.Use(mw.AuthMiddleware())

	calendarRoutes.GET("/connect", r.controller.PrivateConnect)
	calendarRoutes.GET("/connection", r.controller.PrivateGetConnection)
	calendarRoutes.DELETE("/connection", r.controller.PrivateDisconnect)

	calendarRoutes.GET("/preferences/:org_id", r.controller.PrivateGetPreferences)
	calendarRoutes.PUT("/preferences/:org_id", r.controller.PrivateUpdatePreferences)

	calendarRoutes.GET("/entries", r.controller.PrivateListEntries)

	// Google redirects here without our bearer token
	v1.GET("/public/calendar/callback", r.controller.PublicCallback)

	// Hooks for the events CRUD layer
	internalRoutes := v1.Group("/internal/calendar")
	internalRoutes.Use(mw.InternalMiddleware())

	internalRoutes.POST("/events/:id/sync", r.controller.InternalSyncEvent)
	internalRoutes.POST("/events/:id/expand", r.controller.InternalExpandEvent)
}
