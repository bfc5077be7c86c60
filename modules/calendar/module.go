package calendar

import (
	"context"
	"fmt"

	"orgsync-api/core/cache"
	"orgsync-api/core/config"
	"orgsync-api/core/constants"
	"orgsync-api/core/crypto"
	"orgsync-api/core/database"
	"orgsync-api/core/middleware"
	"orgsync-api/core/queue"
	"orgsync-api/modules/calendar/controller"
	"orgsync-api/modules/calendar/provider"
	"orgsync-api/modules/calendar/repository"
	"orgsync-api/modules/calendar/router"
	"orgsync-api/modules/calendar/service"
	"orgsync-api/modules/calendar/task"
	directoryRepository "orgsync-api/modules/directory/repository"
	eventRepository "orgsync-api/modules/event/repository"

	"github.com/hibiken/asynq"
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
)

// Module holds the wired calendar sync components shared by the HTTP server
// and the task worker.
type Module struct {
	Orchestrator    *service.Orchestrator
	CalendarService *service.CalendarService
	TaskHandler     *task.Handler
	Dispatcher      *task.Dispatcher

	states         *repository.OAuthStateRepository
	internalAPIKey string
}

func New(cfg *config.Config, db database.IDatabase, redisClient redis.UniversalClient, queueClient *queue.Client) (*Module, error) {
	key, err := cfg.CalendarSync.EncryptionKey()
	if err != nil {
		return nil, err
	}
	cipher, err := crypto.NewTokenCipher(key)
	if err != nil {
		return nil, fmt.Errorf("calendar: token cipher: %w", err)
	}

	// Repositories
	connectionRepo := repository.NewConnectionRepository(db)
	preferenceRepo := repository.NewPreferenceRepository(db)
	entryRepo := repository.NewEntryRepository(db)
	stateRepo := repository.NewOAuthStateRepository(db)
	eventRepo := eventRepository.NewEventRepository(db)
	directoryRepo := directoryRepository.NewDirectoryRepository(db)

	// Credentials
	oauthConfig := service.NewGoogleOAuthConfig(cfg.GoogleAPI)
	locker := cache.NewRedisLocker(redisClient, constants.RedisKeyTokenRefreshLock, constants.RefreshLockTTL, constants.RefreshLockRetryInterval)
	credentials := service.NewCredentialStore(connectionRepo, cipher, service.NewOAuthRefresher(oauthConfig, cfg.CalendarSync.RemoteTimeout), locker)
	credentials.SetDefaultCalendar(cfg.CalendarSync.DefaultCalendarID)

	// Sync pipeline
	googleProvider := provider.NewGoogleProvider(cfg.CalendarSync.RemoteTimeout)
	resolver := service.NewEligibilityResolver(credentials, directoryRepo, preferenceRepo)
	reconciler := service.NewReconciler(entryRepo, credentials, googleProvider)
	orchestrator := service.NewOrchestrator(resolver, reconciler, entryRepo, eventRepo, cfg.CalendarSync.Workers)

	calendarService := service.NewCalendarService(credentials, stateRepo, oauthConfig, googleProvider, preferenceRepo, entryRepo)

	return &Module{
		Orchestrator:    orchestrator,
		CalendarService: calendarService,
		TaskHandler:     task.NewHandler(orchestrator),
		Dispatcher:      task.NewDispatcher(queueClient),
		states:          stateRepo,
		internalAPIKey:  cfg.CalendarSync.InternalAPIKey,
	}, nil
}

// Init registers the calendar routes.
func (m *Module) Init(e *echo.Echo) {
	calendarController := controller.NewCalendarController(m.CalendarService, m.Orchestrator, m.Dispatcher)
	mw := middleware.NewMiddleware(m.internalAPIKey)
	router.NewCalendarRouter(calendarController).Setup(e, mw)
}

// RegisterTasks adds the calendar task handlers to the worker mux.
func (m *Module) RegisterTasks(mux *asynq.ServeMux) {
	m.TaskHandler.Register(mux)
}

// CleanupExpiredStates drops handshake states that were never consumed.
func (m *Module) CleanupExpiredStates(ctx context.Context) error {
	return m.states.CleanupExpired(ctx)
}
