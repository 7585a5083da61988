package router

import (
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	apicontext "github.com/dtroode/knowledgebase-server/internal/api/http/context"
	"github.com/dtroode/knowledgebase-server/internal/api/http/handler"
	"github.com/dtroode/knowledgebase-server/internal/api/http/middleware"
	"github.com/dtroode/knowledgebase-server/internal/logger"
	"github.com/dtroode/knowledgebase-server/internal/model"
)

// Router wires the HTTP handlers and middleware.
type Router struct {
	session  handler.SessionService
	users    handler.UserService
	resolver middleware.IdentityResolver
	sweeper  handler.Sweeper
	store    model.Pinger
	logger   *logger.Logger
}

func New(
	session handler.SessionService,
	users handler.UserService,
	resolver middleware.IdentityResolver,
	sweeper handler.Sweeper,
	store model.Pinger,
	logger *logger.Logger,
) *Router {
	return &Router{
		session:  session,
		users:    users,
		resolver: resolver,
		sweeper:  sweeper,
		store:    store,
		logger:   logger,
	}
}

// Register builds the echo instance with every route mounted.
func (r *Router) Register() *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	contextManager := apicontext.NewManager()
	logging := middleware.NewLogging(r.logger)
	authenticate := middleware.NewAuthenticate(r.resolver, contextManager, r.logger)

	e.Use(echomw.Recover())
	e.Use(echomw.RequestID())
	e.Use(logging.Handle)

	health := handler.NewHealth(r.store, r.logger)
	e.GET("/health/live", health.Live)
	e.GET("/health/ready", health.Ready)

	auth := handler.NewAuth(r.session, r.users, contextManager, r.logger)
	v1 := e.Group("/api/v1")

	public := v1.Group("/auth")
	public.POST("/register", auth.Register)
	public.POST("/login", auth.Login)
	public.POST("/refresh", auth.Refresh)

	private := v1.Group("/auth", authenticate.Handle)
	private.POST("/logout", auth.Logout)
	private.POST("/logout-all", auth.LogoutAll)
	private.GET("/me", auth.Me)

	admin := handler.NewAdmin(r.sweeper, r.logger)
	adminGroup := v1.Group("/admin", authenticate.Handle, authenticate.RequireAdmin)
	adminGroup.POST("/sweep", admin.Sweep)

	return e
}
