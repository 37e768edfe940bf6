package echoapi

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"

	"github.com/aryaedu/tutor/core"
	"github.com/aryaedu/tutor/core/admin"
	"github.com/aryaedu/tutor/core/analytics"
	"github.com/aryaedu/tutor/core/auth"
	"github.com/aryaedu/tutor/core/progress"
	"github.com/aryaedu/tutor/core/session"
	"github.com/aryaedu/tutor/core/student"
	"github.com/aryaedu/tutor/core/taxonomy"
	"github.com/aryaedu/tutor/core/video"
)

type (
	// Options holds the dependencies of the Server.
	Options struct {
		Conf       *core.Config
		Logger     core.Logger
		Validate   *validator.Validate
		Translator ut.Translator

		Sessions *session.Store
		Router   *session.Router
		Gate     *auth.Gate

		AdminSvc     *admin.Service
		StudentSvc   *student.Service
		TaxonomySvc  *taxonomy.Service
		VideoSvc     *video.Service
		ProgressSvc  *progress.Service
		AnalyticsSvc *analytics.Service
	}

	Server struct {
		app      *echo.Echo
		opts     *Options
		jwtConf  middleware.JWTConfig
		errors   chan error
		shutdown chan os.Signal
	}
)

func NewServer(opts *Options) *Server {
	s := &Server{
		app:      echo.New(),
		opts:     opts,
		jwtConf:  newJWTConfig(opts.Conf),
		errors:   make(chan error, 1),
		shutdown: make(chan os.Signal, 1),
	}
	signal.Notify(s.shutdown, os.Interrupt, syscall.SIGTERM)
	s.setup()
	return s
}

func (s *Server) setup() {
	conf := s.opts.Conf

	s.app.HideBanner = true
	s.app.Pre(middleware.RemoveTrailingSlash())
	if !conf.Server.DisableReqLogs {
		s.app.Use(middleware.Logger())
	}
	// do not recover in DEV|TEST mode
	if !(conf.Debug || conf.TestMode) {
		s.app.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{LogLevel: log.ERROR}))
	}

	s.app.HTTPErrorHandler = newAppHTTPErrorHandler(s.opts.Logger, s.opts.Translator, s.signalShutdown)
	s.app.Debug = conf.Debug

	s.app.GET("/", s.home)
	s.app.POST("/session", s.newSession)

	jwt := middleware.JWTWithConfig(s.jwtConf)
	sess := s.sessionMiddleware
	adminOnly := s.roleMiddleware(auth.RoleAdmin)
	studentOnly := s.roleMiddleware(auth.RoleStudent)

	registerScreenAPI(s.app.Group("/screen", jwt, sess), s.opts.Router)
	registerGateAPI(s.app.Group("/auth"), jwt, sess, s.opts, s.sessionToken)
	registerAdminAPI(s.app.Group("/admin", jwt, sess, adminOnly), s.opts)
	registerStudentAPI(s.app.Group("/student", jwt, sess, studentOnly), s.opts)
}

// Start blocks until the server stops. Listener errors are reported through Errors.
func (s *Server) Start() {
	if err := s.app.Start(s.opts.Conf.Server.Address()); err != nil && err != http.ErrServerClosed {
		s.errors <- err
	}
}

func (s *Server) Errors() <-chan error { return s.errors }

func (s *Server) ShutdownSignal() <-chan os.Signal { return s.shutdown }

func (s *Server) signalShutdown() {
	select {
	case s.shutdown <- syscall.SIGTERM:
	default:
	}
}

func (s *Server) Shutdown(ctx context.Context) error {
	signal.Stop(s.shutdown)
	return s.app.Shutdown(ctx)
}

func (s *Server) Close() error {
	return s.app.Close()
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) { // for tests
	s.app.ServeHTTP(w, r)
}

func (s *Server) home(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, WelcomeResponse{
		AppName: s.opts.Conf.AppName,
		Tagline: s.opts.Conf.Tagline,
		Screen:  session.Welcome,
	})
}
