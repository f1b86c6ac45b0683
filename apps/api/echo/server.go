package echoapi

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"
	"go.uber.org/dig"

	"github.com/trezcool/educa/core"
	"github.com/trezcool/educa/core/content"
	"github.com/trezcool/educa/core/course"
	"github.com/trezcool/educa/core/user"
)

type (
	ServerDeps struct {
		dig.In

		Conf           *core.Config
		Logger         core.Logger
		UserSvc        user.Service
		CourseSvc      *course.Service
		ContentSvc     *content.Service
		Storage        core.FileStorage
		Validate       *validator.Validate
		Translator     ut.Translator
		DisableReqLogs bool `optional:"true"`
	}

	Server struct {
		deps     ServerDeps
		app      *echo.Echo
		errors   chan error
		shutdown chan os.Signal
	}
)

func NewServer(deps ServerDeps) *Server {
	s := &Server{
		deps:     deps,
		app:      echo.New(),
		errors:   make(chan error, 1),
		shutdown: make(chan os.Signal, 1),
	}
	s.setup()
	return s
}

func (s *Server) setup() {
	conf := s.deps.Conf

	s.app.HideBanner = true
	s.app.Pre(middleware.RemoveTrailingSlash())
	if !s.deps.DisableReqLogs {
		s.app.Use(middleware.Logger())
	}
	// do not recover in DEV|TEST mode
	if !(conf.Debug || conf.TestMode) {
		s.app.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{LogLevel: log.ERROR}))
	}

	s.app.HTTPErrorHandler = newAppHTTPErrorHandler(s.deps.Logger, s.deps.Translator, s.signalShutdown)
	s.app.Debug = conf.Debug

	s.app.GET("/", home)
	s.serveMedia()

	v1 := s.app.Group("/v1")
	jwt := middleware.JWTWithConfig(appJWTConfig)

	registerAccountAPI(v1, jwt, s.deps.UserSvc, s.deps.Validate)
	registerUserAPI(v1, jwt, s.deps.UserSvc, s.deps.CourseSvc, s.deps.Validate)
	registerCatalogAPI(v1, jwt, s.deps.CourseSvc, s.deps.ContentSvc, s.deps.UserSvc, s.deps.Validate)
	registerStudentAPI(v1, jwt, s.deps.CourseSvc, s.deps.ContentSvc, s.deps.UserSvc, s.deps.Validate)
	registerCourseAPI(v1, jwt, s.deps.CourseSvc, s.deps.Validate)
	registerContentAPI(v1, jwt, s.deps.CourseSvc, s.deps.ContentSvc, s.deps.Validate)
}

// serveMedia serves the uploads of a local file storage under its base URL.
func (s *Server) serveMedia() {
	local, ok := s.deps.Storage.(interface{ Dir() string })
	baseURL := strings.TrimRight(s.deps.Conf.Storage.BaseURL, "/")
	if ok && strings.HasPrefix(baseURL, "/") {
		s.app.Static(baseURL, local.Dir())
	}
}

// Start starts listening; errors are reported through Errors.
func (s *Server) Start() {
	signal.Notify(s.shutdown, os.Interrupt, syscall.SIGTERM)
	if err := s.app.Start(s.deps.Conf.Server.Address); err != nil && err != http.ErrServerClosed {
		s.errors <- err
	}
}

func (s *Server) Errors() <-chan error {
	return s.errors
}

func (s *Server) ShutdownSignal() <-chan os.Signal {
	return s.shutdown
}

func (s *Server) signalShutdown() {
	select {
	case s.shutdown <- syscall.SIGTERM:
	default:
	}
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.app.Shutdown(ctx)
}

func (s *Server) Close() error {
	return s.app.Close()
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) { // for tests
	s.app.ServeHTTP(w, r)
}

func home(ctx echo.Context) error {
	return ctx.String(http.StatusOK, "Welcome to Educa API!")
}
