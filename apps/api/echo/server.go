package echoapi

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"

	ut "github.com/go-playground/universal-translator"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"

	"github.com/tamkeen/tamkeen/core"
	"github.com/tamkeen/tamkeen/core/auth"
	"github.com/tamkeen/tamkeen/core/grading"
	"github.com/tamkeen/tamkeen/core/journal"
	"github.com/tamkeen/tamkeen/core/reference"
	"github.com/tamkeen/tamkeen/core/student"
	"github.com/tamkeen/tamkeen/core/syncqueue"
)

type (
	Deps struct {
		AuthSvc      *auth.Service
		JournalSvc   *journal.Service
		StudentSvc   *student.Service
		GradingSvc   *grading.Service
		ReferenceSvc *reference.Service
		Queue        *syncqueue.Queue
	}

	Server struct {
		app        *echo.Echo
		conf       *core.Config
		log        core.Logger
		translator ut.Translator
		deps       *Deps
		ops        map[string]operation
		mu         sync.Mutex // one invoke at a time
		errors     chan error
		shutdown   chan os.Signal
	}
)

func NewServer(conf *core.Config, logger core.Logger, translator ut.Translator, deps *Deps) *Server {
	s := &Server{
		app:        echo.New(),
		conf:       conf,
		log:        logger,
		translator: translator,
		deps:       deps,
		errors:     make(chan error, 1),
		shutdown:   make(chan os.Signal, 1),
	}
	signal.Notify(s.shutdown, os.Interrupt, syscall.SIGTERM)
	s.setup()
	return s
}

func (s *Server) setup() {
	s.app.HideBanner = true
	s.app.Pre(middleware.RemoveTrailingSlash())
	if !s.conf.TestMode {
		s.app.Use(middleware.Logger())
	}
	// do not recover in DEV|TEST mode
	if !(s.conf.Debug || s.conf.TestMode) {
		s.app.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{LogLevel: log.ERROR}))
	}

	s.app.HTTPErrorHandler = newAppHTTPErrorHandler(s.log, s.translator, s.signalShutdown)
	s.app.Debug = s.conf.Debug && !s.conf.TestMode

	s.app.GET("/", home)

	s.ops = s.operations()
	v1 := s.app.Group("/v1")
	v1.POST("/invoke/:op", s.invoke, tokenMiddleware(s.conf.SecretKey))
}

// Start listens on the configured host; a failure is reported on Errors.
func (s *Server) Start() {
	if err := s.app.Start(s.conf.Server.Host); err != nil && err != http.ErrServerClosed {
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
	signal.Stop(s.shutdown)
	return s.app.Shutdown(ctx)
}

func (s *Server) Close() error {
	return s.app.Close()
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) { // for tests
	s.app.ServeHTTP(w, r)
}

func home(ctx echo.Context) error {
	return ctx.String(http.StatusOK, "Tamkeen is running")
}
