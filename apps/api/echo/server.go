package echoapi

import (
	"context"
	"net/http"
	"os"
	"syscall"
	"time"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"

	"github.com/aiworkshop/slides/core"
	"github.com/aiworkshop/slides/core/completion"
	"github.com/aiworkshop/slides/core/course"
	"github.com/aiworkshop/slides/core/render"
	"github.com/aiworkshop/slides/core/slide"
	"github.com/aiworkshop/slides/core/survey"
)

type (
	Deps struct {
		Conf          *core.Config
		Logger        core.Logger
		Validate      *validator.Validate
		Translator    ut.Translator
		SlideSvc      *slide.Service
		Renderer      *render.Renderer
		CourseSvc     *course.Service
		SurveySvc     *survey.Service
		CompletionSvc *completion.Service
		Hub           *Hub
	}

	Server interface {
		http.Handler
		Start() error
		Stop(context.Context) error
	}

	server struct {
		deps           *Deps
		app            *echo.Echo
		srv            *http.Server
		signalShutdown func()
	}
)

var _ Server = (*server)(nil)

// NewServer wires the API routes. A shutdown error caught by a handler is forwarded to shutdown as SIGTERM.
func NewServer(addr string, shutdown chan<- os.Signal, deps *Deps) Server {
	s := &server{
		deps: deps,
		app:  echo.New(),
		signalShutdown: func() {
			if shutdown == nil {
				return
			}
			select {
			case shutdown <- syscall.SIGTERM:
			default: // already shutting down
			}
		},
	}
	s.srv = &http.Server{
		Addr:         addr,
		Handler:      s.app,
		ReadTimeout:  orDefault(deps.Conf.Server.ReadTimeout, 5*time.Second),
		WriteTimeout: orDefault(deps.Conf.Server.WriteTimeout, 10*time.Second),
	}
	s.app.Server = s.srv
	s.setup()
	return s
}

func orDefault(d, def time.Duration) time.Duration {
	if d <= 0 {
		return def
	}
	return d
}

func (s *server) setup() {
	conf := s.deps.Conf

	s.app.HideBanner = true
	s.app.HidePort = true
	s.app.Pre(middleware.RemoveTrailingSlash())
	if !conf.TestMode {
		s.app.Use(middleware.Logger())
	}
	// do not recover in DEV|TEST mode
	if !(conf.Debug || conf.TestMode) {
		s.app.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{LogLevel: log.ERROR}))
	}
	s.app.Use(middleware.BodyLimit("20M"))
	origins := []string{"*"}
	if conf.FrontendBaseURL != "" {
		origins = []string{conf.FrontendBaseURL}
	}
	s.app.Use(middleware.CORSWithConfig(middleware.CORSConfig{AllowOrigins: origins}))

	s.app.HTTPErrorHandler = newAppHTTPErrorHandler(s.deps.Logger, s.deps.Translator, s.signalShutdown)
	s.app.Debug = conf.Debug

	s.app.GET("/", home)

	v1 := s.app.Group("/v1")
	v1.GET("/health", health)

	registerSlideAPI(v1, s.deps)
	registerCourseAPI(v1, s.deps)
	registerSurveyAPI(v1, s.deps)
	registerEmailAPI(v1, s.deps)
	if s.deps.Hub != nil {
		v1.GET("/live", s.deps.Hub.serveWS)
	}
}

func (s *server) Start() error {
	if err := s.app.StartServer(s.srv); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *server) Stop(ctx context.Context) error {
	return s.app.Shutdown(ctx)
}

func (s *server) ServeHTTP(w http.ResponseWriter, r *http.Request) { // for tests
	s.app.ServeHTTP(w, r)
}

func home(ctx echo.Context) error {
	return ctx.String(http.StatusOK, "Welcome to the AI Workshop API!")
}

func health(ctx echo.Context) error {
	return respond(ctx, http.StatusOK, "ok", nil)
}
