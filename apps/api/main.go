package main

import (
	"context"
	"expvar"
	"fmt"
	"net/http"
	_ "net/http/pprof"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	echoapi "github.com/aiworkshop/slides/apps/api/echo"
	"github.com/aiworkshop/slides/core"
	"github.com/aiworkshop/slides/core/completion"
	"github.com/aiworkshop/slides/core/course"
	"github.com/aiworkshop/slides/core/render"
	"github.com/aiworkshop/slides/core/slide"
	"github.com/aiworkshop/slides/core/survey"
	emailsvc "github.com/aiworkshop/slides/services/email"
	logsvc "github.com/aiworkshop/slides/services/logger"
	"github.com/aiworkshop/slides/storage/database"
	inmemdb "github.com/aiworkshop/slides/storage/database/inmem"
	sqlxrepos "github.com/aiworkshop/slides/storage/database/sqlx"
	filestore "github.com/aiworkshop/slides/storage/file"
	redisstore "github.com/aiworkshop/slides/storage/redis"
)

const watchDebounce = 300 * time.Millisecond

func main() {
	conf := core.NewConfig()

	zl, err := logsvc.NewZapLogger(conf)
	if err != nil {
		fmt.Fprintf(os.Stderr, "setting up logger: %v\n", err)
		os.Exit(1)
	}
	logger := logsvc.NewRollbarLogger(zl, conf)
	logger.Enable(!conf.Debug && conf.RollbarToken != "")
	defer logger.Sync()

	if err = run(conf, logger); err != nil {
		logger.Error("application error", err)
		logger.Sync()
		os.Exit(1)
	}
}

func run(conf *core.Config, logger *logsvc.RollbarLogger) error {
	// =========================================================================
	// Set up Dependencies

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	courseRepo, closeDB, err := setUpCourseRepository(ctx, conf)
	if err != nil {
		return errors.Wrap(err, "setting up course storage")
	}
	defer closeDB()

	surveyRepo, closeSurveys, err := setUpSurveyRepository(ctx, conf)
	if err != nil {
		return errors.Wrap(err, "setting up survey storage")
	}
	defer closeSurveys()

	slideSvc := slide.NewService(slide.Options{
		Dir:       conf.Path(conf.Slides.Dir),
		OutputDir: conf.Path(conf.Slides.OutputDir),
		Marp:      slide.MarpOptions{Theme: conf.Slides.MarpTheme, Paginate: conf.Slides.Paginate},
	}, logger)
	courseSvc := course.NewService(courseRepo, course.NewShareSigner(conf), logger)
	surveySvc := survey.NewService(surveyRepo, logger)
	completionSvc := completion.NewService(newMailService(conf, logger), conf, logger)

	// =========================================================================
	// Initialize App

	logger.Info(fmt.Sprintf("Application initializing : version %q", conf.Build), map[string]interface{}{"config": conf.String()})
	defer logger.Info("Application stopped")

	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)
	course.InitValidators(validate, translator)

	core.ParseEmailTemplates(logger)

	if _, err = slideSvc.Update(ctx); err != nil {
		logger.Warn("generating slide data", err)
	}

	hub := echoapi.NewHub(logger)
	defer hub.Close()

	if conf.Slides.Watch {
		w, err := slide.NewWatcher(slideSvc.Dir(), watchDebounce, func(ctx context.Context) {
			m, err := slideSvc.Update(ctx)
			if err != nil {
				logger.Error("updating slide data", err)
				return
			}
			if len(m.Written) > 0 {
				hub.BroadcastManifest(m)
			}
		}, logger)
		if err != nil {
			return errors.Wrap(err, "creating slide watcher")
		}
		if err = w.Start(ctx); err != nil {
			return errors.Wrap(err, "starting slide watcher")
		}
		defer w.Stop()
	}

	// =========================================================================
	// Start Debug Service
	//
	// /debug/pprof - Added to the default mux by importing the net/http/pprof package.
	// /debug/vars - Added to the default mux by importing the expvar package.

	// Expose important info under /debug/vars.
	expvar.NewString("build").Set(conf.Build)
	expvar.NewString("env").Set(conf.Env)

	if conf.Server.DebugHost != "" {
		go func() {
			if err := http.ListenAndServe(conf.Server.DebugHost, http.DefaultServeMux); err != nil {
				logger.Error("debug server closed", err)
			}
		}()
	}

	// =========================================================================
	// Start API Service

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	server := echoapi.NewServer(conf.Server.Address(), shutdown, &echoapi.Deps{
		Conf:          conf,
		Logger:        logger,
		Validate:      validate,
		Translator:    translator,
		SlideSvc:      slideSvc,
		Renderer:      render.NewRenderer(),
		CourseSvc:     courseSvc,
		SurveySvc:     surveySvc,
		CompletionSvc: completionSvc,
		Hub:           hub,
	})

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("API listening", map[string]interface{}{"address": conf.Server.Address()})
		return server.Start()
	})

	// =========================================================================
	// Shutdown

	g.Go(func() error {
		select {
		case sig := <-shutdown:
			logger.Info(fmt.Sprintf("%v: Start shutdown...", sig))
		case <-gctx.Done():
		}
		hub.Close()

		// give outstanding requests a deadline for completion
		sctx, scancel := context.WithTimeout(context.Background(), conf.Server.ShutdownTimeout)
		defer scancel()
		if err := server.Stop(sctx); err != nil {
			return errors.Wrap(err, "could not stop server gracefully")
		}
		return nil
	})
	return g.Wait()
}

func setUpCourseRepository(ctx context.Context, conf *core.Config) (course.Repository, func(), error) {
	if conf.Database.Engine == database.EngineMemory {
		return inmemdb.NewCourseRepository(inmemdb.Open()), func() {}, nil
	}

	db, err := database.Open(conf)
	if err != nil {
		return nil, nil, err
	}
	if err = database.Migrate(ctx, db, "up"); err != nil {
		_ = db.Close()
		return nil, nil, err
	}
	return sqlxrepos.NewCourseRepository(db), closer(db), nil
}

func closer(db *sqlx.DB) func() {
	return func() { _ = db.Close() }
}

func setUpSurveyRepository(ctx context.Context, conf *core.Config) (survey.Repository, func(), error) {
	if conf.Survey.Backend == "redis" {
		client, err := redisstore.NewClient(ctx, conf.Redis)
		if err != nil {
			return nil, nil, err
		}
		return redisstore.NewSurveyRepository(client, conf.Survey.RedisKey), func() { _ = client.Close() }, nil
	}
	return filestore.NewSurveyRepository(conf.Path(conf.Survey.File)), func() {}, nil
}

func newMailService(conf *core.Config, logger core.Logger) core.EmailService {
	switch conf.Mail.Backend {
	case "sendgrid":
		return emailsvc.NewSendgridService(conf, logger)
	case "smtp":
		return emailsvc.NewSMTPService(conf)
	}
	return emailsvc.NewConsoleService(conf)
}
