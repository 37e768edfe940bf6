package dig_container

import (
	"context"
	"fmt"
	"log"
	"os"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"go.uber.org/dig"

	echoapi "github.com/aryaedu/tutor/apps/api/echo"
	"github.com/aryaedu/tutor/core"
	"github.com/aryaedu/tutor/core/admin"
	"github.com/aryaedu/tutor/core/analytics"
	"github.com/aryaedu/tutor/core/auth"
	"github.com/aryaedu/tutor/core/progress"
	"github.com/aryaedu/tutor/core/session"
	"github.com/aryaedu/tutor/core/student"
	"github.com/aryaedu/tutor/core/taxonomy"
	"github.com/aryaedu/tutor/core/video"
	emailsvc "github.com/aryaedu/tutor/services/email"
	logsvc "github.com/aryaedu/tutor/services/logger"
	smssvc "github.com/aryaedu/tutor/services/sms"
	"github.com/aryaedu/tutor/storage/database"
	sqlxrepos "github.com/aryaedu/tutor/storage/database/sqlx"
)

type DBLoggerParam struct {
	dig.In
	Logger core.Logger `name:"dbLogger"`
}

type ServicesParam struct {
	dig.In

	Admin     *admin.Service
	Student   *student.Service
	Taxonomy  *taxonomy.Service
	Video     *video.Service
	Progress  *progress.Service
	Analytics *analytics.Service
}

func newRootLogger(conf *core.Config) *logsvc.RollbarLogger {
	logger := logsvc.NewRollbarLogger(os.Stdout, conf)
	logger.Enable(!conf.Debug)
	return logger
}

func newLogger(root *logsvc.RollbarLogger) core.Logger {
	return root.Named("api")
}

func newDBLogger(root *logsvc.RollbarLogger) core.Logger {
	return root.Named("db")
}

func newDB(conf *core.Config, loggerParam DBLoggerParam) (*sqlx.DB, core.DBExecutor) {
	setUp := func() (*sqlx.DB, error) {
		if err := database.CreateIfNotExist(conf); err != nil {
			return nil, err
		}

		db, err := database.Open(conf)
		if err != nil {
			return nil, err
		}

		if err = database.MigrateUp(db); err != nil {
			_ = db.Close()
			return nil, err
		}
		return db, nil
	}

	db, err := setUp()
	if err != nil {
		loggerParam.Logger.Fatal(fmt.Sprintf("setting up database: %v", err), err)
	}
	return db, db
}

func newEmailService(conf *core.Config, logger core.Logger) core.EmailService {
	if conf.Debug {
		return emailsvc.NewConsoleService(conf, os.Stdout, logger)
	}
	return emailsvc.NewSendgridService(conf, logger)
}

func newSMSService(conf *core.Config) core.SMSService {
	if conf.SMS.APIKey == "" {
		return smssvc.NewConsoleService(os.Stdout)
	}
	return smssvc.NewFast2SMSService(conf.SMS)
}

func newValidator() *validator.Validate {
	return validator.New()
}

func newSessionStore(conf *core.Config) *session.Store {
	// sessions are unreachable once their token has expired
	return session.NewStore(conf.Server.TokenExpirationDelta)
}

func newRouter(conf *core.Config) *session.Router {
	return session.NewRouter(conf.Server.SessionTimeout)
}

func newAdminService(conf *core.Config, repo admin.Repository, mailSvc core.EmailService, validate *validator.Validate) *admin.Service {
	return admin.NewService(conf, repo, mailSvc, validate)
}

func newStudentService(repo student.Repository, taxonomySvc *taxonomy.Service) *student.Service {
	return student.NewService(repo, taxonomySvc)
}

func newVideoService(repo video.Repository, taxonomySvc *taxonomy.Service) *video.Service {
	return video.NewService(repo, taxonomySvc)
}

func newGate(conf *core.Config, adminSvc *admin.Service, studentSvc *student.Service, sms core.SMSService, logger core.Logger) *auth.Gate {
	return auth.NewGate(conf, adminSvc, studentSvc, sms, logger)
}

func newServerOptions(
	conf *core.Config,
	logger core.Logger,
	validate *validator.Validate,
	translator ut.Translator,
	sessions *session.Store,
	router *session.Router,
	gate *auth.Gate,
	svcs ServicesParam,
) *echoapi.Options {
	return &echoapi.Options{
		Conf:         conf,
		Logger:       logger,
		Validate:     validate,
		Translator:   translator,
		Sessions:     sessions,
		Router:       router,
		Gate:         gate,
		AdminSvc:     svcs.Admin,
		StudentSvc:   svcs.Student,
		TaxonomySvc:  svcs.Taxonomy,
		VideoSvc:     svcs.Video,
		ProgressSvc:  svcs.Progress,
		AnalyticsSvc: svcs.Analytics,
	}
}

// SeedDefaultAdmin creates the configured admin account on an empty database.
func SeedDefaultAdmin(conf *core.Config, adminSvc *admin.Service, logger core.Logger) error {
	created, err := adminSvc.EnsureDefault(context.Background(), conf.DefaultAdmin)
	if err != nil {
		return err
	}
	if created {
		logger.Warn(fmt.Sprintf("default admin %q created, change its password", conf.DefaultAdmin.Username))
	}
	return nil
}

// New returns a new dependency injection dig.Container
func New() *dig.Container {
	c := dig.New()

	must(c.Provide(core.NewConfig))
	must(c.Provide(newRootLogger))
	must(c.Provide(newLogger))
	must(c.Provide(newDBLogger, dig.Name("dbLogger")))
	must(c.Provide(newDB))
	must(c.Provide(newEmailService))
	must(c.Provide(newSMSService))
	must(c.Provide(newValidator))
	must(c.Provide(core.NewTranslator))

	// repositories
	must(c.Provide(sqlxrepos.NewAdminRepository, dig.As(new(admin.Repository))))
	must(c.Provide(sqlxrepos.NewStudentRepository, dig.As(new(student.Repository))))
	must(c.Provide(sqlxrepos.NewTaxonomyRepository, dig.As(new(taxonomy.Repository))))
	must(c.Provide(sqlxrepos.NewVideoRepository, dig.As(new(video.Repository))))
	must(c.Provide(sqlxrepos.NewProgressRepository, dig.As(new(progress.Repository))))
	must(c.Provide(sqlxrepos.NewAnalyticsRepository, dig.As(new(analytics.Repository))))

	// services
	must(c.Provide(newAdminService))
	must(c.Provide(taxonomy.NewService))
	must(c.Provide(newStudentService))
	must(c.Provide(newVideoService))
	must(c.Provide(progress.NewService))
	must(c.Provide(analytics.NewService))
	must(c.Provide(newGate))
	must(c.Provide(newSessionStore))
	must(c.Provide(newRouter))

	must(c.Provide(newServerOptions))
	must(c.Provide(echoapi.NewServer))

	return c
}

// must exits program if err happened
func must(err error) {
	if err != nil {
		log.Fatal(errors.Wrap(err, "failed to provide dependency").Error())
	}
}
