package dig_container

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"go.uber.org/dig"

	"github.com/trezcool/riyaaz/apps/api/echo"
	"github.com/trezcool/riyaaz/core"
	"github.com/trezcool/riyaaz/core/classroom"
	"github.com/trezcool/riyaaz/core/homework"
	"github.com/trezcool/riyaaz/core/practice"
	"github.com/trezcool/riyaaz/core/user"
	"github.com/trezcool/riyaaz/services/email"
	"github.com/trezcool/riyaaz/services/logger"
	"github.com/trezcool/riyaaz/storage/database"
	"github.com/trezcool/riyaaz/storage/database/sqlx"
)

type DBLoggerParam struct {
	dig.In
	Logger core.Logger `name:"dbLogger"`
}

type serverParams struct {
	dig.In

	Conf         *core.Config
	Logger       core.Logger
	Validate     *validator.Validate
	Translator   ut.Translator
	UserSvc      user.Service
	ClassroomSvc classroom.Service
	PracticeSvc  practice.Service
	HomeworkSvc  homework.Service
}

func newLogger(conf *core.Config) core.Logger {
	stdLogger := log.New(os.Stdout, "API : ", log.LstdFlags)
	logger := logsvc.NewRollbarLogger(stdLogger, conf)
	logger.Enable(!conf.Debug)
	return logger
}

func newDBLogger(conf *core.Config) core.Logger {
	stdLogger := log.New(os.Stdout, "DB : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile)
	logger := logsvc.NewRollbarLogger(stdLogger, conf)
	logger.Enable(!conf.Debug)
	return logger
}

// newDB creates the database if needed, then opens and migrates it.
func newDB(conf *core.Config, loggerParam DBLoggerParam) (*database.DB, core.DB) {
	setUp := func() (*database.DB, error) {
		ctx := context.Background()
		if err := database.CreateIfNotExist(ctx, conf); err != nil {
			return nil, err
		}

		db, err := database.Open(ctx, conf)
		if err != nil {
			return nil, err
		}

		if err = database.Migrate(ctx, db, "up"); err != nil {
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

func newEmailService(conf *core.Config, logger core.Logger) (core.EmailService, error) {
	return emailsvc.New(context.Background(), conf, logger)
}

func newTranslator() ut.Translator {
	_en := en.New()
	uni := ut.New(_en, _en)
	translator, _ := uni.GetTranslator("en")
	return translator
}

func newPracticeService(
	db core.DB,
	repo practice.Repository,
	clsRepo classroom.Repository,
	conf *core.Config,
	logger core.Logger,
) practice.Service {
	return practice.NewService(db, repo, clsRepo, conf, logger, time.Now)
}

func newServer(p serverParams) *echoapi.Server {
	return echoapi.NewServer(echoapi.ServerDeps{
		Conf:         p.Conf,
		Logger:       p.Logger,
		Validate:     p.Validate,
		Translator:   p.Translator,
		UserSvc:      p.UserSvc,
		ClassroomSvc: p.ClassroomSvc,
		PracticeSvc:  p.PracticeSvc,
		HomeworkSvc:  p.HomeworkSvc,
	})
}

// New returns a new dependency injection dig.Container
func New() *dig.Container {
	c := dig.New()

	must(c.Provide(core.NewConfig))
	must(c.Provide(newLogger))
	must(c.Provide(newDBLogger, dig.Name("dbLogger")))
	must(c.Provide(newDB))
	must(c.Provide(newEmailService))

	// repositories
	must(c.Provide(sqlxrepos.NewUserRepository))
	must(c.Provide(sqlxrepos.NewClassroomRepository))
	must(c.Provide(sqlxrepos.NewPracticeRepository))
	must(c.Provide(sqlxrepos.NewHomeworkRepository))

	must(c.Provide(validator.New))
	must(c.Provide(newTranslator))

	// services
	must(c.Provide(user.NewService))
	must(c.Provide(classroom.NewService))
	must(c.Provide(newPracticeService))
	must(c.Provide(homework.NewService))

	must(c.Provide(newServer))

	return c
}

// must exits program if err happened
func must(err error) {
	if err != nil {
		log.Fatal(errors.Wrap(err, "failed to provide dependency").Error())
	}
}
