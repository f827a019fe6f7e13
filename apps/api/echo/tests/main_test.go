package tests

import (
	"fmt"
	"io/ioutil"
	"log"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

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
	"github.com/trezcool/riyaaz/tests"
)

var (
	conf    *core.Config
	db      *database.DB
	app     *echoapi.Server
	mailSvc *emailsvc.ConsoleServiceMock

	usrRepo user.Repository
	clsRepo classroom.Repository
	prcRepo practice.Repository
	hwRepo  homework.Repository

	errMissingToken = httpErr{Error: "missing or malformed jwt"}
)

func TestMain(m *testing.M) {
	os.Exit(run(m))
}

func run(m *testing.M) int {
	dir, err := ioutil.TempDir("", "riyaaz-api")
	if err != nil {
		fmt.Printf("TempDir(): %v\n", err)
		return 1
	}
	defer os.RemoveAll(dir)

	// set up DB & repos
	conf = testutil.NewConfig(filepath.Join(dir, "api_test.db"))
	if db, err = testutil.OpenDB(conf); err != nil {
		fmt.Printf("OpenDB(): %v\n", err)
		return 1
	}
	defer db.Close()

	usrRepo = sqlxrepos.NewUserRepository(db)
	clsRepo = sqlxrepos.NewClassroomRepository(db)
	prcRepo = sqlxrepos.NewPracticeRepository(db)
	hwRepo = sqlxrepos.NewHomeworkRepository(db)

	// set up services
	logger := logsvc.NewRollbarLogger(log.New(ioutil.Discard, "", 0), conf)
	mailSvc = emailsvc.NewConsoleServiceMock(conf, logger)

	validate := validator.New()
	translator, _ := ut.New(en.New()).GetTranslator("en")
	core.InitValidators(validate, translator)
	user.InitValidators(validate, translator)
	user.LoadCommonPasswords(logger)

	// set up server
	app = echoapi.NewServer(echoapi.ServerDeps{
		Conf:           conf,
		Logger:         logger,
		Validate:       validate,
		Translator:     translator,
		DisableReqLogs: true,
		UserSvc:        user.NewService(usrRepo, mailSvc, conf),
		ClassroomSvc:   classroom.NewService(db, clsRepo, mailSvc, logger),
		PracticeSvc:    practice.NewService(db, prcRepo, clsRepo, conf, logger, nil),
		HomeworkSvc:    homework.NewService(db, hwRepo, clsRepo, mailSvc),
	})

	return m.Run()
}
