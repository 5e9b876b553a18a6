package tests

import (
	"fmt"
	"io/ioutil"
	"log"
	"os"
	"testing"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	echoapi "github.com/trezcool/darasa/apps/api/echo"
	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/chat"
	"github.com/trezcool/darasa/core/course"
	"github.com/trezcool/darasa/core/user"
	emailsvc "github.com/trezcool/darasa/services/email"
	logsvc "github.com/trezcool/darasa/services/logger"
	dummydb "github.com/trezcool/darasa/storage/database/dummy"
)

var (
	app     *echoapi.Server
	usrRepo user.Repository
	crsRepo course.Repository
	msgRepo chat.Repository
)

func TestMain(m *testing.M) {
	if err := os.Setenv("ENV", "TEST"); err != nil {
		fmt.Printf("os.Setenv(): %v", err)
		os.Exit(1)
	}
	// error payloads are only wrapped as {"error": ...} outside debug mode
	if err := os.Setenv("TEST_DEBUG", "false"); err != nil {
		fmt.Printf("os.Setenv(): %v", err)
		os.Exit(1)
	}
	conf := core.NewConfig()

	logger := logsvc.NewRollbarLogger(log.New(ioutil.Discard, "TEST : ", log.LstdFlags), conf)
	logger.Enable(false)

	// set up DB & repos
	db, err := dummydb.Open()
	if err != nil {
		fmt.Printf("dummydb.Open(): %v", err)
		os.Exit(1)
	}
	usrRepo = dummydb.NewUserRepository(db)
	crsRepo = dummydb.NewCourseRepository(db)
	msgRepo = dummydb.NewMessageRepository(db)

	// set up services
	mailSvc := emailsvc.NewConsoleServiceMock(conf)
	usrSvc := user.NewService(usrRepo, mailSvc, conf)
	crsSvc := course.NewService(crsRepo)
	chatSvc := chat.NewService(msgRepo)

	validate := validator.New()
	translator := newTranslator()
	core.InitValidators(validate, translator)
	user.InitValidators(validate, translator)

	// set up server
	app = echoapi.NewServer(
		echoapi.ServerDeps{
			Conf:       conf,
			Logger:     logger,
			UserSvc:    usrSvc,
			CourseSvc:  crsSvc,
			ChatSvc:    chatSvc,
			Registry:   chat.NewRegistry(),
			Validate:   validate,
			Translator: translator,
		},
	)

	os.Exit(m.Run())
}

func newTranslator() ut.Translator {
	_en := en.New()
	uni := ut.New(_en, _en)
	translator, _ := uni.GetTranslator("en")
	return translator
}
