package main

import (
	"log"
	"os"

	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"

	echoapi "github.com/jeevaneswaran/examportal/apps/api/echo"
	"github.com/jeevaneswaran/examportal/core"
	"github.com/jeevaneswaran/examportal/core/profile"
	emailsvc "github.com/jeevaneswaran/examportal/services/email"
	identitysvc "github.com/jeevaneswaran/examportal/services/identity"
	logsvc "github.com/jeevaneswaran/examportal/services/logger"
	"github.com/jeevaneswaran/examportal/storage/database"
	inmemdb "github.com/jeevaneswaran/examportal/storage/database/inmem"
	sqlxrepos "github.com/jeevaneswaran/examportal/storage/database/sqlx"
	"github.com/jeevaneswaran/examportal/storage/session"
)

func main() {
	conf := core.NewConfig()
	std := log.New(os.Stdout, conf.AppName+" ", log.LstdFlags|log.Lshortfile)

	var logger core.Logger
	if conf.Debug {
		logger = logsvc.NewConsoleLogger(std)
	} else {
		logger = logsvc.NewRollbarLogger(std, conf)
	}

	// set up storage
	var repo profile.Repository
	if conf.Debug {
		db, err := inmemdb.Open()
		errAndDie(std, err)
		repo = inmemdb.NewProfileRepository(db)
	} else {
		db, err := database.Open(conf)
		errAndDie(std, err)
		defer db.Close()
		repo = sqlxrepos.NewProfileRepository(sqlx.NewDb(db, "postgres"))
	}

	var sessions session.Store
	if conf.Debug {
		sessions = session.NewMemoryStore()
	} else {
		sessions = session.NewRedisStore(redis.NewClient(&redis.Options{
			Addr:     conf.Redis.Addr,
			Password: conf.Redis.Password,
			DB:       conf.Redis.DB,
		}))
	}

	// set up services
	var mailSvc core.EmailService
	if conf.Debug {
		mailSvc = emailsvc.NewConsoleService(conf)
	} else {
		mailSvc = emailsvc.NewSendgridService(conf, logger)
	}
	profileSvc := profile.NewService(conf, repo, mailSvc)

	var identity identitysvc.Provider
	if conf.Debug {
		identity = identitysvc.NewInMemProvider(conf.SessionTTL)
	} else {
		identity = identitysvc.NewHTTPProvider(conf, logger)
	}

	validate, translator := core.NewValidator()
	profile.RegisterValidators(validate, translator)

	// start API server
	app := echoapi.NewServer(
		&echoapi.Options{
			Conf:       conf,
			Logger:     logger,
			ProfileSvc: profileSvc,
			Identity:   identity,
			Sessions:   sessions,
			Validate:   validate,
			Translator: translator,
		},
	)
	app.Start()
}

func errAndDie(std *log.Logger, err error) {
	if err != nil {
		std.Fatal(err)
	}
}
