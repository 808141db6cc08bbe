package main

import (
	"log"
	"os"

	"github.com/jmoiron/sqlx"

	"github.com/jeevaneswaran/examportal/core"
	"github.com/jeevaneswaran/examportal/core/profile"
	emailsvc "github.com/jeevaneswaran/examportal/services/email"
	identitysvc "github.com/jeevaneswaran/examportal/services/identity"
	logsvc "github.com/jeevaneswaran/examportal/services/logger"
	"github.com/jeevaneswaran/examportal/storage/database"
	sqlxrepos "github.com/jeevaneswaran/examportal/storage/database/sqlx"
)

var logger *log.Logger

func main() {
	defer os.Exit(0)

	logger = log.New(os.Stdout, "ADMIN : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile)

	conf := core.NewConfig()

	// set up DB
	errAndDie(database.CreateIfNotExist(conf))
	db, err := database.Open(conf)
	errAndDie(err)
	defer db.Close()
	errAndDie(db.Ping())

	// set up services
	var mailSvc core.EmailService
	if conf.Debug {
		mailSvc = emailsvc.NewConsoleService(conf)
	} else {
		mailSvc = emailsvc.NewSendgridService(conf, logsvc.NewConsoleLogger(logger))
	}
	repo := sqlxrepos.NewProfileRepository(sqlx.NewDb(db, "postgres"))
	profileSvc := profile.NewService(conf, repo, mailSvc)

	// addadmin provisions identity accounts that must outlive this
	// process, so the CLI always targets the real provider
	identity := identitysvc.NewHTTPProvider(conf, logsvc.NewConsoleLogger(logger))

	// start CLI
	cli := commandLine{
		db:         db,
		profileSvc: profileSvc,
		identity:   identity,
	}
	if err := cli.run(os.Args); err != nil {
		if err != errHelp {
			logger.Printf("\nerror: %s\n", err)
		}
		os.Exit(1)
	}
}

func errAndDie(err error) {
	if err != nil {
		logger.Fatal(err)
	}
}
