package main

import (
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"

	"github.com/aryaedu/tutor/core"
	"github.com/aryaedu/tutor/core/admin"
	"github.com/aryaedu/tutor/core/student"
	"github.com/aryaedu/tutor/core/taxonomy"
	emailsvc "github.com/aryaedu/tutor/services/email"
	logsvc "github.com/aryaedu/tutor/services/logger"
	"github.com/aryaedu/tutor/storage/database"
	sqlxrepos "github.com/aryaedu/tutor/storage/database/sqlx"
)

var logger core.Logger

func main() {
	conf := core.NewConfig()

	rl := logsvc.NewRollbarLogger(os.Stdout, conf)
	rl.Enable(!conf.Debug)
	logger = rl.Named("admin")

	// set up DB
	errAndDie(database.CreateIfNotExist(conf))
	db, err := database.Open(conf)
	errAndDie(err)

	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)
	admin.InitValidators(validate, translator)

	// start CLI
	cli := commandLine{
		db:         db,
		adminSvc:   admin.NewService(conf, sqlxrepos.NewAdminRepository(db), emailsvc.NewConsoleService(conf, nil, logger), validate),
		studentSvc: student.NewService(sqlxrepos.NewStudentRepository(db), taxonomy.NewService(sqlxrepos.NewTaxonomyRepository(db))),
		validate:   validate,
		out:        os.Stdout,
	}
	err = cli.run(os.Args[1:])
	_ = db.Close()
	if err != nil {
		if err != errHelp {
			_, _ = fmt.Fprintf(os.Stderr, "\nerror: %s\n", err)
		}
		os.Exit(1)
	}
}

func errAndDie(err error) {
	if err != nil {
		logger.Fatal(err.Error(), err)
	}
}
