package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"

	"github.com/trezcool/educa/core"
	"github.com/trezcool/educa/core/course"
	"github.com/trezcool/educa/core/user"
	cachesvc "github.com/trezcool/educa/services/cache"
	emailsvc "github.com/trezcool/educa/services/email"
	logsvc "github.com/trezcool/educa/services/logger"
	"github.com/trezcool/educa/storage/database"
	inmemdb "github.com/trezcool/educa/storage/database/inmem"
	sqlxrepos "github.com/trezcool/educa/storage/database/sqlx"
)

func main() {
	conf := core.Conf

	zl, err := logsvc.NewZapLogger(conf)
	if err != nil {
		fmt.Fprintf(os.Stderr, "creating logger: %v\n", err)
		os.Exit(1)
	}
	logger := logsvc.NewRollbarLogger(zl.Named("admin"), conf)

	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)
	course.InitValidators(validate, translator)

	// set up DB
	var (
		db         *sqlx.DB
		usrRepo    user.Repository
		courseRepo course.Repository
		tx         core.Transactor
	)
	if conf.Database.Engine == "memory" {
		memDB, _ := inmemdb.Open()
		usrRepo = inmemdb.NewUserRepository(memDB)
		courseRepo = inmemdb.NewCourseRepository(memDB)
		tx = inmemdb.NewTransactor()
	} else {
		if db, err = database.Open(conf); err != nil {
			logger.Fatal(fmt.Sprintf("opening database: %v", err), err)
		}
		usrRepo = sqlxrepos.NewUserRepository(db)
		courseRepo = sqlxrepos.NewCourseRepository(db)
		tx = database.NewTransactor(db)
	}

	// the API's catalog cache, so that added subjects show up at once
	cache, err := cachesvc.New(context.Background(), conf)
	if err != nil {
		logger.Fatal(fmt.Sprintf("connecting to cache: %v", err), err)
	}
	closeAll := func() {
		logger.Close()
		if c, ok := cache.(io.Closer); ok {
			_ = c.Close()
		}
		if db != nil {
			_ = db.Close()
		}
	}

	// start CLI
	cli := commandLine{
		db:        db,
		usrRepo:   usrRepo,
		courseSvc: course.NewService(courseRepo, tx, cache, emailsvc.NewConsoleService(conf, logger), logger, conf),
		validate:  validate,
	}
	if err := cli.run(os.Args); err != nil {
		if err != errHelp {
			logger.Error(fmt.Sprintf("error: %s", err), err, map[string]interface{}{"args": os.Args[1:]})
		}
		closeAll()
		os.Exit(1)
	}
	closeAll()
}
