package di

import (
	"context"
	"fmt"
	"io"
	"log"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"go.uber.org/dig"
	"go.uber.org/zap"

	echoapi "github.com/trezcool/educa/apps/api/echo"
	"github.com/trezcool/educa/core"
	"github.com/trezcool/educa/core/content"
	"github.com/trezcool/educa/core/course"
	"github.com/trezcool/educa/core/user"
	cachesvc "github.com/trezcool/educa/services/cache"
	emailsvc "github.com/trezcool/educa/services/email"
	logsvc "github.com/trezcool/educa/services/logger"
	storagesvc "github.com/trezcool/educa/services/storage"
	"github.com/trezcool/educa/storage/database"
	inmemdb "github.com/trezcool/educa/storage/database/inmem"
	sqlxrepos "github.com/trezcool/educa/storage/database/sqlx"
)

type (
	DBLoggerParam struct {
		dig.In
		Logger core.Logger `name:"dbLogger"`
	}

	// Store holds the repositories of the configured database engine.
	Store struct {
		dig.Out

		Users    user.Repository
		Courses  course.Repository
		Contents content.Repository
		Tx       core.Transactor
		DB       io.Closer `name:"db"`
	}

	// Closers are the resources to release on shutdown.
	Closers struct {
		dig.In

		DB      io.Closer `name:"db"`
		Cache   core.Cache
		Storage core.FileStorage
	}

	nopCloser struct{}
)

func (nopCloser) Close() error { return nil }

func newConfig() *core.Config {
	return core.Conf
}

func newLogger(conf *core.Config, zl *zap.Logger) core.Logger {
	return logsvc.NewRollbarLogger(zl.Named("api"), conf)
}

func newDBLogger(conf *core.Config, zl *zap.Logger) core.Logger {
	return logsvc.NewRollbarLogger(zl.Named("db"), conf)
}

func newStore(conf *core.Config, loggerParam DBLoggerParam) (Store, error) {
	if conf.Database.Engine == "memory" {
		db, err := inmemdb.Open()
		if err != nil {
			return Store{}, errors.Wrap(err, "opening in-memory database")
		}
		loggerParam.Logger.Info("using the in-memory database")
		return Store{
			Users:    inmemdb.NewUserRepository(db),
			Courses:  inmemdb.NewCourseRepository(db),
			Contents: inmemdb.NewContentRepository(db),
			Tx:       inmemdb.NewTransactor(),
			DB:       nopCloser{},
		}, nil
	}

	setUp := func() (*sqlx.DB, error) {
		if err := database.CreateIfNotExist(conf); err != nil {
			return nil, err
		}

		db, err := database.Open(conf)
		if err != nil {
			return nil, err
		}

		if err = database.Migrate(db); err != nil {
			return nil, err
		}
		return db, nil
	}

	db, err := setUp()
	if err != nil {
		loggerParam.Logger.Fatal(fmt.Sprintf("setting up database: %v", err), err)
	}
	return Store{
		Users:    sqlxrepos.NewUserRepository(db),
		Courses:  sqlxrepos.NewCourseRepository(db),
		Contents: sqlxrepos.NewContentRepository(db),
		Tx:       database.NewTransactor(db),
		DB:       db,
	}, nil
}

func newCache(conf *core.Config, logger core.Logger) (core.Cache, error) {
	c, err := cachesvc.New(context.Background(), conf)
	if err != nil {
		return nil, err
	}
	if conf.Cache.RedisURL != "" {
		logger.Info("using the redis cache")
	}
	return c, nil
}

func newFileStorage(conf *core.Config) (core.FileStorage, error) {
	if conf.Storage.Backend == "gcs" {
		return storagesvc.NewGCSStorage(context.Background(), conf)
	}
	return storagesvc.NewLocalStorage(conf), nil
}

func newEmailService(conf *core.Config, logger core.Logger) core.EmailService {
	if conf.Debug {
		return emailsvc.NewConsoleService(conf, logger)
	}
	return emailsvc.NewSendgridService(conf, logger)
}

// New returns a new dependency injection dig.Container
func New() *dig.Container {
	c := dig.New()

	must(c.Provide(newConfig))
	must(c.Provide(logsvc.NewZapLogger))
	must(c.Provide(newLogger))
	must(c.Provide(newDBLogger, dig.Name("dbLogger")))
	must(c.Provide(newStore))
	must(c.Provide(newCache))
	must(c.Provide(newFileStorage))
	must(c.Provide(newEmailService))
	must(c.Provide(validator.New))
	must(c.Provide(core.NewTranslator))
	must(c.Provide(user.NewService))
	must(c.Provide(course.NewService))
	must(c.Provide(content.NewService))
	must(c.Provide(echoapi.NewServer))

	return c
}

// Close releases the database, cache and storage clients, when they hold any.
func (cl Closers) Close() error {
	var errs []error
	for _, r := range []interface{}{cl.DB, cl.Cache, cl.Storage} {
		if c, ok := r.(io.Closer); ok {
			if err := c.Close(); err != nil {
				errs = append(errs, err)
			}
		}
	}
	if len(errs) > 0 {
		return errors.Errorf("closing resources: %v", errs)
	}
	return nil
}

// must exits program if err happened
func must(err error) {
	if err != nil {
		log.Fatal(errors.Wrap(err, "failed to provide dependency").Error())
	}
}
