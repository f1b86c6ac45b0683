package main

import (
	"errors"

	"github.com/trezcool/educa/storage/database"
)

var runMigrationFunc = database.RunMigration // mockable

func (cli *commandLine) migrate(args []string) error {
	if cli.db == nil {
		return errors.New("migrations need the postgres engine")
	}
	return runMigrationFunc(cli.db, args[0], args[1:]...)
}
