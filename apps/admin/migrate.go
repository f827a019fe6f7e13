package main

import (
	"context"

	"github.com/trezcool/riyaaz/storage/database"
)

func (cli *commandLine) migrate(args []string) error {
	return database.Migrate(context.Background(), cli.db, args[0], args[1:]...)
}
