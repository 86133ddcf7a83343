package cmd

import (
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/MichaelMishaev/assitentWAbot-sub006/core/database"
	"github.com/MichaelMishaev/assitentWAbot-sub006/repository"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the relational store schema",
	Run:   runMigrate,
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}

func runMigrate(_ *cobra.Command, _ []string) {
	db, err := database.Open(&settings.Database)
	if err != nil {
		logrus.WithError(err).Fatal("[MIGRATE] failed to open database")
	}
	if err := repository.Migrate(db); err != nil {
		logrus.WithError(err).Fatal("[MIGRATE] failed to run migrations")
	}
	logrus.Info("[MIGRATE] schema up to date")
}
