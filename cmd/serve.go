package cmd

import (
	"context"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the message router, reminder worker and daily summary scheduler",
	Run:   runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(_ *cobra.Command, _ []string) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	application, err := buildApp(ctx)
	if err != nil {
		logrus.WithError(err).Fatal("[STARTUP] failed to build application")
	}

	go application.worker.Run(ctx)
	go application.daily.Run(ctx)

	logrus.Info("[STARTUP] levwa is running")
	waitForShutdown()

	cancel()
	application.ingress.Stop()
	if sqlDB, err := application.db.DB(); err == nil {
		_ = sqlDB.Close()
	}
	application.vkClient.Close()
	logrus.Info("[APP] stopped cleanly")
}
