// Command usersapi serves the user management HTTP API.
package main

import (
	"github.com/patric-chuzhbe/usersapi/internal/app"
	"github.com/patric-chuzhbe/usersapi/internal/logger"
)

func main() {
	if err := run(); err != nil {
		// Configuration errors happen before the configured logger exists.
		if !logger.Initialized() {
			if initErr := logger.Init("info"); initErr != nil {
				panic(err)
			}
		}
		logger.Log.Fatalw("usersapi stopped", "error", err)
	}
}

func run() error {
	application, err := app.New()
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := application.Close(); closeErr != nil {
			logger.Log.Errorw("closing application failed", "error", closeErr)
		}
	}()

	return application.Run()
}
