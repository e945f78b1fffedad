package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	_ "embed"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/mattn/go-sqlite3"

	"github.com/openihd/feedmart/internal/app"
	"github.com/openihd/feedmart/internal/config"
	"github.com/openihd/feedmart/internal/support/logger"
)

// embeddedConfig embeds the application's YAML configuration file, loaded at
// startup and overridable through environment variables.
//
//go:embed resources/application.yaml
var embeddedConfig []byte

// main starts the ingestion application. Each command-line argument is the
// path of one feedback file to ingest as its own run.
func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigChan
		logger.Warnf("Received signal '%v'. Attempting to stop ingestion...", sig)
		cancel()
	}()

	envFilePath := os.Getenv("ENV_FILE_PATH")
	if envFilePath == "" {
		envFilePath = ".env"
	}

	app.RunApplication(ctx, envFilePath, config.EmbeddedConfig(embeddedConfig), os.Args[1:])
	os.Exit(0)
}
