package app

import (
	"context"
	"time"

	"go.uber.org/fx"

	"github.com/openihd/feedmart/internal/config"
	"github.com/openihd/feedmart/internal/errorlog"
	"github.com/openihd/feedmart/internal/metrics"
	"github.com/openihd/feedmart/internal/migration"
	"github.com/openihd/feedmart/internal/model"
	"github.com/openihd/feedmart/internal/orchestrator"
	"github.com/openihd/feedmart/internal/registry"
	"github.com/openihd/feedmart/internal/repository/gormrepo"
	"github.com/openihd/feedmart/internal/support/logger"
)

const statusPollInterval = 500 * time.Millisecond

// RunApplication sets up and runs the ingestion application using uber-fx.
// Each path in inputPaths is submitted as one ingestion run; the process
// shuts down once every submitted run reaches a terminal state.
func RunApplication(appCtx context.Context, envFilePath string, embeddedConfig config.EmbeddedConfig, inputPaths []string) {
	app := fx.New(
		fx.Supply(
			embeddedConfig,
			fx.Annotate(envFilePath, fx.ResultTags(`name:"envFilePath"`)),
			fx.Annotate(inputPaths, fx.ResultTags(`name:"inputPaths"`)),
			fx.Annotate(
				appCtx,
				fx.As(new(context.Context)),
				fx.ResultTags(`name:"appCtx"`),
			),
		),

		config.Module,
		gormrepo.Module,
		errorlog.Module,
		registry.Module,
		metrics.Module,
		orchestrator.Module,
		Module,

		fx.Invoke(fx.Annotate(startIngestion, fx.ParamTags(
			"",                  // lc fx.Lifecycle
			"",                  // shutdowner fx.Shutdowner
			"",                  // migrator *migration.Migrator
			"",                  // orch *orchestrator.Orchestrator
			`name:"inputPaths"`, // inputPaths []string
			`name:"appCtx"`,     // appCtx context.Context
		))),
	)

	app.Run()

	if app.Err() != nil {
		logger.Fatalf("Application run failed: %v", app.Err())
	}
}

// startIngestion hooks migration, orchestrator startup, and the submission
// loop into the Fx lifecycle.
func startIngestion(
	lc fx.Lifecycle,
	shutdowner fx.Shutdowner,
	migrator *migration.Migrator,
	orch *orchestrator.Orchestrator,
	inputPaths []string,
	appCtx context.Context,
) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			if err := migrator.Up(ctx); err != nil {
				return err
			}
			if err := orch.Start(ctx); err != nil {
				return err
			}
			go submitAndMonitor(appCtx, orch, shutdowner, inputPaths)
			return nil
		},
		OnStop: func(ctx context.Context) error {
			return orch.Stop(ctx)
		},
	})
}

// submitAndMonitor submits every input file, waits for the runs to finish,
// and then requests application shutdown.
func submitAndMonitor(
	ctx context.Context,
	orch *orchestrator.Orchestrator,
	shutdowner fx.Shutdowner,
	inputPaths []string,
) {
	defer func() {
		if r := recover(); r != nil {
			logger.Errorf("Panic recovered in ingestion loop: %v", r)
		}
		logger.Infof("Requesting application shutdown after ingestion completion.")
		if err := shutdowner.Shutdown(); err != nil {
			logger.Errorf("Failed to shutdown application: %v", err)
		}
	}()

	if len(inputPaths) == 0 {
		logger.Warnf("No input files given; nothing to ingest.")
		return
	}

	runIDs := make([]string, 0, len(inputPaths))
	for _, path := range inputPaths {
		runID, err := orch.Submit(ctx, path)
		if err != nil {
			logger.Errorf("Failed to submit %s: %v", path, err)
			continue
		}
		runIDs = append(runIDs, runID)
	}

	waitForRuns(ctx, orch, runIDs)

	for _, runID := range runIDs {
		record, err := orch.GetStatus(runID)
		if err != nil {
			logger.Errorf("Run %s: status lookup failed: %v", runID, err)
			continue
		}
		if record.Status == model.JobStatusFailed {
			logger.Errorf("Run %s (%s) finished with status %s: %s",
				record.RunID, record.Filename, record.Status, record.ErrorMessage())
			continue
		}
		logger.Infof("Run %s (%s) finished with status %s, exit status %s, %d record(s) written.",
			record.RunID, record.Filename, record.Status, record.ExitStatus, record.RecordsProcessed)
	}
}

func waitForRuns(ctx context.Context, orch *orchestrator.Orchestrator, runIDs []string) {
	for {
		pending := 0
		for _, runID := range runIDs {
			record, err := orch.GetStatus(runID)
			if err != nil {
				continue
			}
			if !record.Status.IsTerminal() {
				pending++
			}
		}
		if pending == 0 {
			return
		}
		select {
		case <-ctx.Done():
			logger.Warnf("Shutdown requested with %d run(s) still in flight.", pending)
			return
		case <-time.After(statusPollInterval):
		}
	}
}
