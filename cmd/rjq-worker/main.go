// rjq-worker pulls jobs off an rjq queue and processes them until it is
// interrupted.
package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	_ "modernc.org/sqlite"

	"github.com/neurophant/rjq"
	"github.com/neurophant/rjq/archive"
	"github.com/neurophant/rjq/internal/config"
	"github.com/neurophant/rjq/internal/logger"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables or flags")
	}

	defaultConfigPath := os.Getenv("RJQ_WORKER_CONFIG_PATH")
	if defaultConfigPath == "" {
		defaultConfigPath = "configs/worker.yaml"
	}
	configPath := flag.String("config", defaultConfigPath, "Path to configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	appLogger := logger.New(&logger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
	})

	opts := []rjq.Option{rjq.WithLogger(appLogger)}

	if cfg.Archive.DSN != "" {
		db, err := sql.Open(cfg.Archive.Driver, cfg.Archive.DSN)
		if err != nil {
			return fmt.Errorf("failed to open archive db: %w", err)
		}
		defer db.Close()
		if _, err := db.Exec(archive.Schema); err != nil {
			return fmt.Errorf("failed to apply archive schema: %w", err)
		}
		opts = append(opts, rjq.WithRecorder(archive.NewSQLStore(db, cfg.Redis.Queue)))
		appLogger.Info("archive enabled", slog.String("driver", cfg.Archive.Driver))
	}

	queue, err := rjq.New(cfg.Redis.URL, cfg.Redis.Queue, opts...)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	appLogger.Info("worker started",
		slog.String("queue", cfg.Redis.Queue),
		slog.Duration("timeout", cfg.Worker.Timeout),
	)

	err = queue.Work(ctx, rjq.WorkOptions{
		Wait:          cfg.Worker.Wait,
		Timeout:       cfg.Worker.Timeout,
		PollFrequency: cfg.Worker.PollFrequency,
		ResultExpire:  cfg.Worker.ResultExpire,
		FatalOnLost:   cfg.Worker.FatalOnLost,
		Repeat:        true,
	}, process)
	if errors.Is(err, context.Canceled) {
		appLogger.Info("worker stopped")
		return nil
	}
	return err
}

// process is the demo job handler: it greets the job it was given.
func process(id string, args []string) (string, error) {
	time.Sleep(time.Second)
	return "hi from " + id, nil
}
