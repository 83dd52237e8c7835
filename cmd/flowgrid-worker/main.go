// Flowgrid Worker — выполняет jobs grid.
//
// Worker:
//   - Опрашивает PENDING jobs в общей таблице (polling)
//   - Получает события jobs.submitted из RabbitMQ (ускоритель)
//   - Сверяет scheduling hints с собственной идентичностью
//   - Атомарно захватывает job и диспатчит в handler его типа
//   - Отправляет jobs по due расписаниям
//
// Workers масштабируются горизонтально: атомарный claim исключает
// двойное выполнение job.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/flowgrid/flowgrid/internal/engine"
	"github.com/flowgrid/flowgrid/internal/grid"
	"github.com/flowgrid/flowgrid/internal/mq"
	"github.com/flowgrid/flowgrid/internal/repo"
	"github.com/flowgrid/flowgrid/internal/telemetry"
)

func main() {
	// Инициализируем structured logging
	logger := telemetry.SetupLogger()
	logger.Info("starting flowgrid-worker")

	// graceful shutdown
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// DB pool
	pool, err := repo.NewPool(ctx)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()
	logger.Info("database connected")

	jobRepo := repo.NewJobRepo(pool)
	scheduleRepo := repo.NewScheduleRepo(pool)

	// RabbitMQ
	var publisher *mq.Publisher
	var mqConn *mq.Connection
	mqURL := os.Getenv("RABBITMQ_URL")
	if mqURL == "" {
		mqURL = mq.DefaultURL()
	}

	mqConn, err = mq.NewConnection(mqURL, logger)
	if err != nil {
		logger.Warn("RabbitMQ not available, running in polling-only mode", "error", err)
		mqConn = nil
	} else {
		defer mqConn.Close()
		logger.Info("RabbitMQ connected")

		if err := mq.SetupTopology(ctx, mqConn); err != nil {
			logger.Warn("failed to setup topology", "error", err)
		}

		publisher = mq.NewPublisher(mqConn, logger)
	}

	// Grid + engine. Flow-handler замыкает engine обратно на grid:
	// workflow может выполняться как job, а его узлы — как дочерние jobs.
	g := grid.New(grid.Config{
		Store:     jobRepo,
		Schedules: scheduleRepo,
		Publisher: publisher,
	})

	eng := engine.New(engine.Config{
		Grid:     g,
		Subflows: engine.DirLoader{Root: workflowDir()},
		Logger:   logger,
	})

	registry := grid.NewRegistry(g)
	registry.RegisterTask("flow", engine.NewFlowJobHandler(eng))

	scheduler := grid.NewScheduler(grid.SchedulerConfig{
		Grid:      g,
		Schedules: scheduleRepo,
		Registry:  registry,
		Identity:  grid.IdentityFromEnv(),
		Publisher: publisher,
		Conn:      mqConn,
		Logger:    logger,
	})

	if err := scheduler.Start(ctx); err != nil {
		logger.Error("failed to start scheduler", "error", err)
		os.Exit(1)
	}

	// HTTP mux: /healthz + /metrics
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	mux.Handle("/metrics", promhttp.Handler())

	port := ":8082"
	if v := os.Getenv("WORKER_PORT"); v != "" {
		port = ":" + v
	}

	go func() {
		logger.Info("listening", "addr", port)
		if err := http.ListenAndServe(port, mux); err != nil {
			logger.Error("http server error", "error", err)
			cancel()
		}
	}()

	// Ожидаем сигнал завершения
	<-ctx.Done()

	scheduler.Stop()
	logger.Info("flowgrid-worker stopped")
}

// workflowDir — каталог с источниками workflow для CALL FLOW.
func workflowDir() string {
	if v := os.Getenv("WORKFLOW_DIR"); v != "" {
		return v
	}
	return "workflows"
}
