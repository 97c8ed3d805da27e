package worker

import (
	"context"
	"errors"
	"net/http"

	"github.com/hibiken/asynq"
	"github.com/sirupsen/logrus"

	"github.com/WizardWorks-AntagningsProv/QuarterSpiralUI/internal/repository"
	"github.com/WizardWorks-AntagningsProv/QuarterSpiralUI/internal/tasks"
)

// WorkerServer runs the asynq server that drains queued grid writes.
type WorkerServer struct {
	server *asynq.Server
	log    *logrus.Entry
	repo   repository.CellRepository
}

func NewWorkerServer(redisOpt asynq.RedisClientOpt, repo repository.CellRepository, logger *logrus.Logger) *WorkerServer {
	logEntry := logger.WithField("component", "worker_server")

	server := asynq.NewServer(
		redisOpt,
		asynq.Config{
			// One worker keeps queued replaces in enqueue order.
			Concurrency: 1,
			Queues: map[string]int{
				QueueGrid: 1,
			},
			ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
				taskID := ""
				if rw := task.ResultWriter(); rw != nil {
					taskID = rw.TaskID()
				}
				retryCount, _ := asynq.GetRetryCount(ctx)
				maxRetry, _ := asynq.GetMaxRetry(ctx)
				logEntry.WithFields(logrus.Fields{
					"task_id":   taskID,
					"task_type": task.Type(),
					"retries":   retryCount,
					"max_retry": maxRetry,
				}).Errorf("Task failed: %v", err)
			}),
			Logger: newAsynqLogger(logEntry),
		},
	)

	return &WorkerServer{
		server: server,
		log:    logEntry,
		repo:   repo,
	}
}

// Mux builds the task router. Exposed so tests can drive handlers without Redis.
func (ws *WorkerServer) Mux() *asynq.ServeMux {
	mux := asynq.NewServeMux()
	mux.Handle(tasks.TypeGridReplace, NewGridReplaceHandler(ws.repo))
	return mux
}

// Start blocks until the server stops; call it in its own goroutine.
func (ws *WorkerServer) Start() {
	ws.log.Info("Worker server starting...")
	if err := ws.server.Run(ws.Mux()); err != nil {
		if !errors.Is(err, http.ErrServerClosed) && !errors.Is(err, asynq.ErrServerClosed) {
			ws.log.Errorf("Could not run worker server: %v", err)
		} else {
			ws.log.Info("Worker server stopped.")
		}
	}
}

func (ws *WorkerServer) Shutdown() {
	ws.log.Info("Shutting down worker server...")
	ws.server.Shutdown()
	ws.log.Info("Worker server shut down complete.")
}

// asynqLogger routes asynq's internal logging through logrus.
type asynqLogger struct {
	entry *logrus.Entry
}

func newAsynqLogger(entry *logrus.Entry) asynqLogger {
	return asynqLogger{entry: entry.WithField("source", "asynq")}
}

func (l asynqLogger) Debug(args ...interface{}) { l.entry.Debug(args...) }
func (l asynqLogger) Info(args ...interface{})  { l.entry.Info(args...) }
func (l asynqLogger) Warn(args ...interface{})  { l.entry.Warn(args...) }
func (l asynqLogger) Error(args ...interface{}) { l.entry.Error(args...) }
func (l asynqLogger) Fatal(args ...interface{}) { l.entry.Fatal(args...) }
