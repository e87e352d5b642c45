package taskqueue

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/Dominicksam/SmartLiving/internal/models"

	"github.com/hibiken/asynq"
)

// Evaluator runs automation rules against one event
type Evaluator interface {
	Evaluate(ctx context.Context, ev models.TelemetryEvent)
}

// Worker consumes evaluation tasks. Dependencies are injected at
// construction; there is no package-level state.
type Worker struct {
	srv *asynq.Server
	mux *asynq.ServeMux
}

func NewWorker(redisAddr string, evaluator Evaluator, concurrency int) *Worker {
	if concurrency <= 0 {
		concurrency = 10
	}
	mux := asynq.NewServeMux()
	mux.HandleFunc(TypeEvaluateTelemetry, func(ctx context.Context, t *asynq.Task) error {
		var ev models.TelemetryEvent
		if err := json.Unmarshal(t.Payload(), &ev); err != nil {
			slog.Error("evaluation task payload malformed", "error", err)
			return nil
		}
		// Evaluation is best-effort; per-rule failures are handled and
		// logged inside, so the task itself always succeeds.
		evaluator.Evaluate(ctx, ev)
		return nil
	})
	srv := asynq.NewServer(asynq.RedisClientOpt{Addr: redisAddr}, asynq.Config{Concurrency: concurrency})
	return &Worker{srv: srv, mux: mux}
}

// Run blocks processing tasks until Shutdown is called
func (w *Worker) Run() error {
	slog.Info("starting rule evaluation workers")
	return w.srv.Run(w.mux)
}

func (w *Worker) Shutdown() {
	w.srv.Shutdown()
}
