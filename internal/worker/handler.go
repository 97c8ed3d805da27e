package worker

import (
	"context"
	"errors"
	"fmt"

	"github.com/hibiken/asynq"
	"github.com/sirupsen/logrus"

	"github.com/WizardWorks-AntagningsProv/QuarterSpiralUI/internal/repository"
	"github.com/WizardWorks-AntagningsProv/QuarterSpiralUI/internal/tasks"
)

// GridReplaceHandler writes queued grid lists to the cell repository.
type GridReplaceHandler struct {
	repo repository.CellRepository
}

func NewGridReplaceHandler(repo repository.CellRepository) *GridReplaceHandler {
	return &GridReplaceHandler{repo: repo}
}

// ProcessTask implements asynq.Handler.
func (h *GridReplaceHandler) ProcessTask(ctx context.Context, t *asynq.Task) error {
	taskID := ""
	if rw := t.ResultWriter(); rw != nil {
		taskID = rw.TaskID()
	}
	currentRetry, _ := asynq.GetRetryCount(ctx)
	maxRetry, _ := asynq.GetMaxRetry(ctx)

	logCtx := logrus.WithFields(logrus.Fields{
		"task_id":   taskID,
		"task_type": t.Type(),
		"retry":     currentRetry,
		"max_retry": maxRetry,
	})

	payload, err := tasks.ParseGridReplacePayload(t.Payload())
	if err != nil {
		logCtx.WithError(err).Error("Failed to unmarshal task payload")
		return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
	}

	if err := h.replace(ctx, payload); err != nil {
		if errors.Is(err, repository.ErrStaleRevision) {
			// A newer write already landed; retrying would never succeed.
			logCtx.WithField("revision", *payload.Revision).Info("Grid replace task is stale, skipped")
			return nil
		}
		logCtx.WithError(err).Errorf("Failed to replace grid with %d cells", len(payload.Cells))
		return fmt.Errorf("failed to replace grid: %w", err)
	}

	logCtx.WithField("cells", len(payload.Cells)).Info("Grid replace task processed")
	return nil
}

func (h *GridReplaceHandler) replace(ctx context.Context, p tasks.GridReplacePayload) error {
	if p.Revision == nil {
		return h.repo.ReplaceAll(ctx, p.Cells)
	}
	rr, ok := h.repo.(repository.RevisionedRepository)
	if !ok {
		logrus.WithField("revision", *p.Revision).Warn("Repository keeps no revision, applying grid replace unconditionally")
		return h.repo.ReplaceAll(ctx, p.Cells)
	}
	return rr.ReplaceAllAt(ctx, p.Cells, *p.Revision)
}
