package worker

import (
	"context"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
	"github.com/sirupsen/logrus"

	"github.com/WizardWorks-AntagningsProv/QuarterSpiralUI/internal/service"
	"github.com/WizardWorks-AntagningsProv/QuarterSpiralUI/internal/tasks"
)

const QueueGrid = "grid"

// Enqueuer is the subset of *asynq.Client the writer uses.
type Enqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// AsynqWriter hands background grid writes to the worker queue instead of a goroutine.
type AsynqWriter struct {
	client   Enqueuer
	maxRetry int
	timeout  time.Duration
}

func NewAsynqWriter(client Enqueuer, maxRetry int, timeout time.Duration) *AsynqWriter {
	return &AsynqWriter{client: client, maxRetry: maxRetry, timeout: timeout}
}

// Submit enqueues the write. A fenced write carries its revision so the handler
// can drop it once a newer write has landed.
func (w *AsynqWriter) Submit(ctx context.Context, write service.GridWrite) error {
	p := tasks.GridReplacePayload{Cells: write.Cells}
	if write.Fenced {
		rev := write.Revision
		p.Revision = &rev
	}
	task, err := tasks.NewGridReplaceTask(p)
	if err != nil {
		return err
	}
	opts := []asynq.Option{asynq.Queue(QueueGrid), asynq.MaxRetry(w.maxRetry)}
	if w.timeout > 0 {
		opts = append(opts, asynq.Timeout(w.timeout))
	}
	info, err := w.client.EnqueueContext(ctx, task, opts...)
	if err != nil {
		logrus.WithError(err).Error("worker: failed to enqueue grid replace")
		return fmt.Errorf("worker: enqueue %s: %w", tasks.TypeGridReplace, err)
	}
	logrus.WithFields(logrus.Fields{"task_id": info.ID, "queue": info.Queue, "cells": len(write.Cells)}).Debug("worker: grid replace enqueued")
	return nil
}
