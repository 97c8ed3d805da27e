package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/WizardWorks-AntagningsProv/QuarterSpiralUI/internal/repository"
)

// BackgroundWriter runs each ReplaceAll on its own goroutine. Failures are logged.
type BackgroundWriter struct {
	repo    repository.CellRepository
	timeout time.Duration
	done    func(err error) // test hook, may be nil

	inflight sync.WaitGroup
}

func NewBackgroundWriter(repo repository.CellRepository, timeout time.Duration) *BackgroundWriter {
	return &BackgroundWriter{repo: repo, timeout: timeout}
}

// Submit never blocks on the write and never fails.
func (w *BackgroundWriter) Submit(ctx context.Context, write GridWrite) error {
	// The write must outlive the request that triggered it.
	detached := context.WithoutCancel(ctx)
	w.inflight.Add(1)
	go func() {
		defer w.inflight.Done()
		logCtx := logrus.WithField("cells", len(write.Cells))
		err := applyWrite(detached, w.repo, write, w.timeout)
		switch {
		case errors.Is(err, repository.ErrStaleRevision):
			logCtx.WithField("revision", write.Revision).Info("Background grid write superseded by a newer save, skipped")
			err = nil
		case err != nil:
			logCtx.WithError(err).Error("Background grid write failed, store may differ from memory until next save")
		default:
			logCtx.Debug("Background grid write done")
		}
		if w.done != nil {
			w.done(err)
		}
	}()
	return nil
}

// Wait blocks until every submitted write has finished or ctx is done.
func (w *BackgroundWriter) Wait(ctx context.Context) error {
	finished := make(chan struct{})
	go func() {
		w.inflight.Wait()
		close(finished)
	}()
	select {
	case <-finished:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// applyWrite replaces the list, honouring the fence when the repository counts revisions.
func applyWrite(ctx context.Context, repo repository.CellRepository, write GridWrite, timeout time.Duration) error {
	rr, ok := repo.(repository.RevisionedRepository)
	if !write.Fenced || !ok {
		return replaceWithTimeout(ctx, repo, write.Cells, timeout)
	}
	ctx, cancel := withTimeout(ctx, timeout)
	defer cancel()
	err := rr.ReplaceAllAt(ctx, write.Cells, write.Revision)
	if err != nil && errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("%w: %w", ErrPersistTimeout, err)
	}
	return err
}
