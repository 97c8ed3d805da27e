package worker_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/hibiken/asynq"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/WizardWorks-AntagningsProv/QuarterSpiralUI/internal/domain"
	redisstate "github.com/WizardWorks-AntagningsProv/QuarterSpiralUI/internal/infra/state/redis"
	"github.com/WizardWorks-AntagningsProv/QuarterSpiralUI/internal/repository/mocks"
	"github.com/WizardWorks-AntagningsProv/QuarterSpiralUI/internal/service"
	"github.com/WizardWorks-AntagningsProv/QuarterSpiralUI/internal/tasks"
	"github.com/WizardWorks-AntagningsProv/QuarterSpiralUI/internal/worker"
)

type fakeEnqueuer struct {
	tasks []*asynq.Task
	opts  [][]asynq.Option
	err   error
}

func (f *fakeEnqueuer) EnqueueContext(_ context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.tasks = append(f.tasks, task)
	f.opts = append(f.opts, opts)
	return &asynq.TaskInfo{ID: "t1", Queue: worker.QueueGrid, Type: task.Type()}, nil
}

func TestGridReplaceHandler_ReplacesCells(t *testing.T) {
	repo := mocks.NewCellRepository(t)
	cells := []domain.Cell{{Row: 0, Col: 0, Color: "#F25022"}}
	repo.On("ReplaceAll", mock.Anything, cells).Return(nil).Once()

	task, err := tasks.NewGridReplaceTask(tasks.GridReplacePayload{Cells: cells})
	require.NoError(t, err)

	err = worker.NewGridReplaceHandler(repo).ProcessTask(context.Background(), task)
	assert.NoError(t, err)
}

func TestGridReplaceHandler_BadPayloadSkipsRetry(t *testing.T) {
	repo := mocks.NewCellRepository(t)

	err := worker.NewGridReplaceHandler(repo).ProcessTask(context.Background(), asynq.NewTask(tasks.TypeGridReplace, []byte("{")))

	assert.ErrorIs(t, err, asynq.SkipRetry)
	repo.AssertNotCalled(t, "ReplaceAll", mock.Anything, mock.Anything)
}

func TestGridReplaceHandler_RepositoryFailureRetries(t *testing.T) {
	repo := mocks.NewCellRepository(t)
	boom := errors.New("db down")
	repo.On("ReplaceAll", mock.Anything, []domain.Cell{}).Return(boom).Once()

	task, err := tasks.NewGridReplaceTask(tasks.GridReplacePayload{})
	require.NoError(t, err)

	err = worker.NewGridReplaceHandler(repo).ProcessTask(context.Background(), task)
	assert.ErrorIs(t, err, boom)
	assert.NotErrorIs(t, err, asynq.SkipRetry)
}

func TestWorkerServer_MuxRoutesGridReplace(t *testing.T) {
	repo := mocks.NewCellRepository(t)
	repo.On("ReplaceAll", mock.Anything, []domain.Cell{}).Return(nil).Once()

	ws := worker.NewWorkerServer(asynq.RedisClientOpt{Addr: "127.0.0.1:0"}, repo, logrus.New())
	task, err := tasks.NewGridReplaceTask(tasks.GridReplacePayload{})
	require.NoError(t, err)

	assert.NoError(t, ws.Mux().ProcessTask(context.Background(), task))
}

func TestAsynqWriter_Submit(t *testing.T) {
	enq := &fakeEnqueuer{}
	w := worker.NewAsynqWriter(enq, 3, 5*time.Second)

	require.NoError(t, w.Submit(context.Background(), service.GridWrite{}))

	require.Len(t, enq.tasks, 1)
	assert.Equal(t, tasks.TypeGridReplace, enq.tasks[0].Type())
	assert.JSONEq(t, `{"cells":[]}`, string(enq.tasks[0].Payload()))
	assert.Len(t, enq.opts[0], 3)
}

func TestAsynqWriter_EnqueueFailure(t *testing.T) {
	boom := errors.New("redis gone")
	w := worker.NewAsynqWriter(&fakeEnqueuer{err: boom}, 3, 0)

	err := w.Submit(context.Background(), service.GridWrite{Cells: []domain.Cell{}})
	assert.ErrorIs(t, err, boom)
}

func TestAsynqWriter_FencedWriteCarriesRevision(t *testing.T) {
	enq := &fakeEnqueuer{}
	w := worker.NewAsynqWriter(enq, 0, 0)

	require.NoError(t, w.Submit(context.Background(), service.GridWrite{Cells: []domain.Cell{}, Revision: 4, Fenced: true}))

	require.Len(t, enq.tasks, 1)
	assert.JSONEq(t, `{"cells":[],"revision":4}`, string(enq.tasks[0].Payload()))
}

func newRedisRepo(t *testing.T) *redisstate.RedisCellRepository {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return redisstate.NewRedisCellRepository(client, "worker:")
}

func TestGridReplaceHandler_StaleRevisionIsSkipped(t *testing.T) {
	repo := newRedisRepo(t)
	ctx := context.Background()
	kept := []domain.Cell{{Row: 0, Col: 0, Color: "#F25022"}}
	require.NoError(t, repo.ReplaceAll(ctx, kept))
	require.NoError(t, repo.ReplaceAll(ctx, kept))

	stale := int64(1)
	task, err := tasks.NewGridReplaceTask(tasks.GridReplacePayload{Revision: &stale})
	require.NoError(t, err)

	require.NoError(t, worker.NewGridReplaceHandler(repo).ProcessTask(ctx, task))

	got, err := repo.FetchAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, kept, got)
}

func TestGridReplaceHandler_CurrentRevisionApplies(t *testing.T) {
	repo := newRedisRepo(t)
	ctx := context.Background()
	require.NoError(t, repo.ReplaceAll(ctx, []domain.Cell{{Row: 0, Col: 0, Color: "#F25022"}}))

	current := int64(1)
	task, err := tasks.NewGridReplaceTask(tasks.GridReplacePayload{Revision: &current})
	require.NoError(t, err)

	require.NoError(t, worker.NewGridReplaceHandler(repo).ProcessTask(ctx, task))

	got, err := repo.FetchAll(ctx)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestAsynqWriter_RetriedClearKeepsLaterCells(t *testing.T) {
	repo := newRedisRepo(t)
	enq := &fakeEnqueuer{}
	store := service.NewGridStore(repo, service.WithAsyncWriter(worker.NewAsynqWriter(enq, 0, time.Second)))
	ws := worker.NewWorkerServer(asynq.RedisClientOpt{Addr: "127.0.0.1:0"}, repo, logrus.New())
	ctx := context.Background()

	require.NoError(t, store.Load(ctx))
	store.Clear(ctx)
	for i := 0; i < 3; i++ {
		_, added, err := store.AddCell(ctx)
		require.NoError(t, err)
		require.True(t, added)
	}
	require.Len(t, enq.tasks, 1)

	// the queued clear runs late, then again as a retry would
	require.NoError(t, ws.Mux().ProcessTask(ctx, enq.tasks[0]))
	require.NoError(t, ws.Mux().ProcessTask(ctx, enq.tasks[0]))

	persisted, err := repo.FetchAll(ctx)
	require.NoError(t, err)
	assert.Len(t, persisted, 3)
	assert.Equal(t, store.State().Cells, persisted)
}
