package async

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/fleetops-tracker/internal/common"
	"github.com/joseph-ayodele/fleetops-tracker/internal/ocr"
	"github.com/joseph-ayodele/fleetops-tracker/internal/pipeline"
)

type stubProcessor struct {
	mu   sync.Mutex
	seen []uuid.UUID
	fail uuid.UUID
}

func (s *stubProcessor) ProcessFile(_ context.Context, id uuid.UUID, _ ocr.ProgressFunc) (pipeline.Outcome, error) {
	s.mu.Lock()
	s.seen = append(s.seen, id)
	s.mu.Unlock()
	if id == s.fail {
		return pipeline.Outcome{FileID: id}, common.RecognitionEmptyError()
	}
	return pipeline.Outcome{FileID: id, JobID: uuid.New()}, nil
}

func TestProcessorQueue_DrainsOnShutdown(t *testing.T) {
	t.Parallel()
	proc := &stubProcessor{fail: uuid.New()}

	var (
		mu    sync.Mutex
		codes []string
	)
	q := NewProcessorQueue(proc, nil, WithWorkers(2), WithQueueSize(1),
		WithOnDone(func(_ Job, _ pipeline.Outcome, err error) {
			mu.Lock()
			codes = append(codes, common.ErrorCode(err))
			mu.Unlock()
		}))

	ids := []uuid.UUID{uuid.New(), proc.fail, uuid.New(), uuid.New()}
	for _, id := range ids {
		require.NoError(t, q.Enqueue(context.Background(), Job{FileID: id}))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	q.Shutdown(ctx)

	require.ElementsMatch(t, ids, proc.seen)
	require.ElementsMatch(t, []string{"", common.CodeRecognitionEmpty, "", ""}, codes)
	require.ErrorIs(t, q.Enqueue(context.Background(), Job{FileID: uuid.New()}), ErrQueueClosed)

	// second shutdown is a no-op
	q.Shutdown(ctx)
}

type blockingProcessor struct{ release chan struct{} }

func (b blockingProcessor) ProcessFile(context.Context, uuid.UUID, ocr.ProgressFunc) (pipeline.Outcome, error) {
	<-b.release
	return pipeline.Outcome{}, nil
}

func TestProcessorQueue_EnqueueRespectsContext(t *testing.T) {
	t.Parallel()
	proc := blockingProcessor{release: make(chan struct{})}
	q := NewProcessorQueue(proc, nil, WithWorkers(1), WithQueueSize(1))

	// one job held by the worker, one in the buffer
	require.NoError(t, q.Enqueue(context.Background(), Job{FileID: uuid.New()}))
	require.Eventually(t, func() bool { return len(q.ch) == 0 }, time.Second, time.Millisecond)
	require.NoError(t, q.Enqueue(context.Background(), Job{FileID: uuid.New()}))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	require.ErrorIs(t, q.Enqueue(ctx, Job{FileID: uuid.New()}), context.DeadlineExceeded)

	close(proc.release)
	q.Shutdown(context.Background())
}
