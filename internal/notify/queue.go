package notify

import (
	"context"
	"errors"
	"sync"

	"registrationportal/internal/ctxdata"
	"registrationportal/internal/errdefs"
	"registrationportal/internal/logging"
	"registrationportal/internal/metrics"
	"registrationportal/internal/model"

	"go.uber.org/zap"
)

var (
	ErrQueueFull   = errors.New("notification queue is full")
	ErrQueueClosed = errors.New("notification queue is closed")
)

// Dispatcher hands a persisted submission over for notification without
// waiting for delivery.
type Dispatcher interface {
	Dispatch(ctx context.Context, sub *model.Submission) error
	Close(ctx context.Context) error
}

type job struct {
	sub      *model.Submission
	traceID  string
	clientIP string
}

// Queue is the in-process Dispatcher: a bounded channel drained by a fixed
// set of workers.
type Queue struct {
	sender  Sender
	jobs    chan job
	logger  *logging.Logger
	metrics *metrics.Metrics

	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup
}

func NewQueue(sender Sender, workers, size int, m *metrics.Metrics, logger *logging.Logger) *Queue {
	if workers < 1 {
		workers = 1
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	q := &Queue{
		sender:  sender,
		jobs:    make(chan job, size),
		logger:  logger,
		metrics: m,
	}
	for w := 0; w < workers; w++ {
		q.wg.Add(1)
		go q.work()
	}
	return q
}

func (q *Queue) Dispatch(ctx context.Context, sub *model.Submission) error {
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		return &errdefs.NotificationError{Recipient: sub.Field("email"), Err: ErrQueueClosed}
	}

	j := job{sub: sub}
	j.traceID, _ = ctxdata.GetTraceID(ctx)
	j.clientIP, _ = ctxdata.GetClientIP(ctx)

	select {
	case q.jobs <- j:
		q.metrics.QueueDepth(len(q.jobs))
		return nil
	default:
		return &errdefs.NotificationError{Recipient: sub.Field("email"), Err: ErrQueueFull}
	}
}

// Close stops accepting work and waits for queued submissions to be sent, or
// for ctx to end.
func (q *Queue) Close(ctx context.Context) error {
	q.mu.Lock()
	if !q.closed {
		q.closed = true
		close(q.jobs)
	}
	q.mu.Unlock()

	done := make(chan struct{})
	go func() {
		q.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (q *Queue) work() {
	defer q.wg.Done()
	for j := range q.jobs {
		q.metrics.QueueDepth(len(q.jobs))

		ctx := context.Background()
		if j.traceID != "" {
			ctx = ctxdata.WithTraceID(ctx, j.traceID)
		}
		if j.clientIP != "" {
			ctx = ctxdata.WithClientIP(ctx, j.clientIP)
		}
		ctx = logging.ContextWithLogger(ctx, q.logger)

		if err := q.sender.Notify(ctx, j.sub); err != nil {
			q.logger.Warn(ctx, "notification incomplete", zap.String("submission_id", j.sub.ID), zap.Error(err))
		}
	}
}
