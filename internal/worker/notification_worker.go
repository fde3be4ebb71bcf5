package worker

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk/internal/notify"
)

// DeliveryRecorder counts delivery outcomes.
type DeliveryRecorder interface {
	RecordNotification(outcome string)
}

// Options tunes the worker pool.
type Options struct {
	Workers     int
	QueueSize   int
	SendTimeout time.Duration
}

// NotificationWorker delivers notifications off the request path. Failures
// are logged and counted, never reported back to the enqueuer.
type NotificationWorker struct {
	notifier notify.Notifier
	logger   *zap.Logger
	recorder DeliveryRecorder
	opts     Options

	queue   chan notify.Notification
	wg      sync.WaitGroup
	mu      sync.RWMutex
	stopped bool
	started bool
}

// NewNotificationWorker builds a pool; call Start before Deliver.
func NewNotificationWorker(notifier notify.Notifier, logger *zap.Logger, recorder DeliveryRecorder, opts Options) *NotificationWorker {
	if opts.Workers <= 0 {
		opts.Workers = 1
	}
	if opts.QueueSize <= 0 {
		opts.QueueSize = 100
	}
	if opts.SendTimeout <= 0 {
		opts.SendTimeout = 10 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NotificationWorker{
		notifier: notifier,
		logger:   logger,
		recorder: recorder,
		opts:     opts,
		queue:    make(chan notify.Notification, opts.QueueSize),
	}
}

// Start launches the workers.
func (w *NotificationWorker) Start() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.started {
		return
	}
	w.started = true
	for i := 0; i < w.opts.Workers; i++ {
		w.wg.Add(1)
		go w.run()
	}
	w.logger.Info("notification worker started", zap.Int("workers", w.opts.Workers), zap.Int("queue_size", w.opts.QueueSize))
}

// Deliver enqueues n. A full queue or a stopped worker drops the message.
func (w *NotificationWorker) Deliver(_ context.Context, n notify.Notification) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	if w.stopped {
		w.logger.Warn("notification dropped: worker stopped", zap.String("recipient", n.Recipient))
		w.record("dropped")
		return
	}
	select {
	case w.queue <- n:
	default:
		w.logger.Warn("notification dropped: queue full", zap.String("recipient", n.Recipient), zap.String("subject", n.Subject))
		w.record("dropped")
	}
}

// Stop closes the queue and waits for queued messages to drain.
func (w *NotificationWorker) Stop() {
	w.mu.Lock()
	if w.stopped {
		w.mu.Unlock()
		return
	}
	w.stopped = true
	close(w.queue)
	w.mu.Unlock()
	w.wg.Wait()
}

func (w *NotificationWorker) run() {
	defer w.wg.Done()
	for n := range w.queue {
		w.send(n)
	}
}

func (w *NotificationWorker) send(n notify.Notification) {
	ctx, cancel := context.WithTimeout(context.Background(), w.opts.SendTimeout)
	defer cancel()

	if err := w.notifier.Send(ctx, n); err != nil {
		w.logger.Warn("notification delivery failed",
			zap.String("recipient", n.Recipient),
			zap.String("subject", n.Subject),
			zap.Error(err))
		w.record("failed")
		return
	}
	w.record("sent")
}

func (w *NotificationWorker) record(outcome string) {
	if w.recorder != nil {
		w.recorder.RecordNotification(outcome)
	}
}
