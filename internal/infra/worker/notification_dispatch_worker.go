package worker

import (
	"context"
	"time"

	"go.uber.org/zap"
)

type Dispatcher interface {
	DispatchDue(ctx context.Context) (int, error)
}

// NotificationDispatchWorker periodically hands due job notifications to
// the delivery queue. It does no scheduling of its own.
type NotificationDispatchWorker struct {
	dispatcher   Dispatcher
	tickInterval time.Duration
	logger       *zap.Logger
}

func NewNotificationDispatchWorker(d Dispatcher, interval time.Duration, logger *zap.Logger) *NotificationDispatchWorker {
	if interval <= 0 {
		interval = time.Minute
	}
	return &NotificationDispatchWorker{
		dispatcher:   d,
		tickInterval: interval,
		logger:       logger,
	}
}

func (w *NotificationDispatchWorker) Start(ctx context.Context) {
	w.logger.Info("notification dispatch worker started", zap.Duration("interval", w.tickInterval))

	ticker := time.NewTicker(w.tickInterval)
	defer ticker.Stop()

	w.runOnce(ctx)

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("notification dispatch worker stopped")
			return
		case <-ticker.C:
			w.runOnce(ctx)
		}
	}
}

func (w *NotificationDispatchWorker) runOnce(ctx context.Context) {
	if _, err := w.dispatcher.DispatchDue(ctx); err != nil {
		w.logger.Error("notification dispatch failed", zap.Error(err))
	}
}
