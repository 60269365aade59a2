package worker

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
)

// Cleaner removes conversions older than ttl and reports how many.
type Cleaner interface {
	CleanupExpired(ctx context.Context, ttl time.Duration) (int, error)
}

type ConversionCleanupWorker struct {
	cleaner  Cleaner
	interval time.Duration
	ttl      time.Duration
}

func NewConversionCleanupWorker(cleaner Cleaner, interval, ttl time.Duration) *ConversionCleanupWorker {
	return &ConversionCleanupWorker{
		cleaner:  cleaner,
		interval: interval,
		ttl:      ttl,
	}
}

// Start blocks until ctx is cancelled. A non-positive interval or ttl
// disables the worker.
func (w *ConversionCleanupWorker) Start(ctx context.Context) {
	if w.interval <= 0 || w.ttl <= 0 {
		logrus.Info("Conversion cleanup worker disabled")
		return
	}

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	logrus.WithFields(logrus.Fields{
		"interval": w.interval.String(),
		"ttl":      w.ttl.String(),
	}).Info("Conversion cleanup worker started")

	for {
		select {
		case <-ctx.Done():
			logrus.Info("Conversion cleanup worker stopped")
			return
		case <-ticker.C:
			w.cleanupExpiredConversions(ctx)
		}
	}
}

func (w *ConversionCleanupWorker) cleanupExpiredConversions(ctx context.Context) {
	removed, err := w.cleaner.CleanupExpired(ctx, w.ttl)
	if err != nil {
		logrus.WithError(err).WithField("removed", removed).Error("Failed to clean up expired conversions")
		return
	}

	if removed == 0 {
		logrus.Debug("No expired conversions found for cleanup")
		return
	}
	logrus.Infof("Expired conversions cleanup completed: %d removed", removed)
}
