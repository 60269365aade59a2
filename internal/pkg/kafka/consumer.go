package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/ds124wfegd/coloringbook/internal/entity"
	"github.com/segmentio/kafka-go"
	"github.com/sirupsen/logrus"
)

type ConsumerConfig struct {
	Brokers []string
	Topic   string
	GroupID string
	// Workers bounds how many tasks are processed at once.
	Workers int
}

// TaskHandler runs one conversion task.
type TaskHandler func(ctx context.Context, task entity.ConversionTask) error

// StartTaskConsumer reads conversion tasks until ctx is cancelled and hands
// each to handle. It waits for in-flight tasks before returning.
func StartTaskConsumer(ctx context.Context, cfg ConsumerConfig, handle TaskHandler) error {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:        cfg.Brokers,
		Topic:          cfg.Topic,
		GroupID:        cfg.GroupID,
		MinBytes:       1,
		MaxBytes:       10e6, // 10MB
		CommitInterval: time.Second,
		StartOffset:    kafka.FirstOffset,
	})
	defer reader.Close()

	workers := cfg.Workers
	if workers <= 0 {
		workers = 1
	}
	sem := make(chan struct{}, workers)
	var wg sync.WaitGroup
	defer wg.Wait()

	logrus.WithFields(logrus.Fields{
		"brokers": cfg.Brokers,
		"topic":   cfg.Topic,
		"group":   cfg.GroupID,
		"workers": workers,
	}).Info("conversion task consumer started")

	for {
		msg, err := reader.ReadMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) || ctx.Err() != nil {
				logrus.Info("conversion task consumer stopped")
				return nil
			}
			logrus.WithError(err).Error("error reading message from kafka")
			continue
		}

		logrus.WithFields(logrus.Fields{
			"topic":     msg.Topic,
			"partition": msg.Partition,
			"offset":    msg.Offset,
		}).Debug("received message")

		task, err := DecodeTask(msg.Value)
		if err != nil {
			logrus.WithError(err).Error("failed to parse task")
			continue
		}

		select {
		case sem <- struct{}{}:
		case <-ctx.Done():
			return nil
		}

		wg.Add(1)
		go func(t entity.ConversionTask) {
			defer wg.Done()
			defer func() { <-sem }()

			log := logrus.WithField("conversion_id", t.ConversionID)
			if err := handle(ctx, t); err != nil {
				log.WithError(err).Error("conversion task failed")
				return
			}
			log.Info("conversion task processed")
		}(task)
	}
}

// DecodeTask parses a task payload and rejects tasks without an ID.
func DecodeTask(value []byte) (entity.ConversionTask, error) {
	var task entity.ConversionTask
	if err := json.Unmarshal(value, &task); err != nil {
		return task, err
	}
	if task.ConversionID == "" {
		return task, errors.New("task has no conversion id")
	}
	return task, nil
}
