package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"time"

	"github.com/ds124wfegd/coloringbook/internal/database/redis"
	"github.com/ds124wfegd/coloringbook/internal/entity"
	"github.com/ds124wfegd/coloringbook/internal/pkg/kafka"
	"github.com/ds124wfegd/coloringbook/internal/pkg/normalizer"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Submit stores the upload and converts it, either right away or through
// the task topic when the caller asked for async and Kafka is reachable.
func (s *conversionService) Submit(ctx context.Context, u *Upload) (*entity.Conversion, error) {
	if u.Size > s.opts.MaxUploadBytes {
		return nil, fmt.Errorf("%w: %d bytes", entity.ErrTooLarge, u.Size)
	}
	if !normalizer.ValidateImageFormat(u.Filename) {
		return nil, fmt.Errorf("%w: %q", entity.ErrUnsupportedFormat, filepath.Ext(u.Filename))
	}

	data, err := io.ReadAll(io.LimitReader(u.Body, s.opts.MaxUploadBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read upload: %w", err)
	}
	if int64(len(data)) > s.opts.MaxUploadBytes {
		return nil, fmt.Errorf("%w: more than %d bytes", entity.ErrTooLarge, s.opts.MaxUploadBytes)
	}
	s.metrics.RecordUpload(int64(len(data)))

	if _, err := s.normalizer.LoadBytes(u.Filename, data); err != nil {
		return nil, err
	}

	now := s.now().UTC()
	conversion := &entity.Conversion{
		ID:           uuid.NewString(),
		Status:       entity.StatusPending,
		Theme:        u.Theme,
		Rotate:       u.Rotate,
		OriginalName: filepath.Base(u.Filename),
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.repo.SaveOriginal(conversion.ID, conversion.OriginalName, bytes.NewReader(data)); err != nil {
		return nil, fmt.Errorf("save original: %w", err)
	}
	if err := s.repo.Save(conversion); err != nil {
		return nil, fmt.Errorf("save conversion: %w", err)
	}
	s.cacheConversion(ctx, conversion)

	task := entity.ConversionTask{
		ConversionID: conversion.ID,
		Theme:        conversion.Theme,
		Rotate:       conversion.Rotate,
	}

	log := logrus.WithFields(logrus.Fields{
		"conversion_id": conversion.ID,
		"file":          conversion.OriginalName,
		"size":          len(data),
	})

	if u.Async && !kafka.IsMock(s.producer) {
		if err := s.producer.SendMessage(ctx, s.opts.TaskTopic, conversion.ID, task); err != nil {
			return conversion, fmt.Errorf("enqueue conversion: %w", err)
		}
		log.Info("conversion queued")
		return conversion, nil
	}
	if u.Async {
		log.Warn("async conversion requested but kafka is unavailable, converting inline")
	}

	return s.Process(ctx, task)
}

// Process runs the conversion for a stored upload and records the outcome.
// The returned record is non-nil whenever the conversion was found.
func (s *conversionService) Process(ctx context.Context, task entity.ConversionTask) (*entity.Conversion, error) {
	conversion, err := s.repo.FindByID(task.ConversionID)
	if err != nil {
		return nil, err
	}

	conversion.Status = entity.StatusProcessing
	conversion.UpdatedAt = s.now().UTC()
	if err := s.repo.Save(conversion); err != nil {
		return nil, fmt.Errorf("save conversion: %w", err)
	}
	s.cacheConversion(ctx, conversion)

	start := time.Now()
	done := s.metrics.ConversionStarted()
	out, convErr := s.converter.Convert(ctx, ConvertRequest{
		ImagePath:  s.repo.OriginalPath(conversion.ID, conversion.OriginalName),
		OutputPath: s.repo.ResultPath(conversion.ID),
		Theme:      task.Theme,
		Rotate:     task.Rotate,
	})
	done(convErr)
	duration := time.Since(start)

	if convErr != nil {
		conversion.Status = entity.StatusFailed
		conversion.ErrorKind = entity.KindOf(convErr)
		conversion.Error = convErr.Error()
	} else {
		conversion.Status = entity.StatusCompleted
		conversion.ResultPath = out
		conversion.ErrorKind = entity.KindNone
		conversion.Error = ""
	}
	conversion.UpdatedAt = s.now().UTC()

	if err := s.repo.Save(conversion); err != nil {
		logrus.WithError(err).WithField("conversion_id", conversion.ID).Error("failed to save conversion result")
		if convErr == nil {
			convErr = fmt.Errorf("save conversion: %w", err)
		}
	}
	s.cacheConversion(ctx, conversion)
	s.publishEvent(ctx, conversion, duration)

	logrus.WithFields(logrus.Fields{
		"conversion_id": conversion.ID,
		"status":        conversion.Status,
		"error_kind":    conversion.ErrorKind,
		"duration":      duration,
	}).Info("conversion processed")

	return conversion, convErr
}

func (s *conversionService) GetConversion(ctx context.Context, id string) (*entity.Conversion, error) {
	cached, err := s.cache.GetConversion(ctx, id)
	if err == nil {
		return cached, nil
	}
	if !errors.Is(err, redis.ErrCacheMiss) {
		logrus.WithError(err).WithField("conversion_id", id).Warn("status cache read failed")
	}

	conversion, err := s.repo.FindByID(id)
	if err != nil {
		return nil, err
	}
	s.cacheConversion(ctx, conversion)
	return conversion, nil
}

func (s *conversionService) OpenResult(ctx context.Context, id string) (io.ReadCloser, *entity.Conversion, error) {
	conversion, err := s.GetConversion(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	if conversion.Status != entity.StatusCompleted {
		return nil, conversion, entity.ErrResultNotReady
	}

	rc, err := s.repo.OpenResult(id)
	if err != nil {
		return nil, conversion, err
	}
	return rc, conversion, nil
}

func (s *conversionService) DeleteConversion(ctx context.Context, id string) error {
	if err := s.repo.Delete(id); err != nil {
		return err
	}
	if err := s.cache.DeleteConversion(ctx, id); err != nil {
		logrus.WithError(err).WithField("conversion_id", id).Warn("status cache delete failed")
	}
	logrus.WithField("conversion_id", id).Info("conversion deleted")
	return nil
}

// CleanupExpired deletes finished conversions not updated within ttl and
// returns how many were removed. Conversions still processing are kept.
func (s *conversionService) CleanupExpired(ctx context.Context, ttl time.Duration) (int, error) {
	conversions, err := s.repo.List()
	if err != nil {
		return 0, err
	}

	cutoff := s.now().UTC().Add(-ttl)
	removed := 0
	for _, c := range conversions {
		if err := ctx.Err(); err != nil {
			return removed, err
		}
		if c.Status == entity.StatusProcessing || !c.UpdatedAt.Before(cutoff) {
			continue
		}
		if err := s.DeleteConversion(ctx, c.ID); err != nil {
			if errors.Is(err, entity.ErrConversionNotFound) {
				continue
			}
			return removed, err
		}
		removed++
	}
	return removed, nil
}

func (s *conversionService) cacheConversion(ctx context.Context, c *entity.Conversion) {
	if err := s.cache.SetConversion(ctx, c); err != nil {
		logrus.WithError(err).WithField("conversion_id", c.ID).Warn("status cache write failed")
	}
}

func (s *conversionService) publishEvent(ctx context.Context, c *entity.Conversion, d time.Duration) {
	if s.opts.EventsTopic == "" {
		return
	}
	event := entity.ConversionEvent{
		ConversionID: c.ID,
		Status:       c.Status,
		ErrorKind:    c.ErrorKind,
		Duration:     d,
		Timestamp:    s.now().UTC(),
	}
	if err := s.producer.SendMessage(ctx, s.opts.EventsTopic, c.ID, event); err != nil {
		logrus.WithError(err).WithField("conversion_id", c.ID).Warn("failed to publish conversion event")
	}
}
