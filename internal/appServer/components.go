package appServer

import (
	"context"
	"time"

	"github.com/ds124wfegd/coloringbook/config"
	"github.com/ds124wfegd/coloringbook/internal/database"
	"github.com/ds124wfegd/coloringbook/internal/database/redis"
	"github.com/ds124wfegd/coloringbook/internal/pkg/generator"
	"github.com/ds124wfegd/coloringbook/internal/pkg/kafka"
	"github.com/ds124wfegd/coloringbook/internal/pkg/metrics"
	"github.com/ds124wfegd/coloringbook/internal/pkg/normalizer"
	"github.com/ds124wfegd/coloringbook/internal/pkg/storage"
	"github.com/ds124wfegd/coloringbook/internal/service"

	goredis "github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// Components is everything the HTTP server and the processor share.
type Components struct {
	Service service.ConversionService
	Metrics *metrics.Collector

	producer    kafka.Producer
	redisClient *goredis.Client
}

func SetupLogging() {
	logrus.SetFormatter(&logrus.JSONFormatter{})
	logrus.SetLevel(logrus.InfoLevel)
}

// NewNormalizer builds the image normalizer from configuration.
func NewNormalizer(cfg *config.Config) *normalizer.Normalizer {
	return normalizer.New(normalizer.Options{
		MaxSize:     cfg.Normalizer.MaxSize,
		TempDir:     cfg.Normalizer.TempDir,
		TempQuality: cfg.Normalizer.TempQuality,
		Resampler:   cfg.Normalizer.Resampler,
	})
}

// NewConverter builds the conversion pipeline backed by the OpenAI images API.
func NewConverter(cfg *config.Config, n *normalizer.Normalizer) service.Converter {
	gen := generator.NewOpenAIGenerator(generator.OpenAIConfig{
		BaseURL: cfg.OpenAI.BaseURL,
		Model:   cfg.OpenAI.Model,
		Size:    cfg.OpenAI.Size,
		Timeout: cfg.OpenAI.Timeout,
	})

	return service.NewConverter(service.ConverterConfig{
		APIKeyEnv:      cfg.OpenAI.APIKeyEnv,
		PromptTemplate: cfg.App.PromptTemplate,
		Model:          cfg.OpenAI.Model,
		Size:           cfg.OpenAI.Size,
		OutputQuality:  cfg.App.OutputQuality,
	}, n, gen)
}

func NewComponents(cfg *config.Config) *Components {
	c := &Components{Metrics: metrics.NewCollector()}

	fileStorage := storage.NewFileStorage(cfg.Storage.BasePath)
	repo := database.NewConversionRepository(fileStorage)

	var cache redis.StatusCache = redis.NoopCache{}
	if cfg.Redis.Addr != "" {
		client := redis.NewClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := client.Ping(ctx).Err(); err != nil {
			logrus.WithError(err).Warn("Redis is unavailable, continuing without status cache")
			client.Close()
		} else {
			logrus.WithField("addr", cfg.Redis.Addr).Info("Redis status cache initialized")
			c.redisClient = client
			cache = redis.NewCacheRepository(client, cfg.Redis.TTL)
		}
	}

	c.producer = kafka.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.TaskTopic, cfg.Kafka.EventsTopic)

	n := NewNormalizer(cfg)
	c.Service = service.NewConversionService(
		repo,
		cache,
		c.producer,
		NewConverter(cfg, n),
		n,
		c.Metrics,
		service.Options{
			MaxUploadBytes: cfg.App.MaxUploadBytes,
			TaskTopic:      cfg.Kafka.TaskTopic,
			EventsTopic:    cfg.Kafka.EventsTopic,
		},
	)
	return c
}

func (c *Components) Close() {
	if err := c.producer.Close(); err != nil {
		logrus.WithError(err).Error("error closing kafka producer")
	}
	if c.redisClient != nil {
		if err := c.redisClient.Close(); err != nil {
			logrus.WithError(err).Error("error closing redis client")
		}
	}
}
