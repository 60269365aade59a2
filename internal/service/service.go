package service

import (
	"context"
	"io"
	"time"

	"github.com/ds124wfegd/coloringbook/internal/database"
	"github.com/ds124wfegd/coloringbook/internal/database/redis"
	"github.com/ds124wfegd/coloringbook/internal/entity"
	"github.com/ds124wfegd/coloringbook/internal/pkg/kafka"
	"github.com/ds124wfegd/coloringbook/internal/pkg/metrics"
	"github.com/ds124wfegd/coloringbook/internal/pkg/normalizer"
)

type ConvertRequest struct {
	ImagePath string
	// OutputPath defaults to DefaultOutputPath(ImagePath).
	OutputPath string
	// MaxSize of zero uses the normalizer's configured bound.
	MaxSize int
	Theme   string
	Rotate  int
}

// Converter turns one image file into a coloring book page and returns
// the path it was written to.
type Converter interface {
	Convert(ctx context.Context, req ConvertRequest) (string, error)
}

type Upload struct {
	Filename string
	Size     int64
	Body     io.Reader
	Theme    string
	Rotate   int
	Async    bool
}

type ConversionService interface {
	Submit(ctx context.Context, upload *Upload) (*entity.Conversion, error)
	Process(ctx context.Context, task entity.ConversionTask) (*entity.Conversion, error)
	GetConversion(ctx context.Context, id string) (*entity.Conversion, error)
	OpenResult(ctx context.Context, id string) (io.ReadCloser, *entity.Conversion, error)
	DeleteConversion(ctx context.Context, id string) error
	CleanupExpired(ctx context.Context, ttl time.Duration) (int, error)
}

type Options struct {
	MaxUploadBytes int64
	TaskTopic      string
	EventsTopic    string
}

const DefaultMaxUploadBytes = 10 << 20

type conversionService struct {
	repo       database.ConversionRepository
	cache      redis.StatusCache
	producer   kafka.Producer
	converter  Converter
	normalizer *normalizer.Normalizer
	metrics    *metrics.Collector
	opts       Options
	now        func() time.Time
}

func NewConversionService(
	repo database.ConversionRepository,
	cache redis.StatusCache,
	producer kafka.Producer,
	converter Converter,
	n *normalizer.Normalizer,
	m *metrics.Collector,
	opts Options,
) ConversionService {
	if cache == nil {
		cache = redis.NoopCache{}
	}
	if producer == nil {
		producer = kafka.NewProducer(nil)
	}
	if m == nil {
		m = metrics.NewCollector()
	}
	if opts.MaxUploadBytes <= 0 {
		opts.MaxUploadBytes = DefaultMaxUploadBytes
	}
	return &conversionService{
		repo:       repo,
		cache:      cache,
		producer:   producer,
		converter:  converter,
		normalizer: n,
		metrics:    m,
		opts:       opts,
		now:        time.Now,
	}
}
