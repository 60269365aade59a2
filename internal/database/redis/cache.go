package redis

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/ds124wfegd/coloringbook/internal/entity"

	"github.com/redis/go-redis/v9"
)

// StatusCache keeps recent conversion records close to the API so status
// polling does not hit the metadata files.
type StatusCache interface {
	SetConversion(ctx context.Context, conversion *entity.Conversion) error
	GetConversion(ctx context.Context, id string) (*entity.Conversion, error)
	DeleteConversion(ctx context.Context, id string) error
}

// ErrCacheMiss is returned by GetConversion when nothing is cached.
var ErrCacheMiss = errors.New("cache miss")

type CacheRepository struct {
	client *redis.Client
	ttl    time.Duration
}

func NewCacheRepository(client *redis.Client, ttl time.Duration) *CacheRepository {
	return &CacheRepository{
		client: client,
		ttl:    ttl,
	}
}

func NewClient(addr, password string, db int) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
}

func (r *CacheRepository) SetConversion(ctx context.Context, conversion *entity.Conversion) error {
	data, err := json.Marshal(conversion)
	if err != nil {
		return err
	}

	return r.client.Set(ctx, key(conversion.ID), data, r.ttl).Err()
}

func (r *CacheRepository) GetConversion(ctx context.Context, id string) (*entity.Conversion, error) {
	data, err := r.client.Get(ctx, key(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrCacheMiss
		}
		return nil, err
	}

	var conversion entity.Conversion
	if err := json.Unmarshal(data, &conversion); err != nil {
		return nil, err
	}

	return &conversion, nil
}

func (r *CacheRepository) DeleteConversion(ctx context.Context, id string) error {
	return r.client.Del(ctx, key(id)).Err()
}

func key(id string) string {
	return "conversion:" + id
}

// NoopCache is used when Redis is not configured.
type NoopCache struct{}

func (NoopCache) SetConversion(context.Context, *entity.Conversion) error { return nil }

func (NoopCache) GetConversion(context.Context, string) (*entity.Conversion, error) {
	return nil, ErrCacheMiss
}

func (NoopCache) DeleteConversion(context.Context, string) error { return nil }
