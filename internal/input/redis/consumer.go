package redis

import (
	"context"
	"fmt"

	redis "github.com/redis/go-redis/v9"

	"socdash/internal/transform/insights"
	"socdash/pkg/models"
)

// Config configures the Redis event source.
type Config struct {
	Addr      string
	Password  string
	DB        int
	Key       string
	BatchSize int64
}

// Source reads a snapshot of JSON events from a Redis list. The list is
// read with LRANGE and left untouched.
type Source struct {
	client *redis.Client
	key    string
	batch  int64
}

// NewSource creates a Redis list source.
func NewSource(cfg Config) (*Source, error) {
	if cfg.Addr == "" {
		cfg.Addr = "127.0.0.1:6379"
	}
	if cfg.Key == "" {
		return nil, fmt.Errorf("redis key is required")
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 500
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	return &Source{
		client: client,
		key:    cfg.Key,
		batch:  cfg.BatchSize,
	}, nil
}

// ReadAll reads every list element in order. Payloads that fail to parse
// are returned as per-row failures, numbered from 1.
func (s *Source) ReadAll(ctx context.Context) ([]models.Event, []error, error) {
	var events []models.Event
	var failures []error

	for start := int64(0); ; start += s.batch {
		items, err := s.client.LRange(ctx, s.key, start, start+s.batch-1).Result()
		if err != nil {
			return nil, nil, fmt.Errorf("read redis list %s: %w", s.key, err)
		}
		for i, item := range items {
			ev, err := insights.Parse([]byte(item), int(start)+i+1)
			if err != nil {
				failures = append(failures, err)
				continue
			}
			events = append(events, ev)
		}
		if int64(len(items)) < s.batch {
			break
		}
	}
	return events, failures, nil
}

// Close closes the client.
func (s *Source) Close() error {
	return s.client.Close()
}
