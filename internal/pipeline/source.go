package pipeline

import (
	"context"
	"fmt"

	"socdash/config"
	"socdash/internal/dataset"
	inputredis "socdash/internal/input/redis"
	"socdash/pkg/models"
)

// Source yields a snapshot of raw events plus per-row failures.
type Source interface {
	ReadAll(ctx context.Context) ([]models.Event, []error, error)
	Close() error
}

// FileSource reads a CSV event log from disk.
type FileSource struct {
	Path string
}

// ReadAll parses the file.
func (s *FileSource) ReadAll(ctx context.Context) ([]models.Event, []error, error) {
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}
	return dataset.ReadCSVFile(s.Path)
}

// Close is a no-op.
func (s *FileSource) Close() error {
	return nil
}

// NewSource builds the source selected by the input config. The returned
// name labels the loaded-events metric.
func NewSource(cfg config.InputConfig) (Source, string, error) {
	switch cfg.Mode {
	case config.InputModeFile, "":
		if cfg.File.Path == "" {
			return nil, "", fmt.Errorf("input file path is required")
		}
		return &FileSource{Path: cfg.File.Path}, config.InputModeFile, nil
	case config.InputModeRedis:
		src, err := inputredis.NewSource(inputredis.Config{
			Addr:      cfg.Redis.Addr,
			Password:  cfg.Redis.Password,
			DB:        cfg.Redis.DB,
			Key:       cfg.Redis.Key,
			BatchSize: cfg.Redis.Batch,
		})
		if err != nil {
			return nil, "", fmt.Errorf("create redis source: %w", err)
		}
		return src, config.InputModeRedis, nil
	default:
		return nil, "", fmt.Errorf("unsupported input mode %q", cfg.Mode)
	}
}
