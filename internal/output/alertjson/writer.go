package alertjson

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"socdash/internal/logger"
	"socdash/pkg/models"
)

// Writer appends alerts to a JSON lines file, one alert per line.
type Writer struct {
	path    string
	file    *os.File
	encoder *json.Encoder
	written int
	mu      sync.Mutex
}

// NewWriter creates (or truncates) the alert file at path.
func NewWriter(path string) (*Writer, error) {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create alert output directory: %w", err)
		}
	}

	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create alert output file: %w", err)
	}

	logger.Debugf("Alert JSON writer initialized: %s", path)
	return &Writer{
		path:    path,
		file:    f,
		encoder: json.NewEncoder(f),
	}, nil
}

// WriteAlerts writes a batch of alerts.
func (w *Writer) WriteAlerts(alerts []models.Alert) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.file == nil {
		return fmt.Errorf("alert writer %s is closed", w.path)
	}
	for i := range alerts {
		if err := w.encoder.Encode(&alerts[i]); err != nil {
			return fmt.Errorf("encode alert %s: %w", alerts[i].ID, err)
		}
		w.written++
	}
	return nil
}

// Written returns the number of alerts written so far.
func (w *Writer) Written() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.written
}

// Close closes the output file. It is safe to call more than once.
func (w *Writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.file == nil {
		return nil
	}
	err := w.file.Close()
	w.file = nil
	return err
}
