package history

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"crashround/internal/yamlfile"
)

type crashFile struct {
	Crashes []float64 `yaml:"crashes"`
}

// FileBackend keeps the crash log in a YAML document ("crashdata.yml").
type FileBackend struct {
	mu   sync.Mutex
	path string
}

func NewFileBackend(dir string) (*FileBackend, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating data dir: %w", err)
	}
	return &FileBackend{path: filepath.Join(dir, "crashdata.yml")}, nil
}

func (f *FileBackend) Path() string {
	return f.path
}

func (f *FileBackend) Load(_ context.Context, limit int) ([]float64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	entries, err := f.read()
	if err != nil {
		return nil, err
	}
	return tail(entries, limit), nil
}

func (f *FileBackend) Append(_ context.Context, multiplier float64, limit int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	entries, err := f.read()
	if err != nil {
		return err
	}
	return f.write(tail(append(entries, multiplier), limit))
}

func (f *FileBackend) Trim(_ context.Context, limit int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	entries, err := f.read()
	if err != nil {
		return err
	}
	if len(entries) <= limit {
		return nil
	}
	return f.write(tail(entries, limit))
}

func (f *FileBackend) read() ([]float64, error) {
	var doc crashFile
	if err := yamlfile.Load(f.path, &doc); err != nil {
		return nil, err
	}
	return doc.Crashes, nil
}

func (f *FileBackend) write(entries []float64) error {
	return yamlfile.Save(f.path, crashFile{Crashes: entries})
}

func tail(entries []float64, limit int) []float64 {
	if limit > 0 && len(entries) > limit {
		return entries[len(entries)-limit:]
	}
	return entries
}
