package stats

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"crashround/internal/yamlfile"
)

// FileBackend keeps the ledger in a YAML document ("stats.yml") with a
// players map and a server section.
type FileBackend struct {
	mu   sync.Mutex
	path string
}

func NewFileBackend(dir string) (*FileBackend, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating data dir: %w", err)
	}
	return &FileBackend{path: filepath.Join(dir, "stats.yml")}, nil
}

func (f *FileBackend) Path() string {
	return f.path
}

func (f *FileBackend) Load(_ context.Context) (Snapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.read()
}

func (f *FileBackend) Save(_ context.Context, participantID string, player, server Record) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	snap, err := f.read()
	if err != nil {
		return err
	}
	snap.Players[participantID] = player
	snap.Server = server
	return yamlfile.Save(f.path, snap)
}

func (f *FileBackend) read() (Snapshot, error) {
	var snap Snapshot
	if err := yamlfile.Load(f.path, &snap); err != nil {
		return Snapshot{Players: make(map[string]Record)}, err
	}
	if snap.Players == nil {
		snap.Players = make(map[string]Record)
	}
	return snap, nil
}
