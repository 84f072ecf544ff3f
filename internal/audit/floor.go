package audit

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// Floor is the local durability layer every event hits before any remote
// delivery is attempted.
type Floor interface {
	Append(event Event) error
}

// FileFloor appends events as one JSON object per line.
type FileFloor struct {
	mu   sync.Mutex
	path string
}

var _ Floor = (*FileFloor)(nil)

// NewFileFloor creates the log's parent directory if needed.
func NewFileFloor(path string) (*FileFloor, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create audit log directory: %w", err)
	}
	return &FileFloor{path: path}, nil
}

func (f *FileFloor) Append(event Event) error {
	line, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("serialize audit event: %w", err)
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	file, err := os.OpenFile(f.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open audit log: %w", err)
	}
	defer file.Close()

	if _, err := file.Write(append(line, '\n')); err != nil {
		return fmt.Errorf("write audit log: %w", err)
	}
	return nil
}

// NopFloor discards events; used when local fallback is disabled.
type NopFloor struct{}

var _ Floor = NopFloor{}

func (NopFloor) Append(Event) error { return nil }
