package sink

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
)

// ErrUnknownStream is returned when appending to a stream that was not configured.
var ErrUnknownStream = errors.New("unknown stream")

// JSONL appends records to per-stream JSONL files. Files are opened lazily on
// first append. Safe for concurrent use.
type JSONL struct {
	mu    sync.Mutex
	paths map[string]string
	files map[string]*os.File
}

// NewJSONL maps stream names to file paths.
func NewJSONL(streams map[string]string) (*JSONL, error) {
	if len(streams) == 0 {
		return nil, errors.New("sink: no streams configured")
	}
	paths := make(map[string]string, len(streams))
	for name, path := range streams {
		if name == "" || path == "" {
			return nil, fmt.Errorf("sink: stream %q needs a name and a path", name)
		}
		paths[name] = path
	}
	return &JSONL{paths: paths, files: make(map[string]*os.File)}, nil
}

// Append writes record as one JSON line to stream.
func (s *JSONL) Append(ctx context.Context, stream string, record any) error {
	if ctx != nil {
		if err := ctx.Err(); err != nil {
			return err
		}
	}
	line, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("encode %s record: %w", stream, err)
	}
	line = append(line, '\n')

	s.mu.Lock()
	defer s.mu.Unlock()

	file, err := s.open(stream)
	if err != nil {
		return err
	}
	if _, err := file.Write(line); err != nil {
		return fmt.Errorf("write %s: %w", file.Name(), err)
	}
	return nil
}

func (s *JSONL) open(stream string) (*os.File, error) {
	if file, ok := s.files[stream]; ok {
		return file, nil
	}
	path, ok := s.paths[stream]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownStream, stream)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create directory for %s: %w", path, err)
	}
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	s.files[stream] = file
	return file, nil
}

// Path returns the file backing stream.
func (s *JSONL) Path(stream string) string {
	return s.paths[stream]
}

// Streams lists the configured stream names in sorted order.
func (s *JSONL) Streams() []string {
	names := make([]string, 0, len(s.paths))
	for name := range s.paths {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Close syncs and closes every open file.
func (s *JSONL) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var errs []error
	for stream, file := range s.files {
		if err := file.Sync(); err != nil {
			errs = append(errs, fmt.Errorf("sync %s: %w", stream, err))
		}
		if err := file.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close %s: %w", stream, err))
		}
		delete(s.files, stream)
	}
	return errors.Join(errs...)
}
