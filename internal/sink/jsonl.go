package sink

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"
)

// JSONLSink appends one JSON object per line to a file.
//
// Thread-safe: Write serializes access to the file.
type JSONLSink struct {
	mu     sync.Mutex
	f      *os.File
	w      *bufio.Writer
	closed bool
}

// OpenJSONL opens (or creates) path for appending.
func OpenJSONL(path string) (*JSONLSink, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open lineage log: %w", err)
	}
	return &JSONLSink{f: f, w: bufio.NewWriter(f)}, nil
}

// Write appends the event and flushes it to the file.
func (s *JSONLSink) Write(_ context.Context, event *Event) error {
	line, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event %d: %w", event.ID, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return fmt.Errorf("jsonl sink is closed")
	}
	if _, err := s.w.Write(append(line, '\n')); err != nil {
		return fmt.Errorf("write event %d: %w", event.ID, err)
	}
	return s.w.Flush()
}

// Close flushes and closes the file.
func (s *JSONLSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	if err := s.w.Flush(); err != nil {
		s.f.Close()
		return fmt.Errorf("flush lineage log: %w", err)
	}
	return s.f.Close()
}

// Name returns the sink identifier.
func (s *JSONLSink) Name() string {
	return "jsonl"
}

// ReadJSONL decodes every event in r. Blank lines are skipped.
func ReadJSONL(r io.Reader) ([]*Event, error) {
	var events []*Event
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	line := 0
	for sc.Scan() {
		line++
		b := sc.Bytes()
		if len(b) == 0 {
			continue
		}
		var ev Event
		if err := json.Unmarshal(b, &ev); err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		events = append(events, &ev)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read lineage log: %w", err)
	}
	return events, nil
}

// ReadJSONLFile opens path and decodes it with ReadJSONL.
func ReadJSONLFile(path string) ([]*Event, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open lineage log: %w", err)
	}
	defer f.Close()
	return ReadJSONL(f)
}
