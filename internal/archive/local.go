package archive

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/younsl/lifecycled/internal/lifecycle"
	"github.com/younsl/lifecycled/internal/models"
)

// LocalStarter runs the pipeline in-process. Each dedupe key runs once;
// runs for different keys proceed concurrently.
type LocalStarter struct {
	pipeline *Pipeline

	mu      sync.Mutex
	keys    map[string]*sync.Mutex
	started map[string]string
	reports []Report
}

// NewLocalStarter creates a LocalStarter over pipeline
func NewLocalStarter(pipeline *Pipeline) *LocalStarter {
	return &LocalStarter{
		pipeline: pipeline,
		keys:     make(map[string]*sync.Mutex),
		started:  make(map[string]string),
	}
}

// StartArchival runs the pipeline for rec unless key already ran
func (s *LocalStarter) StartArchival(ctx context.Context, key lifecycle.DedupeKey, rec models.InstanceRecord) (string, error) {
	id := key.String()
	keyMu := s.keyLock(id)
	keyMu.Lock()
	defer keyMu.Unlock()

	s.mu.Lock()
	handle, ok := s.started[id]
	s.mu.Unlock()
	if ok {
		return handle, nil
	}

	report, err := s.pipeline.Run(ctx, rec)
	if err != nil {
		return "", err
	}
	handle = "local:" + key.ExecutionName()

	s.mu.Lock()
	s.started[id] = handle
	s.reports = append(s.reports, report)
	s.mu.Unlock()
	return handle, nil
}

func (s *LocalStarter) keyLock(id string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.keys[id]
	if !ok {
		m = &sync.Mutex{}
		s.keys[id] = m
	}
	return m
}

// Reports returns the reports of completed runs in start order
func (s *LocalStarter) Reports() []Report {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Report(nil), s.reports...)
}

// WriterSink appends payloads to an io.Writer such as a JSONL file
type WriterSink struct {
	mu sync.Mutex
	w  io.Writer
}

// NewWriterSink creates a WriterSink over w
func NewWriterSink(w io.Writer) *WriterSink {
	return &WriterSink{w: w}
}

// Append writes payload as is. streamID is ignored.
func (s *WriterSink) Append(_ context.Context, _ string, payload []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.w.Write(payload); err != nil {
		return fmt.Errorf("error writing archive payload: %w", err)
	}
	return nil
}
