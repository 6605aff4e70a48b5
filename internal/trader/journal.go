package trader

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"

	"github.com/blueenergy/quantTrader/internal/signal"
)

// JSONLJournal appends execution results as JSON lines for later inspection.
type JSONLJournal struct {
	mu   sync.Mutex
	file *os.File
	enc  *json.Encoder
}

// NewJSONLJournal creates/opens the target file and returns a journal.
func NewJSONLJournal(path string) (*JSONLJournal, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, err
	}
	return &JSONLJournal{
		file: file,
		enc:  json.NewEncoder(file),
	}, nil
}

// Record writes a single execution result to the underlying file.
func (j *JSONLJournal) Record(result signal.ExecutionResult) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.enc.Encode(result)
}

// Close flushes and closes the file handle.
func (j *JSONLJournal) Close() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.file == nil {
		return nil
	}
	err := j.file.Close()
	j.file = nil
	return err
}
