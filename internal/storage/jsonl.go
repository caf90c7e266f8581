package storage

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"poolGraph/internal/model"
)

// JsonlStorage appends raw log records to a JSONL file, one record per line.
// It is the sink of `run` when logs are not reconciled directly.
type JsonlStorage struct {
	path string
	mu   sync.Mutex
}

func NewJsonlStorage(path string) *JsonlStorage {
	return &JsonlStorage{path: path}
}

// PutLogBatch appends logs in the order given. The file is opened per batch
// so a crash loses at most the batch in flight.
func (s *JsonlStorage) PutLogBatch(ctx context.Context, logs []model.LogRecord) error {
	if len(logs) == 0 {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create output dir: %w", err)
		}
	}
	file, err := os.OpenFile(s.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open %s: %w", s.path, err)
	}

	writer := bufio.NewWriter(file)
	enc := json.NewEncoder(writer)
	for i := range logs {
		if err := enc.Encode(&logs[i]); err != nil {
			file.Close()
			return fmt.Errorf("encode log %d/%d: %w", logs[i].BlockNumber, logs[i].LogIndex, err)
		}
	}
	if err := writer.Flush(); err != nil {
		file.Close()
		return fmt.Errorf("flush %s: %w", s.path, err)
	}
	return file.Close()
}

// ReadLogBatches streams log records from a JSONL reader in batches of up to
// batchSize. Lines that fail to parse are passed to onBadLine and skipped.
func ReadLogBatches(r io.Reader, batchSize int, onBadLine func(line int, err error), fn func([]model.LogRecord) error) error {
	if batchSize <= 0 {
		batchSize = 1000
	}

	scanner := bufio.NewScanner(r)
	buf := make([]byte, 0, 64*1024)
	scanner.Buffer(buf, 10*1024*1024)

	batch := make([]model.LogRecord, 0, batchSize)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}

		var record model.LogRecord
		if err := json.Unmarshal(line, &record); err != nil {
			if onBadLine != nil {
				onBadLine(lineNo, err)
			}
			continue
		}

		batch = append(batch, record)
		if len(batch) >= batchSize {
			if err := fn(batch); err != nil {
				return err
			}
			batch = make([]model.LogRecord, 0, batchSize)
		}
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("scan input: %w", err)
	}

	if len(batch) > 0 {
		return fn(batch)
	}
	return nil
}
