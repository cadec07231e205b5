package audit

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"

	"github.com/JaimeStill/referrals/pkg/pagination"
)

const maxLineSize = 16 * 1024 * 1024

type fileStore struct {
	mu     sync.Mutex
	path   string
	index  map[uuid.UUID]struct{}
	logger *slog.Logger
}

// NewFileStore returns a Store backed by a JSON-lines file, one sealed record
// per line. Appends are serialized with a mutex, opened O_APPEND and synced
// before returning. Existing run identifiers are indexed on open.
func NewFileStore(path string, logger *slog.Logger) (Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create audit directory: %w", err)
	}

	s := &fileStore{
		path:   path,
		index:  make(map[uuid.UUID]struct{}),
		logger: logger.With("system", "audit", "backend", "file"),
	}

	err := s.scan(func(r *Record) bool {
		s.index[r.RunID] = struct{}{}
		return true
	})
	if err != nil {
		return nil, err
	}

	return s, nil
}

func (s *fileStore) Append(ctx context.Context, r *Record) error {
	if err := checkAppend(r); err != nil {
		return err
	}

	line, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("encode record: %w", err)
	}
	line = append(line, '\n')

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.index[r.RunID]; ok {
		return ErrDuplicate
	}

	f, err := os.OpenFile(s.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open audit log: %w", err)
	}
	defer f.Close()

	if _, err := f.Write(line); err != nil {
		return fmt.Errorf("write audit log: %w", err)
	}
	if err := f.Sync(); err != nil {
		return fmt.Errorf("sync audit log: %w", err)
	}

	s.index[r.RunID] = struct{}{}
	s.logger.DebugContext(ctx, "record appended", "run_id", r.RunID, "outcome", r.Outcome)
	return nil
}

func (s *fileStore) Find(ctx context.Context, runID uuid.UUID) (*Record, error) {
	var found *Record
	err := s.scan(func(r *Record) bool {
		if r.RunID == runID {
			found = r
			return false
		}
		return true
	})
	if err != nil {
		return nil, err
	}
	if found == nil {
		return nil, ErrNotFound
	}
	return found, nil
}

func (s *fileStore) List(ctx context.Context, page pagination.PageRequest) (pagination.PageResult[Summary], error) {
	var all []Summary
	err := s.scan(func(r *Record) bool {
		all = append(all, r.Summary())
		return true
	})
	if err != nil {
		return pagination.PageResult[Summary]{}, err
	}
	return pageSummaries(all, page), nil
}

// scan reads every record in file order until fn returns false.
func (s *fileStore) scan(fn func(*Record) bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := os.Open(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("open audit log: %w", err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)

	line := 0
	for scanner.Scan() {
		line++
		if len(scanner.Bytes()) == 0 {
			continue
		}

		var r Record
		if err := json.Unmarshal(scanner.Bytes(), &r); err != nil {
			return fmt.Errorf("decode audit log line %d: %w", line, err)
		}
		if !fn(&r) {
			return nil
		}
	}

	return scanner.Err()
}
