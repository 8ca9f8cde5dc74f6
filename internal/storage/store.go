package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"go.uber.org/zap"
)

// TradeStore persists a JSON snapshot of the accumulated trade list to a
// local file so the feed survives restarts.
type TradeStore struct {
	logger *zap.Logger
	path   string
	mu     sync.Mutex
}

// NewTradeStore creates a store backed by the given file path.
func NewTradeStore(logger *zap.Logger, path string) *TradeStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	if path == "" {
		path = "insider_trades.json"
	}

	return &TradeStore{
		logger: logger,
		path:   path,
	}
}

// Path returns the file path the store writes to.
func (s *TradeStore) Path() string {
	return s.path
}

// Save writes v as JSON to the store's file. The write goes through a temp
// file and rename so a crash mid-write never leaves a truncated snapshot.
func (s *TradeStore) Save(v any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshaling snapshot: %w", err)
	}

	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("writing snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("closing temp file: %w", err)
	}

	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replacing snapshot: %w", err)
	}

	s.logger.Debug("saved snapshot",
		zap.String("path", s.path),
		zap.Int("bytes", len(data)),
	)

	return nil
}

// Load reads the store's file into dest. A missing file is not an error and
// leaves dest untouched. A malformed file returns an error so the caller can
// decide to start fresh.
func (s *TradeStore) Load(dest any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			s.logger.Debug("no snapshot file, starting fresh", zap.String("path", s.path))
			return nil
		}
		return fmt.Errorf("reading snapshot: %w", err)
	}

	if len(data) == 0 {
		s.logger.Debug("snapshot file is empty, starting fresh", zap.String("path", s.path))
		return nil
	}

	if err := json.Unmarshal(data, dest); err != nil {
		return fmt.Errorf("parsing snapshot: %w", err)
	}

	return nil
}
