package session

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/bytedance/sonic"
	"go.uber.org/zap"

	"github.com/ksavkin/SwiftLabel/internal/infrastructure/logging"
	"github.com/ksavkin/SwiftLabel/internal/providers/filesystem"
	"github.com/ksavkin/SwiftLabel/internal/shared/paths"
)

// Store persists session state under <root>/.swiftlabel:
//   - session.json  — durable snapshot, rewritten after every mutation
//   - history.jsonl — append-only action log, never compacted
type Store struct {
	fs     *filesystem.Ops
	root   string
	logger *logging.Logger
}

// NewStore creates a store for the given working directory.
func NewStore(fs *filesystem.Ops, root string, logger *logging.Logger) *Store {
	return &Store{fs: fs, root: root, logger: logger}
}

// Dir returns the session storage directory.
func (s *Store) Dir() string {
	return filepath.Join(s.root, paths.SwiftLabelDir)
}

// SessionPath returns the snapshot file path.
func (s *Store) SessionPath() string {
	return filepath.Join(s.Dir(), paths.SessionFile)
}

// HistoryPath returns the action log path.
func (s *Store) HistoryPath() string {
	return filepath.Join(s.Dir(), paths.HistoryFile)
}

// EnsureDir creates the storage directory if needed.
func (s *Store) EnsureDir() error {
	return s.fs.EnsureDir(s.Dir())
}

// Load reads the persisted snapshot. A missing or corrupt file is treated
// as "no prior session": it is logged and nil is returned without error.
func (s *Store) Load() *Snapshot {
	path := s.SessionPath()
	if !s.fs.Exists(path) {
		return nil
	}

	var snap Snapshot
	if err := s.fs.ReadJSON(path, &snap); err != nil {
		s.logger.Warn("Failed to load session file, starting fresh",
			zap.String("path", path), zap.Error(err))
		return nil
	}

	s.logger.Info("Loaded session", zap.String("path", path))
	return &snap
}

// Save rewrites the snapshot wholesale.
func (s *Store) Save(snap *Snapshot) error {
	if err := s.EnsureDir(); err != nil {
		return err
	}
	if err := s.fs.WriteJSON(s.SessionPath(), snap); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

// LogHistory appends one action record to history.jsonl. Each record is
// tagged with the action name and a wall-clock timestamp. Log failures are
// reported to the logger but never fail the command that triggered them.
func (s *Store) LogHistory(action string, fields map[string]interface{}) {
	record := make(map[string]interface{}, len(fields)+2)
	for k, v := range fields {
		record[k] = v
	}
	record["action"] = action
	record["ts"] = time.Now().UTC().Format(time.RFC3339)

	line, err := sonic.Marshal(record)
	if err != nil {
		s.logger.Error("Failed to encode history record", zap.Error(err))
		return
	}
	if err := s.fs.AppendLine(s.HistoryPath(), string(line)+"\n"); err != nil {
		s.logger.Error("Failed to append history record", zap.Error(err))
	}
}
