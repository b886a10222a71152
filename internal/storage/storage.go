// Package storage persists board Settings and EngineSettings in a badger key/value store, and
// archives finished games as PGN files on disk. Grounded on the badger usage pattern in
// hailam-chessplay's internal/storage package: one *badger.DB, JSON-encoded values, a small
// fixed set of keys.
package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"

	"github.com/dgraph-io/badger/v4"
	"github.com/herohde/boardd/pkg/board"
)

const (
	keySettings       = "settings"
	keyEngineSettings = "engine_settings"
)

// Settings mirrors orchestrator.Settings; kept as its own type so this package doesn't import
// pkg/orchestrator (which imports this package).
type Settings struct {
	LearningMode bool `json:"learningMode"`
}

// EngineSettings mirrors orchestrator.EngineSettings.
type EngineSettings struct {
	EnableEngine bool        `json:"enableEngine"`
	EngineColor  board.Color `json:"engineColor"`
	EngineLevel  int         `json:"engineLevel"`
	Round        int         `json:"round"`
}

// Store wraps a badger database plus the PGN directory layout: pgn/ for live games still
// in rotation, pgn_archive/ for completed ones, mirroring FileManager.py's SETTINGS_PATH,
// PGN_PATH and PGN_ARCHIVE_PATH.
type Store struct {
	db      *badger.DB
	pgnDir  string
	archive string
}

// Open opens (creating if necessary) the badger database under dbDir and the PGN directories
// under pgnRoot/pgn and pgnRoot/pgn_archive.
func Open(dbDir, pgnRoot string) (*Store, error) {
	opts := badger.DefaultOptions(dbDir)
	opts.Logger = nil

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger db at %v: %w", dbDir, err)
	}

	pgnDir := filepath.Join(pgnRoot, "pgn")
	archive := filepath.Join(pgnRoot, "pgn_archive")
	for _, dir := range []string{pgnDir, archive} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("create pgn dir %v: %w", dir, err)
		}
	}

	return &Store{db: db, pgnDir: pgnDir, archive: archive}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) ReadSettings() (Settings, error) {
	var settings Settings
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(keySettings))
		if err == badger.ErrKeyNotFound {
			return nil // zero value: learning mode off
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &settings)
		})
	})
	return settings, err
}

func (s *Store) WriteSettings(settings Settings) error {
	data, err := json.Marshal(settings)
	if err != nil {
		return err
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(keySettings), data)
	})
}

func (s *Store) ReadEngineSettings() (EngineSettings, error) {
	var es EngineSettings
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(keyEngineSettings))
		if err == badger.ErrKeyNotFound {
			return nil
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &es)
		})
	})
	return es, err
}

func (s *Store) WriteEngineSettings(es EngineSettings) error {
	data, err := json.Marshal(es)
	if err != nil {
		return err
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(keyEngineSettings), data)
	})
}

// pgnFileNamePattern matches a live PGN file name, mirroring FileManager.is_valid_pgn_file_name.
var pgnFileNamePattern = regexp.MustCompile(`^game_[A-Za-z0-9]+\.pgn$`)

func formatPGNFileName(gameID string) string {
	return fmt.Sprintf("game_%v.pgn", gameID)
}

// WritePGN writes pgn to the live pgn/ directory under the game's file name, overwriting any
// existing file for the same id.
func (s *Store) WritePGN(gameID, pgn string) error {
	name := formatPGNFileName(gameID)
	if !pgnFileNamePattern.MatchString(name) {
		return fmt.Errorf("invalid game id for PGN file name: %q", gameID)
	}
	return os.WriteFile(filepath.Join(s.pgnDir, name), []byte(pgn), 0o644)
}

// ArchivePGN writes pgn to the live directory and then renames it into pgn_archive/, mirroring
// FileManager.archive_file's write-then-rename sequence.
func (s *Store) ArchivePGN(gameID, pgn string) error {
	if err := s.WritePGN(gameID, pgn); err != nil {
		return err
	}
	name := formatPGNFileName(gameID)
	return os.Rename(filepath.Join(s.pgnDir, name), filepath.Join(s.archive, name))
}

// ListPGNFiles returns the name and contents of every live (not yet archived) PGN file.
func (s *Store) ListPGNFiles() (map[string]string, error) {
	return readPGNDir(s.pgnDir)
}

// ReadArchivedPGN returns the contents of one archived PGN file, or every archived file if
// all is true (name is then ignored).
func (s *Store) ReadArchivedPGN(all bool, name string) (map[string]string, error) {
	if all {
		return readPGNDir(s.archive)
	}
	if !pgnFileNamePattern.MatchString(name) {
		return nil, fmt.Errorf("invalid archived PGN file name: %q", name)
	}
	data, err := os.ReadFile(filepath.Join(s.archive, name))
	if err != nil {
		return nil, err
	}
	return map[string]string{name: string(data)}, nil
}

func readPGNDir(dir string) (map[string]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	out := map[string]string{}
	for _, entry := range entries {
		if entry.IsDir() || !pgnFileNamePattern.MatchString(entry.Name()) {
			continue
		}
		data, err := os.ReadFile(filepath.Join(dir, entry.Name()))
		if err != nil {
			return nil, err
		}
		out[entry.Name()] = string(data)
	}
	return out, nil
}
