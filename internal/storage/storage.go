package storage

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	log "github.com/sirupsen/logrus"

	"intraday_trading/internal/calendar"
	"intraday_trading/internal/models"
)

// LoadState reads the session state from disk.
// A missing file yields a fresh template, which is written out immediately.
func LoadState(path string) (models.SessionState, error) {
	var s models.SessionState

	if _, err := os.Stat(path); os.IsNotExist(err) {
		log.WithField("path", path).Info("State file missing, generating template")
		s = models.SessionState{Version: models.StateVersion}
		if err := SaveState(path, s); err != nil {
			return s, err
		}
		return s, nil
	}

	f, err := os.Open(path)
	if err != nil {
		return s, err
	}
	defer f.Close()

	b, err := io.ReadAll(f)
	if err != nil {
		return s, err
	}
	if err := json.Unmarshal(b, &s); err != nil {
		return s, fmt.Errorf("failed to parse state file %s: %w", path, err)
	}

	if migrateState(&s) {
		log.WithField("version", s.Version).Info("State migrated, saving")
		if err := SaveState(path, s); err != nil {
			return s, err
		}
	}
	return s, nil
}

// migrateState handles schema evolution.
// Returns true if changes were made and the state needs to be saved.
func migrateState(s *models.SessionState) bool {
	updated := false

	// Files written before versioning are 2.0.
	if s.Version == "" {
		s.Version = "2.0"
		updated = true
	}

	// 2.0 -> 2.1: last_trading_date moved from 20060102 to 2006-01-02;
	// realized_profit and trade_count start at zero.
	if s.Version < "2.1" {
		log.Info("Migrating state schema from 2.0 to 2.1")
		if d, err := time.ParseInLocation("20060102", s.LastTradingDate, calendar.NewYork); err == nil {
			s.LastTradingDate = calendar.DateString(d)
		}
		s.Version = "2.1"
		updated = true
	}

	return updated
}

// SaveState writes the state to disk using an atomic write pattern:
// write a temporary file, sync it, then rename it over the destination.
func SaveState(path string, s models.SessionState) error {
	s.LastSync = time.Now().In(calendar.NewYork).Format(time.RFC3339)

	b, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal state: %w", err)
	}
	return writeAtomic(path, func(f *os.File) error {
		_, err := f.Write(b)
		return err
	})
}

// writeAtomic creates path.tmp next to path, lets write fill it, and renames it into place.
func writeAtomic(path string, write func(f *os.File) error) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}

	// Same directory, so the rename cannot cross filesystems.
	tmpFile := path + ".tmp"
	f, err := os.Create(tmpFile)
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer f.Close()

	if err := write(f); err != nil {
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := f.Sync(); err != nil {
		return fmt.Errorf("failed to sync temp file: %w", err)
	}
	// Close explicitly before renaming (essential on Windows)
	f.Close()

	if err := os.Rename(tmpFile, path); err != nil {
		return fmt.Errorf("failed to replace %s (atomic rename): %w", path, err)
	}
	return nil
}
