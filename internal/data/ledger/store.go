// Package ledger persists, per module, the latest effective time already
// imported, so a later run can skip what it has seen.
package ledger

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

const (
	driverName  = "sqlite"
	maxAttempts = 5
)

type Store struct {
	path string
	db   *sql.DB
	mu   sync.Mutex
}

// Import is one recorded load.
type Import struct {
	Mode       string
	Dirs       []string
	Modules    int
	FinishedAt time.Time
}

func Open(path string) (*Store, error) {
	cleanPath := strings.TrimSpace(path)
	if cleanPath == "" {
		return nil, fmt.Errorf("ledger path must not be empty")
	}
	if info, err := os.Stat(cleanPath); err == nil && info.IsDir() {
		return nil, fmt.Errorf("ledger path %q is a directory, expected file", cleanPath)
	}

	dir := filepath.Dir(cleanPath)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create ledger directory %q: %w", dir, err)
		}
	}

	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(2000)&_pragma=journal_mode(WAL)", cleanPath)
	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite ledger %q: %w", cleanPath, err)
	}
	db.SetMaxOpenConns(1)
	db.SetConnMaxLifetime(0)
	db.SetConnMaxIdleTime(0)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite ledger %q: %w", cleanPath, err)
	}
	if err := EnsureSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initialize sqlite schema %q: %w", cleanPath, err)
	}
	return &Store{path: cleanPath, db: db}, nil
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) Path() string {
	if s == nil {
		return ""
	}
	return s.path
}

// ModuleTimes returns the imported effective time of every module.
func (s *Store) ModuleTimes() (map[string]int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var rows *sql.Rows
	err := s.withRetry("load module times", func() error {
		var qErr error
		rows, qErr = s.db.Query(`SELECT module_id, effective_time FROM module_times`)
		return qErr
	})
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	times := make(map[string]int)
	for rows.Next() {
		var (
			module string
			t      int
		)
		if err := rows.Scan(&module, &t); err != nil {
			return nil, fmt.Errorf("scan module time row: %w", err)
		}
		times[module] = t
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate module time rows: %w", err)
	}
	return times, nil
}

// SaveModuleTimes merges times into the ledger. A stored time never moves
// backwards.
func (s *Store) SaveModuleTimes(times map[string]int) error {
	if len(times) == 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC().Format(time.RFC3339Nano)
	return s.withRetry("save module times", func() error {
		tx, err := s.db.Begin()
		if err != nil {
			return err
		}
		stmt, err := tx.Prepare(`
INSERT INTO module_times (module_id, effective_time, updated_at_utc) VALUES (?, ?, ?)
ON CONFLICT(module_id) DO UPDATE SET
  effective_time = MAX(effective_time, excluded.effective_time),
  updated_at_utc = excluded.updated_at_utc
`)
		if err != nil {
			_ = tx.Rollback()
			return err
		}
		defer stmt.Close()
		for module, t := range times {
			if _, err := stmt.Exec(module, t, now); err != nil {
				_ = tx.Rollback()
				return err
			}
		}
		return tx.Commit()
	})
}

func (s *Store) RecordImport(imp Import) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if imp.FinishedAt.IsZero() {
		imp.FinishedAt = time.Now().UTC()
	}
	return s.withRetry("record import", func() error {
		_, err := s.db.Exec(`INSERT INTO imports (mode, dirs, modules, finished_at_utc) VALUES (?, ?, ?, ?)`,
			imp.Mode, strings.Join(imp.Dirs, "\n"), imp.Modules, imp.FinishedAt.UTC().Format(time.RFC3339Nano))
		return err
	})
}

// Imports returns the recorded loads, oldest first.
func (s *Store) Imports() ([]Import, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var rows *sql.Rows
	err := s.withRetry("load imports", func() error {
		var qErr error
		rows, qErr = s.db.Query(`SELECT mode, dirs, modules, finished_at_utc FROM imports ORDER BY id ASC`)
		return qErr
	})
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Import
	for rows.Next() {
		var (
			imp            Import
			dirs, finished string
		)
		if err := rows.Scan(&imp.Mode, &dirs, &imp.Modules, &finished); err != nil {
			return nil, fmt.Errorf("scan import row: %w", err)
		}
		if dirs != "" {
			imp.Dirs = strings.Split(dirs, "\n")
		}
		ts, err := time.Parse(time.RFC3339Nano, finished)
		if err != nil {
			return nil, fmt.Errorf("parse import timestamp %q: %w", finished, err)
		}
		imp.FinishedAt = ts.UTC()
		out = append(out, imp)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate import rows: %w", err)
	}
	return out, nil
}

func (s *Store) withRetry(op string, fn func() error) error {
	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		err := fn()
		if err == nil {
			return nil
		}
		lastErr = err
		if !isLockError(err) || attempt == maxAttempts {
			break
		}
		time.Sleep(time.Duration(attempt*25) * time.Millisecond)
	}
	return fmt.Errorf("%s: %w", op, lastErr)
}

func isLockError(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "database is locked") || strings.Contains(msg, "busy")
}
