// Package store handles SQLite persistence of the license and authorization
// records.
//
// All state lives in one JSON blob row that is read and replaced whole. There
// is no locking: concurrent writers race and the last Save wins.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/verte-zerg/typegate/internal/model"

	_ "modernc.org/sqlite" // SQLite driver.
)

// BlobKey names the row holding the records blob.
const BlobKey = "typing_test_auth_data"

var (
	// ErrWrite reports that records could not be persisted.
	ErrWrite = errors.New("store write failed")
	// ErrRead reports that the backing database could not be queried.
	ErrRead = errors.New("store read failed")
)

// Store wraps SQLite access for the records blob.
type Store struct {
	db  *sql.DB
	log *zap.Logger
	now func() time.Time
}

// Open opens or creates the SQLite database and applies migrations.
func Open(path string, log *zap.Logger) (*Store, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	if log == nil {
		log = zap.NewNop()
	}
	store := &Store{db: db, log: log, now: time.Now}
	if err := store.migrate(); err != nil {
		if cerr := db.Close(); cerr != nil {
			// Best-effort close on migration failure.
			_ = cerr
		}
		return nil, err
	}
	return store, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS records (
			key TEXT PRIMARY KEY,
			blob TEXT NOT NULL,
			updated_at TEXT NOT NULL
		);`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// Load returns the persisted records. A missing or malformed blob yields
// empty collections, which are written back immediately.
func (s *Store) Load(ctx context.Context) (model.Records, error) {
	var raw string
	err := s.db.QueryRowContext(ctx, `SELECT blob FROM records WHERE key = ?`, BlobKey).Scan(&raw)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		s.log.Warn("records blob missing, initializing empty state")
		return s.heal(ctx), nil
	case err != nil:
		return model.Records{}, fmt.Errorf("%w: %v", ErrRead, err)
	}

	var recs model.Records
	if err := json.Unmarshal([]byte(raw), &recs); err != nil {
		s.log.Warn("records blob corrupt, reinitializing", zap.Error(err))
		return s.heal(ctx), nil
	}
	return normalize(recs), nil
}

// Save replaces the persisted blob with recs.
func (s *Store) Save(ctx context.Context, recs model.Records) error {
	recs = normalize(recs)
	recs.LastUpdated = s.now().UTC()
	data, err := json.Marshal(recs)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrWrite, err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO records (key, blob, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET blob = excluded.blob, updated_at = excluded.updated_at`,
		BlobKey,
		string(data),
		recs.LastUpdated.Format(time.RFC3339Nano),
	)
	if err != nil {
		s.log.Error("failed to save records", zap.Error(err))
		return fmt.Errorf("%w: %v", ErrWrite, err)
	}
	return nil
}

func (s *Store) heal(ctx context.Context) model.Records {
	empty := normalize(model.Records{})
	if err := s.Save(ctx, empty); err != nil {
		// The caller still gets empty state; nothing was assumed saved.
		s.log.Warn("failed to persist empty records", zap.Error(err))
	}
	return empty
}

func normalize(recs model.Records) model.Records {
	if recs.Codes == nil {
		recs.Codes = []model.LicenseCode{}
	}
	if recs.Authorizations == nil {
		recs.Authorizations = []model.ClientAuthorization{}
	}
	return recs
}
