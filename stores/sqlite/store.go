package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"gameboard-server/core"
	"time"

	"github.com/sirupsen/logrus"
	_ "modernc.org/sqlite"
)

type sqliteStore struct {
	db *sql.DB
}

// NewStore opens (or creates) the database and ensures the blobs table exists.
func NewStore(dataSourceName string) (*sqliteStore, error) {
	db, err := sql.Open("sqlite", dataSourceName)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}

	blobTableStmt := `
	CREATE TABLE IF NOT EXISTS blobs (
		name TEXT PRIMARY KEY,
		data BLOB NOT NULL,
		updated_at DATETIME
	);`
	if _, err = db.Exec(blobTableStmt); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create blobs table: %w", err)
	}

	return &sqliteStore{db}, nil
}

func (s *sqliteStore) Read(ctx context.Context, name string) ([]byte, error) {
	log := logrus.WithField("blob", name)

	var data []byte
	err := s.db.QueryRowContext(ctx, "SELECT data FROM blobs WHERE name = ?", name).Scan(&data)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			log.Debug("Blob row not found")
			return nil, core.ErrBlobNotFound
		}
		log.WithError(err).Error("Failed to read blob row")
		return nil, core.StorageError("read "+name, err)
	}
	return data, nil
}

func (s *sqliteStore) Write(ctx context.Context, name string, data []byte) error {
	if data == nil {
		data = []byte{}
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO blobs (name, data, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET data = excluded.data, updated_at = excluded.updated_at`,
		name, data, time.Now())
	if err != nil {
		logrus.WithField("blob", name).WithError(err).Error("Failed to write blob row")
		return core.StorageError("write "+name, err)
	}
	return nil
}

func (s *sqliteStore) Append(ctx context.Context, name string, data []byte) error {
	if data == nil {
		data = []byte{}
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO blobs (name, data, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET data = CAST(blobs.data || excluded.data AS BLOB), updated_at = excluded.updated_at`,
		name, data, time.Now())
	if err != nil {
		logrus.WithField("blob", name).WithError(err).Error("Failed to append blob row")
		return core.StorageError("append "+name, err)
	}
	return nil
}

// Close releases the database handle.
func (s *sqliteStore) Close() error {
	return s.db.Close()
}
