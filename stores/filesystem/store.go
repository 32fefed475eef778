package filesystem

import (
	"context"
	"errors"
	"fmt"
	"gameboard-server/core"
	"os"
	"path/filepath"
	"strings"

	"github.com/oklog/ulid/v2"
	"github.com/sirupsen/logrus"
)

type fsStore struct {
	basePath string
}

// NewStore creates a new filesystem-based store rooted at basePath.
func NewStore(basePath string) (*fsStore, error) {
	if err := os.MkdirAll(basePath, 0755); err != nil {
		return nil, fmt.Errorf("failed to create base directory: %w", err)
	}
	return &fsStore{basePath: basePath}, nil
}

// blobPath resolves name inside basePath. Names are plain file names only.
func (s *fsStore) blobPath(name string) (string, error) {
	if name == "" || name == "." || name == ".." || filepath.Base(name) != name || strings.ContainsAny(name, `/\`) {
		return "", fmt.Errorf("%w: invalid blob name %q", core.ErrValidation, name)
	}
	return filepath.Join(s.basePath, name), nil
}

func (s *fsStore) Read(ctx context.Context, name string) ([]byte, error) {
	filePath, err := s.blobPath(name)
	if err != nil {
		return nil, err
	}
	log := logrus.WithField("file_path", filePath)

	data, err := os.ReadFile(filePath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			log.Debug("Blob file does not exist")
			return nil, core.ErrBlobNotFound
		}
		log.WithError(err).Error("Failed to read blob file")
		return nil, core.StorageError("read "+name, err)
	}
	return data, nil
}

// Write replaces the file through a temp file and rename so readers never see a partial write.
func (s *fsStore) Write(ctx context.Context, name string, data []byte) error {
	filePath, err := s.blobPath(name)
	if err != nil {
		return err
	}
	log := logrus.WithFields(logrus.Fields{"file_path": filePath, "data_length": len(data)})

	tmp := filepath.Join(s.basePath, "."+name+"."+ulid.Make().String()+".tmp")
	if err := os.WriteFile(tmp, data, 0600); err != nil {
		log.WithError(err).Error("Failed to write temp file")
		return core.StorageError("write "+name, err)
	}
	if err := os.Rename(tmp, filePath); err != nil {
		_ = os.Remove(tmp)
		log.WithError(err).Error("Failed to replace blob file")
		return core.StorageError("write "+name, err)
	}

	log.Debug("Blob written")
	return nil
}

func (s *fsStore) Append(ctx context.Context, name string, data []byte) error {
	filePath, err := s.blobPath(name)
	if err != nil {
		return err
	}
	log := logrus.WithFields(logrus.Fields{"file_path": filePath, "data_length": len(data)})

	f, err := os.OpenFile(filePath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600)
	if err != nil {
		log.WithError(err).Error("Failed to open blob file for append")
		return core.StorageError("append "+name, err)
	}
	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		log.WithError(err).Error("Failed to append to blob file")
		return core.StorageError("append "+name, err)
	}
	if err := f.Close(); err != nil {
		return core.StorageError("append "+name, err)
	}
	return nil
}
