package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/referral-ledger/internal/models"
)

// FileStore keeps each collection in a JSON file under a data directory.
// Files are replaced atomically, so a crash mid-write leaves the previous
// version in place.
type FileStore struct {
	dir string
}

// NewFileStore creates the data directory if needed.
func NewFileStore(dir string) (*FileStore, error) {
	if dir == "" {
		return nil, fmt.Errorf("data directory is empty")
	}
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}
	return &FileStore{dir: dir}, nil
}

// Dir returns the data directory.
func (s *FileStore) Dir() string {
	return s.dir
}

func (s *FileStore) path(collection string) string {
	return filepath.Join(s.dir, collection+".json")
}

// LoadUsers reads users.json.
func (s *FileStore) LoadUsers(ctx context.Context) ([]*models.User, error) {
	data, err := s.read(CollectionUsers)
	if err != nil {
		return nil, err
	}
	return decodeUsers(data)
}

// SaveUsers replaces users.json.
func (s *FileStore) SaveUsers(ctx context.Context, users []*models.User) error {
	data, err := encodeUsers(users)
	if err != nil {
		return err
	}
	return s.write(CollectionUsers, data)
}

// LoadPayouts reads payouts.json.
func (s *FileStore) LoadPayouts(ctx context.Context) ([]models.Payout, error) {
	data, err := s.read(CollectionPayouts)
	if err != nil {
		return nil, err
	}
	return decodePayouts(data)
}

// SavePayouts replaces payouts.json.
func (s *FileStore) SavePayouts(ctx context.Context, payouts []models.Payout) error {
	data, err := encodePayouts(payouts)
	if err != nil {
		return err
	}
	return s.write(CollectionPayouts, data)
}

// LoadSettings reads settings.json.
func (s *FileStore) LoadSettings(ctx context.Context) (models.Settings, error) {
	data, err := s.read(CollectionSettings)
	if err != nil {
		return models.Settings{}, err
	}
	return decodeSettings(data)
}

// SaveSettings replaces settings.json.
func (s *FileStore) SaveSettings(ctx context.Context, settings models.Settings) error {
	data, err := encodeSettings(settings)
	if err != nil {
		return err
	}
	return s.write(CollectionSettings, data)
}

// Close is a no-op.
func (s *FileStore) Close() error {
	return nil
}

func (s *FileStore) read(collection string) ([]byte, error) {
	data, err := os.ReadFile(s.path(collection))
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrCollectionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", collection, err)
	}
	return data, nil
}

func (s *FileStore) write(collection string, data []byte) error {
	tmp, err := os.CreateTemp(s.dir, collection+"-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp %s file: %w", collection, err)
	}
	cleanup := func() {
		_ = os.Remove(tmp.Name())
	}
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		cleanup()
		return fmt.Errorf("write %s: %w", collection, err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		cleanup()
		return fmt.Errorf("sync %s: %w", collection, err)
	}
	if err := tmp.Chmod(0o600); err != nil {
		_ = tmp.Close()
		cleanup()
		return fmt.Errorf("chmod %s file: %w", collection, err)
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return fmt.Errorf("close %s file: %w", collection, err)
	}
	if err := os.Rename(tmp.Name(), s.path(collection)); err != nil {
		cleanup()
		return fmt.Errorf("replace %s file: %w", collection, err)
	}
	return nil
}
