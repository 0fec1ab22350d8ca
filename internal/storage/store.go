// Package storage persists the ledger collections: users, payout records and
// settings. Every backend stores each collection as one JSON document that is
// replaced whole on every save.
package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/referral-ledger/internal/config"
	"github.com/referral-ledger/internal/logging"
	"github.com/referral-ledger/internal/models"
)

// Collection names, shared by every backend.
const (
	CollectionUsers    = "users"
	CollectionPayouts  = "payouts"
	CollectionSettings = "settings"
)

// ErrCollectionNotFound is returned by a Load method when the collection has
// never been written.
var ErrCollectionNotFound = errors.New("collection not found")

// ErrCorruptCollection is wrapped by Load errors caused by a stored document
// that cannot be decoded or fails validation.
var ErrCorruptCollection = errors.New("corrupt collection")

func corrupt(collection string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrCorruptCollection, collection, err)
}

// Store loads and saves whole collections.
type Store interface {
	LoadUsers(ctx context.Context) ([]*models.User, error)
	SaveUsers(ctx context.Context, users []*models.User) error
	LoadPayouts(ctx context.Context) ([]models.Payout, error)
	SavePayouts(ctx context.Context, payouts []models.Payout) error
	LoadSettings(ctx context.Context) (models.Settings, error)
	SaveSettings(ctx context.Context, settings models.Settings) error
	Close() error
}

// AtomicSaver is implemented by backends that can replace the users and
// payouts collections in a single transaction.
type AtomicSaver interface {
	SaveUsersAndPayouts(ctx context.Context, users []*models.User, payouts []models.Payout) error
}

// Open connects to the backend selected in cfg.
func Open(ctx context.Context, cfg *config.Config) (Store, error) {
	logger := logging.FromContext(ctx).WithField("backend", cfg.Storage.Backend)

	switch cfg.Storage.Backend {
	case config.BackendFile:
		store, err := NewFileStore(cfg.Storage.DataDir)
		if err != nil {
			return nil, err
		}
		logger.WithField("dir", cfg.Storage.DataDir).Info("Using file storage")
		return store, nil

	case config.BackendPostgres:
		pgCfg := cfg.Database.Postgres
		if pgCfg.AutoMigrate {
			if err := RunMigrations(pgCfg.URL(), pgCfg.MigrationsPath); err != nil {
				return nil, err
			}
			logger.Info("Postgres migrations applied")
		}
		db, err := NewPostgresDB(ctx, &pgCfg)
		if err != nil {
			return nil, err
		}
		logger.WithField("host", pgCfg.Host).Info("Using Postgres storage")
		return NewPostgresStore(db), nil

	case config.BackendRedis:
		redisCfg := cfg.Database.Redis
		cache, err := NewRedisCache(ctx, &redisCfg)
		if err != nil {
			return nil, err
		}
		logger.WithField("host", redisCfg.Host).Info("Using Redis storage")
		return NewRedisStore(cache, redisCfg.KeyPrefix), nil

	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Storage.Backend)
	}
}
