package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/referral-ledger/internal/config"
	"github.com/referral-ledger/internal/models"
)

// PostgresDB wraps the pgxpool connection
type PostgresDB struct {
	pool *pgxpool.Pool
}

// NewPostgresDB creates a new Postgres database connection
func NewPostgresDB(ctx context.Context, cfg *config.PostgresConfig) (*PostgresDB, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.URL())
	if err != nil {
		return nil, fmt.Errorf("unable to parse connection string: %w", err)
	}

	maxConns := cfg.MaxConnections
	if maxConns <= 0 {
		maxConns = 4
	}
	poolConfig.MaxConns = int32(maxConns) // #nosec G115 - small configured value
	poolConfig.MinConns = 1
	poolConfig.MaxConnLifetime = time.Hour
	poolConfig.MaxConnIdleTime = 30 * time.Minute
	poolConfig.HealthCheckPeriod = time.Minute

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("unable to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("unable to ping database: %w", err)
	}

	return &PostgresDB{pool: pool}, nil
}

// Close closes the database connection pool
func (db *PostgresDB) Close() {
	if db.pool != nil {
		db.pool.Close()
	}
}

// Pool returns the underlying connection pool
func (db *PostgresDB) Pool() *pgxpool.Pool {
	return db.pool
}

// Ping checks if the database is reachable
func (db *PostgresDB) Ping(ctx context.Context) error {
	return db.pool.Ping(ctx)
}

// execer is satisfied by both the pool and a transaction.
type execer interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
}

const upsertCollectionSQL = `
	INSERT INTO ledger_collections (name, data, updated_at)
	VALUES ($1, $2, $3)
	ON CONFLICT (name) DO UPDATE
	SET data = EXCLUDED.data, updated_at = EXCLUDED.updated_at
`

// PostgresStore keeps each collection as a row of ledger_collections. The
// data column is json rather than jsonb so that key order is preserved.
type PostgresStore struct {
	db *PostgresDB
}

// NewPostgresStore creates a store on an open database.
func NewPostgresStore(db *PostgresDB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) load(ctx context.Context, name string) ([]byte, error) {
	var data []byte
	err := s.db.Pool().QueryRow(ctx,
		`SELECT data FROM ledger_collections WHERE name = $1`, name,
	).Scan(&data)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrCollectionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", name, err)
	}
	return data, nil
}

func saveCollection(ctx context.Context, db execer, name string, data []byte) error {
	if _, err := db.Exec(ctx, upsertCollectionSQL, name, data, time.Now().UTC()); err != nil {
		return fmt.Errorf("failed to save %s: %w", name, err)
	}
	return nil
}

// LoadUsers loads the users collection.
func (s *PostgresStore) LoadUsers(ctx context.Context) ([]*models.User, error) {
	data, err := s.load(ctx, CollectionUsers)
	if err != nil {
		return nil, err
	}
	return decodeUsers(data)
}

// SaveUsers replaces the users collection.
func (s *PostgresStore) SaveUsers(ctx context.Context, users []*models.User) error {
	data, err := encodeUsers(users)
	if err != nil {
		return err
	}
	return saveCollection(ctx, s.db.Pool(), CollectionUsers, data)
}

// LoadPayouts loads the payout log.
func (s *PostgresStore) LoadPayouts(ctx context.Context) ([]models.Payout, error) {
	data, err := s.load(ctx, CollectionPayouts)
	if err != nil {
		return nil, err
	}
	return decodePayouts(data)
}

// SavePayouts replaces the payout log.
func (s *PostgresStore) SavePayouts(ctx context.Context, payouts []models.Payout) error {
	data, err := encodePayouts(payouts)
	if err != nil {
		return err
	}
	return saveCollection(ctx, s.db.Pool(), CollectionPayouts, data)
}

// LoadSettings loads the settings document.
func (s *PostgresStore) LoadSettings(ctx context.Context) (models.Settings, error) {
	data, err := s.load(ctx, CollectionSettings)
	if err != nil {
		return models.Settings{}, err
	}
	return decodeSettings(data)
}

// SaveSettings replaces the settings document.
func (s *PostgresStore) SaveSettings(ctx context.Context, settings models.Settings) error {
	data, err := encodeSettings(settings)
	if err != nil {
		return err
	}
	return saveCollection(ctx, s.db.Pool(), CollectionSettings, data)
}

// SaveUsersAndPayouts writes both collections in one transaction.
func (s *PostgresStore) SaveUsersAndPayouts(ctx context.Context, users []*models.User, payouts []models.Payout) error {
	usersData, err := encodeUsers(users)
	if err != nil {
		return err
	}
	payoutsData, err := encodePayouts(payouts)
	if err != nil {
		return err
	}

	return pgx.BeginFunc(ctx, s.db.Pool(), func(tx pgx.Tx) error {
		if err := saveCollection(ctx, tx, CollectionUsers, usersData); err != nil {
			return err
		}
		return saveCollection(ctx, tx, CollectionPayouts, payoutsData)
	})
}

// Close closes the connection pool.
func (s *PostgresStore) Close() error {
	s.db.Close()
	return nil
}
