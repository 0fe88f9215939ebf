package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Store drivers accepted by Open.
const (
	DriverMongo    = "mongo"
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

// StoreOptions selects and locates the backing store.
type StoreOptions struct {
	Driver         string
	MongoURI       string
	MongoDatabase  string
	PostgresURL    string
	MaxOpenConns   int
	ConnectTimeout time.Duration
}

// Store is the process-wide store handle. It is opened once at startup,
// shared by every request, and closed on shutdown.
type Store struct {
	Users UserRepository
	close func(ctx context.Context) error
}

func (s *Store) Close(ctx context.Context) error {
	if s.close == nil {
		return nil
	}
	return s.close(ctx)
}

// Open connects to the configured store, verifies it answers, and makes sure
// the email uniqueness constraint exists.
func Open(ctx context.Context, opts StoreOptions) (*Store, error) {
	if opts.ConnectTimeout <= 0 {
		opts.ConnectTimeout = 10 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, opts.ConnectTimeout)
	defer cancel()

	switch opts.Driver {
	case DriverMongo:
		return openMongo(ctx, opts)
	case DriverPostgres:
		return openPostgres(ctx, opts)
	case DriverMemory:
		return &Store{Users: NewInMemoryUserRepository()}, nil
	default:
		return nil, fmt.Errorf("unknown store driver %q", opts.Driver)
	}
}

func openMongo(ctx context.Context, opts StoreOptions) (*Store, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(opts.MongoURI))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongodb: %w", err)
	}
	closeFn := func(ctx context.Context) error { return client.Disconnect(ctx) }

	if err := client.Ping(ctx, nil); err != nil {
		_ = closeFn(context.Background())
		return nil, fmt.Errorf("failed to ping mongodb: %w", err)
	}

	repo := NewMongoUserRepository(client.Database(opts.MongoDatabase).Collection(UsersCollection))
	if err := repo.EnsureIndexes(ctx); err != nil {
		_ = closeFn(context.Background())
		return nil, err
	}
	return &Store{Users: repo, close: closeFn}, nil
}

func openPostgres(ctx context.Context, opts StoreOptions) (*Store, error) {
	db, err := sqlx.Open("postgres", opts.PostgresURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if opts.MaxOpenConns > 0 {
		db.SetMaxOpenConns(opts.MaxOpenConns)
		db.SetMaxIdleConns(opts.MaxOpenConns)
	}
	db.SetConnMaxIdleTime(5 * time.Minute)
	closeFn := func(context.Context) error { return db.Close() }

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	repo := NewPostgresUserRepository(db)
	if err := repo.EnsureSchema(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Store{Users: repo, close: closeFn}, nil
}
