package repository

import (
	"context"
	"fmt"
)

// Config selects and configures an account store driver.
type Config struct {
	Driver   string
	Mongo    MongoConfig
	Postgres PostgresConfig
}

// Open connects the configured driver and returns the store together with a
// function releasing its resources.
func Open(ctx context.Context, cfg Config) (AccountStore, func(context.Context) error, error) {
	switch cfg.Driver {
	case DriverMongo:
		client, err := NewMongoClient(ctx, cfg.Mongo)
		if err != nil {
			return nil, nil, err
		}
		store := NewMongoAccountStore(client.Database(cfg.Mongo.Database))
		if err := store.EnsureIndexes(ctx); err != nil {
			_ = client.Disconnect(ctx)
			return nil, nil, fmt.Errorf("ensure indexes: %w", err)
		}
		return store, client.Disconnect, nil

	case DriverPostgres:
		db, err := NewDB(ctx, cfg.Postgres)
		if err != nil {
			return nil, nil, err
		}
		if err := Migrate(ctx, db); err != nil {
			db.Close()
			return nil, nil, fmt.Errorf("migrate: %w", err)
		}
		return NewPostgresAccountStore(db), func(context.Context) error { return db.Close() }, nil

	case DriverMemory:
		return NewMemoryAccountStore(), func(context.Context) error { return nil }, nil
	}

	return nil, nil, fmt.Errorf("unknown store driver %q", cfg.Driver)
}
