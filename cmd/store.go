package main

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"shop-service/internal/config"
	"shop-service/internal/repository"
	"shop-service/migrations"
)

const (
	connectAttempts = 10
	connectDelay    = 3 * time.Second
	migrateRetries  = 3
)

type store struct {
	users    repository.UserRepository
	products repository.ProductRepository
	migrate  func(ctx context.Context) error
	close    func(ctx context.Context) error
}

func openStore(ctx context.Context, cfg *config.Config) (*store, error) {
	switch cfg.StoreDriver {
	case config.StoreMySQL:
		return openMySQL(ctx, cfg.MySQLDSN)
	default:
		return openMongo(ctx, cfg.MongoURI, cfg.MongoDatabase)
	}
}

func openMySQL(ctx context.Context, dsn string) (*store, error) {
	db, err := connectDB(ctx, dsn)
	if err != nil {
		return nil, err
	}

	return &store{
		users:    repository.NewMySQLUserRepository(db),
		products: repository.NewMySQLProductRepository(db),
		migrate: func(ctx context.Context) error {
			return migrations.AutoMigrate(ctx, migrateRetries, db)
		},
		close: func(context.Context) error { return db.Close() },
	}, nil
}

// connectDB opens the MySQL pool and pings it until it answers.
func connectDB(ctx context.Context, dsn string) (*sql.DB, error) {
	mc, err := mysql.ParseDSN(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse mysql dsn: %w", err)
	}
	mc.ParseTime = true

	db, err := sql.Open("mysql", mc.FormatDSN())
	if err != nil {
		return nil, err
	}

	for i := 0; i < connectAttempts; i++ {
		if err = db.PingContext(ctx); err == nil {
			log.Info().Msgf("Connected to MySQL database %s", mc.DBName)
			return db, nil
		}
		log.Warn().Err(err).Msgf("Retry %d: failed to connect to MySQL at %s", i+1, mc.Addr)
		if !sleep(ctx, connectDelay) {
			break
		}
	}
	db.Close()
	return nil, fmt.Errorf("failed to connect to MySQL at %s after retries: %w", mc.Addr, err)
}

func openMongo(ctx context.Context, uri, database string) (*store, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}

	for i := 0; i < connectAttempts; i++ {
		if err = client.Ping(ctx, readpref.Primary()); err == nil {
			break
		}
		log.Warn().Err(err).Msgf("Retry %d: failed to reach MongoDB", i+1)
		if !sleep(ctx, connectDelay) {
			break
		}
	}
	if err != nil {
		client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to connect to MongoDB after retries: %w", err)
	}
	log.Info().Msgf("MongoDB connected: %s", database)

	db := client.Database(database)
	users := repository.NewMongoUserRepository(db)
	products := repository.NewMongoProductRepository(db)

	return &store{
		users:    users,
		products: products,
		migrate: func(ctx context.Context) error {
			if err := users.EnsureIndexes(ctx); err != nil {
				return fmt.Errorf("users indexes: %w", err)
			}
			if err := products.EnsureIndexes(ctx); err != nil {
				return fmt.Errorf("products indexes: %w", err)
			}
			return nil
		},
		close: client.Disconnect,
	}, nil
}

// sleep waits for d and reports false if ctx ended first.
func sleep(ctx context.Context, d time.Duration) bool {
	select {
	case <-ctx.Done():
		return false
	case <-time.After(d):
		return true
	}
}
