package migrations

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// RetryDelay is the pause between attempts when a statement fails.
var RetryDelay = 1 * time.Second

const usersTable = `
	CREATE TABLE IF NOT EXISTS users (
		id CHAR(24) PRIMARY KEY,
		username VARCHAR(50) NOT NULL,
		email VARCHAR(255) NOT NULL,
		password VARCHAR(255) NOT NULL,
		created_at DATETIME(3) NOT NULL,
		updated_at DATETIME(3) NOT NULL,
		UNIQUE KEY username_idx (username),
		UNIQUE KEY email_idx (email)
	);
`

const productsTable = `
	CREATE TABLE IF NOT EXISTS products (
		id CHAR(24) PRIMARY KEY,
		name VARCHAR(255) NOT NULL,
		price DOUBLE NOT NULL,
		description TEXT NOT NULL,
		image VARCHAR(1024) NOT NULL,
		created_by CHAR(24) NOT NULL,
		created_at DATETIME(3) NOT NULL,
		updated_at DATETIME(3) NOT NULL,
		INDEX created_by_idx (created_by)
	);
`

// AutoMigrateUsers creates the users table if it does not exist.
func AutoMigrateUsers(ctx context.Context, retries int, db *sql.DB) error {
	return execWithRetry(ctx, retries, db, usersTable)
}

// AutoMigrateProducts creates the products table if it does not exist.
func AutoMigrateProducts(ctx context.Context, retries int, db *sql.DB) error {
	return execWithRetry(ctx, retries, db, productsTable)
}

// AutoMigrate creates every table.
func AutoMigrate(ctx context.Context, retries int, db *sql.DB) error {
	if err := AutoMigrateUsers(ctx, retries, db); err != nil {
		return fmt.Errorf("migrate users table: %w", err)
	}
	if err := AutoMigrateProducts(ctx, retries, db); err != nil {
		return fmt.Errorf("migrate products table: %w", err)
	}
	return nil
}

func execWithRetry(ctx context.Context, retries int, db *sql.DB, query string) error {
	_, err := db.ExecContext(ctx, query)
	for i := 0; err != nil && i < retries; i++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(RetryDelay):
		}
		_, err = db.ExecContext(ctx, query)
	}
	return err
}
