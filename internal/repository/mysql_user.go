package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"shop-service/internal/entity"
)

const userColumns = `id, username, email, password, created_at, updated_at`

type MySQLUserRepository struct {
	db *sql.DB
}

func NewMySQLUserRepository(db *sql.DB) *MySQLUserRepository {
	return &MySQLUserRepository{db}
}

func (r *MySQLUserRepository) Create(ctx context.Context, user *entity.User) (*entity.User, error) {
	if user.ID.IsZero() {
		user.ID = primitive.NewObjectID()
	}
	now := time.Now().UTC().Truncate(time.Millisecond)
	user.CreatedAt, user.UpdatedAt = now, now

	query := `INSERT INTO users (` + userColumns + `) VALUES (?, ?, ?, ?, ?, ?)`
	_, err := r.db.ExecContext(ctx, query, user.ID.Hex(), user.Username, user.Email, user.Password, user.CreatedAt, user.UpdatedAt)
	if err != nil {
		return nil, mysqlError("insert user", err)
	}

	return user, nil
}

func (r *MySQLUserRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*entity.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = ?`
	return r.queryOne(ctx, query, id.Hex())
}

func (r *MySQLUserRepository) GetByEmail(ctx context.Context, email string) (*entity.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE email = ?`
	return r.queryOne(ctx, query, email)
}

func (r *MySQLUserRepository) FindByUsernameOrEmail(ctx context.Context, username, email string) (*entity.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE email = ? OR username = ? LIMIT 1`
	return r.queryOne(ctx, query, email, username)
}

func (r *MySQLUserRepository) UsernameTaken(ctx context.Context, username string, excludeID primitive.ObjectID) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM users WHERE username = ? AND id <> ?)`
	return r.exists(ctx, query, username, excludeID.Hex())
}

func (r *MySQLUserRepository) EmailTaken(ctx context.Context, email string, excludeID primitive.ObjectID) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM users WHERE email = ? AND id <> ?)`
	return r.exists(ctx, query, email, excludeID.Hex())
}

func (r *MySQLUserRepository) Update(ctx context.Context, user *entity.User) (*entity.User, error) {
	user.UpdatedAt = time.Now().UTC().Truncate(time.Millisecond)

	query := `UPDATE users SET username = ?, email = ?, updated_at = ? WHERE id = ?`
	res, err := r.db.ExecContext(ctx, query, user.Username, user.Email, user.UpdatedAt, user.ID.Hex())
	if err != nil {
		return nil, mysqlError("update user", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		// rows matched but unchanged also report 0; confirm the row exists
		if _, err := r.GetByID(ctx, user.ID); err != nil {
			return nil, err
		}
	}
	return user, nil
}

func (r *MySQLUserRepository) Delete(ctx context.Context, id primitive.ObjectID) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM users WHERE id = ?`, id.Hex())
	if err != nil {
		return mysqlError("delete user", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *MySQLUserRepository) queryOne(ctx context.Context, query string, args ...any) (*entity.User, error) {
	var user entity.User
	err := r.db.QueryRowContext(ctx, query, args...).Scan(
		objectIDScanner{&user.ID}, &user.Username, &user.Email, &user.Password, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, mysqlError("select user", err)
	}
	return &user, nil
}

func (r *MySQLUserRepository) exists(ctx context.Context, query string, args ...any) (bool, error) {
	var found bool
	if err := r.db.QueryRowContext(ctx, query, args...).Scan(&found); err != nil {
		return false, mysqlError("select user", err)
	}
	return found, nil
}
