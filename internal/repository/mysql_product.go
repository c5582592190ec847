package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"shop-service/internal/entity"
)

const productColumns = `id, name, price, description, image, created_by, created_at, updated_at`

type MySQLProductRepository struct {
	db *sql.DB
}

func NewMySQLProductRepository(db *sql.DB) *MySQLProductRepository {
	return &MySQLProductRepository{db}
}

func (r *MySQLProductRepository) List(ctx context.Context) ([]*entity.Product, error) {
	query := `SELECT ` + productColumns + ` FROM products ORDER BY id`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, mysqlError("select products", err)
	}
	defer rows.Close()

	products := []*entity.Product{}
	for rows.Next() {
		product, err := scanProduct(rows)
		if err != nil {
			return nil, mysqlError("scan product", err)
		}
		products = append(products, product)
	}
	if err := rows.Err(); err != nil {
		return nil, mysqlError("select products", err)
	}

	return products, nil
}

func (r *MySQLProductRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*entity.Product, error) {
	query := `SELECT ` + productColumns + ` FROM products WHERE id = ?`
	product, err := scanProduct(r.db.QueryRowContext(ctx, query, id.Hex()))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, mysqlError("select product", err)
	}
	return product, nil
}

func (r *MySQLProductRepository) Create(ctx context.Context, product *entity.Product) (*entity.Product, error) {
	if product.ID.IsZero() {
		product.ID = primitive.NewObjectID()
	}
	now := time.Now().UTC().Truncate(time.Millisecond)
	product.CreatedAt, product.UpdatedAt = now, now

	query := `INSERT INTO products (` + productColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := r.db.ExecContext(ctx, query, product.ID.Hex(), product.Name, product.Price, product.Description,
		product.Image, product.CreatedBy.Hex(), product.CreatedAt, product.UpdatedAt)
	if err != nil {
		return nil, mysqlError("insert product", err)
	}

	return product, nil
}

func (r *MySQLProductRepository) Update(ctx context.Context, product *entity.Product) (*entity.Product, error) {
	product.UpdatedAt = time.Now().UTC().Truncate(time.Millisecond)

	query := `UPDATE products SET name = ?, price = ?, description = ?, image = ?, updated_at = ? WHERE id = ?`
	res, err := r.db.ExecContext(ctx, query, product.Name, product.Price, product.Description, product.Image,
		product.UpdatedAt, product.ID.Hex())
	if err != nil {
		return nil, mysqlError("update product", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		if _, err := r.GetByID(ctx, product.ID); err != nil {
			return nil, err
		}
	}
	return product, nil
}

func (r *MySQLProductRepository) Delete(ctx context.Context, id primitive.ObjectID) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM products WHERE id = ?`, id.Hex())
	if err != nil {
		return mysqlError("delete product", err)
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

func (r *MySQLProductRepository) Stats(ctx context.Context) (*entity.ProductStats, error) {
	stats := &entity.ProductStats{}
	var avg sql.NullFloat64
	err := r.db.QueryRowContext(ctx, `SELECT AVG(price), COUNT(*) FROM products`).Scan(&avg, &stats.Total)
	if err != nil {
		return nil, mysqlError("aggregate products", err)
	}
	stats.AvgPrice = avg.Float64
	return stats, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProduct(row rowScanner) (*entity.Product, error) {
	var p entity.Product
	err := row.Scan(objectIDScanner{&p.ID}, &p.Name, &p.Price, &p.Description, &p.Image,
		objectIDScanner{&p.CreatedBy}, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &p, nil
}
