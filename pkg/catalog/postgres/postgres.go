// Package postgres persists the catalog in PostgreSQL.
package postgres

import (
	"context"
	"database/sql"

	"cartflow/pkg/catalog"
)

// Schema is the table stockd creates on boot.
const Schema = `CREATE TABLE IF NOT EXISTS products (
	id BIGINT PRIMARY KEY,
	title TEXT NOT NULL,
	price NUMERIC(12,2) NOT NULL,
	image TEXT NOT NULL DEFAULT '',
	stock INT NOT NULL DEFAULT 0
)`

// Repository provides a PostgreSQL implementation of catalog.Repository.
type Repository struct {
	db *sql.DB
}

// New creates a PostgreSQL repository.
func New(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// Product retrieves product metadata by ID.
func (r *Repository) Product(ctx context.Context, productID int64) (catalog.Product, error) {
	var p catalog.Product
	err := r.db.QueryRowContext(ctx,
		"SELECT id, title, price, image FROM products WHERE id=$1", productID).
		Scan(&p.ID, &p.Title, &p.Price, &p.Image)
	if err == sql.ErrNoRows {
		return catalog.Product{}, catalog.ErrNotFound
	}
	return p, err
}

// Stock retrieves the available quantity for a product.
func (r *Repository) Stock(ctx context.Context, productID int64) (catalog.Stock, error) {
	var s catalog.Stock
	err := r.db.QueryRowContext(ctx,
		"SELECT id, stock FROM products WHERE id=$1", productID).
		Scan(&s.ID, &s.Amount)
	if err == sql.ErrNoRows {
		return catalog.Stock{}, catalog.ErrNotFound
	}
	return s, err
}

// Products fetches all products ordered by ID.
func (r *Repository) Products(ctx context.Context) ([]catalog.Product, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT id, title, price, image FROM products ORDER BY id")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var products []catalog.Product
	for rows.Next() {
		var p catalog.Product
		if err := rows.Scan(&p.ID, &p.Title, &p.Price, &p.Image); err != nil {
			return nil, err
		}
		products = append(products, p)
	}
	return products, rows.Err()
}

// SetStock sets the available quantity for an existing product.
func (r *Repository) SetStock(ctx context.Context, productID int64, amount int) error {
	res, err := r.db.ExecContext(ctx,
		"UPDATE products SET stock=$2 WHERE id=$1", productID, amount)
	if err != nil {
		return err
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return catalog.ErrNotFound
	}
	return nil
}

// Upsert inserts or replaces a product row, used by stockd seeding.
func (r *Repository) Upsert(ctx context.Context, p catalog.Product, stock int) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO products (id, title, price, image, stock) VALUES ($1,$2,$3,$4,$5)
		 ON CONFLICT (id) DO UPDATE SET title=$2, price=$3, image=$4, stock=$5`,
		p.ID, p.Title, p.Price, p.Image, stock)
	return err
}
