package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/go-sql-driver/mysql"

	"github.com/rl1809/flash-sale-pipeline/internal/core/domain"
	"github.com/rl1809/flash-sale-pipeline/internal/port"
)

const mysqlDupEntry = 1062

type MySQLAdapter struct {
	db *sql.DB
}

func NewMySQLAdapter(db *sql.DB) *MySQLAdapter {
	return &MySQLAdapter{db: db}
}

func (m *MySQLAdapter) Migrate(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS products (
			id VARCHAR(64) PRIMARY KEY,
			stock INT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS orders (
			id VARCHAR(64) PRIMARY KEY,
			product_id VARCHAR(64) NOT NULL,
			user_id VARCHAR(64) NOT NULL,
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
			INDEX idx_orders_product_id (product_id)
		)`,
	}

	for _, stmt := range stmts {
		if _, err := m.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}

	return nil
}

func (m *MySQLAdapter) SeedProduct(ctx context.Context, productID string, stock int) error {
	_, err := m.db.ExecContext(ctx, `
		INSERT IGNORE INTO products (id, stock) VALUES (?, ?)`,
		productID, stock,
	)
	if err != nil {
		return fmt.Errorf("seed product: %w", err)
	}

	return nil
}

// PersistReservation decrements durable stock and inserts the order row in one
// transaction. The order id is the reservation id, so a redelivered message
// surfaces as a duplicate-key error instead of a second row.
func (m *MySQLAdapter) PersistReservation(ctx context.Context, r domain.Reservation) error {
	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx, `
		UPDATE products SET stock = stock - 1
		WHERE id = ? AND stock > 0`,
		r.ProductID,
	)
	if err != nil {
		return fmt.Errorf("decrement stock: %w", err)
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		// A redelivery of the message that took the last unit also lands
		// here; it is already persisted, not a divergence.
		var existing int
		if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM orders WHERE id = ?`, r.OrderID).Scan(&existing); err != nil {
			return fmt.Errorf("check order: %w", err)
		}
		if existing > 0 {
			return port.ErrOrderExists
		}
		return port.ErrStockDivergence
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO orders (id, product_id, user_id, created_at)
		VALUES (?, ?, ?, ?)`,
		r.OrderID, r.ProductID, r.UserID, r.CreatedAt(),
	)
	if err != nil {
		var mysqlErr *mysql.MySQLError
		if errors.As(err, &mysqlErr) && mysqlErr.Number == mysqlDupEntry {
			return port.ErrOrderExists
		}
		return fmt.Errorf("insert order: %w", err)
	}

	return tx.Commit()
}

func (m *MySQLAdapter) ProductStock(ctx context.Context, productID string) (*domain.Product, error) {
	var p domain.Product
	err := m.db.QueryRowContext(ctx, `
		SELECT id, stock FROM products WHERE id = ?`, productID,
	).Scan(&p.ID, &p.Stock)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query product: %w", err)
	}

	return &p, nil
}
