package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/Aayush8356/Vendora/internal/entity"
	"github.com/Aayush8356/Vendora/internal/repository"
	"github.com/jmoiron/sqlx"
)

type orderRepository struct {
	db *sqlx.DB
}

// NewOrderRepository creates a new OrderRepository backed by Postgres.
func NewOrderRepository(db *sqlx.DB) repository.OrderRepository {
	return &orderRepository{db: db}
}

func (r *orderRepository) PlaceOrder(ctx context.Context, cmd *entity.PlaceOrder) (*entity.OrderPlaced, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	now := time.Now().UTC()

	// Idempotency check
	var inserted bool
	err = tx.QueryRowxContext(ctx,
		`INSERT INTO orders (id, session_id, subtotal, tax, shipping, total, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8) ON CONFLICT (id) DO NOTHING RETURNING true`,
		cmd.OrderID, cmd.SessionID, cmd.Pricing.Subtotal, cmd.Pricing.Tax, cmd.Pricing.Shipping, cmd.Pricing.Total,
		entity.OrderPlacedStatus, now,
	).Scan(&inserted)

	if errors.Is(err, sql.ErrNoRows) {
		// Already exists, just return nil indicating it was handled
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to insert order: %w", err)
	}

	for _, item := range cmd.Items {
		variants, err := json.Marshal(item.Variants)
		if err != nil {
			return nil, fmt.Errorf("failed to encode order item variants: %w", err)
		}
		_, err = tx.ExecContext(ctx,
			"INSERT INTO order_items (order_id, product_id, name, variants, price, quantity) VALUES ($1, $2, $3, $4, $5, $6)",
			cmd.OrderID, item.ProductID, item.Name, variants, item.Price, item.Quantity,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to insert order item: %w", err)
		}

		res, err := tx.ExecContext(ctx,
			"UPDATE products SET stock = stock - $1, updated_at = NOW() WHERE id = $2 AND status = 'published' AND stock >= $1",
			item.Quantity, item.ProductID,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to update product stock: %w", err)
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return nil, fmt.Errorf("failed to read stock update result: %w", err)
		}
		if affected == 0 {
			var sellable bool
			err := tx.QueryRowContext(ctx,
				"SELECT EXISTS (SELECT 1 FROM products WHERE id = $1 AND status = 'published')",
				item.ProductID,
			).Scan(&sellable)
			if err != nil {
				return nil, fmt.Errorf("failed to check product %s: %w", item.ProductID, err)
			}
			if !sellable {
				return nil, fmt.Errorf("%w: product %s", entity.ErrProductNotFound, item.ProductID)
			}
			return nil, fmt.Errorf("%w: product %s", entity.ErrInsufficientStock, item.ProductID)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	event := &entity.OrderPlaced{
		OrderID:   cmd.OrderID,
		SessionID: cmd.SessionID,
		Items:     cmd.Items,
		Pricing:   cmd.Pricing,
		PlacedAt:  now,
	}
	return event, nil
}

func (r *orderRepository) ConfirmOrder(ctx context.Context, orderID string) error {
	_, err := r.db.ExecContext(ctx,
		"UPDATE orders SET status = $1 WHERE id = $2 AND status = $3",
		entity.OrderConfirmedStatus, orderID, entity.OrderPlacedStatus,
	)
	if err != nil {
		return fmt.Errorf("failed to confirm order: %w", err)
	}
	return nil
}

type orderRow struct {
	ID        string    `db:"id"`
	SessionID string    `db:"session_id"`
	Subtotal  float64   `db:"subtotal"`
	Tax       float64   `db:"tax"`
	Shipping  float64   `db:"shipping"`
	Total     float64   `db:"total"`
	Status    string    `db:"status"`
	CreatedAt time.Time `db:"created_at"`
}

type orderItemRow struct {
	ProductID string  `db:"product_id"`
	Name      string  `db:"name"`
	Variants  []byte  `db:"variants"`
	Price     float64 `db:"price"`
	Quantity  int     `db:"quantity"`
}

func (r *orderRepository) FindRecent(ctx context.Context, sessionID string, limit int) ([]entity.Order, error) {
	var rows []orderRow
	err := r.db.SelectContext(ctx, &rows,
		"SELECT id, session_id, subtotal, tax, shipping, total, status, created_at FROM orders WHERE session_id = $1 ORDER BY created_at DESC LIMIT $2",
		sessionID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query orders: %w", err)
	}

	orders := make([]entity.Order, 0, len(rows))
	for _, row := range rows {
		o := entity.Order{
			ID:        row.ID,
			SessionID: row.SessionID,
			Items:     []entity.OrderItem{},
			Pricing: entity.OrderPricing{
				Subtotal: row.Subtotal,
				Tax:      row.Tax,
				Shipping: row.Shipping,
				Total:    row.Total,
			},
			Status:    row.Status,
			CreatedAt: row.CreatedAt,
		}

		// Fetch items for each order
		var items []orderItemRow
		err := r.db.SelectContext(ctx, &items,
			"SELECT product_id, name, variants, price, quantity FROM order_items WHERE order_id = $1 ORDER BY id",
			row.ID,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to query order items: %w", err)
		}
		for _, it := range items {
			item := entity.OrderItem{
				ProductID: it.ProductID,
				Name:      it.Name,
				Price:     it.Price,
				Quantity:  it.Quantity,
			}
			if err := json.Unmarshal(it.Variants, &item.Variants); err != nil {
				return nil, fmt.Errorf("failed to decode order item variants: %w", err)
			}
			o.Items = append(o.Items, item)
		}
		orders = append(orders, o)
	}

	return orders, nil
}
