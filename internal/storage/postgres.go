package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"go.uber.org/zap"

	"petprint-bot/internal/config"
)

const statsCacheKey = "order_stats"

// Cache is an optional read-through cache for aggregate queries.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error
	Del(ctx context.Context, key string) error
}

type PostgresStorage struct {
	db     *sqlx.DB
	cache  Cache
	logger *zap.Logger
}

func NewPostgresStorage(ctx context.Context, cfg config.Database, cache Cache, logger *zap.Logger) (*PostgresStorage, error) {
	const operation = "storage.NewPostgresStorage"

	var db *sqlx.DB
	var err error

	retryPolicy := backoff.NewExponentialBackOff()
	retryPolicy.MaxElapsedTime = 2 * time.Minute
	retryPolicy.MaxInterval = 15 * time.Second

	logger.Info("Connecting to PostgreSQL...")

	err = backoff.RetryNotify(
		func() error {
			db, err = sqlx.ConnectContext(ctx, "postgres", cfg.DSN())
			if err != nil {
				return fmt.Errorf("connect: %w", err)
			}

			if err = db.PingContext(ctx); err != nil {
				return fmt.Errorf("ping: %w", err)
			}
			return nil
		},
		backoff.WithContext(retryPolicy, ctx),
		func(err error, duration time.Duration) {
			logger.Warn("PostgreSQL connection failed, retrying...",
				zap.Error(err),
				zap.Duration("next_attempt_in", duration))
		},
	)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to connect after retries: %w", operation, err)
	}

	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	db.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	logger.Info("Successfully connected to PostgreSQL")
	return &PostgresStorage{
		db:     db,
		cache:  cache,
		logger: logger,
	}, nil
}

// DB exposes the underlying handle for migrations.
func (s *PostgresStorage) DB() *sql.DB {
	return s.db.DB
}

func (s *PostgresStorage) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *PostgresStorage) SaveOrder(ctx context.Context, order Order) (int64, error) {
	const operation = "storage.SaveOrder"

	const query = `
		INSERT INTO orders (
			reference, user_id, lines, total, payment_method, payment_link,
			customer_name, phone, postal, address1, address2, status, created_at
		) VALUES (
			:reference, :user_id, :lines, :total, :payment_method, :payment_link,
			:customer_name, :phone, :postal, :address1, :address2, :status, :created_at
		)
		RETURNING id
	`

	if order.Status == "" {
		order.Status = StatusPaymentReported
	}
	if order.CreatedAt.IsZero() {
		order.CreatedAt = time.Now()
	}

	rows, err := s.db.NamedQueryContext(ctx, query, order)
	if err != nil {
		return 0, fmt.Errorf("%s: failed to save order: %w", operation, err)
	}
	defer rows.Close()

	var orderID int64
	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return 0, fmt.Errorf("%s: failed to save order: %w", operation, err)
		}
		return 0, fmt.Errorf("%s: insert returned no id", operation)
	}
	if err := rows.Scan(&orderID); err != nil {
		return 0, fmt.Errorf("%s: failed to scan order id: %w", operation, err)
	}

	s.invalidateStats(ctx)
	return orderID, nil
}

func (s *PostgresStorage) GetOrderByID(ctx context.Context, orderID int64) (*Order, error) {
	const query = `SELECT * FROM orders WHERE id = $1`

	var order Order
	err := s.db.GetContext(ctx, &order, query, orderID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("failed to get order: %w", err)
	}
	return &order, nil
}

// ListOrders returns the newest orders first. A limit of zero lists all.
func (s *PostgresStorage) ListOrders(ctx context.Context, limit int) ([]Order, error) {
	query := `SELECT * FROM orders ORDER BY created_at DESC`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT $1`
		args = append(args, limit)
	}

	var orders []Order
	if err := s.db.SelectContext(ctx, &orders, query, args...); err != nil {
		return nil, fmt.Errorf("failed to fetch orders: %w", err)
	}
	return orders, nil
}

func (s *PostgresStorage) UpdateOrderStatus(ctx context.Context, orderID int64, status string) error {
	const operation = "storage.UpdateOrderStatus"

	if !ValidStatus(status) {
		return fmt.Errorf("%s: unknown status %q", operation, status)
	}

	res, err := s.db.ExecContext(ctx, `UPDATE orders SET status = $1 WHERE id = $2`, status, orderID)
	if err != nil {
		return fmt.Errorf("%s: %w", operation, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", operation, err)
	}
	if n == 0 {
		return ErrOrderNotFound
	}

	s.invalidateStats(ctx)
	return nil
}

type OrderStatistics struct {
	TotalOrders  int            `json:"total_orders"`
	TotalRevenue int64          `json:"total_revenue"`
	TodayOrders  int            `json:"today_orders"`
	TodayRevenue int64          `json:"today_revenue"`
	WeekOrders   int            `json:"week_orders"`
	WeekRevenue  int64          `json:"week_revenue"`
	MonthOrders  int            `json:"month_orders"`
	MonthRevenue int64          `json:"month_revenue"`
	StatusCounts map[string]int `json:"status_counts"`
}

func (s *PostgresStorage) GetOrderStatistics(ctx context.Context) (*OrderStatistics, error) {
	if s.cache != nil {
		if cached, err := s.cache.Get(ctx, statsCacheKey); err == nil {
			var stats OrderStatistics
			if err := json.Unmarshal(cached, &stats); err == nil {
				return &stats, nil
			}
		}
	}

	stats := &OrderStatistics{
		StatusCounts: make(map[string]int),
	}

	type countRevenue struct {
		Count   int   `db:"count"`
		Revenue int64 `db:"revenue"`
	}

	windows := []struct {
		where   string
		orders  *int
		revenue *int64
	}{
		{"TRUE", &stats.TotalOrders, &stats.TotalRevenue},
		{"created_at >= CURRENT_DATE", &stats.TodayOrders, &stats.TodayRevenue},
		{"created_at >= CURRENT_DATE - INTERVAL '7 days'", &stats.WeekOrders, &stats.WeekRevenue},
		{"created_at >= CURRENT_DATE - INTERVAL '30 days'", &stats.MonthOrders, &stats.MonthRevenue},
	}
	for _, w := range windows {
		var cr countRevenue
		query := `SELECT COUNT(*) AS count, COALESCE(SUM(total), 0) AS revenue FROM orders WHERE ` + w.where
		if err := s.db.GetContext(ctx, &cr, query); err != nil {
			return nil, fmt.Errorf("failed to get order totals: %w", err)
		}
		*w.orders = cr.Count
		*w.revenue = cr.Revenue
	}

	rows, err := s.db.QueryContext(ctx, `SELECT status, COUNT(*) FROM orders GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("failed to get status counts: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, fmt.Errorf("failed to scan status count: %w", err)
		}
		stats.StatusCounts[status] = count
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read status counts: %w", err)
	}

	if s.cache != nil {
		if data, err := json.Marshal(stats); err == nil {
			if err := s.cache.Set(ctx, statsCacheKey, data, time.Hour); err != nil {
				s.logger.Warn("Failed to cache order statistics", zap.Error(err))
			}
		}
	}

	return stats, nil
}

func (s *PostgresStorage) invalidateStats(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Del(ctx, statsCacheKey); err != nil {
		s.logger.Warn("Failed to invalidate order statistics cache", zap.Error(err))
	}
}
