package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/your-org/storefront-orders/internal/domain/analytics"
)

const paidStatuses = "('paid', 'partially_refunded', 'refunded')"

// OrdersByStatus counts orders created since since, per status
func (r *OrderRepository) OrdersByStatus(ctx context.Context, since time.Time) ([]analytics.StatusData, error) {
	var result []analytics.StatusData
	err := r.db.WithContext(ctx).Raw(`
		SELECT
			status,
			COUNT(*) AS count,
			COALESCE(SUM(total), 0) AS value
		FROM orders
		WHERE created_at >= ?
		GROUP BY status
		ORDER BY count DESC, status
	`, since).Scan(&result).Error
	if err != nil {
		return nil, fmt.Errorf("failed to count orders by status: %w", err)
	}
	return result, nil
}

// DailyRevenue sums net revenue of paid orders per UTC day, oldest first
func (r *OrderRepository) DailyRevenue(ctx context.Context, since time.Time) ([]analytics.TimeSeriesData, error) {
	rows, err := r.db.WithContext(ctx).Raw(`
		SELECT
			TO_CHAR(created_at AT TIME ZONE 'UTC', 'YYYY-MM-DD') AS date,
			COALESCE(SUM(total - refund_amount), 0) AS value,
			COUNT(*) AS count
		FROM orders
		WHERE created_at >= ? AND payment_status IN `+paidStatuses+`
		GROUP BY 1
		ORDER BY 1
	`, since).Rows()
	if err != nil {
		return nil, fmt.Errorf("failed to get daily revenue: %w", err)
	}
	defer rows.Close()

	var result []analytics.TimeSeriesData
	for rows.Next() {
		var d analytics.TimeSeriesData
		if err := rows.Scan(&d.Date, &d.Value, &d.Count); err != nil {
			return nil, fmt.Errorf("failed to scan daily revenue: %w", err)
		}
		result = append(result, d)
	}
	return result, rows.Err()
}

// TopProducts ranks SKUs of paid orders by revenue
func (r *OrderRepository) TopProducts(ctx context.Context, since time.Time, limit int) ([]analytics.ProductSalesData, error) {
	var result []analytics.ProductSalesData
	err := r.db.WithContext(ctx).Raw(`
		SELECT
			oi.sku,
			MAX(oi.name) AS name,
			COALESCE(SUM(oi.quantity), 0) AS total_sold,
			COALESCE(SUM(oi.total), 0) AS revenue,
			COUNT(DISTINCT o.id) AS order_count
		FROM order_items oi
		JOIN orders o ON oi.order_id = o.id
		WHERE o.created_at >= ? AND o.payment_status IN `+paidStatuses+`
		GROUP BY oi.sku
		ORDER BY revenue DESC, oi.sku
		LIMIT ?
	`, since, limit).Scan(&result).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get top products: %w", err)
	}
	return result, nil
}
