// internal/domain/analytics/service.go
package analytics

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
)

const (
	defaultDays     = 30
	maxDays         = 366
	topProductLimit = 10
)

// Repository aggregates orders placed since a point in time. "Paid" means
// money was captured at some point, so refunded orders still count as sales.
type Repository interface {
	OrdersByStatus(ctx context.Context, since time.Time) ([]StatusData, error)
	// DailyRevenue sums total minus refunds of paid orders per UTC day.
	DailyRevenue(ctx context.Context, since time.Time) ([]TimeSeriesData, error)
	TopProducts(ctx context.Context, since time.Time, limit int) ([]ProductSalesData, error)
}

// Service builds admin sales reports
type Service struct {
	repo   Repository
	logger logrus.FieldLogger
	now    func() time.Time
}

// NewService creates a new analytics service
func NewService(repo Repository, logger logrus.FieldLogger) *Service {
	return &Service{
		repo:   repo,
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// WithClock replaces the time source
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// SalesReport summarises the orders of the last Days days. Amounts are cents.
type SalesReport struct {
	Days          int                `json:"days"`
	Since         time.Time          `json:"since"`
	TotalOrders   int64              `json:"total_orders"`
	TotalSales    int64              `json:"total_sales"`
	TotalRevenue  int64              `json:"total_revenue"`
	AvgOrderValue int64              `json:"avg_order_value"`
	DailyRevenue  []TimeSeriesData   `json:"daily_revenue"`
	SalesByStatus []StatusData       `json:"sales_by_status"`
	TopProducts   []ProductSalesData `json:"top_products"`
}

type TimeSeriesData struct {
	Date  string `json:"date"`
	Value int64  `json:"value"`
	Count int64  `json:"count,omitempty"`
}

type ProductSalesData struct {
	SKU        string `json:"sku"`
	Name       string `json:"name"`
	TotalSold  int64  `json:"total_sold"`
	Revenue    int64  `json:"revenue"`
	OrderCount int64  `json:"order_count"`
}

type StatusData struct {
	Status string `json:"status"`
	Count  int64  `json:"count"`
	Value  int64  `json:"value"`
}

// GetSalesReport reports on the last days days, 30 when days <= 0
func (s *Service) GetSalesReport(ctx context.Context, days int) (*SalesReport, error) {
	if days <= 0 {
		days = defaultDays
	}
	if days > maxDays {
		days = maxDays
	}

	now := s.now()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	since := today.AddDate(0, 0, -(days - 1))

	report := &SalesReport{Days: days, Since: since}

	byStatus, err := s.repo.OrdersByStatus(ctx, since)
	if err != nil {
		return nil, fmt.Errorf("failed to get orders by status: %w", err)
	}
	report.SalesByStatus = byStatus
	for _, st := range byStatus {
		report.TotalOrders += st.Count
	}

	daily, err := s.repo.DailyRevenue(ctx, since)
	if err != nil {
		return nil, fmt.Errorf("failed to get daily revenue: %w", err)
	}
	report.DailyRevenue = daily
	for _, d := range daily {
		report.TotalSales += d.Count
		report.TotalRevenue += d.Value
	}
	if report.TotalSales > 0 {
		report.AvgOrderValue = report.TotalRevenue / report.TotalSales
	}

	top, err := s.repo.TopProducts(ctx, since, topProductLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to get top products: %w", err)
	}
	report.TopProducts = top

	s.logger.WithFields(logrus.Fields{
		"days":    days,
		"orders":  report.TotalOrders,
		"revenue": report.TotalRevenue,
	}).Debug("sales report generated")
	return report, nil
}
