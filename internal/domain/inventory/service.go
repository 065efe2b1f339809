// internal/domain/inventory/service.go
package inventory

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"
)

// Repository applies stock changes. Implementations must make Decrement a
// conditional update (stock >= quantity checked in the same step) and apply
// all lines of one call or none of them.
type Repository interface {
	Decrement(ctx context.Context, reference string, lines []Line) ([]StockLevel, error)
	Increment(ctx context.Context, reference string, movement MovementType, lines []Line) ([]StockLevel, error)
	Level(ctx context.Context, sku string) (*StockLevel, error)
}

// Ledger is the only writer of product stock
type Ledger struct {
	repo   Repository
	logger logrus.FieldLogger
}

// NewLedger creates a new inventory ledger
func NewLedger(repo Repository, logger logrus.FieldLogger) *Ledger {
	return &Ledger{
		repo:   repo,
		logger: logger,
	}
}

// Reserve takes quantity units of a single SKU
func (l *Ledger) Reserve(ctx context.Context, sku string, quantity int) error {
	return l.ReserveAll(ctx, "", []Line{{SKU: sku, Quantity: quantity}})
}

// ReserveAll takes every line as one unit. On *OutOfStockError nothing was changed.
func (l *Ledger) ReserveAll(ctx context.Context, reference string, lines []Line) error {
	normalized, err := NormalizeLines(lines)
	if err != nil {
		return err
	}
	if len(normalized) == 0 {
		return nil
	}

	levels, err := l.repo.Decrement(ctx, reference, normalized)
	if err != nil {
		var oos *OutOfStockError
		if errors.As(err, &oos) {
			l.logger.WithFields(logrus.Fields{
				"sku":       oos.SKU,
				"requested": oos.Requested,
				"available": oos.Available,
				"reference": reference,
			}).Info("stock reservation refused")
			return err
		}
		return fmt.Errorf("failed to reserve stock: %w", err)
	}

	l.warnLowStock(levels)
	return nil
}

// Release returns quantity units of a single SKU
func (l *Ledger) Release(ctx context.Context, sku string, quantity int) error {
	return l.ReleaseAll(ctx, "", []Line{{SKU: sku, Quantity: quantity}})
}

// ReleaseAll is the compensating action for ReserveAll. Callers guard against
// releasing the same reservation twice.
func (l *Ledger) ReleaseAll(ctx context.Context, reference string, lines []Line) error {
	normalized, err := NormalizeLines(lines)
	if err != nil {
		return err
	}
	if len(normalized) == 0 {
		return nil
	}

	if _, err := l.repo.Increment(ctx, reference, MovementTypeRelease, normalized); err != nil {
		return fmt.Errorf("failed to release stock: %w", err)
	}

	l.logger.WithFields(logrus.Fields{
		"reference": reference,
		"lines":     len(normalized),
	}).Info("stock released")
	return nil
}

// Restock adds stock from an admin action
func (l *Ledger) Restock(ctx context.Context, sku string, quantity int, reference string) (*StockLevel, error) {
	normalized, err := NormalizeLines([]Line{{SKU: sku, Quantity: quantity}})
	if err != nil {
		return nil, err
	}
	levels, err := l.repo.Increment(ctx, reference, MovementTypeRestock, normalized)
	if err != nil {
		return nil, fmt.Errorf("failed to restock: %w", err)
	}
	if len(levels) == 0 {
		return l.repo.Level(ctx, sku)
	}
	return &levels[0], nil
}

// Level returns the current stock of sku
func (l *Ledger) Level(ctx context.Context, sku string) (*StockLevel, error) {
	return l.repo.Level(ctx, sku)
}

// IsLowStock reports stock <= threshold. It never blocks other operations.
func (l *Ledger) IsLowStock(ctx context.Context, sku string) (bool, error) {
	level, err := l.repo.Level(ctx, sku)
	if err != nil {
		return false, err
	}
	return level.IsLowStock, nil
}

func (l *Ledger) warnLowStock(levels []StockLevel) {
	for _, lv := range levels {
		if !lv.IsLowStock {
			continue
		}
		l.logger.WithFields(logrus.Fields{
			"sku":       lv.SKU,
			"stock":     lv.Stock,
			"threshold": lv.LowStockThreshold,
		}).Warn("low stock")
	}
}
