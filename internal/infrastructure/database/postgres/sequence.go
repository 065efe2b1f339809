package postgres

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"
)

// OrderSequence holds the last order number issued per year
type OrderSequence struct {
	Year      int   `gorm:"primaryKey;autoIncrement:false"`
	Value     int64 `gorm:"not null"`
	UpdatedAt time.Time
}

// TableName specifies the table name for OrderSequence
func (OrderSequence) TableName() string {
	return "order_sequences"
}

// Sequence issues order numbers from the order_sequences table
type Sequence struct {
	db *gorm.DB
}

func NewSequence(db *gorm.DB) *Sequence {
	return &Sequence{db: db}
}

// Next atomically increments and returns the counter of year
func (s *Sequence) Next(ctx context.Context, year int) (int64, error) {
	var value int64
	err := s.db.WithContext(ctx).Raw(`
		INSERT INTO order_sequences (year, value, updated_at) VALUES (?, 1, NOW())
		ON CONFLICT (year) DO UPDATE SET value = order_sequences.value + 1, updated_at = NOW()
		RETURNING value`, year).Scan(&value).Error
	if err != nil {
		return 0, fmt.Errorf("failed to advance order sequence: %w", err)
	}
	return value, nil
}
