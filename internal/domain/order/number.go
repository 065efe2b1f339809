package order

import (
	"context"
	"fmt"
)

// Sequencer hands out a strictly increasing counter per year. Implementations
// must be atomic across processes.
type Sequencer interface {
	Next(ctx context.Context, year int) (int64, error)
}

// FormatOrderNumber renders ORD-<year>-<seq>, the sequence padded to 5 digits
func FormatOrderNumber(year int, seq int64) string {
	return fmt.Sprintf("ORD-%d-%05d", year, seq)
}

// NextOrderNumber draws the next number for year from seq
func NextOrderNumber(ctx context.Context, seq Sequencer, year int) (string, error) {
	n, err := seq.Next(ctx, year)
	if err != nil {
		return "", fmt.Errorf("failed to generate order number: %w", err)
	}
	return FormatOrderNumber(year, n), nil
}
