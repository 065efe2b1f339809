package memory

import (
	"context"
	"sync"

	"github.com/your-org/storefront-orders/internal/domain/payment"
)

// EventDeduper remembers claimed payment event keys for the process lifetime
type EventDeduper struct {
	mu   sync.Mutex
	seen map[string]struct{}
}

func NewEventDeduper() *EventDeduper {
	return &EventDeduper{seen: make(map[string]struct{})}
}

func (d *EventDeduper) Claim(_ context.Context, key string) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.seen[key]; ok {
		return false, nil
	}
	d.seen[key] = struct{}{}
	return true, nil
}

func (d *EventDeduper) Release(_ context.Context, key string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.seen, key)
	return nil
}

// EventLog keeps payment audit entries in insertion order
type EventLog struct {
	mu      sync.Mutex
	entries []payment.AuditEntry
}

func NewEventLog() *EventLog {
	return &EventLog{}
}

func (l *EventLog) Append(_ context.Context, entry payment.AuditEntry) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, entry)
	return nil
}

// ForOrder returns the latest entries for orderID, newest first
func (l *EventLog) ForOrder(_ context.Context, orderID string, limit int64) ([]payment.AuditEntry, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	var out []payment.AuditEntry
	for i := len(l.entries) - 1; i >= 0; i-- {
		if l.entries[i].OrderID != orderID {
			continue
		}
		out = append(out, l.entries[i])
		if limit > 0 && int64(len(out)) == limit {
			break
		}
	}
	return out, nil
}

// Entries returns a copy of the log
func (l *EventLog) Entries() []payment.AuditEntry {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]payment.AuditEntry, len(l.entries))
	copy(out, l.entries)
	return out
}
