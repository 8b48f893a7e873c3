package draft

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/spec-kit/support-portal/internal/domain"
)

const (
	ticketSlot = "localTickets"
	themeSlot  = "color-theme"
)

// Cache is the durable local record of tickets submitted through this
// portal instance. It mirrors submissions into a named slot and is never
// reconciled against the ticket backend: it can diverge from the system
// of record without detection, and nothing reads it back into the store.
type Cache struct {
	db *sql.DB

	mu      sync.Mutex
	tickets []domain.Ticket
}

// Open prepares the slot table and loads any previously persisted draft
// list into memory.
func Open(ctx context.Context, db *sql.DB) (*Cache, error) {
	const schema = `
	CREATE TABLE IF NOT EXISTS slots (
		name TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);`
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return nil, fmt.Errorf("failed to create slot table: %w", err)
	}

	c := &Cache{db: db}
	if err := c.load(ctx); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Cache) load(ctx context.Context) error {
	raw, err := c.readSlot(ctx, ticketSlot)
	if err != nil {
		return err
	}
	c.tickets = []domain.Ticket{}
	if raw == "" {
		return nil
	}
	if err := json.Unmarshal([]byte(raw), &c.tickets); err != nil {
		return fmt.Errorf("failed to decode draft list: %w", err)
	}
	return nil
}

// Record appends a submitted ticket and rewrites the whole serialized
// list. The slot always holds the full collection, never a delta.
func (c *Cache) Record(ctx context.Context, ticket domain.Ticket) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.tickets = append(c.tickets, ticket.Clone())
	raw, err := json.Marshal(c.tickets)
	if err != nil {
		return fmt.Errorf("failed to encode draft list: %w", err)
	}
	return c.writeSlot(ctx, ticketSlot, string(raw))
}

// List returns the in-memory draft list in submission order.
func (c *Cache) List() []domain.Ticket {
	c.mu.Lock()
	defer c.mu.Unlock()
	tickets := make([]domain.Ticket, 0, len(c.tickets))
	for _, t := range c.tickets {
		tickets = append(tickets, t.Clone())
	}
	return tickets
}

// SaveTheme persists the UI color-theme preference string.
func (c *Cache) SaveTheme(ctx context.Context, theme string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.writeSlot(ctx, themeSlot, theme)
}

// Theme returns the persisted color-theme preference, empty when unset.
func (c *Cache) Theme(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.readSlot(ctx, themeSlot)
}

func (c *Cache) readSlot(ctx context.Context, name string) (string, error) {
	var value string
	err := c.db.QueryRowContext(ctx, `SELECT value FROM slots WHERE name=?`, name).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to read slot %s: %w", name, err)
	}
	return value, nil
}

func (c *Cache) writeSlot(ctx context.Context, name, value string) error {
	const query = `
	INSERT INTO slots (name, value) VALUES (?, ?)
	ON CONFLICT(name) DO UPDATE SET value=excluded.value`
	if _, err := c.db.ExecContext(ctx, query, name, value); err != nil {
		return fmt.Errorf("failed to write slot %s: %w", name, err)
	}
	return nil
}
