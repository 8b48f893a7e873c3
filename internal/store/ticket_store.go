package store

import (
	"sync"

	"github.com/spec-kit/support-portal/internal/domain"
)

// Origin tags how a cached ticket got into the store.
type Origin string

const (
	// OriginRemote marks entries confirmed by a full refetch.
	OriginRemote Origin = "remote"
	// OriginLocal marks optimistic entries awaiting the next refetch.
	OriginLocal Origin = "local"
)

// Entry pairs a cached ticket with its provenance.
type Entry struct {
	Ticket domain.Ticket
	Origin Origin
}

// TicketStore is the portal-wide cache of the ticket collection. Its
// content is only ever an exact mirror of the last successful full fetch,
// or that mirror plus optimistic overlays that the next refetch
// supersedes. Construct one per portal instance and inject it; there is
// no ambient global.
type TicketStore struct {
	mu       sync.RWMutex
	entries  []Entry
	darkMode bool
}

// New returns an empty store.
func New() *TicketStore {
	return &TicketStore{entries: []Entry{}}
}

// ReplaceAll overwrites the entire cached collection with the refetched
// one. A nil collection stores an empty one; the store never holds a
// malformed shape. Every entry becomes remote-confirmed.
func (s *TicketStore) ReplaceAll(tickets []domain.Ticket) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = make([]Entry, 0, len(tickets))
	for _, t := range tickets {
		s.entries = append(s.entries, Entry{Ticket: t.Clone(), Origin: OriginRemote})
	}
}

// Append adds one ticket to the end of the cached sequence as an
// optimistic, locally-pending entry.
func (s *TicketStore) Append(ticket domain.Ticket) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(s.entries, Entry{Ticket: ticket.Clone(), Origin: OriginLocal})
}

// UpdateOne replaces the cached entry whose id matches. Absent ids are a
// no-op: the store never inserts on update.
func (s *TicketStore) UpdateOne(ticket domain.Ticket) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.entries {
		if s.entries[i].Ticket.ID == ticket.ID {
			s.entries[i].Ticket = ticket.Clone()
			return
		}
	}
}

// RemoveOne removes the cached entry with that id; no-op if absent.
func (s *TicketStore) RemoveOne(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.entries {
		if s.entries[i].Ticket.ID == id {
			s.entries = append(s.entries[:i], s.entries[i+1:]...)
			return
		}
	}
}

// Snapshot returns a copy of the cached tickets in order.
func (s *TicketStore) Snapshot() []domain.Ticket {
	s.mu.RLock()
	defer s.mu.RUnlock()
	tickets := make([]domain.Ticket, 0, len(s.entries))
	for _, e := range s.entries {
		tickets = append(tickets, e.Ticket.Clone())
	}
	return tickets
}

// Entries returns a copy of the cached entries with provenance.
func (s *TicketStore) Entries() []Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entries := make([]Entry, 0, len(s.entries))
	for _, e := range s.entries {
		entries = append(entries, Entry{Ticket: e.Ticket.Clone(), Origin: e.Origin})
	}
	return entries
}

// Get returns a copy of the cached ticket with that id.
func (s *TicketStore) Get(id string) (domain.Ticket, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, e := range s.entries {
		if e.Ticket.ID == id {
			return e.Ticket.Clone(), true
		}
	}
	return domain.Ticket{}, false
}

// Len reports the number of cached tickets.
func (s *TicketStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// SetDarkMode stores the UI color-theme preference. Orthogonal to the
// ticket collection.
func (s *TicketStore) SetDarkMode(dark bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.darkMode = dark
}

// DarkMode reports the stored preference.
func (s *TicketStore) DarkMode() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.darkMode
}
