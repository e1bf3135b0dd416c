package memory

import (
	"context"
	"fmt"
	"sync"

	"cuentas/internal/core"
)

// Store is the in-memory backend used for development and tests. It
// implements every source port plus the movement writer.
type Store struct {
	mu         sync.Mutex
	books      []core.Book
	members    map[string][]string // bookID -> userIDs
	categories map[string][]map[string]any
	movements  map[string][]core.Movement
}

func New() *Store {
	return &Store{
		members:    make(map[string][]string),
		categories: make(map[string][]map[string]any),
		movements:  make(map[string][]core.Movement),
	}
}

// Seeded returns a store with one demo book so the server is usable
// out of the box.
func Seeded() *Store {
	s := New()
	s.AddBook(core.Book{ID: "demo", Name: "Cuentas de casa", Currency: "EUR"}, "demo-user")
	s.AddCategory("demo", map[string]any{"id": "nomina", "nombre": "Nómina", "tipo": "ingreso"})
	s.AddCategory("demo", map[string]any{"id": "hogar", "nombre": "Hogar", "tipo": "gasto"})
	s.AddCategory("demo", map[string]any{"id": "comida", "nombre": "Comida", "tipo": "gasto"})
	return s
}

func (s *Store) AddBook(b core.Book, userIDs ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.books = append(s.books, b)
	s.members[b.ID] = append(s.members[b.ID], userIDs...)
}

func (s *Store) AddCategory(bookID string, record map[string]any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.categories[bookID] = append(s.categories[bookID], record)
}

func (s *Store) FetchBooks(_ context.Context, userID string) ([]core.Book, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []core.Book
	for _, b := range s.books {
		for _, member := range s.members[b.ID] {
			if member == userID {
				out = append(out, b)
				break
			}
		}
	}
	return out, nil
}

func (s *Store) FetchCategories(_ context.Context, bookID string) ([]map[string]any, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]map[string]any(nil), s.categories[bookID]...), nil
}

func (s *Store) FetchMovements(_ context.Context, bookID string, year int) ([]core.Movement, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []core.Movement
	for _, m := range s.movements[bookID] {
		if year != 0 && m.Year() != year {
			continue
		}
		out = append(out, m)
	}
	return out, nil
}

func (s *Store) CreateMovement(_ context.Context, bookID string, m core.Movement) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.movements[bookID] {
		if existing.ID == m.ID {
			return fmt.Errorf("movement %s already exists", m.ID)
		}
	}
	s.movements[bookID] = append(s.movements[bookID], m)
	return nil
}

func (s *Store) UpdateMovement(_ context.Context, bookID string, m core.Movement) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, existing := range s.movements[bookID] {
		if existing.ID == m.ID {
			s.movements[bookID][i] = m
			return nil
		}
	}
	return fmt.Errorf("movement %s not found", m.ID)
}

func (s *Store) DeleteMovement(_ context.Context, bookID, movementID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	list := s.movements[bookID]
	for i, existing := range list {
		if existing.ID == movementID {
			s.movements[bookID] = append(list[:i], list[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("movement %s not found", movementID)
}
