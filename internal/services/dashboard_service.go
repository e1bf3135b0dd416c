package services

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sync/errgroup"

	"cuentas/internal/core"
	"cuentas/internal/source"
)

// ErrBookNotFound is returned when the user has no access to the
// requested book (or no books at all).
var ErrBookNotFound = errors.New("book not found")

// Snapshot is the raw data a dashboard render starts from. Derived
// views are always recomputed from it, never stored.
type Snapshot struct {
	Book       core.Book
	Movements  []core.Movement
	Categories map[string]core.Category
}

// DashboardService loads snapshots from the configured sources.
type DashboardService struct {
	movements  source.MovementSource
	categories source.CategorySource
	books      source.BookSource
	locale     string
}

func NewDashboardService(movements source.MovementSource, categories source.CategorySource, books source.BookSource, locale string) *DashboardService {
	if locale == "" {
		locale = core.DefaultLocale
	}
	return &DashboardService{
		movements:  movements,
		categories: categories,
		books:      books,
		locale:     locale,
	}
}

// Books lists the books visible to the user.
func (s *DashboardService) Books(ctx context.Context, userID string) ([]core.Book, error) {
	books, err := s.books.FetchBooks(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("fetch books: %w", err)
	}
	return books, nil
}

// LoadSnapshot checks the user may read the book, then fetches its
// movements and categories concurrently. An empty bookID selects the
// user's first book. Year 0 loads the full history.
func (s *DashboardService) LoadSnapshot(ctx context.Context, userID, bookID string, year int) (Snapshot, error) {
	books, err := s.books.FetchBooks(ctx, userID)
	if err != nil {
		return Snapshot{}, fmt.Errorf("fetch books: %w", err)
	}

	var snap Snapshot
	found := false
	for _, b := range books {
		if bookID == "" || b.ID == bookID {
			snap.Book = b
			found = true
			break
		}
	}
	if !found {
		return Snapshot{}, fmt.Errorf("book %q for user %q: %w", bookID, userID, ErrBookNotFound)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		movements, err := s.movements.FetchMovements(gctx, snap.Book.ID, year)
		if err != nil {
			return fmt.Errorf("fetch movements: %w", err)
		}
		snap.Movements = movements
		return nil
	})
	g.Go(func() error {
		records, err := s.categories.FetchCategories(gctx, snap.Book.ID)
		if err != nil {
			return fmt.Errorf("fetch categories: %w", err)
		}
		snap.Categories = source.BuildCategories(records)
		return nil
	})
	if err := g.Wait(); err != nil {
		return Snapshot{}, err
	}

	return snap, nil
}

// Formatter builds the locale/currency formatter for a book.
func (s *DashboardService) Formatter(b core.Book) core.Formatter {
	return core.NewFormatter(s.locale, b.CurrencyOrDefault())
}
