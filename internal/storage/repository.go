package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/shopspring/decimal"
	_ "modernc.org/sqlite"

	"cuentas/internal/core"
)

// ErrNotFound is returned when a movement or book does not exist.
var ErrNotFound = errors.New("not found")

// fetchPageSize bounds each SELECT when loading a book's movements.
const fetchPageSize = 500

type SQLiteRepository struct {
	db *sql.DB
}

// MovementRecord is a stored movement together with its bookkeeping
// columns. The sync worker needs these to mirror the right row.
type MovementRecord struct {
	core.Movement
	BookID  string
	Version int64
	Deleted bool
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// FetchMovements implements source.MovementSource, paging through the
// table so a large book never arrives in one oversized scan.
func (r *SQLiteRepository) FetchMovements(ctx context.Context, bookID string, year int) ([]core.Movement, error) {
	query := `SELECT id, date, kind, amount, detail, fixed, category_id
		FROM movements
		WHERE book_id = ? AND deleted_at IS NULL`
	args := []any{bookID}
	if year != 0 {
		query += ` AND date >= ? AND date < ?`
		args = append(args, fmt.Sprintf("%04d-01-01", year), fmt.Sprintf("%04d-01-01", year+1))
	}
	query += ` ORDER BY date, id LIMIT ? OFFSET ?`

	var out []core.Movement
	for offset := 0; ; offset += fetchPageSize {
		page, err := r.fetchMovementPage(ctx, query, append(args, fetchPageSize, offset))
		if err != nil {
			return nil, err
		}
		out = append(out, page...)
		if len(page) < fetchPageSize {
			return out, nil
		}
	}
}

func (r *SQLiteRepository) fetchMovementPage(ctx context.Context, query string, args []any) ([]core.Movement, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query movements: %w", err)
	}
	defer rows.Close()

	var out []core.Movement
	for rows.Next() {
		var (
			m      core.Movement
			amount string
			fixed  string
		)
		if err := rows.Scan(&m.ID, &m.Date, &m.RawKind, &amount, &m.Detail, &fixed, &m.CategoryID); err != nil {
			return nil, fmt.Errorf("scan movement: %w", err)
		}
		m.Amount, err = decimal.NewFromString(amount)
		if err != nil {
			return nil, fmt.Errorf("parse amount %q of movement %s: %w", amount, m.ID, err)
		}
		m.Fixed = decodeFixed(fixed)
		out = append(out, m)
	}
	return out, rows.Err()
}

// FetchCategories implements source.CategorySource. Records come back
// as the raw JSON documents they were stored with.
func (r *SQLiteRepository) FetchCategories(ctx context.Context, bookID string) ([]map[string]any, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT record FROM categories WHERE book_id = ? ORDER BY id`, bookID)
	if err != nil {
		return nil, fmt.Errorf("query categories: %w", err)
	}
	defer rows.Close()

	var out []map[string]any
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		var record map[string]any
		if err := json.Unmarshal([]byte(raw), &record); err != nil {
			slog.WarnContext(ctx, "Skipping malformed category record", "book_id", bookID, "error", err)
			continue
		}
		out = append(out, record)
	}
	return out, rows.Err()
}

// FetchBooks implements source.BookSource through the permission table.
func (r *SQLiteRepository) FetchBooks(ctx context.Context, userID string) ([]core.Book, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT b.id, b.name, b.currency
		FROM books b JOIN book_users bu ON bu.book_id = b.id
		WHERE bu.user_id = ? ORDER BY b.name`, userID)
	if err != nil {
		return nil, fmt.Errorf("query books: %w", err)
	}
	defer rows.Close()

	var out []core.Book
	for rows.Next() {
		var b core.Book
		if err := rows.Scan(&b.ID, &b.Name, &b.Currency); err != nil {
			return nil, fmt.Errorf("scan book: %w", err)
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

// CreateMovement implements source.MovementWriter.
func (r *SQLiteRepository) CreateMovement(ctx context.Context, bookID string, m core.Movement) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO movements (id, book_id, date, kind, amount, detail, fixed, category_id)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		m.ID, bookID, m.Date, m.RawKind, m.Amount.String(), m.Detail, encodeFixed(m.Fixed), m.CategoryID)
	if err != nil {
		return fmt.Errorf("insert movement: %w", err)
	}

	slog.InfoContext(ctx, "Movement saved",
		"id", m.ID,
		"book_id", bookID,
		"amount", m.Amount.String())
	return nil
}

func (r *SQLiteRepository) UpdateMovement(ctx context.Context, bookID string, m core.Movement) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE movements
		SET date = ?, kind = ?, amount = ?, detail = ?, fixed = ?, category_id = ?,
			version = version + 1, updated_at = CURRENT_TIMESTAMP
		WHERE id = ? AND book_id = ? AND deleted_at IS NULL`,
		m.Date, m.RawKind, m.Amount.String(), m.Detail, encodeFixed(m.Fixed), m.CategoryID, m.ID, bookID)
	if err != nil {
		return fmt.Errorf("update movement: %w", err)
	}
	return requireRow(res, m.ID)
}

// DeleteMovement soft deletes so the sheets mirror can still find the
// row data while removing it remotely.
func (r *SQLiteRepository) DeleteMovement(ctx context.Context, bookID, movementID string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE movements SET deleted_at = CURRENT_TIMESTAMP, version = version + 1
		WHERE id = ? AND book_id = ? AND deleted_at IS NULL`, movementID, bookID)
	if err != nil {
		return fmt.Errorf("soft delete movement: %w", err)
	}
	return requireRow(res, movementID)
}

// GetMovementRecord loads a single movement including soft-deleted
// rows. Used by the sync worker.
func (r *SQLiteRepository) GetMovementRecord(ctx context.Context, movementID string) (MovementRecord, error) {
	var (
		rec       MovementRecord
		amount    string
		fixed     string
		deletedAt sql.NullString
	)
	err := r.db.QueryRowContext(ctx,
		`SELECT id, book_id, date, kind, amount, detail, fixed, category_id, version, deleted_at
		FROM movements WHERE id = ?`, movementID).
		Scan(&rec.ID, &rec.BookID, &rec.Date, &rec.RawKind, &amount, &rec.Detail,
			&fixed, &rec.CategoryID, &rec.Version, &deletedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return rec, fmt.Errorf("movement %s: %w", movementID, ErrNotFound)
	}
	if err != nil {
		return rec, fmt.Errorf("get movement: %w", err)
	}
	rec.Amount, err = decimal.NewFromString(amount)
	if err != nil {
		return rec, fmt.Errorf("parse amount %q of movement %s: %w", amount, movementID, err)
	}
	rec.Fixed = decodeFixed(fixed)
	rec.Deleted = deletedAt.Valid
	return rec, nil
}

// CreateBook inserts a book and grants the given users access.
func (r *SQLiteRepository) CreateBook(ctx context.Context, b core.Book, userIDs ...string) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO books (id, name, currency) VALUES (?, ?, ?)`,
		b.ID, b.Name, b.CurrencyOrDefault())
	if err != nil {
		return fmt.Errorf("insert book: %w", err)
	}
	for _, userID := range userIDs {
		if err := r.GrantBook(ctx, b.ID, userID); err != nil {
			return err
		}
	}
	return nil
}

func (r *SQLiteRepository) GrantBook(ctx context.Context, bookID, userID string) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO book_users (book_id, user_id) VALUES (?, ?)`, bookID, userID)
	if err != nil {
		return fmt.Errorf("grant book access: %w", err)
	}
	return nil
}

// UpsertCategory stores the raw record under the given id.
func (r *SQLiteRepository) UpsertCategory(ctx context.Context, bookID, categoryID string, record map[string]any) error {
	raw, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("marshal category record: %w", err)
	}
	_, err = r.db.ExecContext(ctx,
		`INSERT INTO categories (id, book_id, record) VALUES (?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET record = excluded.record`,
		categoryID, bookID, string(raw))
	if err != nil {
		return fmt.Errorf("upsert category: %w", err)
	}
	return nil
}

func requireRow(res sql.Result, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("movement %s: %w", id, ErrNotFound)
	}
	return nil
}

// encodeFixed normalizes booleans to "true"/"false" while leaving
// legacy string encodings untouched.
func encodeFixed(v any) string {
	switch t := v.(type) {
	case bool:
		if t {
			return "true"
		}
		return "false"
	case string:
		if strings.TrimSpace(t) != "" {
			return t
		}
		return "false"
	case nil:
		return "false"
	default:
		return fmt.Sprintf("%v", t)
	}
}

// decodeFixed maps the canonical encodings back to bool and keeps
// anything else as the raw string for the tolerant pivot parse.
func decodeFixed(s string) any {
	switch s {
	case "true":
		return true
	case "false":
		return false
	default:
		return s
	}
}
