// Package store persists goals, board posts, and categories in SQLite. It
// implements the planner collaborator contracts consumed by the command
// interpreter and serves the queries the system-prompt builder needs.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"time"

	"github.com/oklog/ulid/v2"
	_ "modernc.org/sqlite"

	"dayflow/internal/planner"
)

// SQLiteStore implements the planner persistence contracts using SQLite.
type SQLiteStore struct {
	db      *sql.DB
	entropy *rand.Rand
}

// NewSQLiteStore opens or creates a SQLite database at the given path.
// Use ":memory:" for an ephemeral database.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	if dbPath != ":memory:" {
		dir := filepath.Dir(dbPath)
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create db dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(wal)&_pragma=foreign_keys(on)")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	s := &SQLiteStore{
		db:      db,
		entropy: rand.New(rand.NewSource(time.Now().UnixNano())),
	}

	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return s, nil
}

func (s *SQLiteStore) newID() string {
	return ulid.MustNew(ulid.Timestamp(time.Now()), s.entropy).String()
}

func (s *SQLiteStore) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS categories (
		id         TEXT PRIMARY KEY,
		name       TEXT NOT NULL UNIQUE,
		created_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS goals (
		id          TEXT PRIMARY KEY,
		title       TEXT NOT NULL,
		category_id TEXT REFERENCES categories(id),
		start_at    TEXT NOT NULL,
		end_at      TEXT NOT NULL,
		status      TEXT NOT NULL DEFAULT '진행 전',
		importance  INTEGER NOT NULL DEFAULT 5,
		created_at  TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_goals_start ON goals(start_at);
	CREATE INDEX IF NOT EXISTS idx_goals_status ON goals(status);

	CREATE TABLE IF NOT EXISTS boards (
		id         TEXT PRIMARY KEY,
		title      TEXT NOT NULL,
		content    TEXT NOT NULL,
		category   TEXT NOT NULL,
		created_at TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_boards_category ON boards(category);
	`
	_, err := s.db.Exec(schema)
	return err
}

// CreateGoal persists a new goal and returns its identifier. The status and
// importance defaults mirror what the command interpreter assigns.
func (s *SQLiteStore) CreateGoal(ctx context.Context, g planner.NewGoal) (string, error) {
	if g.Title == "" {
		return "", fmt.Errorf("create goal: empty title")
	}
	status := g.Status
	if status == "" {
		status = planner.StatusNotStarted
	}
	importance := g.Importance
	if importance == 0 {
		importance = 5
	}

	id := s.newID()
	var categoryID any
	if g.CategoryID != "" {
		categoryID = g.CategoryID
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO goals (id, title, category_id, start_at, end_at, status, importance, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		id, g.Title, categoryID,
		g.Start.UTC().Format(time.RFC3339), g.End.UTC().Format(time.RFC3339),
		string(status), importance, time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return "", fmt.Errorf("insert goal: %w", err)
	}
	return id, nil
}

// CreateBoard persists a new board post and returns its identifier.
func (s *SQLiteStore) CreateBoard(ctx context.Context, b planner.NewBoard) (string, error) {
	if !b.Category.Valid() {
		return "", fmt.Errorf("create board: invalid category %q", b.Category)
	}
	title := b.Title
	if title == "" {
		title = "새 게시글"
	}

	id := s.newID()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO boards (id, title, content, category, created_at) VALUES (?, ?, ?, ?, ?)`,
		id, title, b.Content, string(b.Category), time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return "", fmt.Errorf("insert board: %w", err)
	}
	return id, nil
}

// CreateCategory registers a goal category name and returns its identifier.
func (s *SQLiteStore) CreateCategory(ctx context.Context, name string) (string, error) {
	if name == "" {
		return "", fmt.Errorf("create category: empty name")
	}
	id := s.newID()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO categories (id, name, created_at) VALUES (?, ?, ?)`,
		id, name, time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return "", fmt.Errorf("insert category: %w", err)
	}
	return id, nil
}

// ListCategories returns all categories in creation order.
func (s *SQLiteStore) ListCategories(ctx context.Context) ([]planner.Category, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name FROM categories ORDER BY created_at ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []planner.Category
	for rows.Next() {
		var c planner.Category
		if err := rows.Scan(&c.ID, &c.Name); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// GoalsOn returns the goals whose start time falls on the given calendar
// day, in that day's location, ordered by start time.
func (s *SQLiteStore) GoalsOn(ctx context.Context, day time.Time) ([]planner.Goal, error) {
	dayStart := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, day.Location())
	dayEnd := dayStart.AddDate(0, 0, 1)

	return s.queryGoals(ctx,
		`SELECT id, title, category_id, start_at, end_at, status, importance
		 FROM goals WHERE start_at >= ? AND start_at < ?
		 ORDER BY start_at ASC`,
		dayStart.UTC().Format(time.RFC3339), dayEnd.UTC().Format(time.RFC3339))
}

// IncompleteGoals returns goals that are past their end time but not marked
// complete, ordered by deadline.
func (s *SQLiteStore) IncompleteGoals(ctx context.Context, now time.Time) ([]planner.Goal, error) {
	return s.queryGoals(ctx,
		`SELECT id, title, category_id, start_at, end_at, status, importance
		 FROM goals WHERE status != ? AND end_at < ?
		 ORDER BY end_at ASC`,
		string(planner.StatusDone), now.UTC().Format(time.RFC3339))
}

// ListBoards returns the posts in one board category, newest first.
func (s *SQLiteStore) ListBoards(ctx context.Context, category planner.BoardCategory) ([]planner.Board, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, title, content, category FROM boards WHERE category = ? ORDER BY created_at DESC`,
		string(category))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []planner.Board
	for rows.Next() {
		var b planner.Board
		var cat string
		if err := rows.Scan(&b.ID, &b.Title, &b.Content, &cat); err != nil {
			return nil, err
		}
		b.Category = planner.BoardCategory(cat)
		out = append(out, b)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) queryGoals(ctx context.Context, query string, args ...any) ([]planner.Goal, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []planner.Goal
	for rows.Next() {
		var g planner.Goal
		var categoryID sql.NullString
		var startAt, endAt, status string
		if err := rows.Scan(&g.ID, &g.Title, &categoryID, &startAt, &endAt, &status, &g.Importance); err != nil {
			return nil, err
		}
		if categoryID.Valid {
			g.CategoryID = categoryID.String
		}
		g.Start, _ = time.Parse(time.RFC3339, startAt)
		g.End, _ = time.Parse(time.RFC3339, endAt)
		g.Status = planner.GoalStatus(status)
		out = append(out, g)
	}
	return out, rows.Err()
}

// Close releases the underlying database handle.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
