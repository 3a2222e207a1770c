package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"moni/internal/core"

	_ "modernc.org/sqlite"
)

const (
	dateLayout      = "2006-01-02"
	// fixed width so stored timestamps compare correctly as text
	timestampLayout = "2006-01-02T15:04:05.000000Z07:00"
)

// PatternSnapshot is the last classification computed by the insights worker.
type PatternSnapshot struct {
	UserID       string
	ComputedAt   time.Time
	RulesVersion string
	Payload      []byte
}

type SQLiteRepository struct {
	db  *sql.DB
	now func() time.Time
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)")
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

	return &SQLiteRepository{db: db, now: time.Now}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Ping reports whether the database is reachable.
func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func (r *SQLiteRepository) stamp() string {
	return r.now().UTC().Format(timestampLayout)
}

// CreateTransaction stores t, assigning an id when it has none. The category,
// when set, must belong to the same user; its name is copied back into t.
func (r *SQLiteRepository) CreateTransaction(ctx context.Context, t *core.Transaction) error {
	if err := t.Validate(); err != nil {
		return err
	}
	if t.ID == "" {
		t.ID = uuid.NewString()
	}

	var categoryID any
	if t.CategoryID != "" {
		name, err := r.categoryName(ctx, t.UserID, t.CategoryID)
		if err != nil {
			return err
		}
		t.CategoryName = name
		categoryID = t.CategoryID
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO transactions (id, user_id, description, amount, date, type, payment_method, account, category_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.UserID, t.Description, t.Amount.StringFixed(2), t.Date.Format(dateLayout),
		string(t.Type), t.PaymentMethod, t.Account, categoryID, r.stamp())
	if err != nil {
		return fmt.Errorf("insert transaction: %w", err)
	}

	slog.InfoContext(ctx, "Transaction saved",
		"id", t.ID,
		"user_id", t.UserID,
		"type", t.Type,
		"amount", t.Amount.StringFixed(2),
		"date", t.Date.Format(dateLayout))
	return nil
}

func (r *SQLiteRepository) categoryName(ctx context.Context, userID, categoryID string) (string, error) {
	var name string
	err := r.db.QueryRowContext(ctx,
		`SELECT name FROM categories WHERE id = ? AND user_id = ?`, categoryID, userID).Scan(&name)
	if errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("category %s: %w", categoryID, core.ErrNotFound)
	}
	if err != nil {
		return "", fmt.Errorf("get category: %w", err)
	}
	return name, nil
}

// DeleteTransaction removes one of the user's transactions.
func (r *SQLiteRepository) DeleteTransaction(ctx context.Context, userID, id string) error {
	if err := core.RequireUserID(userID); err != nil {
		return err
	}
	res, err := r.db.ExecContext(ctx, `DELETE FROM transactions WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return fmt.Errorf("delete transaction: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete transaction: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("transaction %s: %w", id, core.ErrNotFound)
	}
	slog.InfoContext(ctx, "Transaction deleted", "id", id, "user_id", userID)
	return nil
}

// ListTransactionsPage returns at most limit transactions matching f, ordered
// by date then id, skipping the first offset rows.
func (r *SQLiteRepository) ListTransactionsPage(ctx context.Context, f Filter, offset, limit int) ([]core.Transaction, error) {
	if err := core.RequireUserID(f.UserID); err != nil {
		return nil, err
	}

	var (
		where = []string{"t.user_id = ?"}
		args  = []any{f.UserID}
	)
	if !f.From.IsZero() {
		where = append(where, "t.date >= ?")
		args = append(args, f.From.Format(dateLayout))
	}
	if !f.To.IsZero() {
		where = append(where, "t.date < ?")
		args = append(args, f.To.Format(dateLayout))
	}
	if f.Type != "" {
		where = append(where, "t.type = ?")
		args = append(args, string(f.Type))
	}
	args = append(args, limit, offset)

	query := `
		SELECT t.id, t.user_id, t.description, t.amount, t.date, t.type,
		       t.payment_method, t.account, COALESCE(t.category_id, ''), COALESCE(c.name, '')
		FROM transactions t
		LEFT JOIN categories c ON c.id = t.category_id
		WHERE ` + strings.Join(where, " AND ") + `
		ORDER BY t.date, t.id
		LIMIT ? OFFSET ?`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()

	var out []core.Transaction
	for rows.Next() {
		var (
			t    core.Transaction
			date string
			typ  string
		)
		if err := rows.Scan(&t.ID, &t.UserID, &t.Description, &t.Amount, &date, &typ,
			&t.PaymentMethod, &t.Account, &t.CategoryID, &t.CategoryName); err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		if t.Date, err = time.Parse(dateLayout, date); err != nil {
			return nil, fmt.Errorf("parse transaction date %q: %w", date, err)
		}
		t.Type = core.TransactionType(typ)
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate transactions: %w", err)
	}
	return out, nil
}

func (r *SQLiteRepository) CreateCategory(ctx context.Context, c *core.Category) error {
	if err := c.Validate(); err != nil {
		return err
	}
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO categories (id, user_id, name, type, color, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		c.ID, c.UserID, strings.TrimSpace(c.Name), string(c.Type), c.Color, r.stamp())
	if err != nil {
		return fmt.Errorf("insert category: %w", err)
	}
	return nil
}

// ListCategories returns the user's categories sorted by type and name.
func (r *SQLiteRepository) ListCategories(ctx context.Context, userID string) ([]core.Category, error) {
	if err := core.RequireUserID(userID); err != nil {
		return nil, err
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, user_id, name, type, color FROM categories
		WHERE user_id = ? ORDER BY type, name`, userID)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()

	out := []core.Category{}
	for rows.Next() {
		var (
			c   core.Category
			typ string
		)
		if err := rows.Scan(&c.ID, &c.UserID, &c.Name, &typ, &c.Color); err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		c.Type = core.TransactionType(typ)
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate categories: %w", err)
	}
	return out, nil
}

func (r *SQLiteRepository) CreateAsset(ctx context.Context, a *core.Asset) error {
	if err := a.Validate(); err != nil {
		return err
	}
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO assets (id, user_id, name, category, value, cost, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		a.ID, a.UserID, a.Name, a.Category, a.Value.StringFixed(2), a.Cost.StringFixed(2), r.stamp())
	if err != nil {
		return fmt.Errorf("insert asset: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) ListAssets(ctx context.Context, userID string) ([]core.Asset, error) {
	if err := core.RequireUserID(userID); err != nil {
		return nil, err
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, user_id, name, category, value, cost FROM assets
		WHERE user_id = ? ORDER BY name, id`, userID)
	if err != nil {
		return nil, fmt.Errorf("list assets: %w", err)
	}
	defer rows.Close()

	out := []core.Asset{}
	for rows.Next() {
		var a core.Asset
		if err := rows.Scan(&a.ID, &a.UserID, &a.Name, &a.Category, &a.Value, &a.Cost); err != nil {
			return nil, fmt.Errorf("scan asset: %w", err)
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate assets: %w", err)
	}
	return out, nil
}

func (r *SQLiteRepository) CreateLiability(ctx context.Context, l *core.Liability) error {
	if err := l.Validate(); err != nil {
		return err
	}
	if l.ID == "" {
		l.ID = uuid.NewString()
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO liabilities (id, user_id, name, category, balance, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		l.ID, l.UserID, l.Name, l.Category, l.Balance.StringFixed(2), r.stamp())
	if err != nil {
		return fmt.Errorf("insert liability: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) ListLiabilities(ctx context.Context, userID string) ([]core.Liability, error) {
	if err := core.RequireUserID(userID); err != nil {
		return nil, err
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, user_id, name, category, balance FROM liabilities
		WHERE user_id = ? ORDER BY name, id`, userID)
	if err != nil {
		return nil, fmt.Errorf("list liabilities: %w", err)
	}
	defer rows.Close()

	out := []core.Liability{}
	for rows.Next() {
		var l core.Liability
		if err := rows.Scan(&l.ID, &l.UserID, &l.Name, &l.Category, &l.Balance); err != nil {
			return nil, fmt.Errorf("scan liability: %w", err)
		}
		out = append(out, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate liabilities: %w", err)
	}
	return out, nil
}

// UpsertBudget sets the monthly limit of a category, creating the budget when missing.
func (r *SQLiteRepository) UpsertBudget(ctx context.Context, b *core.Budget) error {
	if err := b.Validate(); err != nil {
		return err
	}
	name, err := r.categoryName(ctx, b.UserID, b.CategoryID)
	if err != nil {
		return err
	}
	if b.ID == "" {
		b.ID = uuid.NewString()
	}
	err = r.db.QueryRowContext(ctx, `
		INSERT INTO budgets (id, user_id, category_id, monthly_limit, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (user_id, category_id) DO UPDATE SET
			monthly_limit = excluded.monthly_limit,
			updated_at = excluded.updated_at
		RETURNING id`,
		b.ID, b.UserID, b.CategoryID, b.MonthlyLimit.StringFixed(2), r.stamp()).Scan(&b.ID)
	if err != nil {
		return fmt.Errorf("upsert budget: %w", err)
	}
	b.CategoryName = name
	return nil
}

func (r *SQLiteRepository) ListBudgets(ctx context.Context, userID string) ([]core.Budget, error) {
	if err := core.RequireUserID(userID); err != nil {
		return nil, err
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT b.id, b.user_id, b.category_id, c.name, b.monthly_limit
		FROM budgets b JOIN categories c ON c.id = b.category_id
		WHERE b.user_id = ? ORDER BY c.name`, userID)
	if err != nil {
		return nil, fmt.Errorf("list budgets: %w", err)
	}
	defer rows.Close()

	out := []core.Budget{}
	for rows.Next() {
		var b core.Budget
		if err := rows.Scan(&b.ID, &b.UserID, &b.CategoryID, &b.CategoryName, &b.MonthlyLimit); err != nil {
			return nil, fmt.Errorf("scan budget: %w", err)
		}
		out = append(out, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate budgets: %w", err)
	}
	return out, nil
}

// SaveSnapshot replaces the user's stored pattern snapshot.
func (r *SQLiteRepository) SaveSnapshot(ctx context.Context, s PatternSnapshot) error {
	if err := core.RequireUserID(s.UserID); err != nil {
		return err
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO pattern_snapshots (user_id, computed_at, rules_version, payload)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (user_id) DO UPDATE SET
			computed_at = excluded.computed_at,
			rules_version = excluded.rules_version,
			payload = excluded.payload`,
		s.UserID, s.ComputedAt.UTC().Format(timestampLayout), s.RulesVersion, string(s.Payload))
	if err != nil {
		return fmt.Errorf("save pattern snapshot: %w", err)
	}
	slog.InfoContext(ctx, "Pattern snapshot saved", "user_id", s.UserID, "rules_version", s.RulesVersion)
	return nil
}

func (r *SQLiteRepository) GetSnapshot(ctx context.Context, userID string) (PatternSnapshot, error) {
	if err := core.RequireUserID(userID); err != nil {
		return PatternSnapshot{}, err
	}
	var (
		s        = PatternSnapshot{UserID: userID}
		computed string
		payload  string
	)
	err := r.db.QueryRowContext(ctx, `
		SELECT computed_at, rules_version, payload FROM pattern_snapshots WHERE user_id = ?`,
		userID).Scan(&computed, &s.RulesVersion, &payload)
	if errors.Is(err, sql.ErrNoRows) {
		return PatternSnapshot{}, fmt.Errorf("pattern snapshot for %s: %w", userID, core.ErrNotFound)
	}
	if err != nil {
		return PatternSnapshot{}, fmt.Errorf("get pattern snapshot: %w", err)
	}
	if s.ComputedAt, err = time.Parse(timestampLayout, computed); err != nil {
		return PatternSnapshot{}, fmt.Errorf("parse snapshot time: %w", err)
	}
	s.Payload = []byte(payload)
	return s, nil
}

// StaleSnapshotUsers lists users whose pattern snapshot is missing, older than
// their latest transaction write, or computed with another rules version.
// Users without a snapshot come first, then the oldest snapshots.
func (r *SQLiteRepository) StaleSnapshotUsers(ctx context.Context, rulesVersion string, limit int) ([]string, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT t.user_id
		FROM transactions t
		LEFT JOIN pattern_snapshots s ON s.user_id = t.user_id
		GROUP BY t.user_id
		HAVING MAX(s.computed_at) IS NULL
			OR MAX(t.created_at) > MAX(s.computed_at)
			OR MAX(s.rules_version) <> ?
		ORDER BY MAX(s.computed_at) IS NOT NULL, MAX(s.computed_at), t.user_id
		LIMIT ?`, rulesVersion, limit)
	if err != nil {
		return nil, fmt.Errorf("query stale snapshots: %w", err)
	}
	defer rows.Close()

	users := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan stale snapshot user: %w", err)
		}
		users = append(users, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate stale snapshots: %w", err)
	}
	return users, nil
}
