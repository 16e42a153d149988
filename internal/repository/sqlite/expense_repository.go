package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"expense-api/internal/domain"
	"expense-api/internal/repository"
)

const createExpensesTable = `
CREATE TABLE IF NOT EXISTS expenses (
	id TEXT PRIMARY KEY,
	user_id TEXT NOT NULL,
	title TEXT NOT NULL,
	amount REAL NOT NULL,
	category TEXT NOT NULL,
	payment_method TEXT NOT NULL CHECK (payment_method IN ('cash', 'credit')),
	description TEXT NOT NULL DEFAULT '',
	date DATETIME NOT NULL,
	created_at DATETIME NOT NULL,
	updated_at DATETIME NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_expenses_user_date ON expenses(user_id, date);
`

const expenseColumns = `id, user_id, title, amount, category, payment_method, description, date, created_at, updated_at`

// sort field -> column; keys mirror domain.NormalizeSortField output
var expenseSortColumns = map[string]string{
	domain.SortFieldTitle:         "title",
	domain.SortFieldAmount:        "amount",
	domain.SortFieldCategory:      "category",
	domain.SortFieldPaymentMethod: "payment_method",
	domain.SortFieldDescription:   "description",
	domain.SortFieldDate:          "date",
	domain.SortFieldCreatedAt:     "created_at",
	domain.SortFieldUpdatedAt:     "updated_at",
}

type ExpenseRepository struct {
	db *sql.DB
}

func NewExpenseRepository(db *sql.DB) repository.ExpenseRepository {
	return &ExpenseRepository{db: db}
}

func (r *ExpenseRepository) Init(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, createExpensesTable); err != nil {
		return fmt.Errorf("create expenses table: %w", err)
	}
	return nil
}

func (r *ExpenseRepository) Create(ctx context.Context, expense *domain.Expense) error {
	prepareExpense(expense, time.Now().UTC())
	if err := insertExpense(ctx, r.db, expense); err != nil {
		return err
	}
	return nil
}

// CreateBatch inserts all expenses in one transaction: either every row is
// stored or none is.
func (r *ExpenseRepository) CreateBatch(ctx context.Context, expenses []domain.Expense) error {
	if len(expenses) == 0 {
		return nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback() // safe no-op on commit

	now := time.Now().UTC()
	for i := range expenses {
		prepareExpense(&expenses[i], now)
		if err := insertExpense(ctx, tx, &expenses[i]); err != nil {
			return fmt.Errorf("batch row %d: %w", i+1, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit expense batch: %w", err)
	}
	return nil
}

func (r *ExpenseRepository) List(ctx context.Context, query domain.ExpenseQuery) ([]domain.Expense, error) {
	where, args := buildExpenseWhere(query.Filter)

	column := expenseSortColumns[domain.NormalizeSortField(query.SortBy)]
	direction := "DESC"
	if query.SortOrder == domain.SortAsc {
		direction = "ASC"
	}

	limit := query.Limit
	if limit <= 0 {
		limit = -1 // sqlite: no limit
	}

	stmt := fmt.Sprintf(`
SELECT %s
FROM expenses
WHERE %s
ORDER BY %s %s, created_at %s, id %s
LIMIT ? OFFSET ?`, expenseColumns, where, column, direction, direction, direction)
	args = append(args, limit, query.Skip)

	rows, err := r.db.QueryContext(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("query expenses: %w", err)
	}
	defer rows.Close()

	expenses := []domain.Expense{}
	for rows.Next() {
		expense, err := scanExpense(rows)
		if err != nil {
			return nil, err
		}
		expenses = append(expenses, *expense)
	}

	return expenses, rows.Err()
}

func (r *ExpenseRepository) Count(ctx context.Context, filter domain.ExpenseFilter) (int64, error) {
	where, args := buildExpenseWhere(filter)

	var total int64
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM expenses WHERE `+where, args...).Scan(&total); err != nil {
		return 0, fmt.Errorf("count expenses: %w", err)
	}
	return total, nil
}

func (r *ExpenseRepository) Update(ctx context.Context, ownerID, id string, patch domain.ExpensePatch) (*domain.Expense, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	row := tx.QueryRowContext(ctx, `
SELECT `+expenseColumns+`
FROM expenses
WHERE id=? AND user_id=?`,
		id,
		ownerID,
	)
	expense, err := scanExpense(row)
	if err != nil {
		return nil, err
	}

	expense.Apply(patch)
	expense.Date = expense.Date.UTC()
	expense.UpdatedAt = time.Now().UTC()

	if _, err := tx.ExecContext(ctx, `
UPDATE expenses
SET title=?, amount=?, category=?, payment_method=?, description=?, date=?, updated_at=?
WHERE id=? AND user_id=?`,
		expense.Title,
		expense.Amount,
		expense.Category,
		string(expense.PaymentMethod),
		expense.Description,
		expense.Date,
		expense.UpdatedAt,
		id,
		ownerID,
	); err != nil {
		return nil, fmt.Errorf("update expense: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit expense update: %w", err)
	}
	return expense, nil
}

func (r *ExpenseRepository) Delete(ctx context.Context, ownerID, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM expenses WHERE id=? AND user_id=?`, id, ownerID)
	if err != nil {
		return fmt.Errorf("delete expense: %w", err)
	}
	aff, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("expense delete rows affected: %w", err)
	}
	if aff == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *ExpenseRepository) DeleteMany(ctx context.Context, ownerID string, ids []string) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}

	placeholders := make([]string, len(ids))
	args := make([]any, 0, len(ids)+1)
	args = append(args, ownerID)
	for i, id := range ids {
		placeholders[i] = "?"
		args = append(args, id)
	}

	query := fmt.Sprintf(`DELETE FROM expenses WHERE user_id=? AND id IN (%s)`, strings.Join(placeholders, ","))
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("delete expenses: %w", err)
	}
	aff, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("expense bulk delete rows affected: %w", err)
	}
	return aff, nil
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func insertExpense(ctx context.Context, db execer, expense *domain.Expense) error {
	_, err := db.ExecContext(ctx, `
INSERT INTO expenses (`+expenseColumns+`)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		expense.ID,
		expense.UserID,
		expense.Title,
		expense.Amount,
		expense.Category,
		string(expense.PaymentMethod),
		expense.Description,
		expense.Date,
		expense.CreatedAt,
		expense.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert expense: %w", err)
	}
	return nil
}

func prepareExpense(expense *domain.Expense, now time.Time) {
	if expense.ID == "" {
		expense.ID = uuid.NewString()
	}
	if expense.Date.IsZero() {
		expense.Date = now
	}
	expense.Date = expense.Date.UTC()
	expense.CreatedAt = now
	expense.UpdatedAt = now
}

func buildExpenseWhere(filter domain.ExpenseFilter) (string, []any) {
	clauses := []string{"user_id = ?"}
	args := []any{filter.OwnerID}

	if filter.Category != "" {
		clauses = append(clauses, "category = ?")
		args = append(args, filter.Category)
	}
	if filter.PaymentMethod != "" {
		clauses = append(clauses, "payment_method = ?")
		args = append(args, filter.PaymentMethod)
	}
	if filter.StartDate != nil {
		clauses = append(clauses, "date >= ?")
		args = append(args, filter.StartDate.UTC())
	}
	if filter.EndDate != nil {
		clauses = append(clauses, "date <= ?")
		args = append(args, filter.EndDate.UTC())
	}

	return strings.Join(clauses, " AND "), args
}

func scanExpense(scanner interface {
	Scan(dest ...any) error
}) (*domain.Expense, error) {
	var (
		expense       domain.Expense
		paymentMethod string
	)
	if err := scanner.Scan(
		&expense.ID,
		&expense.UserID,
		&expense.Title,
		&expense.Amount,
		&expense.Category,
		&paymentMethod,
		&expense.Description,
		&expense.Date,
		&expense.CreatedAt,
		&expense.UpdatedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("scan expense: %w", err)
	}

	expense.PaymentMethod = domain.PaymentMethod(paymentMethod)
	expense.Date = expense.Date.UTC()
	expense.CreatedAt = expense.CreatedAt.UTC()
	expense.UpdatedAt = expense.UpdatedAt.UTC()
	return &expense, nil
}
