package repository

import (
	"context"
	"errors"

	"expense-api/internal/domain"
)

// ErrNotFound is returned when no record matches the lookup, including
// records that exist but belong to another owner.
var ErrNotFound = errors.New("record not found")

// ErrAlreadyExists is returned when a unique constraint rejects an insert.
var ErrAlreadyExists = errors.New("record already exists")

// ExpenseRepository exposes owner-scoped persistence for expenses.
type ExpenseRepository interface {
	Init(ctx context.Context) error
	Create(ctx context.Context, expense *domain.Expense) error
	CreateBatch(ctx context.Context, expenses []domain.Expense) error
	List(ctx context.Context, query domain.ExpenseQuery) ([]domain.Expense, error)
	Count(ctx context.Context, filter domain.ExpenseFilter) (int64, error)
	Update(ctx context.Context, ownerID, id string, patch domain.ExpensePatch) (*domain.Expense, error)
	Delete(ctx context.Context, ownerID, id string) error
	DeleteMany(ctx context.Context, ownerID string, ids []string) (int64, error)
}
