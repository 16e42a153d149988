package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"expense-api/internal/domain"
	"expense-api/internal/importer"
	"expense-api/internal/repository"
)

const (
	DefaultPage  = 1
	DefaultLimit = 10
	MaxLimit     = 100
	maxPage      = math.MaxInt32
)

// CreateExpenseInput is the caller-supplied part of a new expense. The owner
// always comes from the authenticated identity.
type CreateExpenseInput struct {
	Title         string
	Amount        *float64
	Category      string
	PaymentMethod string
	Description   string
	Date          string
}

// UpdateExpenseInput lists replaceable fields; nil means unchanged.
type UpdateExpenseInput struct {
	Title         *string
	Amount        *float64
	Category      *string
	PaymentMethod *string
	Description   *string
	Date          *string
}

// ListParams are the listing knobs as they arrive from the caller. Page and
// Limit are clamped, not rejected.
type ListParams struct {
	Category      string
	PaymentMethod string
	StartDate     string
	EndDate       string
	SortBy        string
	SortOrder     string
	Page          int
	Limit         int
}

// ExpenseService coordinates owner-scoped expense operations.
type ExpenseService interface {
	Create(ctx context.Context, ownerID string, in CreateExpenseInput) (*domain.Expense, error)
	List(ctx context.Context, ownerID string, params ListParams) (*domain.ExpensePage, error)
	Update(ctx context.Context, ownerID, id string, in UpdateExpenseInput) (*domain.Expense, error)
	Delete(ctx context.Context, ownerID, id string) error
	BulkDelete(ctx context.Context, ownerID string, ids []string) (int64, error)
}

type expenseService struct {
	expenses repository.ExpenseRepository
	now      func() time.Time
}

func NewExpenseService(expenses repository.ExpenseRepository) ExpenseService {
	return &expenseService{
		expenses: expenses,
		now:      time.Now,
	}
}

func (s *expenseService) Create(ctx context.Context, ownerID string, in CreateExpenseInput) (*domain.Expense, error) {
	category := strings.TrimSpace(in.Category)
	rawMethod := strings.TrimSpace(in.PaymentMethod)
	if in.Amount == nil || *in.Amount == 0 || category == "" || rawMethod == "" {
		return nil, validationError("Amount, category, and payment method are required")
	}

	method, ok := domain.ParsePaymentMethod(rawMethod)
	if !ok {
		return nil, validationError(fmt.Sprintf("payment method %q must be cash or credit", rawMethod))
	}

	title := strings.TrimSpace(in.Title)
	if title == "" {
		title = domain.DefaultExpenseTitle
	}

	date := s.now()
	if raw := strings.TrimSpace(in.Date); raw != "" {
		parsed, err := importer.ParseDate(raw)
		if err != nil {
			return nil, validationError(fmt.Sprintf("invalid date %q", raw))
		}
		date = parsed
	}

	expense := &domain.Expense{
		UserID:        ownerID,
		Title:         title,
		Amount:        *in.Amount,
		Category:      category,
		PaymentMethod: method,
		Description:   strings.TrimSpace(in.Description),
		Date:          date,
	}
	if err := s.expenses.Create(ctx, expense); err != nil {
		return nil, fmt.Errorf("create expense: %w", err)
	}
	return expense, nil
}

func (s *expenseService) List(ctx context.Context, ownerID string, params ListParams) (*domain.ExpensePage, error) {
	filter := domain.ExpenseFilter{
		OwnerID:       ownerID,
		Category:      params.Category,
		// stored lowercase
		PaymentMethod: strings.ToLower(strings.TrimSpace(params.PaymentMethod)),
	}

	var err error
	if filter.StartDate, err = parseBound("startDate", params.StartDate); err != nil {
		return nil, err
	}
	if filter.EndDate, err = parseBound("endDate", params.EndDate); err != nil {
		return nil, err
	}

	order := domain.SortDesc
	if params.SortOrder == string(domain.SortAsc) {
		order = domain.SortAsc
	}
	sortBy := domain.SortFieldDate
	if params.SortBy != "" {
		sortBy = domain.NormalizeSortField(params.SortBy)
	}

	page := ClampPage(params.Page)
	limit := ClampLimit(params.Limit)

	expenses, err := s.expenses.List(ctx, domain.ExpenseQuery{
		Filter:    filter,
		SortBy:    sortBy,
		SortOrder: order,
		Skip:      (page - 1) * limit,
		Limit:     limit,
	})
	if err != nil {
		return nil, fmt.Errorf("list expenses: %w", err)
	}

	total, err := s.expenses.Count(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("count expenses: %w", err)
	}

	return &domain.ExpensePage{
		Expenses:    expenses,
		Total:       total,
		TotalPages:  TotalPages(total, limit),
		CurrentPage: page,
	}, nil
}

func (s *expenseService) Update(ctx context.Context, ownerID, id string, in UpdateExpenseInput) (*domain.Expense, error) {
	patch := domain.ExpensePatch{
		Title:       in.Title,
		Amount:      in.Amount,
		Category:    in.Category,
		Description: in.Description,
	}
	if in.PaymentMethod != nil {
		method, ok := domain.ParsePaymentMethod(*in.PaymentMethod)
		if !ok {
			return nil, validationError(fmt.Sprintf("payment method %q must be cash or credit", *in.PaymentMethod))
		}
		patch.PaymentMethod = &method
	}
	if in.Date != nil {
		date, err := importer.ParseDate(strings.TrimSpace(*in.Date))
		if err != nil {
			return nil, validationError(fmt.Sprintf("invalid date %q", *in.Date))
		}
		patch.Date = &date
	}

	expense, err := s.expenses.Update(ctx, ownerID, id, patch)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrExpenseNotFound
		}
		return nil, fmt.Errorf("update expense: %w", err)
	}
	return expense, nil
}

func (s *expenseService) Delete(ctx context.Context, ownerID, id string) error {
	if err := s.expenses.Delete(ctx, ownerID, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrExpenseNotFound
		}
		return fmt.Errorf("delete expense: %w", err)
	}
	return nil
}

func (s *expenseService) BulkDelete(ctx context.Context, ownerID string, ids []string) (int64, error) {
	cleaned := make([]string, 0, len(ids))
	for _, id := range ids {
		if id = strings.TrimSpace(id); id != "" {
			cleaned = append(cleaned, id)
		}
	}
	if len(cleaned) == 0 {
		return 0, validationError("No expense IDs provided for deletion")
	}

	deleted, err := s.expenses.DeleteMany(ctx, ownerID, cleaned)
	if err != nil {
		return 0, fmt.Errorf("delete expenses: %w", err)
	}
	return deleted, nil
}

// ClampPage floors page at 1.
func ClampPage(page int) int {
	if page < 1 {
		return 1
	}
	if page > maxPage {
		return maxPage
	}
	return page
}

// ClampLimit keeps limit within [1, MaxLimit].
func ClampLimit(limit int) int {
	return min(max(limit, 1), MaxLimit)
}

// TotalPages is ceil(total/limit); zero when nothing matched.
func TotalPages(total int64, limit int) int64 {
	if total <= 0 || limit <= 0 {
		return 0
	}
	l := int64(limit)
	return (total + l - 1) / l
}

func parseBound(name, raw string) (*time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	t, err := importer.ParseDate(raw)
	if err != nil {
		return nil, validationError(fmt.Sprintf("invalid %s %q", name, raw))
	}
	return &t, nil
}
