package sqlite

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"expense-api/internal/domain"
	"expense-api/internal/repository"
)

type ExpenseRepositoryTestSuite struct {
	suite.Suite
	db   *sql.DB
	repo repository.ExpenseRepository
	ctx  context.Context
}

func (s *ExpenseRepositoryTestSuite) SetupTest() {
	db, err := Open(":memory:")
	require.NoError(s.T(), err, "failed to open test database")
	s.db = db
	s.ctx = context.Background()
	s.repo = NewExpenseRepository(db)
	require.NoError(s.T(), s.repo.Init(s.ctx))
}

func (s *ExpenseRepositoryTestSuite) TearDownTest() {
	if s.db != nil {
		s.db.Close()
	}
}

func (s *ExpenseRepositoryTestSuite) create(owner, title, category string, method domain.PaymentMethod, amount float64, date time.Time) domain.Expense {
	e := domain.Expense{
		UserID:        owner,
		Title:         title,
		Amount:        amount,
		Category:      category,
		PaymentMethod: method,
		Date:          date,
	}
	require.NoError(s.T(), s.repo.Create(s.ctx, &e))
	return e
}

func (s *ExpenseRepositoryTestSuite) TestCreateAssignsIDAndTimestamps() {
	e := domain.Expense{UserID: "u1", Title: "Lunch", Amount: 12.5, Category: "Food", PaymentMethod: domain.PaymentMethodCash}
	require.NoError(s.T(), s.repo.Create(s.ctx, &e))

	assert.NotEmpty(s.T(), e.ID)
	assert.False(s.T(), e.Date.IsZero(), "date defaults to now")
	assert.False(s.T(), e.CreatedAt.IsZero())
	assert.Equal(s.T(), e.CreatedAt, e.UpdatedAt)
}

func (s *ExpenseRepositoryTestSuite) TestCreateRejectsUnknownPaymentMethod() {
	e := domain.Expense{UserID: "u1", Title: "x", Amount: 1, Category: "c", PaymentMethod: "debit"}
	assert.Error(s.T(), s.repo.Create(s.ctx, &e))
}

func (s *ExpenseRepositoryTestSuite) TestListIsOwnerScopedAndOrderedByDateDesc() {
	base := time.Date(2025, 1, 10, 12, 0, 0, 0, time.UTC)
	s.create("u1", "Bus", "Transport", domain.PaymentMethodCash, 2, base)
	s.create("u1", "Coffee", "Food", domain.PaymentMethodCredit, 3, base.Add(time.Hour))
	s.create("u2", "Other", "Food", domain.PaymentMethodCash, 9, base.Add(2*time.Hour))

	got, err := s.repo.List(s.ctx, domain.ExpenseQuery{Filter: domain.ExpenseFilter{OwnerID: "u1"}, Limit: 10})
	require.NoError(s.T(), err)
	require.Len(s.T(), got, 2)
	assert.Equal(s.T(), "Coffee", got[0].Title)
	assert.Equal(s.T(), "Bus", got[1].Title)
	for _, e := range got {
		assert.Equal(s.T(), "u1", e.UserID)
	}
}

func (s *ExpenseRepositoryTestSuite) TestListFiltersAndSorts() {
	base := time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC)
	s.create("u1", "A", "Food", domain.PaymentMethodCash, 30, base)
	s.create("u1", "B", "Food", domain.PaymentMethodCredit, 10, base.AddDate(0, 0, 5))
	s.create("u1", "C", "Food", domain.PaymentMethodCash, 20, base.AddDate(0, 0, 10))
	s.create("u1", "D", "Rent", domain.PaymentMethodCash, 500, base.AddDate(0, 0, 5))

	start := base.AddDate(0, 0, 5)
	end := base.AddDate(0, 0, 10)
	filter := domain.ExpenseFilter{OwnerID: "u1", Category: "Food", StartDate: &start, EndDate: &end}

	got, err := s.repo.List(s.ctx, domain.ExpenseQuery{Filter: filter, SortBy: "amount", SortOrder: domain.SortAsc, Limit: 10})
	require.NoError(s.T(), err)
	require.Len(s.T(), got, 2, "date bounds are inclusive")
	assert.Equal(s.T(), "B", got[0].Title)
	assert.Equal(s.T(), "C", got[1].Title)

	total, err := s.repo.Count(s.ctx, filter)
	require.NoError(s.T(), err)
	assert.EqualValues(s.T(), 2, total)

	cash, err := s.repo.Count(s.ctx, domain.ExpenseFilter{OwnerID: "u1", PaymentMethod: "cash"})
	require.NoError(s.T(), err)
	assert.EqualValues(s.T(), 3, cash)
}

func (s *ExpenseRepositoryTestSuite) TestListPaginates() {
	base := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		s.create("u1", string(rune('A'+i)), "Food", domain.PaymentMethodCash, float64(i+1), base.AddDate(0, 0, i))
	}

	page, err := s.repo.List(s.ctx, domain.ExpenseQuery{
		Filter:    domain.ExpenseFilter{OwnerID: "u1"},
		SortBy:    "date",
		SortOrder: domain.SortAsc,
		Skip:      2,
		Limit:     2,
	})
	require.NoError(s.T(), err)
	require.Len(s.T(), page, 2)
	assert.Equal(s.T(), "C", page[0].Title)
	assert.Equal(s.T(), "D", page[1].Title)
}

func (s *ExpenseRepositoryTestSuite) TestUpdateIsOwnerScoped() {
	e := s.create("u1", "Lunch", "Food", domain.PaymentMethodCash, 10, time.Now())

	title := "Dinner"
	_, err := s.repo.Update(s.ctx, "u2", e.ID, domain.ExpensePatch{Title: &title})
	assert.ErrorIs(s.T(), err, repository.ErrNotFound)

	updated, err := s.repo.Update(s.ctx, "u1", e.ID, domain.ExpensePatch{Title: &title})
	require.NoError(s.T(), err)
	assert.Equal(s.T(), "Dinner", updated.Title)
	assert.Equal(s.T(), "u1", updated.UserID)
	assert.Equal(s.T(), 10.0, updated.Amount)
	assert.False(s.T(), updated.UpdatedAt.Before(e.UpdatedAt))
}

func (s *ExpenseRepositoryTestSuite) TestDeleteIsOwnerScoped() {
	e := s.create("u1", "Lunch", "Food", domain.PaymentMethodCash, 10, time.Now())

	assert.ErrorIs(s.T(), s.repo.Delete(s.ctx, "u2", e.ID), repository.ErrNotFound)
	require.NoError(s.T(), s.repo.Delete(s.ctx, "u1", e.ID))
	assert.ErrorIs(s.T(), s.repo.Delete(s.ctx, "u1", e.ID), repository.ErrNotFound)
}

func (s *ExpenseRepositoryTestSuite) TestDeleteManyCountsOnlyOwnedRows() {
	a := s.create("u1", "A", "Food", domain.PaymentMethodCash, 1, time.Now())
	b := s.create("u1", "B", "Food", domain.PaymentMethodCash, 2, time.Now())
	other := s.create("u2", "C", "Food", domain.PaymentMethodCash, 3, time.Now())

	n, err := s.repo.DeleteMany(s.ctx, "u1", []string{a.ID, b.ID, other.ID, "missing"})
	require.NoError(s.T(), err)
	assert.EqualValues(s.T(), 2, n)

	left, err := s.repo.Count(s.ctx, domain.ExpenseFilter{OwnerID: "u2"})
	require.NoError(s.T(), err)
	assert.EqualValues(s.T(), 1, left)
}

func (s *ExpenseRepositoryTestSuite) TestCreateBatchIsAllOrNothing() {
	batch := []domain.Expense{
		{UserID: "u1", Title: "ok", Amount: 1, Category: "Food", PaymentMethod: domain.PaymentMethodCash},
		{UserID: "u1", Title: "bad", Amount: 2, Category: "Food", PaymentMethod: "debit"},
	}
	assert.Error(s.T(), s.repo.CreateBatch(s.ctx, batch))

	total, err := s.repo.Count(s.ctx, domain.ExpenseFilter{OwnerID: "u1"})
	require.NoError(s.T(), err)
	assert.Zero(s.T(), total)

	batch[1].PaymentMethod = domain.PaymentMethodCredit
	batch[0].ID, batch[1].ID = "", ""
	require.NoError(s.T(), s.repo.CreateBatch(s.ctx, batch))
	assert.NotEmpty(s.T(), batch[0].ID)
	assert.NotEmpty(s.T(), batch[1].ID)

	total, err = s.repo.Count(s.ctx, domain.ExpenseFilter{OwnerID: "u1"})
	require.NoError(s.T(), err)
	assert.EqualValues(s.T(), 2, total)
}

func TestExpenseRepositorySuite(t *testing.T) {
	suite.Run(t, new(ExpenseRepositoryTestSuite))
}
