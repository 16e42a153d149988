package domain

import (
	"strings"
	"time"
)

type PaymentMethod string

const (
	PaymentMethodCash   PaymentMethod = "cash"
	PaymentMethodCredit PaymentMethod = "credit"
)

// ParsePaymentMethod accepts case variants ("Cash", "CREDIT") and reports
// whether the value is one of the supported methods.
func ParsePaymentMethod(s string) (PaymentMethod, bool) {
	switch m := PaymentMethod(strings.ToLower(strings.TrimSpace(s))); m {
	case PaymentMethodCash, PaymentMethodCredit:
		return m, true
	default:
		return m, false
	}
}

const (
	DefaultExpenseTitle    = "Untitled"
	DefaultImportCategory  = "Miscellaneous"
	DefaultImportPayMethod = PaymentMethodCash
)

// Expense is a financial record owned by exactly one user.
type Expense struct {
	ID            string
	UserID        string
	Title         string
	Amount        float64
	Category      string
	PaymentMethod PaymentMethod
	Description   string
	Date          time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// ExpensePatch carries the fields an update replaces. Nil fields are left
// untouched; ownership is not patchable.
type ExpensePatch struct {
	Title         *string
	Amount        *float64
	Category      *string
	PaymentMethod *PaymentMethod
	Description   *string
	Date          *time.Time
}

// Apply copies the set fields of p onto e.
func (e *Expense) Apply(p ExpensePatch) {
	if p.Title != nil {
		e.Title = *p.Title
	}
	if p.Amount != nil {
		e.Amount = *p.Amount
	}
	if p.Category != nil {
		e.Category = *p.Category
	}
	if p.PaymentMethod != nil {
		e.PaymentMethod = *p.PaymentMethod
	}
	if p.Description != nil {
		e.Description = *p.Description
	}
	if p.Date != nil {
		e.Date = *p.Date
	}
}

type SortOrder string

const (
	SortAsc  SortOrder = "asc"
	SortDesc SortOrder = "desc"
)

// ExpenseFilter narrows an owner-scoped listing. OwnerID is mandatory.
type ExpenseFilter struct {
	OwnerID       string
	Category      string
	PaymentMethod string
	StartDate     *time.Time
	EndDate       *time.Time
}

// ExpenseQuery is a filter plus ordering and a page window.
type ExpenseQuery struct {
	Filter    ExpenseFilter
	SortBy    string
	SortOrder SortOrder
	Skip      int
	Limit     int
}

// ExpensePage is one page of a listing and the size of the whole match set.
type ExpensePage struct {
	Expenses    []Expense
	Total       int64
	TotalPages  int64
	CurrentPage int
}

// Sortable expense fields, named as they appear in the JSON representation.
const (
	SortFieldTitle         = "title"
	SortFieldAmount        = "amount"
	SortFieldCategory      = "category"
	SortFieldPaymentMethod = "paymentMethod"
	SortFieldDescription   = "description"
	SortFieldDate          = "date"
	SortFieldCreatedAt     = "createdAt"
	SortFieldUpdatedAt     = "updatedAt"
)

var sortFields = map[string]struct{}{
	SortFieldTitle:         {},
	SortFieldAmount:        {},
	SortFieldCategory:      {},
	SortFieldPaymentMethod: {},
	SortFieldDescription:   {},
	SortFieldDate:          {},
	SortFieldCreatedAt:     {},
	SortFieldUpdatedAt:     {},
}

// NormalizeSortField returns field when it names a sortable expense field and
// falls back to the date otherwise.
func NormalizeSortField(field string) string {
	if _, ok := sortFields[field]; ok {
		return field
	}
	return SortFieldDate
}
