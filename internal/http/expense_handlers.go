package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"expense-api/internal/service"
)

// The owner never comes from these bodies; a "user" key is ignored.
type createExpenseRequest struct {
	Title         string           `json:"title"`
	Amount        *decimal.Decimal `json:"amount"`
	Category      string           `json:"category"`
	PaymentMethod string           `json:"paymentMethod"`
	Description   string           `json:"description"`
	Date          string           `json:"date"`
}

type updateExpenseRequest struct {
	Title         *string          `json:"title"`
	Amount        *decimal.Decimal `json:"amount"`
	Category      *string          `json:"category"`
	PaymentMethod *string          `json:"paymentMethod"`
	Description   *string          `json:"description"`
	Date          *string          `json:"date"`
}

// Amounts may arrive as JSON numbers or numeric strings.
func amountValue(d *decimal.Decimal) *float64 {
	if d == nil {
		return nil
	}
	v := d.InexactFloat64()
	return &v
}

func payloadMessage(err error) string {
	var (
		syntaxErr *json.SyntaxError
		typeErr   *json.UnmarshalTypeError
	)
	switch {
	case errors.Is(err, io.EOF), errors.As(err, &syntaxErr):
		return "Request body must be valid JSON"
	case errors.As(err, &typeErr):
		return fmt.Sprintf("Invalid expense payload: %s has the wrong type", typeErr.Field)
	default:
		// decimal reports unparsable amounts with its own error type
		return "Invalid expense payload: amount must be a number"
	}
}

type bulkDeleteRequest struct {
	ExpenseIDs []string `json:"expenseIds"`
}

func (h *Handler) createExpense(c *gin.Context) {
	var req createExpenseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.fail(c, http.StatusBadRequest, payloadMessage(err), nil)
		return
	}

	expense, err := h.cfg.Expenses.Create(c.Request.Context(), claimsFrom(c).UserID(), service.CreateExpenseInput{
		Title:         req.Title,
		Amount:        amountValue(req.Amount),
		Category:      req.Category,
		PaymentMethod: req.PaymentMethod,
		Description:   req.Description,
		Date:          req.Date,
	})
	if err != nil {
		h.failService(c, err, "Error creating expense")
		return
	}

	c.JSON(http.StatusCreated, gin.H{"message": "Expense created successfully", "data": expenseToResponse(*expense)})
}

func (h *Handler) listExpenses(c *gin.Context) {
	params := service.ListParams{
		Category:      c.Query("category"),
		PaymentMethod: c.Query("paymentMethod"),
		StartDate:     c.Query("startDate"),
		EndDate:       c.Query("endDate"),
		SortBy:        c.Query("sortBy"),
		SortOrder:     c.DefaultQuery("sortOrder", "desc"),
		Page:          queryInt(c, "page", service.DefaultPage),
		Limit:         queryInt(c, "limit", service.DefaultLimit),
	}

	page, err := h.cfg.Expenses.List(c.Request.Context(), claimsFrom(c).UserID(), params)
	if err != nil {
		h.failService(c, err, "Server error")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"expenses":      expensesToResponse(page.Expenses),
		"totalExpenses": page.Total,
		"totalPages":    page.TotalPages,
		"currentPage":   page.CurrentPage,
	})
}

func (h *Handler) updateExpense(c *gin.Context) {
	var req updateExpenseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.fail(c, http.StatusBadRequest, payloadMessage(err), nil)
		return
	}

	expense, err := h.cfg.Expenses.Update(c.Request.Context(), claimsFrom(c).UserID(), c.Param("id"), service.UpdateExpenseInput{
		Title:         req.Title,
		Amount:        amountValue(req.Amount),
		Category:      req.Category,
		PaymentMethod: req.PaymentMethod,
		Description:   req.Description,
		Date:          req.Date,
	})
	if err != nil {
		h.failService(c, err, "Error updating expense")
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Expense updated successfully", "data": expenseToResponse(*expense)})
}

func (h *Handler) deleteExpense(c *gin.Context) {
	if err := h.cfg.Expenses.Delete(c.Request.Context(), claimsFrom(c).UserID(), c.Param("id")); err != nil {
		h.failService(c, err, "Error deleting expense")
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Expense deleted successfully"})
}

func (h *Handler) uploadExpensesCSV(c *gin.Context) {
	if h.cfg.MaxUploadBytes > 0 {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.cfg.MaxUploadBytes)
	}

	file, err := c.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			h.fail(c, http.StatusRequestEntityTooLarge, fmt.Sprintf("File exceeds %d bytes", tooLarge.Limit), nil)
			return
		}
		h.fail(c, http.StatusBadRequest, "Please upload a CSV file", nil)
		return
	}

	if err := os.MkdirAll(h.cfg.UploadDir, 0o755); err != nil {
		h.fail(c, http.StatusInternalServerError, "Error saving upload", err)
		return
	}
	dst := filepath.Join(h.cfg.UploadDir, uuid.NewString()+".csv")
	if err := c.SaveUploadedFile(file, dst); err != nil {
		os.Remove(dst)
		h.fail(c, http.StatusInternalServerError, "Error saving upload", err)
		return
	}

	// Import owns dst from here and removes it.
	result, err := h.cfg.Imports.Import(c.Request.Context(), claimsFrom(c).UserID(), dst)
	if err != nil {
		h.failService(c, err, "Error saving expenses")
		return
	}

	resp := gin.H{
		"message":     "Expenses uploaded successfully",
		"data":        expensesToResponse(result.Expenses),
		"skippedRows": result.Skipped,
	}
	if result.ArchiveLocation != "" {
		resp["archive"] = result.ArchiveLocation
	}
	c.JSON(http.StatusCreated, resp)
}

func (h *Handler) bulkDeleteExpenses(c *gin.Context) {
	var req bulkDeleteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.fail(c, http.StatusBadRequest, "No expense IDs provided for deletion", nil)
		return
	}

	deleted, err := h.cfg.Expenses.BulkDelete(c.Request.Context(), claimsFrom(c).UserID(), req.ExpenseIDs)
	if err != nil {
		h.failService(c, err, "Error deleting expenses")
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Expenses deleted successfully", "deletedCount": deleted})
}

// queryInt falls back to def when the parameter is absent or not a number.
// Out-of-range numbers saturate so the service clamps them.
func queryInt(c *gin.Context, key string, def int) int {
	raw, ok := c.GetQuery(key)
	if !ok {
		return def
	}
	v, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		var numErr *strconv.NumError
		if errors.As(err, &numErr) && errors.Is(numErr.Err, strconv.ErrRange) {
			return v
		}
		return def
	}
	return v
}
