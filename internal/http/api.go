package http

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"expense-api/internal/auth"
	"expense-api/internal/domain"
	"expense-api/internal/service"
)

// Config carries the collaborators and knobs of the HTTP layer.
type Config struct {
	Expenses service.ExpenseService
	Imports  service.ImportService
	Users    service.UserService
	Tokens   *auth.TokenManager
	Revoker  auth.Revoker
	Logger   *logrus.Logger

	CookieName     string
	SecureCookie   bool
	UploadDir      string
	MaxUploadBytes int64
	RequestTimeout time.Duration
	// ExposeErrors adds the underlying error text to 500 responses.
	ExposeErrors bool
}

// Handler wires HTTP routes to domain services.
type Handler struct {
	cfg Config
	log *logrus.Logger
}

func NewHandler(cfg Config) *Handler {
	if cfg.Logger == nil {
		cfg.Logger = logrus.New()
	}
	if cfg.CookieName == "" {
		cfg.CookieName = "token"
	}
	if cfg.Revoker == nil {
		cfg.Revoker = auth.NewMemoryRevoker()
	}
	return &Handler{cfg: cfg, log: cfg.Logger}
}

func (h *Handler) RegisterRoutes(router *gin.Engine) {
	router.Use(h.requestLogger(), corsMiddleware())
	if h.cfg.RequestTimeout > 0 {
		router.Use(requestTimeout(h.cfg.RequestTimeout))
	}

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.POST("/register", h.register)
	router.POST("/login", h.login)

	authed := router.Group("/", h.authenticate())
	{
		authed.POST("/logout", h.logout)
		authed.GET("/me", h.me)
	}

	expenses := router.Group("/expense", h.authenticate())
	{
		expenses.POST("/create", h.createExpense)
		expenses.GET("/all", authorizeAdmin(), h.listExpenses)
		expenses.PUT("/:id", h.updateExpense)
		expenses.DELETE("/:id", h.deleteExpense)
		expenses.POST("/upload-expenses-csv", h.uploadExpensesCSV)
		expenses.DELETE("/bulk-delete", h.bulkDeleteExpenses)
	}
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Origin, Content-Type, Accept, Authorization")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

// fail writes a {message, error?} body. The error text is only included for
// server errors and only when exposing errors is enabled.
func (h *Handler) fail(c *gin.Context, status int, message string, err error) {
	body := gin.H{"message": message}
	if status >= http.StatusInternalServerError {
		if err != nil {
			_ = c.Error(err)
			h.log.WithFields(logrus.Fields{
				"method": c.Request.Method,
				"path":   c.FullPath(),
			}).Errorf("%s: %v", message, err)
			if h.cfg.ExposeErrors {
				body["error"] = err.Error()
			}
		}
	}
	c.AbortWithStatusJSON(status, body)
}

// failService maps service sentinels onto status codes; anything unknown
// becomes a 500 carrying fallback as its message.
func (h *Handler) failService(c *gin.Context, err error, fallback string) {
	var verr *service.ValidationError
	switch {
	case errors.As(err, &verr):
		h.fail(c, http.StatusBadRequest, verr.Msg, nil)
	case errors.Is(err, service.ErrExpenseNotFound):
		h.fail(c, http.StatusNotFound, "Expense not found", nil)
	case errors.Is(err, service.ErrProcessing):
		h.fail(c, http.StatusInternalServerError, "Error processing CSV file", err)
	case errors.Is(err, service.ErrInvalidCredentials):
		h.fail(c, http.StatusUnauthorized, "Invalid email or password", nil)
	case errors.Is(err, service.ErrUserAlreadyExists):
		h.fail(c, http.StatusConflict, "User already exists", nil)
	default:
		h.fail(c, http.StatusInternalServerError, fallback, err)
	}
}

type ExpenseResponse struct {
	ID            string  `json:"id"`
	User          string  `json:"user"`
	Title         string  `json:"title"`
	Amount        float64 `json:"amount"`
	Category      string  `json:"category"`
	PaymentMethod string  `json:"paymentMethod"`
	Description   string  `json:"description,omitempty"`
	Date          string  `json:"date"`
	CreatedAt     string  `json:"createdAt"`
	UpdatedAt     string  `json:"updatedAt"`
}

func expenseToResponse(e domain.Expense) ExpenseResponse {
	return ExpenseResponse{
		ID:            e.ID,
		User:          e.UserID,
		Title:         e.Title,
		Amount:        e.Amount,
		Category:      e.Category,
		PaymentMethod: string(e.PaymentMethod),
		Description:   e.Description,
		Date:          e.Date.UTC().Format(time.RFC3339),
		CreatedAt:     e.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt:     e.UpdatedAt.UTC().Format(time.RFC3339),
	}
}

func expensesToResponse(expenses []domain.Expense) []ExpenseResponse {
	resp := make([]ExpenseResponse, len(expenses))
	for i := range expenses {
		resp[i] = expenseToResponse(expenses[i])
	}
	return resp
}

type UserResponse struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Email     string `json:"email"`
	Role      string `json:"role"`
	CreatedAt string `json:"createdAt"`
}

func userToResponse(u *domain.User) UserResponse {
	return UserResponse{
		ID:        u.ID,
		Name:      u.Name,
		Email:     u.Email,
		Role:      string(u.Role),
		CreatedAt: u.CreatedAt.UTC().Format(time.RFC3339),
	}
}
