package service

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"expense-api/internal/domain"
	"expense-api/internal/importer"
	"expense-api/internal/repository"
	"expense-api/internal/storage"
)

// ImportResult describes a finished CSV import.
type ImportResult struct {
	Expenses        []domain.Expense
	Skipped         int
	ArchiveLocation string
}

// ImportService turns an uploaded CSV file into stored expenses.
type ImportService interface {
	// Import takes ownership of the file at path and removes it before
	// returning, whatever the outcome.
	Import(ctx context.Context, ownerID, path string) (*ImportResult, error)
}

type ImportConfig struct {
	// Archiver is optional; when nil uploads are not archived.
	Archiver  storage.Archiver
	KeyPrefix string
	Logger    *logrus.Logger
}

type importService struct {
	expenses repository.ExpenseRepository
	cfg      ImportConfig
	now      func() time.Time
}

func NewImportService(expenses repository.ExpenseRepository, cfg ImportConfig) ImportService {
	if cfg.Logger == nil {
		cfg.Logger = logrus.New()
	}
	return &importService{
		expenses: expenses,
		cfg:      cfg,
		now:      time.Now,
	}
}

func (s *importService) Import(ctx context.Context, ownerID, path string) (*ImportResult, error) {
	logger := s.cfg.Logger.WithFields(logrus.Fields{"user_id": ownerID, "upload": filepath.Base(path)})
	defer func() {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			logger.Warnf("remove uploaded file: %v", err)
		}
	}()

	expenses, skipped, err := s.decode(logger, ownerID, path)
	if err != nil {
		return nil, err
	}

	if err := s.expenses.CreateBatch(ctx, expenses); err != nil {
		return nil, fmt.Errorf("save imported expenses: %w", err)
	}
	logger.Infof("imported %d expenses, skipped %d rows", len(expenses), skipped)

	result := &ImportResult{Expenses: expenses, Skipped: skipped}
	if s.cfg.Archiver != nil {
		key := storage.ObjectKey(s.cfg.KeyPrefix, ownerID, fmt.Sprintf("%s-%s.csv", s.now().UTC().Format("20060102T150405"), uuid.NewString()))
		location, err := s.cfg.Archiver.Archive(ctx, path, key)
		if err != nil {
			logger.Warnf("archive upload: %v", err)
		} else {
			result.ArchiveLocation = location
		}
	}
	return result, nil
}

func (s *importService) decode(logger *logrus.Entry, ownerID, path string) ([]domain.Expense, int, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: open upload: %v", ErrProcessing, err)
	}
	defer f.Close()

	expenses := []domain.Expense{}
	skipped := 0
	dec := importer.NewDecoder(f, ownerID, s.now())
	for dec.Next() {
		row := dec.Row()
		if row.Status == importer.RowSkipped {
			logger.Debugf("skip line %d: %s", row.Line, row.Reason)
			skipped++
			continue
		}
		if _, ok := domain.ParsePaymentMethod(string(row.Expense.PaymentMethod)); !ok {
			return nil, skipped, validationError(fmt.Sprintf("line %d: payment method %q must be cash or credit", row.Line, row.Expense.PaymentMethod))
		}
		expenses = append(expenses, row.Expense)
	}
	if err := dec.Err(); err != nil {
		return nil, skipped, fmt.Errorf("%w: %v", ErrProcessing, err)
	}
	return expenses, skipped, nil
}
