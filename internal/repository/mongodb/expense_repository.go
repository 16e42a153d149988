package mongodb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"expense-api/internal/domain"
	"expense-api/internal/repository"
)

type expenseDocument struct {
	ID            primitive.ObjectID `bson:"_id,omitempty"`
	User          string             `bson:"user"`
	Title         string             `bson:"title"`
	Amount        float64            `bson:"amount"`
	Category      string             `bson:"category"`
	PaymentMethod string             `bson:"paymentMethod"`
	Description   string             `bson:"description,omitempty"`
	Date          time.Time          `bson:"date"`
	CreatedAt     time.Time          `bson:"createdAt"`
	UpdatedAt     time.Time          `bson:"updatedAt"`
}

type ExpenseRepository struct {
	coll *mongo.Collection
}

func NewExpenseRepository(db *mongo.Database) repository.ExpenseRepository {
	return &ExpenseRepository{coll: db.Collection(expensesCollection)}
}

func (r *ExpenseRepository) Init(ctx context.Context) error {
	_, err := r.coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "user", Value: 1}, {Key: "date", Value: -1}},
	})
	if err != nil {
		return fmt.Errorf("create expenses index: %w", err)
	}
	return nil
}

func (r *ExpenseRepository) Create(ctx context.Context, expense *domain.Expense) error {
	doc := newExpenseDocument(expense, time.Now().UTC())
	res, err := r.coll.InsertOne(ctx, doc)
	if err != nil {
		return fmt.Errorf("insert expense: %w", err)
	}
	if oid, ok := res.InsertedID.(primitive.ObjectID); ok {
		doc.ID = oid
	}
	*expense = doc.toDomain()
	return nil
}

// CreateBatch performs an ordered InsertMany. MongoDB stops at the first
// failing document but keeps the ones written before it.
func (r *ExpenseRepository) CreateBatch(ctx context.Context, expenses []domain.Expense) error {
	if len(expenses) == 0 {
		return nil
	}

	now := time.Now().UTC()
	docs := make([]any, len(expenses))
	for i := range expenses {
		doc := newExpenseDocument(&expenses[i], now)
		doc.ID = primitive.NewObjectID()
		docs[i] = doc
		expenses[i] = doc.toDomain()
	}

	if _, err := r.coll.InsertMany(ctx, docs, options.InsertMany().SetOrdered(true)); err != nil {
		return fmt.Errorf("insert expenses: %w", err)
	}
	return nil
}

func (r *ExpenseRepository) List(ctx context.Context, query domain.ExpenseQuery) ([]domain.Expense, error) {
	direction := -1
	if query.SortOrder == domain.SortAsc {
		direction = 1
	}
	field := domain.NormalizeSortField(query.SortBy)

	opts := options.Find().
		SetSort(bson.D{{Key: field, Value: direction}, {Key: "_id", Value: direction}}).
		SetSkip(int64(query.Skip))
	if query.Limit > 0 {
		opts.SetLimit(int64(query.Limit))
	}

	cursor, err := r.coll.Find(ctx, buildExpenseFilter(query.Filter), opts)
	if err != nil {
		return nil, fmt.Errorf("find expenses: %w", err)
	}
	defer cursor.Close(ctx)

	expenses := []domain.Expense{}
	for cursor.Next(ctx) {
		var doc expenseDocument
		if err := cursor.Decode(&doc); err != nil {
			return nil, fmt.Errorf("decode expense: %w", err)
		}
		expenses = append(expenses, doc.toDomain())
	}
	return expenses, cursor.Err()
}

func (r *ExpenseRepository) Count(ctx context.Context, filter domain.ExpenseFilter) (int64, error) {
	total, err := r.coll.CountDocuments(ctx, buildExpenseFilter(filter))
	if err != nil {
		return 0, fmt.Errorf("count expenses: %w", err)
	}
	return total, nil
}

func (r *ExpenseRepository) Update(ctx context.Context, ownerID, id string, patch domain.ExpensePatch) (*domain.Expense, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, repository.ErrNotFound
	}

	set := bson.M{"updatedAt": time.Now().UTC()}
	if patch.Title != nil {
		set["title"] = *patch.Title
	}
	if patch.Amount != nil {
		set["amount"] = *patch.Amount
	}
	if patch.Category != nil {
		set["category"] = *patch.Category
	}
	if patch.PaymentMethod != nil {
		set["paymentMethod"] = string(*patch.PaymentMethod)
	}
	if patch.Description != nil {
		set["description"] = *patch.Description
	}
	if patch.Date != nil {
		set["date"] = patch.Date.UTC()
	}

	var doc expenseDocument
	err = r.coll.FindOneAndUpdate(ctx,
		bson.M{"_id": oid, "user": ownerID},
		bson.M{"$set": set},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("update expense: %w", err)
	}

	expense := doc.toDomain()
	return &expense, nil
}

func (r *ExpenseRepository) Delete(ctx context.Context, ownerID, id string) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return repository.ErrNotFound
	}

	res, err := r.coll.DeleteOne(ctx, bson.M{"_id": oid, "user": ownerID})
	if err != nil {
		return fmt.Errorf("delete expense: %w", err)
	}
	if res.DeletedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *ExpenseRepository) DeleteMany(ctx context.Context, ownerID string, ids []string) (int64, error) {
	oids := make([]primitive.ObjectID, 0, len(ids))
	for _, id := range ids {
		// ids that are not object ids cannot match any document
		if oid, err := primitive.ObjectIDFromHex(id); err == nil {
			oids = append(oids, oid)
		}
	}
	if len(oids) == 0 {
		return 0, nil
	}

	res, err := r.coll.DeleteMany(ctx, bson.M{"_id": bson.M{"$in": oids}, "user": ownerID})
	if err != nil {
		return 0, fmt.Errorf("delete expenses: %w", err)
	}
	return res.DeletedCount, nil
}

func buildExpenseFilter(filter domain.ExpenseFilter) bson.M {
	m := bson.M{"user": filter.OwnerID}
	if filter.Category != "" {
		m["category"] = filter.Category
	}
	if filter.PaymentMethod != "" {
		m["paymentMethod"] = filter.PaymentMethod
	}
	if filter.StartDate != nil || filter.EndDate != nil {
		dateRange := bson.M{}
		if filter.StartDate != nil {
			dateRange["$gte"] = filter.StartDate.UTC()
		}
		if filter.EndDate != nil {
			dateRange["$lte"] = filter.EndDate.UTC()
		}
		m["date"] = dateRange
	}
	return m
}

func newExpenseDocument(expense *domain.Expense, now time.Time) expenseDocument {
	date := expense.Date
	if date.IsZero() {
		date = now
	}
	return expenseDocument{
		User:          expense.UserID,
		Title:         expense.Title,
		Amount:        expense.Amount,
		Category:      expense.Category,
		PaymentMethod: string(expense.PaymentMethod),
		Description:   expense.Description,
		Date:          date.UTC(),
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

func (d expenseDocument) toDomain() domain.Expense {
	return domain.Expense{
		ID:            d.ID.Hex(),
		UserID:        d.User,
		Title:         d.Title,
		Amount:        d.Amount,
		Category:      d.Category,
		PaymentMethod: domain.PaymentMethod(d.PaymentMethod),
		Description:   d.Description,
		Date:          d.Date.UTC(),
		CreatedAt:     d.CreatedAt.UTC(),
		UpdatedAt:     d.UpdatedAt.UTC(),
	}
}
