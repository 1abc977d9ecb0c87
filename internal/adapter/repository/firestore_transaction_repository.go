package repository

import (
	"context"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/google/uuid"
	"google.golang.org/api/iterator"

	"petcycle/internal/domain/entity"
	"petcycle/internal/domain/repository"
	"petcycle/pkg/errors"
)

type firestoreTransactionRepository struct {
	client *firestore.Client
}

func NewFirestoreTransactionRepository(client *firestore.Client) repository.TransactionRepository {
	return &firestoreTransactionRepository{client: client}
}

func (r *firestoreTransactionRepository) Create(ctx context.Context, transaction *entity.Transaction) error {
	if transaction.ID == "" {
		transaction.ID = uuid.New().String()
	}
	now := time.Now()
	transaction.CreatedAt = now
	transaction.UpdatedAt = now

	if _, err := r.client.Collection("transactions").Doc(transaction.ID).Set(ctx, transaction); err != nil {
		return errors.Internal("Failed to create transaction", err)
	}
	return nil
}

func (r *firestoreTransactionRepository) Update(ctx context.Context, transaction *entity.Transaction) error {
	transaction.UpdatedAt = time.Now()
	if _, err := r.client.Collection("transactions").Doc(transaction.ID).Set(ctx, transaction); err != nil {
		return errors.Internal("Failed to update transaction", err)
	}
	return nil
}

func (r *firestoreTransactionRepository) FindOpen(ctx context.Context, productID, buyerID string) (*entity.Transaction, error) {
	query := r.client.Collection("transactions").
		Where("productId", "==", productID).
		Where("buyerId", "==", buyerID).
		Where("status", "==", string(entity.TransactionOpen))
	return r.first(ctx, query)
}

func (r *firestoreTransactionRepository) FindOpenByProduct(ctx context.Context, productID string) (*entity.Transaction, error) {
	query := r.client.Collection("transactions").
		Where("productId", "==", productID).
		Where("status", "==", string(entity.TransactionOpen))
	return r.first(ctx, query)
}

func (r *firestoreTransactionRepository) GetByID(ctx context.Context, id string) (*entity.Transaction, error) {
	doc, err := r.client.Collection("transactions").Doc(id).Get(ctx)
	if err != nil {
		if IsNotFound(err) {
			return nil, errors.NotFound("Transaction", err)
		}
		return nil, errors.Internal("Failed to get transaction", err)
	}

	var transaction entity.Transaction
	if err := doc.DataTo(&transaction); err != nil {
		return nil, errors.Internal("Failed to parse transaction data", err)
	}
	return &transaction, nil
}

func (r *firestoreTransactionRepository) ListByParticipant(ctx context.Context, userID string, limit, offset int) ([]*entity.Transaction, int64, error) {
	query := r.client.Collection("transactions").
		WhereEntity(firestore.OrFilter{Filters: []firestore.EntityFilter{
			firestore.PropertyFilter{Path: "buyerId", Operator: "==", Value: userID},
			firestore.PropertyFilter{Path: "sellerId", Operator: "==", Value: userID},
		}}).
		OrderBy("createdAt", firestore.Desc)

	countDocs, err := query.Documents(ctx).GetAll()
	if err != nil {
		return nil, 0, errors.Internal("Failed to count transactions", err)
	}
	total := int64(len(countDocs))

	if limit > 0 {
		query = query.Limit(limit)
	}
	if offset > 0 {
		query = query.Offset(offset)
	}

	iter := query.Documents(ctx)
	defer iter.Stop()

	var transactions []*entity.Transaction
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, 0, errors.Internal("Failed to iterate transactions", err)
		}

		var transaction entity.Transaction
		if err := doc.DataTo(&transaction); err != nil {
			return nil, 0, errors.Internal("Failed to parse transaction data", err)
		}
		transactions = append(transactions, &transaction)
	}

	return transactions, total, nil
}

func (r *firestoreTransactionRepository) first(ctx context.Context, query firestore.Query) (*entity.Transaction, error) {
	iter := query.Limit(1).Documents(ctx)
	defer iter.Stop()

	doc, err := iter.Next()
	if err == iterator.Done {
		return nil, errors.NotFound("Transaction", nil)
	}
	if err != nil {
		return nil, errors.Internal("Failed to query transactions", err)
	}

	var transaction entity.Transaction
	if err := doc.DataTo(&transaction); err != nil {
		return nil, errors.Internal("Failed to parse transaction data", err)
	}
	return &transaction, nil
}
