package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"petcycle/internal/domain/entity"
	"petcycle/internal/domain/repository"
	"petcycle/pkg/errors"
)

type transactionRepository struct {
	mu           sync.RWMutex
	transactions map[string]*entity.Transaction
	order        []string
}

func NewTransactionRepository() repository.TransactionRepository {
	return &transactionRepository{transactions: make(map[string]*entity.Transaction)}
}

func (r *transactionRepository) Create(ctx context.Context, transaction *entity.Transaction) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if transaction.ID == "" {
		transaction.ID = uuid.New().String()
	}
	now := time.Now()
	transaction.CreatedAt = now
	transaction.UpdatedAt = now
	r.transactions[transaction.ID] = cloneTransaction(transaction)
	r.order = append(r.order, transaction.ID)
	return nil
}

func (r *transactionRepository) Update(ctx context.Context, transaction *entity.Transaction) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.transactions[transaction.ID]; !ok {
		return errors.NotFound("Transaction", nil)
	}
	transaction.UpdatedAt = time.Now()
	r.transactions[transaction.ID] = cloneTransaction(transaction)
	return nil
}

func (r *transactionRepository) FindOpen(ctx context.Context, productID, buyerID string) (*entity.Transaction, error) {
	return r.find(func(t *entity.Transaction) bool {
		return t.ProductID == productID && t.BuyerID == buyerID && t.IsOpen()
	})
}

func (r *transactionRepository) FindOpenByProduct(ctx context.Context, productID string) (*entity.Transaction, error) {
	return r.find(func(t *entity.Transaction) bool {
		return t.ProductID == productID && t.IsOpen()
	})
}

func (r *transactionRepository) GetByID(ctx context.Context, id string) (*entity.Transaction, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	t, ok := r.transactions[id]
	if !ok {
		return nil, errors.NotFound("Transaction", nil)
	}
	return cloneTransaction(t), nil
}

func (r *transactionRepository) ListByParticipant(ctx context.Context, userID string, limit, offset int) ([]*entity.Transaction, int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var matched []*entity.Transaction
	for i := len(r.order) - 1; i >= 0; i-- {
		t := r.transactions[r.order[i]]
		if t.BuyerID == userID || t.SellerID == userID {
			matched = append(matched, cloneTransaction(t))
		}
	}
	page, total := paginate(matched, limit, offset)
	return page, total, nil
}

func (r *transactionRepository) find(match func(*entity.Transaction) bool) (*entity.Transaction, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, id := range r.order {
		if t := r.transactions[id]; match(t) {
			return cloneTransaction(t), nil
		}
	}
	return nil, errors.NotFound("Transaction", nil)
}

func cloneTransaction(t *entity.Transaction) *entity.Transaction {
	c := *t
	c.SellerConfirmedAt = cloneTime(t.SellerConfirmedAt)
	c.BuyerConfirmedAt = cloneTime(t.BuyerConfirmedAt)
	c.CompletedAt = cloneTime(t.CompletedAt)
	return &c
}
