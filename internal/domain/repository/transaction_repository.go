package repository

import (
	"context"

	"petcycle/internal/domain/entity"
)

type TransactionRepository interface {
	Create(ctx context.Context, transaction *entity.Transaction) error
	Update(ctx context.Context, transaction *entity.Transaction) error
	// FindOpen returns the open transaction of buyerID on productID, or a NOT_FOUND AppError.
	FindOpen(ctx context.Context, productID, buyerID string) (*entity.Transaction, error)
	FindOpenByProduct(ctx context.Context, productID string) (*entity.Transaction, error)
	GetByID(ctx context.Context, id string) (*entity.Transaction, error)
	// ListByParticipant pages the transactions where userID is buyer or seller, newest first.
	ListByParticipant(ctx context.Context, userID string, limit, offset int) ([]*entity.Transaction, int64, error)
}
