package repository

import (
	"context"

	"petcycle/internal/domain/entity"
)

type ProductRepository interface {
	Create(ctx context.Context, product *entity.Product) error
	GetByID(ctx context.Context, id string) (*entity.Product, error)
	// Mutate applies fn to the current listing atomically. An error from fn aborts the write
	// and is returned unchanged.
	Mutate(ctx context.Context, id string, fn func(product *entity.Product) error) (*entity.Product, error)
	// ListPurchased pages the SOLD listings bought by buyerID, most recently sold first.
	ListPurchased(ctx context.Context, buyerID string, limit, offset int) ([]*entity.Product, int64, error)
}
