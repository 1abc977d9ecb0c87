package repository

import (
	"context"
)

type LikeRepository interface {
	Exists(ctx context.Context, userID, productID string) (bool, error)
	Add(ctx context.Context, userID, productID string) error
	Remove(ctx context.Context, userID, productID string) error
	CountByProduct(ctx context.Context, productID string) (int, error)
	DeleteByProduct(ctx context.Context, productID string) error
}
