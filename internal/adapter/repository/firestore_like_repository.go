package repository

import (
	"context"
	"time"

	"cloud.google.com/go/firestore"

	"petcycle/internal/domain/entity"
	"petcycle/internal/domain/repository"
	"petcycle/pkg/errors"
	"petcycle/pkg/logger"
)

type firestoreLikeRepository struct {
	client *firestore.Client
}

func NewFirestoreLikeRepository(client *firestore.Client) repository.LikeRepository {
	return &firestoreLikeRepository{client: client}
}

func (r *firestoreLikeRepository) Exists(ctx context.Context, userID, productID string) (bool, error) {
	doc, err := r.client.Collection("likes").Doc(entity.LikeID(userID, productID)).Get(ctx)
	if err != nil {
		if IsNotFound(err) {
			return false, nil
		}
		return false, errors.Internal("Failed to check like", err)
	}
	return doc.Exists(), nil
}

func (r *firestoreLikeRepository) Add(ctx context.Context, userID, productID string) error {
	like := entity.Like{
		ID:        entity.LikeID(userID, productID),
		UserID:    userID,
		ProductID: productID,
		CreatedAt: time.Now(),
	}
	if _, err := r.client.Collection("likes").Doc(like.ID).Set(ctx, like); err != nil {
		return errors.Internal("Failed to add like", err)
	}
	return nil
}

func (r *firestoreLikeRepository) Remove(ctx context.Context, userID, productID string) error {
	if _, err := r.client.Collection("likes").Doc(entity.LikeID(userID, productID)).Delete(ctx); err != nil {
		return errors.Internal("Failed to remove like", err)
	}
	return nil
}

func (r *firestoreLikeRepository) CountByProduct(ctx context.Context, productID string) (int, error) {
	docs, err := r.client.Collection("likes").Where("productId", "==", productID).Documents(ctx).GetAll()
	if err != nil {
		return 0, errors.Internal("Failed to count likes", err)
	}
	return len(docs), nil
}

func (r *firestoreLikeRepository) DeleteByProduct(ctx context.Context, productID string) error {
	docs, err := r.client.Collection("likes").Where("productId", "==", productID).Documents(ctx).GetAll()
	if err != nil {
		return errors.Internal("Failed to load likes", err)
	}
	if len(docs) == 0 {
		return nil
	}

	bw := r.client.BulkWriter(ctx)
	for _, doc := range docs {
		if _, err := bw.Delete(doc.Ref); err != nil {
			logger.Warn("Failed to queue like deletion %s: %v", doc.Ref.ID, err)
		}
	}
	bw.End()

	logger.Info("Removed %d likes for product %s", len(docs), productID)
	return nil
}
