package memory

import (
	"context"
	"sync"
	"time"

	"petcycle/internal/domain/entity"
	"petcycle/internal/domain/repository"
)

type likeRepository struct {
	mu    sync.RWMutex
	likes map[string]entity.Like
}

func NewLikeRepository() repository.LikeRepository {
	return &likeRepository{likes: make(map[string]entity.Like)}
}

func (r *likeRepository) Exists(ctx context.Context, userID, productID string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.likes[entity.LikeID(userID, productID)]
	return ok, nil
}

func (r *likeRepository) Add(ctx context.Context, userID, productID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	id := entity.LikeID(userID, productID)
	r.likes[id] = entity.Like{ID: id, UserID: userID, ProductID: productID, CreatedAt: time.Now()}
	return nil
}

func (r *likeRepository) Remove(ctx context.Context, userID, productID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.likes, entity.LikeID(userID, productID))
	return nil
}

func (r *likeRepository) CountByProduct(ctx context.Context, productID string) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	n := 0
	for _, like := range r.likes {
		if like.ProductID == productID {
			n++
		}
	}
	return n, nil
}

func (r *likeRepository) DeleteByProduct(ctx context.Context, productID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, like := range r.likes {
		if like.ProductID == productID {
			delete(r.likes, id)
		}
	}
	return nil
}
