package usecase

import (
	"context"

	"petcycle/internal/domain/entity"
	"petcycle/internal/domain/repository"
	"petcycle/internal/infrastructure/ratelimit"
	"petcycle/pkg/errors"
)

type LikeUseCase struct {
	likeRepo    repository.LikeRepository
	productRepo repository.ProductRepository
	rateLimiter RateLimiter
}

func NewLikeUseCase(likeRepo repository.LikeRepository, productRepo repository.ProductRepository, rateLimiter RateLimiter) *LikeUseCase {
	return &LikeUseCase{
		likeRepo:    likeRepo,
		productRepo: productRepo,
		rateLimiter: rateLimiter,
	}
}

// Toggle flips the caller's like. Sold listings are not likeable and report liked=false unchanged.
func (uc *LikeUseCase) Toggle(ctx context.Context, userID, productID string) (*entity.LikeStatus, error) {
	product, err := uc.productRepo.GetByID(ctx, productID)
	if err != nil {
		return nil, err
	}
	if product.Status == entity.ProductSold {
		return uc.status(ctx, productID, false)
	}

	if allowed, wait := uc.rateLimiter.Allow(userID, ratelimit.ActionToggleLike); !allowed {
		return nil, errors.TooManyRequests("Too many like requests", wait)
	}

	liked, err := uc.likeRepo.Exists(ctx, userID, productID)
	if err != nil {
		return nil, err
	}
	if liked {
		err = uc.likeRepo.Remove(ctx, userID, productID)
	} else {
		err = uc.likeRepo.Add(ctx, userID, productID)
	}
	if err != nil {
		return nil, err
	}

	return uc.status(ctx, productID, !liked)
}

func (uc *LikeUseCase) Status(ctx context.Context, userID, productID string) (*entity.LikeStatus, error) {
	product, err := uc.productRepo.GetByID(ctx, productID)
	if err != nil {
		return nil, err
	}
	if product.Status == entity.ProductSold {
		return uc.status(ctx, productID, false)
	}

	liked, err := uc.likeRepo.Exists(ctx, userID, productID)
	if err != nil {
		return nil, err
	}
	return uc.status(ctx, productID, liked)
}

func (uc *LikeUseCase) status(ctx context.Context, productID string, liked bool) (*entity.LikeStatus, error) {
	count, err := uc.likeRepo.CountByProduct(ctx, productID)
	if err != nil {
		return nil, err
	}
	return &entity.LikeStatus{ProductID: productID, Liked: liked, LikeCount: count}, nil
}
