package usecase

import (
	"context"
	"time"

	"petcycle/internal/domain/entity"
)

// LivePublisher pushes stored messages to connected sessions.
type LivePublisher interface {
	PublishDirect(ctx context.Context, msg *entity.DirectMessage) error
}

// RateLimiter is satisfied by ratelimit.RateLimiter.
type RateLimiter interface {
	Allow(userID, action string) (bool, time.Duration)
}
