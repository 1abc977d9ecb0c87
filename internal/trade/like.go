package trade

import (
	"context"
	"errors"
	"sync"

	"petcycle/internal/domain/entity"
)

var ErrToggleInFlight = errors.New("like toggle already in flight")

type LikeAPI interface {
	ToggleLike(ctx context.Context, productID string) (*entity.LikeStatus, error)
}

// LikeToggle flips the like marker optimistically and replays the held value if the server
// rejects the toggle.
type LikeToggle struct {
	api       LikeAPI
	listingID string

	mu         sync.Mutex
	liked      bool
	count      int
	inFlight   bool
	generation uint64
}

func NewLikeToggle(api LikeAPI, listingID string, initial entity.LikeStatus) *LikeToggle {
	return &LikeToggle{api: api, listingID: listingID, liked: initial.Liked, count: initial.LikeCount}
}

func (l *LikeToggle) Status() entity.LikeStatus {
	l.mu.Lock()
	defer l.mu.Unlock()
	return entity.LikeStatus{ProductID: l.listingID, Liked: l.liked, LikeCount: l.count}
}

func (l *LikeToggle) Toggle(ctx context.Context) (entity.LikeStatus, error) {
	l.mu.Lock()
	if l.inFlight {
		l.mu.Unlock()
		return l.Status(), ErrToggleInFlight
	}
	prevLiked, prevCount := l.liked, l.count
	l.liked = !l.liked
	if l.liked {
		l.count++
	} else if l.count > 0 {
		l.count--
	}
	l.inFlight = true
	gen := l.generation
	l.mu.Unlock()

	status, err := l.api.ToggleLike(ctx, l.listingID)

	l.mu.Lock()
	l.inFlight = false
	if l.generation == gen {
		if err != nil {
			l.liked, l.count = prevLiked, prevCount
		} else {
			l.liked, l.count = status.Liked, status.LikeCount
		}
	}
	l.mu.Unlock()

	return l.Status(), err
}

// ClearLiked drops the marker after the listing sold; the server removed every like.
func (l *LikeToggle) ClearLiked() {
	l.mu.Lock()
	l.generation++
	l.liked = false
	l.count = 0
	l.mu.Unlock()
}
