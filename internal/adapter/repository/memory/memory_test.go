package memory

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"petcycle/internal/domain/entity"
	"petcycle/pkg/errors"
)

func TestChatRepositoryGetOrCreateRoomIsIdempotent(t *testing.T) {
	repo := NewChatRepository()
	ctx := context.Background()

	room, created, err := repo.GetOrCreateRoom(ctx, "bob", "alice")
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, "alice_bob", room.ID)

	again, created, err := repo.GetOrCreateRoom(ctx, "alice", "bob")
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, room.ID, again.ID)
}

func TestChatRepositoryListMessagesNewestFirstAfterCutoff(t *testing.T) {
	repo := NewChatRepository()
	ctx := context.Background()
	base := time.Now()

	for i, content := range []string{"one", "two", "three"} {
		require.NoError(t, repo.CreateMessage(ctx, &entity.DirectMessage{
			RoomID:    "alice_bob",
			Content:   content,
			CreatedAt: base.Add(time.Duration(i) * time.Second),
		}))
	}

	all, total, err := repo.ListMessages(ctx, "alice_bob", time.Time{}, 10, 0)
	require.NoError(t, err)
	assert.EqualValues(t, 3, total)
	require.Len(t, all, 3)
	assert.Equal(t, "three", all[0].Content)
	assert.Equal(t, "one", all[2].Content)

	after, total, err := repo.ListMessages(ctx, "alice_bob", base, 10, 0)
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)
	assert.Equal(t, "two", after[1].Content)

	page, _, err := repo.ListMessages(ctx, "alice_bob", time.Time{}, 1, 1)
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, "two", page[0].Content)
}

func TestProductRepositoryMutateAbortsOnError(t *testing.T) {
	repo := NewProductRepository()
	ctx := context.Background()
	require.NoError(t, repo.Create(ctx, &entity.Product{ID: "42", SellerID: "seller", Status: entity.ProductSelling}))

	_, err := repo.Mutate(ctx, "42", func(p *entity.Product) error {
		p.Status = entity.ProductSold
		return errors.Conflict("nope")
	})
	assert.True(t, errors.Is(err, errors.CodeConflict))

	p, err := repo.GetByID(ctx, "42")
	require.NoError(t, err)
	assert.Equal(t, entity.ProductSelling, p.Status)
}

func TestProductRepositoryMutateSerializesWriters(t *testing.T) {
	repo := NewProductRepository()
	ctx := context.Background()
	require.NoError(t, repo.Create(ctx, &entity.Product{ID: "42", Status: entity.ProductSelling}))

	var wg sync.WaitGroup
	wins := make(chan struct{}, 10)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := repo.Mutate(ctx, "42", func(p *entity.Product) error {
				if p.Status != entity.ProductSelling {
					return errors.Conflict("reserved")
				}
				p.Status = entity.ProductReserved
				return nil
			})
			if err == nil {
				wins <- struct{}{}
			}
		}()
	}
	wg.Wait()
	close(wins)

	assert.Len(t, wins, 1)
}

func TestTransactionRepositoryFindOpen(t *testing.T) {
	repo := NewTransactionRepository()
	ctx := context.Background()

	tx := &entity.Transaction{ProductID: "42", BuyerID: "bob", SellerID: "alice", Status: entity.TransactionOpen}
	require.NoError(t, repo.Create(ctx, tx))

	found, err := repo.FindOpen(ctx, "42", "bob")
	require.NoError(t, err)
	assert.Equal(t, tx.ID, found.ID)

	_, err = repo.FindOpen(ctx, "42", "carol")
	assert.True(t, errors.Is(err, errors.CodeNotFound))

	found.Status = entity.TransactionCompleted
	require.NoError(t, repo.Update(ctx, found))

	_, err = repo.FindOpenByProduct(ctx, "42")
	assert.True(t, errors.Is(err, errors.CodeNotFound))
}

func TestLikeRepositoryDeleteByProduct(t *testing.T) {
	repo := NewLikeRepository()
	ctx := context.Background()

	require.NoError(t, repo.Add(ctx, "bob", "42"))
	require.NoError(t, repo.Add(ctx, "carol", "42"))
	require.NoError(t, repo.Add(ctx, "bob", "7"))

	n, err := repo.CountByProduct(ctx, "42")
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	require.NoError(t, repo.DeleteByProduct(ctx, "42"))

	n, _ = repo.CountByProduct(ctx, "42")
	assert.Equal(t, 0, n)
	liked, _ := repo.Exists(ctx, "bob", "7")
	assert.True(t, liked)
}

func TestChatRepositoryMutateRoom(t *testing.T) {
	repo := NewChatRepository()
	ctx := context.Background()
	_, _, err := repo.GetOrCreateRoom(ctx, "alice", "bob")
	require.NoError(t, err)

	updated, err := repo.MutateRoom(ctx, "alice_bob", func(room *entity.ChatRoom) error {
		room.ClearedAt["alice"] = time.Now()
		return nil
	})
	require.NoError(t, err)
	assert.False(t, updated.ClearedFor("alice").IsZero())

	_, err = repo.MutateRoom(ctx, "alice_bob", func(room *entity.ChatRoom) error {
		room.LastMessage = "discarded"
		return errors.Conflict("stop")
	})
	assert.True(t, errors.Is(err, errors.CodeConflict))

	room, err := repo.GetRoom(ctx, "alice_bob")
	require.NoError(t, err)
	assert.Empty(t, room.LastMessage)
	assert.False(t, room.ClearedFor("alice").IsZero())

	_, err = repo.MutateRoom(ctx, "nobody_none", func(*entity.ChatRoom) error { return nil })
	assert.True(t, errors.Is(err, errors.CodeNotFound))
}

func TestTransactionRepositoryListByParticipantNewestFirst(t *testing.T) {
	repo := NewTransactionRepository()
	ctx := context.Background()

	var ids []string
	for _, buyer := range []string{"bob", "carol", "bob"} {
		tx := &entity.Transaction{ProductID: "42", BuyerID: buyer, SellerID: "alice", Status: entity.TransactionOpen}
		require.NoError(t, repo.Create(ctx, tx))
		ids = append(ids, tx.ID)
	}

	page, total, err := repo.ListByParticipant(ctx, "bob", 1, 0)
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)
	require.Len(t, page, 1)
	assert.Equal(t, ids[2], page[0].ID)

	page, total, err = repo.ListByParticipant(ctx, "alice", 10, 1)
	require.NoError(t, err)
	assert.EqualValues(t, 3, total)
	require.Len(t, page, 2)
	assert.Equal(t, ids[1], page[0].ID)
	assert.Equal(t, ids[0], page[1].ID)

	page, total, err = repo.ListByParticipant(ctx, "alice", 10, 5)
	require.NoError(t, err)
	assert.EqualValues(t, 3, total)
	assert.Empty(t, page)
}

func TestProductRepositoryListPurchasedBySoldAt(t *testing.T) {
	repo := NewProductRepository()
	ctx := context.Background()
	base := time.Now()
	at := func(d time.Duration) *time.Time { ts := base.Add(d); return &ts }

	require.NoError(t, repo.Create(ctx, &entity.Product{ID: "old", BuyerID: "bob", Status: entity.ProductSold, SoldAt: at(-time.Hour)}))
	require.NoError(t, repo.Create(ctx, &entity.Product{ID: "new", BuyerID: "bob", Status: entity.ProductSold, SoldAt: at(0)}))
	require.NoError(t, repo.Create(ctx, &entity.Product{ID: "held", BuyerID: "bob", Status: entity.ProductReserved}))
	require.NoError(t, repo.Create(ctx, &entity.Product{ID: "other", BuyerID: "carol", Status: entity.ProductSold, SoldAt: at(0)}))

	bought, total, err := repo.ListPurchased(ctx, "bob", 10, 0)
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)
	require.Len(t, bought, 2)
	assert.Equal(t, "new", bought[0].ID)
	assert.Equal(t, "old", bought[1].ID)
}
