package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"petcycle/internal/domain/entity"
	"petcycle/internal/domain/repository"
	"petcycle/pkg/errors"
)

type productRepository struct {
	mu       sync.Mutex
	products map[string]*entity.Product
}

func NewProductRepository() repository.ProductRepository {
	return &productRepository{products: make(map[string]*entity.Product)}
}

func (r *productRepository) Create(ctx context.Context, product *entity.Product) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if product.ID == "" {
		product.ID = uuid.New().String()
	}
	if _, ok := r.products[product.ID]; ok {
		return errors.Conflict("Product already exists")
	}
	now := time.Now()
	product.CreatedAt = now
	product.UpdatedAt = now
	r.products[product.ID] = cloneProduct(product)
	return nil
}

func (r *productRepository) GetByID(ctx context.Context, id string) (*entity.Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	product, ok := r.products[id]
	if !ok {
		return nil, errors.NotFound("Product", nil)
	}
	return cloneProduct(product), nil
}

// Mutate runs fn under the repository lock on a copy; the copy replaces the stored listing only when fn succeeds.
func (r *productRepository) Mutate(ctx context.Context, id string, fn func(product *entity.Product) error) (*entity.Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	current, ok := r.products[id]
	if !ok {
		return nil, errors.NotFound("Product", nil)
	}

	working := cloneProduct(current)
	if err := fn(working); err != nil {
		return nil, err
	}
	working.UpdatedAt = time.Now()
	r.products[id] = working
	return cloneProduct(working), nil
}

func (r *productRepository) ListPurchased(ctx context.Context, buyerID string, limit, offset int) ([]*entity.Product, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var bought []*entity.Product
	for _, p := range r.products {
		if p.BuyerID == buyerID && p.Status == entity.ProductSold {
			bought = append(bought, cloneProduct(p))
		}
	}
	sort.SliceStable(bought, func(i, j int) bool {
		return soldAt(bought[i]).After(soldAt(bought[j]))
	})
	page, total := paginate(bought, limit, offset)
	return page, total, nil
}

func soldAt(p *entity.Product) time.Time {
	if p.SoldAt == nil {
		return p.UpdatedAt
	}
	return *p.SoldAt
}

// paginate slices an already ordered result and reports the unpaged total.
func paginate[T any](items []T, limit, offset int) ([]T, int64) {
	total := int64(len(items))
	if offset >= len(items) {
		return []T{}, total
	}
	items = items[offset:]
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items, total
}

func cloneProduct(p *entity.Product) *entity.Product {
	c := *p
	c.SellerConfirmedAt = cloneTime(p.SellerConfirmedAt)
	c.BuyerConfirmedAt = cloneTime(p.BuyerConfirmedAt)
	c.SoldAt = cloneTime(p.SoldAt)
	return &c
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}
