package usecase

import (
	"context"
	"strings"
	"time"

	"petcycle/internal/domain/entity"
	"petcycle/internal/domain/repository"
	"petcycle/pkg/errors"
	"petcycle/pkg/logger"
)

// ProductUseCase drives the dual confirmation that moves a listing to SOLD.
type ProductUseCase struct {
	productRepo     repository.ProductRepository
	transactionRepo repository.TransactionRepository
	likeRepo        repository.LikeRepository
	userRepo        repository.UserRepository
	now             func() time.Time
}

func NewProductUseCase(
	productRepo repository.ProductRepository,
	transactionRepo repository.TransactionRepository,
	likeRepo repository.LikeRepository,
	userRepo repository.UserRepository,
) *ProductUseCase {
	return &ProductUseCase{
		productRepo:     productRepo,
		transactionRepo: transactionRepo,
		likeRepo:        likeRepo,
		userRepo:        userRepo,
		now:             time.Now,
	}
}

type CreateProductInput struct {
	Title string
	Price int64
}

func (uc *ProductUseCase) CreateProduct(ctx context.Context, sellerID string, input CreateProductInput) (*entity.Product, error) {
	title := strings.TrimSpace(input.Title)
	if title == "" {
		return nil, errors.BadRequest("Title is required", nil)
	}
	if input.Price < 0 {
		return nil, errors.BadRequest("Price must not be negative", nil)
	}

	product := &entity.Product{
		SellerID: sellerID,
		Title:    title,
		Price:    input.Price,
		Status:   entity.ProductSelling,
	}
	if err := uc.productRepo.Create(ctx, product); err != nil {
		return nil, err
	}
	return product, nil
}

func (uc *ProductUseCase) GetProduct(ctx context.Context, productID string) (*entity.Product, error) {
	return uc.productRepo.GetByID(ctx, productID)
}

// MarkSold records the seller's confirmation. Owner or admin only, once per listing.
func (uc *ProductUseCase) MarkSold(ctx context.Context, userID, productID string) (*entity.Product, error) {
	isAdmin := uc.isAdmin(ctx, userID)
	now := uc.now()

	var completed bool
	product, err := uc.productRepo.Mutate(ctx, productID, func(p *entity.Product) error {
		completed = false
		if p.SellerID != userID && !isAdmin {
			return errors.Forbidden("Only the seller can confirm this sale", nil)
		}
		if p.Status == entity.ProductSold {
			return errors.Conflict("Product is already sold")
		}
		if p.SellerConfirmedAt != nil {
			return errors.Conflict("Seller has already confirmed")
		}
		p.SellerConfirmedAt = &now
		completed = p.CompleteIfConfirmed(now)
		return nil
	})
	if err != nil {
		return nil, err
	}

	uc.syncTransaction(ctx, product, "")
	if completed {
		uc.onCompleted(ctx, product)
	}
	return product, nil
}

// ConfirmPurchase records the buyer's confirmation. The caller must hold an open transaction
// on the listing.
func (uc *ProductUseCase) ConfirmPurchase(ctx context.Context, userID, productID string) (*entity.Product, error) {
	current, err := uc.productRepo.GetByID(ctx, productID)
	if err != nil {
		return nil, err
	}
	if current.SellerID == userID {
		return nil, errors.Forbidden("The seller cannot confirm a purchase", nil)
	}
	if current.Status == entity.ProductSold {
		return nil, errors.Conflict("Product is already sold")
	}

	if _, err := uc.transactionRepo.FindOpen(ctx, productID, userID); err != nil {
		if errors.Is(err, errors.CodeNotFound) {
			return nil, errors.Forbidden("No active transaction for this product", nil)
		}
		return nil, err
	}

	now := uc.now()
	var completed bool
	product, err := uc.productRepo.Mutate(ctx, productID, func(p *entity.Product) error {
		completed = false
		if p.SellerID == userID {
			return errors.Forbidden("The seller cannot confirm a purchase", nil)
		}
		if p.Status == entity.ProductSold {
			return errors.Conflict("Product is already sold")
		}
		if p.BuyerID != "" && p.BuyerID != userID {
			return errors.Conflict("Another buyer is already confirming this product")
		}
		if p.BuyerConfirmedAt != nil {
			return errors.Conflict("Purchase has already been confirmed")
		}
		p.BuyerID = userID
		p.BuyerConfirmedAt = &now
		completed = p.CompleteIfConfirmed(now)
		return nil
	})
	if err != nil {
		return nil, err
	}

	uc.syncTransaction(ctx, product, userID)
	if completed {
		uc.onCompleted(ctx, product)
	}
	return product, nil
}

// syncTransaction mirrors the listing's confirmation stamps onto the open transaction.
func (uc *ProductUseCase) syncTransaction(ctx context.Context, product *entity.Product, buyerID string) {
	if buyerID == "" {
		buyerID = product.BuyerID
	}

	var (
		transaction *entity.Transaction
		err         error
	)
	if buyerID != "" {
		transaction, err = uc.transactionRepo.FindOpen(ctx, product.ID, buyerID)
	} else {
		transaction, err = uc.transactionRepo.FindOpenByProduct(ctx, product.ID)
	}
	if err != nil {
		if !errors.Is(err, errors.CodeNotFound) {
			logger.Warn("Failed to load transaction for product %s: %v", product.ID, err)
		}
		return
	}

	transaction.SellerConfirmedAt = product.SellerConfirmedAt
	if transaction.BuyerID == product.BuyerID {
		transaction.BuyerConfirmedAt = product.BuyerConfirmedAt
	}
	if product.Status == entity.ProductSold {
		transaction.Status = entity.TransactionCompleted
		transaction.CompletedAt = product.SoldAt
	}
	if err := uc.transactionRepo.Update(ctx, transaction); err != nil {
		logger.Warn("Failed to update transaction %s: %v", transaction.ID, err)
	}
}

func (uc *ProductUseCase) onCompleted(ctx context.Context, product *entity.Product) {
	if err := uc.likeRepo.DeleteByProduct(ctx, product.ID); err != nil {
		logger.Warn("Failed to clear likes for sold product %s: %v", product.ID, err)
	}
	logger.Info("Product %s sold to %s", product.ID, product.BuyerID)
}

// ListPurchased pages the listings buyerID completed a purchase of.
func (uc *ProductUseCase) ListPurchased(ctx context.Context, buyerID string, limit, offset int) ([]*entity.Product, int64, error) {
	return uc.productRepo.ListPurchased(ctx, buyerID, limit, offset)
}

func (uc *ProductUseCase) isAdmin(ctx context.Context, userID string) bool {
	user, err := uc.userRepo.GetByID(ctx, userID)
	if err != nil {
		return false
	}
	return user.IsAdmin()
}
