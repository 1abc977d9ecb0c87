package usecase

import (
	"context"

	"petcycle/internal/domain/entity"
	"petcycle/internal/domain/repository"
	"petcycle/internal/infrastructure/ratelimit"
	"petcycle/pkg/errors"
	"petcycle/pkg/logger"
)

// TransactionUseCase owns deal registration and the server side of the active-transaction registry.
type TransactionUseCase struct {
	transactionRepo repository.TransactionRepository
	productRepo     repository.ProductRepository
	userRepo        repository.UserRepository
	rateLimiter     RateLimiter
}

func NewTransactionUseCase(
	transactionRepo repository.TransactionRepository,
	productRepo repository.ProductRepository,
	userRepo repository.UserRepository,
	rateLimiter RateLimiter,
) *TransactionUseCase {
	return &TransactionUseCase{
		transactionRepo: transactionRepo,
		productRepo:     productRepo,
		userRepo:        userRepo,
		rateLimiter:     rateLimiter,
	}
}

// TransactionSummary is one row of the caller's deal list.
type TransactionSummary struct {
	*entity.Transaction
	ProductTitle string `json:"product_title"`
	// Role is "buyer" or "seller" from the caller's side.
	Role string `json:"role"`
}

type TransactionDetail struct {
	*entity.Transaction
	Product        *entity.Product `json:"product,omitempty"`
	SellerNickname string          `json:"seller_nickname"`
	BuyerNickname  string          `json:"buyer_nickname"`
}

type RegisterTransactionInput struct {
	ProductID  string
	FinalPrice int64
}

// RegisterTransaction returns the buyer's open transaction on the product, creating it when
// none exists. Creation reserves the listing; the bool reports whether this call created it.
func (uc *TransactionUseCase) RegisterTransaction(ctx context.Context, buyerID string, input RegisterTransactionInput) (*entity.Transaction, bool, error) {
	if input.ProductID == "" {
		return nil, false, errors.BadRequest("Product ID is required", nil)
	}

	existing, err := uc.transactionRepo.FindOpen(ctx, input.ProductID, buyerID)
	if err == nil {
		return existing, false, nil
	}
	if !errors.Is(err, errors.CodeNotFound) {
		return nil, false, err
	}

	if allowed, wait := uc.rateLimiter.Allow(buyerID, ratelimit.ActionRegisterTransaction); !allowed {
		return nil, false, errors.TooManyRequests("Too many deal requests", wait)
	}

	product, err := uc.productRepo.Mutate(ctx, input.ProductID, func(p *entity.Product) error {
		if p.SellerID == buyerID {
			return errors.Forbidden("You cannot buy your own product", nil)
		}
		if p.Status != entity.ProductSelling {
			return errors.Conflict("Product is not available for a new deal")
		}
		p.Status = entity.ProductReserved
		return nil
	})
	if err != nil {
		return nil, false, err
	}

	finalPrice := input.FinalPrice
	if finalPrice <= 0 {
		finalPrice = product.Price
	}
	transaction := &entity.Transaction{
		ProductID:  product.ID,
		SellerID:   product.SellerID,
		BuyerID:    buyerID,
		FinalPrice: finalPrice,
		Status:     entity.TransactionOpen,
	}
	if err := uc.transactionRepo.Create(ctx, transaction); err != nil {
		uc.releaseReservation(ctx, product.ID)
		return nil, false, err
	}

	logger.Info("Transaction %s opened: product=%s buyer=%s", transaction.ID, product.ID, buyerID)
	return transaction, true, nil
}

// HasActiveTransaction is the point-in-time registry check for (product, user).
func (uc *TransactionUseCase) HasActiveTransaction(ctx context.Context, userID, productID string) (bool, error) {
	if productID == "" {
		return false, errors.BadRequest("Product ID is required", nil)
	}
	_, err := uc.transactionRepo.FindOpen(ctx, productID, userID)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, errors.CodeNotFound) {
		return false, nil
	}
	return false, err
}

// ListMyTransactions pages the deals where userID is buyer or seller, newest first.
func (uc *TransactionUseCase) ListMyTransactions(ctx context.Context, userID string, limit, offset int) ([]TransactionSummary, int64, error) {
	transactions, total, err := uc.transactionRepo.ListByParticipant(ctx, userID, limit, offset)
	if err != nil {
		return nil, 0, err
	}

	summaries := make([]TransactionSummary, 0, len(transactions))
	for _, t := range transactions {
		summary := TransactionSummary{Transaction: t, Role: "buyer"}
		if t.SellerID == userID {
			summary.Role = "seller"
		}
		if product, err := uc.productRepo.GetByID(ctx, t.ProductID); err == nil {
			summary.ProductTitle = product.Title
		} else if !errors.Is(err, errors.CodeNotFound) {
			logger.Warn("Failed to load product %s for transaction %s: %v", t.ProductID, t.ID, err)
		}
		summaries = append(summaries, summary)
	}
	return summaries, total, nil
}

// GetTransaction returns a deal to one of its two parties or an admin.
func (uc *TransactionUseCase) GetTransaction(ctx context.Context, userID, transactionID string) (*TransactionDetail, error) {
	if transactionID == "" {
		return nil, errors.BadRequest("Transaction ID is required", nil)
	}
	transaction, err := uc.transactionRepo.GetByID(ctx, transactionID)
	if err != nil {
		return nil, err
	}
	if transaction.BuyerID != userID && transaction.SellerID != userID && !uc.isAdmin(ctx, userID) {
		return nil, errors.Forbidden("You are not a party to this transaction", nil)
	}

	detail := &TransactionDetail{
		Transaction:    transaction,
		SellerNickname: displayName(ctx, uc.userRepo, transaction.SellerID),
		BuyerNickname:  displayName(ctx, uc.userRepo, transaction.BuyerID),
	}
	product, err := uc.productRepo.GetByID(ctx, transaction.ProductID)
	switch {
	case err == nil:
		detail.Product = product
	case !errors.Is(err, errors.CodeNotFound):
		return nil, err
	}
	return detail, nil
}

func (uc *TransactionUseCase) isAdmin(ctx context.Context, userID string) bool {
	user, err := uc.userRepo.GetByID(ctx, userID)
	return err == nil && user.IsAdmin()
}

func (uc *TransactionUseCase) releaseReservation(ctx context.Context, productID string) {
	_, err := uc.productRepo.Mutate(ctx, productID, func(p *entity.Product) error {
		if p.Status == entity.ProductReserved && p.BuyerConfirmedAt == nil {
			p.Status = entity.ProductSelling
		}
		return nil
	})
	if err != nil {
		logger.Warn("Failed to release reservation on product %s: %v", productID, err)
	}
}
