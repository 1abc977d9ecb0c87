package handler

import (
	"github.com/labstack/echo/v4"

	"petcycle/internal/usecase"
	"petcycle/pkg/response"
	"petcycle/pkg/utils"
)

type TransactionHandler struct {
	transactionUseCase *usecase.TransactionUseCase
}

func NewTransactionHandler(transactionUseCase *usecase.TransactionUseCase) *TransactionHandler {
	return &TransactionHandler{
		transactionUseCase: transactionUseCase,
	}
}

type registerTransactionRequest struct {
	ProductID  string `json:"product_id" validate:"required"`
	FinalPrice int64  `json:"final_price" validate:"gte=0"`
}

// RegisterTransaction opens a deal on a listing. Repeating the call returns the open deal with 200.
func (h *TransactionHandler) RegisterTransaction(c echo.Context) error {
	var req registerTransactionRequest
	if err := c.Bind(&req); err != nil {
		return response.Error(c, err)
	}

	if err := c.Validate(&req); err != nil {
		return response.Error(c, err)
	}

	buyerID := c.Get("uid").(string)

	transaction, created, err := h.transactionUseCase.RegisterTransaction(c.Request().Context(), buyerID, usecase.RegisterTransactionInput{
		ProductID:  req.ProductID,
		FinalPrice: req.FinalPrice,
	})
	if err != nil {
		return response.Error(c, err)
	}

	if created {
		return response.Created(c, transaction)
	}
	return response.Success(c, transaction)
}

func (h *TransactionHandler) HasActiveTransaction(c echo.Context) error {
	userID := c.Get("uid").(string)
	productID := c.QueryParam("product_id")

	active, err := h.transactionUseCase.HasActiveTransaction(c.Request().Context(), userID, productID)
	if err != nil {
		return response.Error(c, err)
	}

	return response.Success(c, map[string]interface{}{
		"product_id": productID,
		"active":     active,
	})
}

// ListMyTransactions pages the caller's deals as buyer or seller.
func (h *TransactionHandler) ListMyTransactions(c echo.Context) error {
	userID := c.Get("uid").(string)
	params := utils.GetPaginationParams(c, 100)

	transactions, total, err := h.transactionUseCase.ListMyTransactions(c.Request().Context(), userID, params.PageSize, params.Offset)
	if err != nil {
		return response.Error(c, err)
	}

	return response.Paginated(c, transactions, total, params.Page, params.PageSize)
}

func (h *TransactionHandler) GetTransaction(c echo.Context) error {
	userID := c.Get("uid").(string)

	detail, err := h.transactionUseCase.GetTransaction(c.Request().Context(), userID, c.Param("id"))
	if err != nil {
		return response.Error(c, err)
	}

	return response.Success(c, detail)
}
