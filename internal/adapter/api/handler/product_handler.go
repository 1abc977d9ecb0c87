package handler

import (
	"github.com/labstack/echo/v4"

	"petcycle/internal/usecase"
	"petcycle/pkg/response"
	"petcycle/pkg/utils"
)

type ProductHandler struct {
	productUseCase *usecase.ProductUseCase
}

func NewProductHandler(productUseCase *usecase.ProductUseCase) *ProductHandler {
	return &ProductHandler{
		productUseCase: productUseCase,
	}
}

type createProductRequest struct {
	Title string `json:"title" validate:"required,max=120"`
	Price int64  `json:"price" validate:"gte=0"`
}

func (h *ProductHandler) CreateProduct(c echo.Context) error {
	var req createProductRequest
	if err := c.Bind(&req); err != nil {
		return response.Error(c, err)
	}

	if err := c.Validate(&req); err != nil {
		return response.Error(c, err)
	}

	sellerID := c.Get("uid").(string)

	product, err := h.productUseCase.CreateProduct(c.Request().Context(), sellerID, usecase.CreateProductInput{
		Title: req.Title,
		Price: req.Price,
	})
	if err != nil {
		return response.Error(c, err)
	}

	return response.Created(c, product)
}

func (h *ProductHandler) GetProduct(c echo.Context) error {
	product, err := h.productUseCase.GetProduct(c.Request().Context(), c.Param("id"))
	if err != nil {
		return response.Error(c, err)
	}

	return response.Success(c, product)
}

// MarkSold records the seller's confirmation
func (h *ProductHandler) MarkSold(c echo.Context) error {
	userID := c.Get("uid").(string)

	product, err := h.productUseCase.MarkSold(c.Request().Context(), userID, c.Param("id"))
	if err != nil {
		return response.Error(c, err)
	}

	return response.Success(c, product)
}

// ConfirmPurchase records the buyer's confirmation
func (h *ProductHandler) ConfirmPurchase(c echo.Context) error {
	userID := c.Get("uid").(string)

	product, err := h.productUseCase.ConfirmPurchase(c.Request().Context(), userID, c.Param("id"))
	if err != nil {
		return response.Error(c, err)
	}

	return response.Success(c, product)
}

// ListPurchased pages the listings the caller bought.
func (h *ProductHandler) ListPurchased(c echo.Context) error {
	buyerID := c.Get("uid").(string)
	params := utils.GetPaginationParams(c, 100)

	products, total, err := h.productUseCase.ListPurchased(c.Request().Context(), buyerID, params.PageSize, params.Offset)
	if err != nil {
		return response.Error(c, err)
	}

	return response.Paginated(c, products, total, params.Page, params.PageSize)
}
