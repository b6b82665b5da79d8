package handler

import (
	"net/http"

	"app/internal/config"
	"app/internal/middleware"
	"app/internal/usecase"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
)

// 成功レスポンスは { message: string } の形に寄せる
type SuccessResponse struct {
	Message string `json:"message"`
}

type ProductCreateRequest struct {
	Code  string          `json:"code"`
	Name  string          `json:"name"`
	Line  string          `json:"line"`
	Scale string          `json:"scale"`
	Price decimal.Decimal `json:"price"`
	Stock int64           `json:"stock"`
}

type ProductUpdateRequest struct {
	Name  string          `json:"name"`
	Line  string          `json:"line"`
	Scale string          `json:"scale"`
	Price decimal.Decimal `json:"price"`
}

// 在庫更新の入力
type InventoryUpdateRequest struct {
	Stock int64 `json:"stock"`
}

// /admin/products と /admin/inventory をまとめる
type AdminProductHandler struct {
	uc *usecase.ProductUsecase
}

// DI
func NewAdminProductHandler(uc *usecase.ProductUsecase) *AdminProductHandler {
	return &AdminProductHandler{uc: uc}
}

// adminを登録
func (h *AdminProductHandler) RegisterRoutes(e *echo.Echo, cfg config.Config) {
	admin := e.Group("/admin")

	admin.Use(middleware.AuthJWT(cfg))
	admin.Use(middleware.AdminRoleGuard())

	admin.POST("/products", h.createProduct)
	admin.PUT("/products/:code", h.updateProduct)
	admin.PUT("/inventory/:code", h.updateInventory)
}

func (h *AdminProductHandler) createProduct(c echo.Context) error {
	var req ProductCreateRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid body"})
	}

	out, err := h.uc.CreateProduct(c.Request().Context(), usecase.CreateProductInput{
		Code:  req.Code,
		Name:  req.Name,
		Line:  req.Line,
		Scale: req.Scale,
		Price: req.Price,
		Stock: req.Stock,
	})
	if err != nil {
		return writeError(c, err)
	}

	return c.JSON(http.StatusCreated, out)
}

func (h *AdminProductHandler) updateProduct(c echo.Context) error {
	var req ProductUpdateRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid body"})
	}

	err := h.uc.UpdateProduct(c.Request().Context(), c.Param("code"), usecase.UpdateProductInput{
		Name:  req.Name,
		Line:  req.Line,
		Scale: req.Scale,
		Price: req.Price,
	})
	if err != nil {
		return writeError(c, err)
	}

	return c.JSON(http.StatusOK, SuccessResponse{Message: "updated"})
}

func (h *AdminProductHandler) updateInventory(c echo.Context) error {
	var req InventoryUpdateRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid body"})
	}

	if err := h.uc.SetStock(c.Request().Context(), c.Param("code"), req.Stock); err != nil {
		return writeError(c, err)
	}

	return c.JSON(http.StatusOK, SuccessResponse{Message: "stock updated"})
}

// middleware.AuthJWT が c.Set("user_id", int64) した値を取り出す
func getUserIDFromContext(c echo.Context) (int64, bool) {
	v := c.Get(middleware.CtxUserIDKey)
	if v == nil {
		return 0, false
	}

	id, ok := v.(int64)
	if !ok {
		return 0, false
	}

	return id, true
}
