package usecase

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"app/internal/domain/model"
	"app/internal/logging"
	repo "app/internal/repository"

	"github.com/shopspring/decimal"
)

type HTTPError struct {
	Status  int
	Message string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("%d: %s", e.Status, e.Message)
}

func NewHTTPError(status int, message string) error {
	return &HTTPError{
		Status:  status,
		Message: message,
	}
}

func AsHTTPError(err error) (*HTTPError, bool) {
	var he *HTTPError
	ok := errors.As(err, &he)
	return he, ok
}

// 存在しないものと他人のものは同じ404にする（存在を漏らさない）
func errNotFound() error {
	return NewHTTPError(http.StatusNotFound, "not found")
}

// 在庫不足はどの商品かを伝える
func errInsufficientStock(productName string) error {
	return NewHTTPError(http.StatusConflict, "not enough stock for "+productName)
}

func errEmptyCart() error {
	return NewHTTPError(http.StatusBadRequest, "cart is empty")
}

func errInvalidUpdate() error {
	return NewHTTPError(http.StatusBadRequest, "no valid fields to update")
}

func errPaymentDeclined() error {
	return NewHTTPError(http.StatusPaymentRequired, "payment declined")
}

// ストレージ起因の失敗。詳細はサーバー側ログだけに残し、外には出さない。
func errStorage(ctx context.Context, op string, err error) error {
	logging.FromContext(ctx).Error("storage failure", "op", op, "error", err)
	return NewHTTPError(http.StatusInternalServerError, "db error")
}

type ProductUsecase struct {
	productRepo   repo.ProductRepository
	inventoryRepo repo.InventoryRepository
}

// DI
func NewProductUsecase(
	productRepo repo.ProductRepository,
	inventoryRepo repo.InventoryRepository,
) *ProductUsecase {
	return &ProductUsecase{
		productRepo:   productRepo,
		inventoryRepo: inventoryRepo,
	}
}

// GET /productsの入力DTO
type ListProductsInput struct {
	Page  int
	Limit int
	Q     string
	Line  string
}

type ProductListOutput struct {
	Items []model.Product `json:"items"`
	Total int64           `json:"total"`
	Page  int             `json:"page"`
	Limit int             `json:"limit"`
}

func (u *ProductUsecase) ListProducts(ctx context.Context, in ListProductsInput) (ProductListOutput, error) {
	if in.Page < 1 {
		return ProductListOutput{}, NewHTTPError(http.StatusBadRequest, "invalid page")
	}
	if in.Limit < 1 || in.Limit > 100 {
		return ProductListOutput{}, NewHTTPError(http.StatusBadRequest, "invalid limit")
	}
	if len(in.Q) > 100 {
		return ProductListOutput{}, NewHTTPError(http.StatusBadRequest, "invalid q")
	}

	items, total, err := u.productRepo.List(ctx, repo.ProductListQuery{
		Page:  in.Page,
		Limit: in.Limit,
		Q:     in.Q,
		Line:  in.Line,
	})
	if err != nil {
		return ProductListOutput{}, errStorage(ctx, "product.list", err)
	}

	return ProductListOutput{
		Items: items,
		Total: total,
		Page:  in.Page,
		Limit: in.Limit,
	}, nil
}

func (u *ProductUsecase) GetProduct(ctx context.Context, code string) (model.Product, error) {
	if code == "" {
		return model.Product{}, NewHTTPError(http.StatusBadRequest, "invalid code")
	}

	p, err := u.productRepo.FindByCode(ctx, code)
	if err == repo.ErrNotFound {
		return model.Product{}, errNotFound()
	}
	if err != nil {
		return model.Product{}, errStorage(ctx, "product.find", err)
	}
	return p, nil
}

// 管理者の商品登録
type CreateProductInput struct {
	Code  string
	Name  string
	Line  string
	Scale string
	Price decimal.Decimal
	Stock int64
}

func (u *ProductUsecase) CreateProduct(ctx context.Context, in CreateProductInput) (model.Product, error) {
	if in.Code == "" || in.Name == "" {
		return model.Product{}, NewHTTPError(http.StatusBadRequest, "code and name are required")
	}
	if in.Price.IsNegative() {
		return model.Product{}, NewHTTPError(http.StatusBadRequest, "invalid price")
	}
	if in.Stock < 0 {
		return model.Product{}, NewHTTPError(http.StatusBadRequest, "invalid stock")
	}

	p, err := u.productRepo.Create(ctx, model.Product{
		Code:  in.Code,
		Name:  in.Name,
		Line:  in.Line,
		Scale: in.Scale,
		Price: in.Price,
		Stock: in.Stock,
	})
	if err != nil {
		return model.Product{}, errStorage(ctx, "product.create", err)
	}
	return p, nil
}

// 管理者の商品更新（在庫以外）
type UpdateProductInput struct {
	Name  string
	Line  string
	Scale string
	Price decimal.Decimal
}

func (u *ProductUsecase) UpdateProduct(ctx context.Context, code string, in UpdateProductInput) error {
	if code == "" || in.Name == "" {
		return NewHTTPError(http.StatusBadRequest, "code and name are required")
	}
	if in.Price.IsNegative() {
		return NewHTTPError(http.StatusBadRequest, "invalid price")
	}

	err := u.productRepo.Update(ctx, model.Product{
		Code:  code,
		Name:  in.Name,
		Line:  in.Line,
		Scale: in.Scale,
		Price: in.Price,
	})
	if err == repo.ErrNotFound {
		return errNotFound()
	}
	if err != nil {
		return errStorage(ctx, "product.update", err)
	}
	return nil
}

// 管理者の在庫設定
func (u *ProductUsecase) SetStock(ctx context.Context, code string, newStock int64) error {
	if code == "" {
		return NewHTTPError(http.StatusBadRequest, "invalid code")
	}
	if newStock < 0 {
		return NewHTTPError(http.StatusBadRequest, "invalid stock")
	}

	err := u.inventoryRepo.SetStock(ctx, code, newStock)
	if err == repo.ErrNotFound {
		return errNotFound()
	}
	if err != nil {
		return errStorage(ctx, "inventory.set_stock", err)
	}
	return nil
}
