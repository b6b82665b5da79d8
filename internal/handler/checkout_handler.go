package handler

import (
	"net/http"
	"strconv"
	"strings"

	"app/internal/config"
	"app/internal/middleware"
	"app/internal/payment"
	"app/internal/usecase"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

// /checkoutのHTTP
type CheckoutHandler struct {
	uc *usecase.CheckoutUsecase
}

// DI
func NewCheckoutHandler(uc *usecase.CheckoutUsecase) *CheckoutHandler {
	return &CheckoutHandler{uc: uc}
}

type ShippingAddressRequest struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email"`
	Street    string `json:"street"`
	City      string `json:"city"`
	State     string `json:"state"`
	Zip       string `json:"zip"`
	Country   string `json:"country"`
}

type PaymentMethodRequest struct {
	Type       string `json:"type"`
	CardName   string `json:"cardName"`
	CardNumber string `json:"cardNumber"`
	ExpiryDate string `json:"expiryDate"`
	CVV        string `json:"cvv"`
}

type CheckoutRequest struct {
	ShippingAddress ShippingAddressRequest `json:"shippingAddress"`
	PaymentMethod   PaymentMethodRequest   `json:"paymentMethod"`
	Notes           string                 `json:"notes"`
}

func (h *CheckoutHandler) RegisterRoutes(e *echo.Echo, cfg config.Config) {
	g := e.Group("/checkout")
	g.Use(middleware.AuthJWT(cfg))

	g.GET("/summary", h.summary)
	g.POST("", h.placeOrder)
	g.POST("/:orderId/confirm", h.confirmOrder)
}

func (h *CheckoutHandler) summary(c echo.Context) error {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
	}

	out, err := h.uc.GetCheckoutSummary(c.Request().Context(), userID)
	if err != nil {
		return writeError(c, err)
	}

	return c.JSON(http.StatusOK, out)
}

func (h *CheckoutHandler) placeOrder(c echo.Context) error {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
	}

	var req CheckoutRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid body"})
	}

	// 冪等キー。クライアントが付けないときはこちらで1つ振る。
	key := strings.TrimSpace(c.Request().Header.Get("X-Idempotency-Key"))
	if key == "" {
		key = uuid.NewString()
	}

	out, err := h.uc.PlaceOrder(c.Request().Context(), userID, usecase.CheckoutInput{
		ShippingAddress: usecase.ShippingAddress{
			FirstName: req.ShippingAddress.FirstName,
			LastName:  req.ShippingAddress.LastName,
			Email:     req.ShippingAddress.Email,
			Street:    req.ShippingAddress.Street,
			City:      req.ShippingAddress.City,
			State:     req.ShippingAddress.State,
			Zip:       req.ShippingAddress.Zip,
			Country:   req.ShippingAddress.Country,
		},
		Payment: payment.Method{
			Type:       req.PaymentMethod.Type,
			CardName:   req.PaymentMethod.CardName,
			CardNumber: req.PaymentMethod.CardNumber,
			ExpiryDate: req.PaymentMethod.ExpiryDate,
			CVV:        req.PaymentMethod.CVV,
		},
		Notes:          req.Notes,
		IdempotencyKey: key,
	})
	if err != nil {
		return writeError(c, err)
	}

	return c.JSON(http.StatusCreated, out)
}

func (h *CheckoutHandler) confirmOrder(c echo.Context) error {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
	}

	orderID, err := strconv.ParseInt(c.Param("orderId"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid id"})
	}

	out, err := h.uc.ConfirmOrder(c.Request().Context(), userID, orderID)
	if err != nil {
		return writeError(c, err)
	}

	return c.JSON(http.StatusOK, out)
}
