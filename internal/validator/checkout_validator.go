package validator

import (
	"errors"
	"strings"

	"app/internal/usecase"
)

type checkoutValidator struct{}

// Usecaseは interface を依存注入
func NewCheckoutValidator() usecase.CheckoutValidator {
	return &checkoutValidator{}
}

// チェックアウト入力の必須チェック。
// 足りないフィールドは名前付きでまとめて返す。
func (v *checkoutValidator) Validate(in usecase.CheckoutInput) error {
	var missing []string

	addr := map[string]string{
		"firstName": in.ShippingAddress.FirstName,
		"lastName":  in.ShippingAddress.LastName,
		"email":     in.ShippingAddress.Email,
		"street":    in.ShippingAddress.Street,
		"city":      in.ShippingAddress.City,
		"state":     in.ShippingAddress.State,
		"zip":       in.ShippingAddress.Zip,
		"country":   in.ShippingAddress.Country,
	}
	for _, name := range []string{"firstName", "lastName", "email", "street", "city", "state", "zip", "country"} {
		if strings.TrimSpace(addr[name]) == "" {
			missing = append(missing, "shippingAddress."+name)
		}
	}

	pay := map[string]string{
		"type":       in.Payment.Type,
		"cardName":   in.Payment.CardName,
		"cardNumber": in.Payment.CardNumber,
		"expiryDate": in.Payment.ExpiryDate,
		"cvv":        in.Payment.CVV,
	}
	for _, name := range []string{"type", "cardName", "cardNumber", "expiryDate", "cvv"} {
		if strings.TrimSpace(pay[name]) == "" {
			missing = append(missing, "paymentMethod."+name)
		}
	}

	if len(missing) > 0 {
		return errors.New("missing required fields: " + strings.Join(missing, ", "))
	}
	return nil
}
