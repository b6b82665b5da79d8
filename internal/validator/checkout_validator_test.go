package validator_test

import (
	"testing"

	"app/internal/payment"
	"app/internal/usecase"
	"app/internal/validator"

	"github.com/stretchr/testify/require"
)

func validInput() usecase.CheckoutInput {
	return usecase.CheckoutInput{
		ShippingAddress: usecase.ShippingAddress{
			FirstName: "Amuro",
			LastName:  "Ray",
			Email:     "amuro@example.com",
			Street:    "1-1 Side 7",
			City:      "Green Noa",
			State:     "Side 7",
			Zip:       "0079",
			Country:   "Earth Federation",
		},
		Payment: payment.Method{
			Type:       "credit_card",
			CardName:   "Amuro Ray",
			CardNumber: "4111111111111111",
			ExpiryDate: "12/29",
			CVV:        "123",
		},
	}
}

func TestValidatePasses(t *testing.T) {
	v := validator.NewCheckoutValidator()
	require.NoError(t, v.Validate(validInput()))
}

func TestValidateNamesMissingFields(t *testing.T) {
	v := validator.NewCheckoutValidator()

	in := validInput()
	in.ShippingAddress.Zip = ""
	in.Payment.CVV = ""

	err := v.Validate(in)
	require.Error(t, err)
	require.Contains(t, err.Error(), "missing required fields:")
	require.Contains(t, err.Error(), "shippingAddress.zip")
	require.Contains(t, err.Error(), "paymentMethod.cvv")
	// 埋まっているフィールドは挙がらない
	require.NotContains(t, err.Error(), "shippingAddress.city")
}

func TestValidateAllMissing(t *testing.T) {
	v := validator.NewCheckoutValidator()

	err := v.Validate(usecase.CheckoutInput{})
	require.Error(t, err)
	require.Contains(t, err.Error(), "shippingAddress.firstName")
	require.Contains(t, err.Error(), "paymentMethod.cardNumber")
}
