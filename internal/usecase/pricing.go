package usecase

import (
	"app/internal/config"

	"github.com/shopspring/decimal"
)

// カート表示とチェックアウトの金額計算。
// 両方が必ずこの1つを通る。式がずれると画面と請求額が食い違う。
type Pricing struct {
	taxRate               decimal.Decimal
	shippingFlatFee       decimal.Decimal
	freeShippingThreshold decimal.Decimal
}

func NewPricing(cfg config.Config) Pricing {
	return Pricing{
		taxRate:               cfg.TaxRate,
		shippingFlatFee:       cfg.ShippingFlatFee,
		freeShippingThreshold: cfg.FreeShippingThreshold,
	}
}

// 小計から税・送料・合計を出す。
// 送料はしきい値「超え」で無料（ちょうどは有料）。
func (p Pricing) Quote(subtotal decimal.Decimal) (tax, shipping, total decimal.Decimal) {
	tax = subtotal.Mul(p.taxRate)

	if subtotal.GreaterThan(p.freeShippingThreshold) {
		shipping = decimal.Zero
	} else {
		shipping = p.shippingFlatFee
	}

	total = subtotal.Add(tax).Add(shipping)
	return tax, shipping, total
}
