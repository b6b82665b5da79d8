package payment

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// 承認リクエスト。カード番号はここまでで止める（保存側には渡さない）。
type Method struct {
	Type       string
	CardName   string
	CardNumber string
	ExpiryDate string
	CVV        string
}

type Result struct {
	Success       bool
	TransactionID string
}

// 外部決済ゲートウェイの約束。
// 失敗時に副作用が無いことはゲートウェイ側の契約。
type Gateway interface {
	Authorize(ctx context.Context, method Method, amount decimal.Decimal) (Result, error)
}

// モック実装。本物のゲートウェイ接続は持たない。
// 末尾が "0000" のカードだけ承認拒否にしてあるので、失敗経路のテストに使える。
type MockGateway struct{}

func NewMockGateway() *MockGateway {
	return &MockGateway{}
}

func (g *MockGateway) Authorize(ctx context.Context, method Method, amount decimal.Decimal) (Result, error) {
	if amount.IsNegative() || amount.IsZero() {
		return Result{}, errors.New("invalid amount")
	}
	if method.CardNumber == "" {
		return Result{}, errors.New("missing card number")
	}

	if strings.HasSuffix(method.CardNumber, "0000") {
		return Result{Success: false}, nil
	}

	return Result{
		Success:       true,
		TransactionID: "txn_" + uuid.NewString(),
	}, nil
}
