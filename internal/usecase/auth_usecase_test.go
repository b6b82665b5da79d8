package usecase_test

import (
	"context"
	"net/http"
	"testing"
	"time"

	"app/internal/domain/model"
	infraRepo "app/internal/infra/repository"
	"app/internal/usecase"

	"github.com/golang-jwt/jwt/v4"
	"github.com/stretchr/testify/require"
)

const testJWTSecret = "test_secret"

func newAuthUC(t *testing.T) (*usecase.AuthUsecase, *testEnv) {
	t.Helper()
	env := newTestEnv(t)
	uc := usecase.NewAuthUsecase(infraRepo.NewUserGormRepository(env.DB), testJWTSecret, time.Hour)
	return uc, env
}

func TestRegisterAndLogin(t *testing.T) {
	uc, env := newAuthUC(t)
	ctx := context.Background()

	out, err := uc.Register(ctx, usecase.RegisterInput{
		Email:    "amuro@example.com",
		Password: "whitebase1979",
	})
	require.NoError(t, err)
	require.Equal(t, "USER", out.Role)
	require.NotEmpty(t, out.AccessToken)

	// 平文パスワードは保存されない
	var u model.User
	require.NoError(t, env.DB.Where("email = ?", "amuro@example.com").First(&u).Error)
	require.NotEqual(t, "whitebase1979", u.PasswordHash)

	// トークンはHS256で検証できて、subとroleが入っている
	token, err := jwt.Parse(out.AccessToken, func(tk *jwt.Token) (interface{}, error) {
		return []byte(testJWTSecret), nil
	})
	require.NoError(t, err)
	claims := token.Claims.(jwt.MapClaims)
	require.EqualValues(t, out.UserID, claims["sub"])
	require.Equal(t, "USER", claims["role"])

	got, err := uc.Login(ctx, usecase.LoginInput{
		Email:    "amuro@example.com",
		Password: "whitebase1979",
	})
	require.NoError(t, err)
	require.Equal(t, out.UserID, got.UserID)

	// 最終ログイン時刻が入る
	require.NoError(t, env.DB.Where("email = ?", "amuro@example.com").First(&u).Error)
	require.NotNil(t, u.LastLoginAt)
}

func TestRegisterValidation(t *testing.T) {
	uc, _ := newAuthUC(t)
	ctx := context.Background()

	_, err := uc.Register(ctx, usecase.RegisterInput{Email: "", Password: "x"})
	requireHTTPStatus(t, err, http.StatusBadRequest)

	_, err = uc.Register(ctx, usecase.RegisterInput{Email: "not-an-email", Password: "longenough"})
	requireHTTPStatus(t, err, http.StatusBadRequest)

	_, err = uc.Register(ctx, usecase.RegisterInput{Email: "a@example.com", Password: "short"})
	requireHTTPStatus(t, err, http.StatusBadRequest)
}

func TestRegisterDuplicateEmail(t *testing.T) {
	uc, _ := newAuthUC(t)
	ctx := context.Background()

	_, err := uc.Register(ctx, usecase.RegisterInput{Email: "a@example.com", Password: "whitebase1979"})
	require.NoError(t, err)

	_, err = uc.Register(ctx, usecase.RegisterInput{Email: "a@example.com", Password: "whitebase1979"})
	requireHTTPStatus(t, err, http.StatusConflict)
}

func TestLoginInvalidCredentials(t *testing.T) {
	uc, env := newAuthUC(t)
	ctx := context.Background()

	_, err := uc.Register(ctx, usecase.RegisterInput{Email: "a@example.com", Password: "whitebase1979"})
	require.NoError(t, err)

	// 未知のemailと間違ったパスワードは同じ応答
	_, err = uc.Login(ctx, usecase.LoginInput{Email: "b@example.com", Password: "whitebase1979"})
	requireHTTPStatus(t, err, http.StatusUnauthorized)

	_, err = uc.Login(ctx, usecase.LoginInput{Email: "a@example.com", Password: "wrongpassword"})
	requireHTTPStatus(t, err, http.StatusUnauthorized)

	// 停止ユーザーはログイン不可
	require.NoError(t, env.DB.Model(&model.User{}).Where("email = ?", "a@example.com").
		Update("is_active", false).Error)
	_, err = uc.Login(ctx, usecase.LoginInput{Email: "a@example.com", Password: "whitebase1979"})
	requireHTTPStatus(t, err, http.StatusUnauthorized)
}
