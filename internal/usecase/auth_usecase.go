package usecase

import (
	"context"
	"net/http"
	"net/mail"
	"strings"
	"time"

	"app/internal/domain/model"
	repo "app/internal/repository"

	"github.com/golang-jwt/jwt/v4"
	"golang.org/x/crypto/bcrypt"
)

// 会員登録の入力
type RegisterInput struct {
	Email    string
	Password string
}

type LoginInput struct {
	Email    string
	Password string
}

// handlerがJSONにして返す
type AuthOutput struct {
	UserID      int64  `json:"user_id"`
	Email       string `json:"email"`
	Role        string `json:"role"`
	AccessToken string `json:"access_token"`
	ExpiresIn   int    `json:"expires_in"`
}

type AuthUsecase struct {
	userRepo  repo.UserRepository
	jwtSecret []byte
	tokenTTL  time.Duration
}

func NewAuthUsecase(userRepo repo.UserRepository, jwtSecret string, tokenTTL time.Duration) *AuthUsecase {
	if tokenTTL <= 0 {
		tokenTTL = time.Hour
	}
	return &AuthUsecase{userRepo: userRepo, jwtSecret: []byte(jwtSecret), tokenTTL: tokenTTL}
}

// 会員登録。ハッシュだけ保存して、登録と同時にトークンを返す。
func (u *AuthUsecase) Register(ctx context.Context, in RegisterInput) (AuthOutput, error) {
	email := strings.TrimSpace(in.Email)

	// 必須チェック
	if email == "" || in.Password == "" {
		return AuthOutput{}, NewHTTPError(http.StatusBadRequest, "email and password are required")
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return AuthOutput{}, NewHTTPError(http.StatusBadRequest, "invalid email format")
	}
	if len(in.Password) < 8 {
		return AuthOutput{}, NewHTTPError(http.StatusBadRequest, "password must be at least 8 characters")
	}

	// email重複チェック
	if existing, err := u.userRepo.FindByEmail(ctx, email); err == nil && existing != nil {
		return AuthOutput{}, NewHTTPError(http.StatusConflict, "email already used")
	} else if err != nil && err != repo.ErrUserNotFound {
		return AuthOutput{}, errStorage(ctx, "user.find", err)
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return AuthOutput{}, errStorage(ctx, "password.hash", err)
	}

	user := &model.User{
		Email:        email,
		PasswordHash: string(hashed), // 平文は保存しない
		Role:         model.RoleUser,
		IsActive:     true,
	}
	if err := u.userRepo.Create(ctx, user); err != nil {
		return AuthOutput{}, errStorage(ctx, "user.create", err)
	}

	return u.issue(user)
}

// ログイン。失敗理由は区別せず同じメッセージで返す。
func (u *AuthUsecase) Login(ctx context.Context, in LoginInput) (AuthOutput, error) {
	email := strings.TrimSpace(in.Email)
	if email == "" || in.Password == "" {
		return AuthOutput{}, NewHTTPError(http.StatusBadRequest, "email and password are required")
	}

	user, err := u.userRepo.FindByEmail(ctx, email)
	if err == repo.ErrUserNotFound {
		return AuthOutput{}, NewHTTPError(http.StatusUnauthorized, "invalid credentials")
	}
	if err != nil {
		return AuthOutput{}, errStorage(ctx, "user.find", err)
	}

	// 停止ユーザーはログイン不可
	if !user.IsActive {
		return AuthOutput{}, NewHTTPError(http.StatusUnauthorized, "invalid credentials")
	}

	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(in.Password)) != nil {
		return AuthOutput{}, NewHTTPError(http.StatusUnauthorized, "invalid credentials")
	}

	// 最終ログイン時刻更新
	now := time.Now()
	user.LastLoginAt = &now
	if err := u.userRepo.Update(ctx, user); err != nil {
		return AuthOutput{}, errStorage(ctx, "user.update", err)
	}

	return u.issue(user)
}

// HS256のアクセストークンを発行する
func (u *AuthUsecase) issue(user *model.User) (AuthOutput, error) {
	now := time.Now()
	exp := now.Add(u.tokenTTL)

	claims := jwt.MapClaims{
		"sub":  user.ID,
		"role": string(user.Role),
		"iat":  now.Unix(),
		"exp":  exp.Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(u.jwtSecret)
	if err != nil {
		return AuthOutput{}, NewHTTPError(http.StatusInternalServerError, "token error")
	}

	return AuthOutput{
		UserID:      user.ID,
		Email:       user.Email,
		Role:        string(user.Role),
		AccessToken: signed,
		ExpiresIn:   int(exp.Sub(now).Seconds()),
	}, nil
}
