package validator

import (
	"context"
	"errors"
	"regexp"
	"strings"

	"lotmarket/internal/repository"
	"lotmarket/internal/usecase"
)

var emailRe = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

var resetCodeRe = regexp.MustCompile(`^[0-9]{6}$`)

// 最低文字数
const minPasswordLength = 8

type authValidator struct {
	users repository.UserRepository
}

// Usecaseは interface を依存注入
func NewAuthValidator(users repository.UserRepository) usecase.AuthValidator {
	return &authValidator{users: users}
}

// サインアップの入力を検証
func (v *authValidator) ValidateRegister(ctx context.Context, email string, password string) error {
	email = strings.TrimSpace(email)

	// 必須チェック
	if email == "" || password == "" {
		return usecase.ErrValidation
	}

	// email形式
	if !isEmailLike(email) {
		return usecase.ErrValidation
	}

	if len(password) < minPasswordLength {
		return usecase.ErrValidation
	}

	// email重複チェック（DBが必要）
	_, err := v.users.FindByEmail(ctx, email)
	if err == nil {
		return usecase.ErrConflict
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return usecase.ErrInternal
	}

	return nil
}

// ログインの入力を検証
func (v *authValidator) ValidateLogin(ctx context.Context, email string, password string) error {
	email = strings.TrimSpace(email)

	// 必須チェック
	if email == "" || password == "" {
		return usecase.ErrValidation
	}

	// email形式
	if !isEmailLike(email) {
		return usecase.ErrValidation
	}

	return nil
}

func (v *authValidator) ValidateResetRequest(ctx context.Context, email string) error {
	if !isEmailLike(strings.TrimSpace(email)) {
		return usecase.ErrValidation
	}
	return nil
}

func (v *authValidator) ValidateResetConfirm(ctx context.Context, email string, code string, newPassword string) error {
	if !isEmailLike(strings.TrimSpace(email)) {
		return usecase.ErrValidation
	}
	if !resetCodeRe.MatchString(strings.TrimSpace(code)) {
		return usecase.ErrValidation
	}
	if len(newPassword) < minPasswordLength {
		return usecase.ErrValidation
	}
	return nil
}

// 簡易メール形式をチェック
func isEmailLike(s string) bool {
	return emailRe.MatchString(s)
}
