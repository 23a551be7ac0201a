package usecase

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"lotmarket/internal/config"
	"lotmarket/internal/domain/model"
	"lotmarket/internal/repository"
)

// usecaseがValidatorInterfaceに依存する約束
type AuthValidator interface {
	ValidateRegister(ctx context.Context, email string, password string) error
	ValidateLogin(ctx context.Context, email string, password string) error
	ValidateResetRequest(ctx context.Context, email string) error
	ValidateResetConfirm(ctx context.Context, email string, code string, newPassword string) error
}

// リセットコードの送り先（メール送信サービス）
type ResetCodeNotifier interface {
	SendResetCode(ctx context.Context, email, code string) error
}

type UserDTO struct {
	ID           int64      `json:"id"`
	Email        string     `json:"email"`
	Role         string     `json:"role"`
	CompanyName  string     `json:"companyName"`
	TokenVersion int        `json:"tokenVersion"`
	IsActive     bool       `json:"isActive"`
	StrikeCount  int        `json:"strikeCount"`
	LastLoginAt  *time.Time `json:"lastLoginAt,omitempty"`
}

type JwtAccessTokenDTO struct {
	AccessToken  string `json:"accessToken"`
	ExpiresIn    int    `json:"expiresIn"`
	TokenVersion int    `json:"tokenVersion"`
}

type AuthRegisterRequest struct {
	Email       string `json:"email"`
	Password    string `json:"password"`
	CompanyName string `json:"companyName"`
}

type AuthRegisterResponse struct {
	User UserDTO `json:"user"`
}

type AuthLoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type AuthLoginResponse struct {
	User  UserDTO           `json:"user"`
	Token JwtAccessTokenDTO `json:"token"`
}

type PasswordResetRequest struct {
	Email string `json:"email"`
}

type PasswordResetConfirm struct {
	Email       string `json:"email"`
	Code        string `json:"code"`
	NewPassword string `json:"newPassword"`
}

type SuccessResponse struct {
	Message string `json:"message"`
}

type AuthUsecase struct {
	cfg       config.Config
	tx        repository.TransactionManager
	users     repository.UserRepository
	codes     repository.ResetCodeStore
	notifier  ResetCodeNotifier
	validator AuthValidator
	logger    *slog.Logger
	now       func() time.Time
}

func NewAuthUsecase(
	cfg config.Config,
	tx repository.TransactionManager,
	users repository.UserRepository,
	codes repository.ResetCodeStore,
	notifier ResetCodeNotifier,
	validator AuthValidator,
	logger *slog.Logger,
) *AuthUsecase {
	if logger == nil {
		logger = slog.Default()
	}
	return &AuthUsecase{
		cfg:       cfg,
		tx:        tx,
		users:     users,
		codes:     codes,
		notifier:  notifier,
		validator: validator,
		logger:    logger.With("component", "auth"),
		now:       time.Now,
	}
}

func (u *AuthUsecase) Register(ctx context.Context, req AuthRegisterRequest) (*AuthRegisterResponse, error) {
	//入力検証（validatorに寄せる）
	if err := u.validator.ValidateRegister(ctx, req.Email, req.Password); err != nil {
		return nil, err
	}

	//パスワードは必ずハッシュ化して保存（平文保存しない）
	pwHash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, ErrInternal
	}

	//ユーザー作成（登録直後は買い手）
	user := &model.User{
		Email:        strings.ToLower(strings.TrimSpace(req.Email)),
		PasswordHash: string(pwHash),
		Role:         model.RoleBuyer,
		CompanyName:  strings.TrimSpace(req.CompanyName),
		TokenVersion: 0,
		IsActive:     true,
	}

	if err := u.users.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return nil, ErrConflict
		}
		return nil, ErrInternal
	}

	return &AuthRegisterResponse{User: toUserDTO(user)}, nil
}

func (u *AuthUsecase) Login(ctx context.Context, req AuthLoginRequest) (*AuthLoginResponse, error) {
	//入力検証
	if err := u.validator.ValidateLogin(ctx, req.Email, req.Password); err != nil {
		return nil, err
	}

	//ユーザー取得
	user, err := u.users.FindByEmail(ctx, req.Email)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrUnauthorized
	}
	if err != nil {
		return nil, ErrInternal
	}

	//パスワード照合（bcrypt）
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		return nil, ErrUnauthorized
	}

	//停止ユーザーはログイン不可
	if !user.IsActive {
		return nil, ErrForbidden
	}

	//last_login更新（失敗してもログインは通す）
	if err := u.users.TouchLastLogin(ctx, user.ID); err != nil {
		u.logger.WarnContext(ctx, "touch last login failed", slog.Int64("user_id", user.ID), slog.Any("error", err))
	}
	now := u.now()
	user.LastLoginAt = &now

	accessToken, expiresIn, err := u.issueAccessToken(&user)
	if err != nil {
		return nil, ErrInternal
	}

	return &AuthLoginResponse{
		User: toUserDTO(&user),
		Token: JwtAccessTokenDTO{
			AccessToken:  accessToken,
			ExpiresIn:    expiresIn,
			TokenVersion: user.TokenVersion,
		},
	}, nil
}

func (u *AuthUsecase) Me(ctx context.Context, userID int64) (*UserDTO, error) {
	if userID <= 0 {
		return nil, ErrUnauthorized
	}

	user, err := u.users.FindByID(ctx, userID)
	if err != nil {
		return nil, ErrUnauthorized
	}

	if !user.IsActive {
		return nil, ErrForbidden
	}

	dto := toUserDTO(&user)
	return &dto, nil
}

// RequestPasswordReset は6桁のコードを発行する。
// アカウントの有無を漏らさないため、存在しないemailでも成功を返す。
func (u *AuthUsecase) RequestPasswordReset(ctx context.Context, req PasswordResetRequest) error {
	if err := u.validator.ValidateResetRequest(ctx, req.Email); err != nil {
		return err
	}

	user, err := u.users.FindByEmail(ctx, req.Email)
	if errors.Is(err, repository.ErrNotFound) {
		return nil
	}
	if err != nil {
		return ErrInternal
	}
	if !user.IsActive {
		return nil
	}

	code, err := newResetCode()
	if err != nil {
		return ErrInternal
	}
	codeHash, err := bcrypt.GenerateFromPassword([]byte(code), bcrypt.DefaultCost)
	if err != nil {
		return ErrInternal
	}

	//保存・送信の失敗も未登録と同じ応答にする
	if err := u.codes.Save(ctx, user.Email, string(codeHash), u.cfg.ResetCodeTTL); err != nil {
		u.logger.ErrorContext(ctx, "save reset code failed", slog.Int64("user_id", user.ID), slog.Any("error", err))
		return nil
	}

	if u.notifier != nil {
		if err := u.notifier.SendResetCode(ctx, user.Email, code); err != nil {
			u.logger.ErrorContext(ctx, "send reset code failed", slog.Int64("user_id", user.ID), slog.Any("error", err))
		}
	}
	return nil
}

// コードは一致したときだけ消費する。maxResetAttempts回間違えると無効
func (u *AuthUsecase) ConfirmPasswordReset(ctx context.Context, req PasswordResetConfirm) error {
	if err := u.validator.ValidateResetConfirm(ctx, req.Email, req.Code, req.NewPassword); err != nil {
		return err
	}
	email := strings.ToLower(strings.TrimSpace(req.Email))

	codeHash, err := u.codes.Peek(ctx, email)
	if errors.Is(err, repository.ErrNotFound) {
		return ErrValidation
	}
	if err != nil {
		return ErrInternal
	}
	if err := bcrypt.CompareHashAndPassword([]byte(codeHash), []byte(strings.TrimSpace(req.Code))); err != nil {
		locked, ferr := u.codes.RecordFailure(ctx, email, maxResetAttempts)
		if ferr != nil && !errors.Is(ferr, repository.ErrNotFound) {
			u.logger.ErrorContext(ctx, "record reset failure failed", slog.Any("error", ferr))
		}
		if locked {
			u.logger.WarnContext(ctx, "reset code locked after failed attempts")
		}
		return ErrValidation
	}

	//同時に使われた・差し替えられた場合は失敗
	consumed, err := u.codes.Consume(ctx, email)
	if errors.Is(err, repository.ErrNotFound) {
		return ErrValidation
	}
	if err != nil {
		return ErrInternal
	}
	if consumed != codeHash {
		return ErrValidation
	}

	pwHash, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), bcrypt.DefaultCost)
	if err != nil {
		return ErrInternal
	}

	//パスワード更新と既存トークンの失効はまとめて
	return u.tx.WithinTx(ctx, func(r repository.TxRepos) error {
		user, err := r.Users().FindByEmail(ctx, email)
		if errors.Is(err, repository.ErrNotFound) {
			return ErrValidation
		}
		if err != nil {
			return ErrInternal
		}
		if err := r.Users().UpdatePassword(ctx, user.ID, string(pwHash)); err != nil {
			return ErrInternal
		}
		if err := r.Users().IncrementTokenVersion(ctx, user.ID); err != nil {
			return ErrInternal
		}
		return nil
	})
}

// jwt発行
func (u *AuthUsecase) issueAccessToken(user *model.User) (string, int, error) {
	now := u.now()
	ttl := u.cfg.AccessTokenTTL
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}

	claims := jwt.MapClaims{
		"sub":  user.ID,
		"role": string(user.Role),
		"tv":   user.TokenVersion,
		"iat":  now.Unix(),
		"exp":  now.Add(ttl).Unix(),
	}

	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	signed, err := t.SignedString([]byte(u.cfg.JWTSecret))
	if err != nil {
		return "", 0, err
	}

	return signed, int(ttl.Seconds()), nil
}

// 000000〜999999
// 6桁コードの総当たりを防ぐ上限
const maxResetAttempts = 5

func newResetCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1000000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}

// model.UserをAPI返却用DTOに変換。
func toUserDTO(u *model.User) UserDTO {
	return UserDTO{
		ID:           u.ID,
		Email:        u.Email,
		Role:         string(u.Role),
		CompanyName:  u.CompanyName,
		TokenVersion: u.TokenVersion,
		IsActive:     u.IsActive,
		StrikeCount:  u.StrikeCount,
		LastLoginAt:  u.LastLoginAt,
	}
}
