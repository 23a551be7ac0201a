package usecase

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"lotmarket/internal/domain/model"
	repo "lotmarket/internal/repository"
)

type AdminUsecase struct {
	tx         repo.TransactionManager
	users      repo.UserRepository
	strikes    repo.StrikeRepository
	auditRepo  repo.AuditLogRepository
	maxStrikes int
	now        func() time.Time
}

func NewAdminUsecase(
	tx repo.TransactionManager,
	users repo.UserRepository,
	strikes repo.StrikeRepository,
	auditRepo repo.AuditLogRepository,
	maxStrikes int,
) *AdminUsecase {
	return &AdminUsecase{
		tx:         tx,
		users:      users,
		strikes:    strikes,
		auditRepo:  auditRepo,
		maxStrikes: maxStrikes,
		now:        time.Now,
	}
}

type ListUsersInput struct {
	Role     string
	IsActive *bool
	Q        string
	Page     int
	Limit    int
}

type UserListOutput struct {
	Items []UserDTO `json:"items"`
	Total int64     `json:"total"`
	Page  int       `json:"page"`
	Limit int       `json:"limit"`
}

func (u *AdminUsecase) ListUsers(ctx context.Context, in ListUsersInput) (UserListOutput, error) {
	page, limit, err := normalizePage(in.Page, in.Limit)
	if err != nil {
		return UserListOutput{}, err
	}

	f := repo.UserListFilter{IsActive: in.IsActive, Q: strings.TrimSpace(in.Q), Page: page, Limit: limit}
	if in.Role != "" {
		role := model.Role(in.Role)
		if !role.Valid() {
			return UserListOutput{}, NewHTTPError(http.StatusBadRequest, "invalid role")
		}
		f.Role = &role
	}

	users, total, err := u.users.List(ctx, f)
	if err != nil {
		return UserListOutput{}, errDB()
	}
	out := make([]UserDTO, 0, len(users))
	for i := range users {
		out = append(out, toUserDTO(&users[i]))
	}
	return UserListOutput{Items: out, Total: total, Page: page, Limit: limit}, nil
}

type ChangeRoleInput struct {
	Role string `json:"role"`
}

// ロール変更。トークンのroleが古くなるのでtoken_versionも上げる
func (u *AdminUsecase) ChangeRole(ctx context.Context, adminID, userID int64, in ChangeRoleInput) (UserDTO, error) {
	if adminID <= 0 {
		return UserDTO{}, errUnauthorized()
	}
	if userID <= 0 {
		return UserDTO{}, NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	role := model.Role(strings.TrimSpace(in.Role))
	if !role.Valid() {
		return UserDTO{}, NewHTTPError(http.StatusBadRequest, "invalid role")
	}
	//自分の権限は落とせない
	if adminID == userID {
		return UserDTO{}, NewHTTPError(http.StatusBadRequest, "cannot change own role")
	}

	var out UserDTO
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		user, err := r.Users().FindByID(ctx, userID)
		if errors.Is(err, repo.ErrNotFound) {
			return errNotFound()
		}
		if err != nil {
			return errDB()
		}
		if user.Role == role {
			out = toUserDTO(&user)
			return nil
		}

		if err := r.Users().UpdateRole(ctx, userID, role); err != nil {
			return errDB()
		}
		if err := r.Users().IncrementTokenVersion(ctx, userID); err != nil {
			return errDB()
		}
		if err := r.AuditLogs().Create(ctx, model.AuditLog{
			ActorUserID:  adminID,
			Action:       model.AuditActionChangeRole,
			ResourceType: model.AuditResourceUser,
			ResourceID:   userID,
			BeforeJSON:   fmt.Sprintf(`{"role":%q}`, user.Role),
			AfterJSON:    fmt.Sprintf(`{"role":%q}`, role),
			CreatedAt:    u.now(),
		}); err != nil {
			return errDB()
		}

		user.Role = role
		user.TokenVersion++
		out = toUserDTO(&user)
		return nil
	})
	if err != nil {
		return UserDTO{}, passHTTPError(err)
	}
	return out, nil
}

type IssueStrikeInput struct {
	Reason string `json:"reason"`
}

type StrikeOutput struct {
	Strike      model.Strike `json:"strike"`
	StrikeCount int          `json:"strikeCount"`
	Deactivated bool         `json:"deactivated"`
}

// IssueStrike はストライクを1つ付与する。
// 上限に達したらアカウントを停止し、発行済みトークンも無効にする。
func (u *AdminUsecase) IssueStrike(ctx context.Context, adminID, userID int64, in IssueStrikeInput) (StrikeOutput, error) {
	if adminID <= 0 {
		return StrikeOutput{}, errUnauthorized()
	}
	if userID <= 0 {
		return StrikeOutput{}, NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	reason := strings.TrimSpace(in.Reason)
	if reason == "" {
		return StrikeOutput{}, NewHTTPError(http.StatusBadRequest, "reason required")
	}
	if adminID == userID {
		return StrikeOutput{}, NewHTTPError(http.StatusBadRequest, "cannot strike yourself")
	}

	var out StrikeOutput
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		user, err := r.Users().FindByID(ctx, userID)
		if errors.Is(err, repo.ErrNotFound) {
			return errNotFound()
		}
		if err != nil {
			return errDB()
		}

		strike := model.Strike{UserID: userID, IssuedBy: adminID, Reason: reason}
		if err := r.Strikes().Create(ctx, &strike); err != nil {
			return errDB()
		}
		count, err := r.Users().IncrementStrikeCount(ctx, userID)
		if err != nil {
			return errDB()
		}

		deactivated := false
		if count >= u.maxStrikes && user.IsActive {
			if err := r.Users().Deactivate(ctx, userID); err != nil {
				return errDB()
			}
			if err := r.Users().IncrementTokenVersion(ctx, userID); err != nil {
				return errDB()
			}
			deactivated = true
		}

		if err := r.AuditLogs().Create(ctx, model.AuditLog{
			ActorUserID:  adminID,
			Action:       model.AuditActionIssueStrike,
			ResourceType: model.AuditResourceUser,
			ResourceID:   userID,
			BeforeJSON:   fmt.Sprintf(`{"strikeCount":%d,"isActive":%t}`, user.StrikeCount, user.IsActive),
			AfterJSON:    fmt.Sprintf(`{"strikeCount":%d,"isActive":%t}`, count, user.IsActive && !deactivated),
			CreatedAt:    u.now(),
		}); err != nil {
			return errDB()
		}

		out = StrikeOutput{Strike: strike, StrikeCount: count, Deactivated: deactivated}
		return nil
	})
	if err != nil {
		return StrikeOutput{}, passHTTPError(err)
	}
	return out, nil
}

func (u *AdminUsecase) ListStrikes(ctx context.Context, userID int64) ([]model.Strike, error) {
	if userID <= 0 {
		return nil, NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	list, err := u.strikes.ListByUserID(ctx, userID)
	if err != nil {
		return nil, errDB()
	}
	return list, nil
}

type ForceLogoutResponse struct {
	UserID          int64 `json:"userId"`
	NewTokenVersion int   `json:"newTokenVersion"`
}

// token_versionを上げて発行済みのアクセストークンをすべて無効にする
func (u *AdminUsecase) ForceLogout(ctx context.Context, adminID, userID int64) (ForceLogoutResponse, error) {
	if adminID <= 0 {
		return ForceLogoutResponse{}, errUnauthorized()
	}
	if userID <= 0 {
		return ForceLogoutResponse{}, NewHTTPError(http.StatusBadRequest, "invalid id")
	}

	var out ForceLogoutResponse
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		user, err := r.Users().FindByID(ctx, userID)
		if errors.Is(err, repo.ErrNotFound) {
			return errNotFound()
		}
		if err != nil {
			return errDB()
		}
		if err := r.Users().IncrementTokenVersion(ctx, userID); err != nil {
			return errDB()
		}
		if err := r.AuditLogs().Create(ctx, model.AuditLog{
			ActorUserID:  adminID,
			Action:       model.AuditActionForceLogout,
			ResourceType: model.AuditResourceUser,
			ResourceID:   userID,
			BeforeJSON:   fmt.Sprintf(`{"tokenVersion":%d}`, user.TokenVersion),
			AfterJSON:    fmt.Sprintf(`{"tokenVersion":%d}`, user.TokenVersion+1),
			CreatedAt:    u.now(),
		}); err != nil {
			return errDB()
		}
		out = ForceLogoutResponse{UserID: userID, NewTokenVersion: user.TokenVersion + 1}
		return nil
	})
	if err != nil {
		return ForceLogoutResponse{}, passHTTPError(err)
	}
	return out, nil
}

type ListAuditLogsInput struct {
	ActorUserID  *int64
	Action       string
	ResourceType string
	ResourceID   *int64
	From         *time.Time
	To           *time.Time
	Limit        int
	Offset       int
}

func (u *AdminUsecase) ListAuditLogs(ctx context.Context, in ListAuditLogsInput) ([]model.AuditLog, error) {
	f := repo.AuditLogFilter{
		ActorUserID: in.ActorUserID,
		ResourceID:  in.ResourceID,
		CreatedFrom: in.From,
		CreatedTo:   in.To,
		Limit:       in.Limit,
		Offset:      in.Offset,
	}
	if in.Action != "" {
		a := model.AuditAction(in.Action)
		f.Action = &a
	}
	if in.ResourceType != "" {
		t := model.AuditResourceType(in.ResourceType)
		f.ResourceType = &t
	}
	if in.Limit < 0 || in.Limit > 200 {
		return nil, NewHTTPError(http.StatusBadRequest, "invalid limit")
	}
	if in.Offset < 0 {
		return nil, NewHTTPError(http.StatusBadRequest, "invalid offset")
	}

	logs, err := u.auditRepo.List(ctx, f)
	if err != nil {
		return nil, errDB()
	}
	return logs, nil
}
