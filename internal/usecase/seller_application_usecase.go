package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"lotmarket/internal/domain/model"
	repo "lotmarket/internal/repository"
)

type SellerApplicationUsecase struct {
	tx    repo.TransactionManager
	apps  repo.SellerApplicationRepository
	users repo.UserRepository
	now   func() time.Time
}

func NewSellerApplicationUsecase(tx repo.TransactionManager, apps repo.SellerApplicationRepository, users repo.UserRepository) *SellerApplicationUsecase {
	return &SellerApplicationUsecase{tx: tx, apps: apps, users: users, now: time.Now}
}

type ApplySellerInput struct {
	BusinessName string `json:"businessName"`
	TaxID        string `json:"taxId"`
	Website      string `json:"website"`
}

type ReviewSellerApplicationInput struct {
	Note string `json:"note"`
}

type SellerApplicationListOutput struct {
	Items []model.SellerApplication `json:"items"`
	Total int64                     `json:"total"`
	Page  int                       `json:"page"`
	Limit int                       `json:"limit"`
}

// 買い手が出品者になるための申請（審査中は1件まで）
func (u *SellerApplicationUsecase) Apply(ctx context.Context, userID int64, in ApplySellerInput) (model.SellerApplication, error) {
	if userID <= 0 {
		return model.SellerApplication{}, errUnauthorized()
	}
	if strings.TrimSpace(in.BusinessName) == "" {
		return model.SellerApplication{}, NewHTTPError(http.StatusBadRequest, "businessName required")
	}
	if strings.TrimSpace(in.TaxID) == "" {
		return model.SellerApplication{}, NewHTTPError(http.StatusBadRequest, "taxId required")
	}

	user, err := u.users.FindByID(ctx, userID)
	if err != nil {
		return model.SellerApplication{}, errUnauthorized()
	}
	if user.Role != model.RoleBuyer {
		return model.SellerApplication{}, NewHTTPError(http.StatusConflict, "already a seller")
	}

	latest, err := u.apps.FindLatestByUserID(ctx, userID)
	if err != nil && !errors.Is(err, repo.ErrNotFound) {
		return model.SellerApplication{}, errDB()
	}
	if err == nil && latest.Status == model.SellerApplicationPending {
		return model.SellerApplication{}, NewHTTPError(http.StatusConflict, "application already pending")
	}

	app := model.SellerApplication{
		UserID:       userID,
		BusinessName: strings.TrimSpace(in.BusinessName),
		TaxID:        strings.TrimSpace(in.TaxID),
		Website:      strings.TrimSpace(in.Website),
		Status:       model.SellerApplicationPending,
	}
	if err := u.apps.Create(ctx, &app); err != nil {
		return model.SellerApplication{}, errDB()
	}
	return app, nil
}

func (u *SellerApplicationUsecase) Mine(ctx context.Context, userID int64) (model.SellerApplication, error) {
	if userID <= 0 {
		return model.SellerApplication{}, errUnauthorized()
	}
	app, err := u.apps.FindLatestByUserID(ctx, userID)
	if errors.Is(err, repo.ErrNotFound) {
		return model.SellerApplication{}, errNotFound()
	}
	if err != nil {
		return model.SellerApplication{}, errDB()
	}
	return app, nil
}

func (u *SellerApplicationUsecase) List(ctx context.Context, status string, page, limit int) (SellerApplicationListOutput, error) {
	page, limit, err := normalizePage(page, limit)
	if err != nil {
		return SellerApplicationListOutput{}, err
	}

	var st *model.SellerApplicationStatus
	switch s := model.SellerApplicationStatus(status); s {
	case "":
	case model.SellerApplicationPending, model.SellerApplicationApproved, model.SellerApplicationRejected:
		st = &s
	default:
		return SellerApplicationListOutput{}, NewHTTPError(http.StatusBadRequest, "invalid status")
	}

	items, total, err := u.apps.List(ctx, st, page, limit)
	if err != nil {
		return SellerApplicationListOutput{}, errDB()
	}
	return SellerApplicationListOutput{Items: items, Total: total, Page: page, Limit: limit}, nil
}

// 承認と同時にユーザーをsellerにする
func (u *SellerApplicationUsecase) Approve(ctx context.Context, adminID, appID int64, in ReviewSellerApplicationInput) (model.SellerApplication, error) {
	return u.review(ctx, adminID, appID, model.SellerApplicationApproved, in.Note)
}

func (u *SellerApplicationUsecase) Reject(ctx context.Context, adminID, appID int64, in ReviewSellerApplicationInput) (model.SellerApplication, error) {
	return u.review(ctx, adminID, appID, model.SellerApplicationRejected, in.Note)
}

func (u *SellerApplicationUsecase) review(ctx context.Context, adminID, appID int64, status model.SellerApplicationStatus, note string) (model.SellerApplication, error) {
	if adminID <= 0 {
		return model.SellerApplication{}, errUnauthorized()
	}
	if appID <= 0 {
		return model.SellerApplication{}, NewHTTPError(http.StatusBadRequest, "invalid id")
	}

	var out model.SellerApplication
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		app, err := r.SellerApplications().FindByID(ctx, appID)
		if errors.Is(err, repo.ErrNotFound) {
			return errNotFound()
		}
		if err != nil {
			return errDB()
		}
		if app.Status != model.SellerApplicationPending {
			return NewHTTPError(http.StatusConflict, "application already reviewed")
		}

		before, _ := json.Marshal(map[string]any{"status": app.Status})

		now := u.now()
		app.Status = status
		app.ReviewedBy = &adminID
		app.ReviewedAt = &now
		app.ReviewNote = strings.TrimSpace(note)

		if err := r.SellerApplications().Review(ctx, app); err != nil {
			if errors.Is(err, repo.ErrConflict) {
				return NewHTTPError(http.StatusConflict, "application already reviewed")
			}
			return errDB()
		}

		if status == model.SellerApplicationApproved {
			if err := r.Users().UpdateRole(ctx, app.UserID, model.RoleSeller); err != nil {
				if errors.Is(err, repo.ErrNotFound) {
					return errNotFound()
				}
				return errDB()
			}
			//ロールはトークンに入っているので再ログインさせる
			if err := r.Users().IncrementTokenVersion(ctx, app.UserID); err != nil {
				return errDB()
			}
		}

		after, _ := json.Marshal(map[string]any{"status": status, "note": app.ReviewNote})
		if err := r.AuditLogs().Create(ctx, model.AuditLog{
			ActorUserID:  adminID,
			Action:       model.AuditActionReviewSellerApplication,
			ResourceType: model.AuditResourceSellerApplication,
			ResourceID:   app.ID,
			BeforeJSON:   string(before),
			AfterJSON:    string(after),
			CreatedAt:    now,
		}); err != nil {
			return errDB()
		}

		out = app
		return nil
	})
	if err != nil {
		return model.SellerApplication{}, passHTTPError(err)
	}
	return out, nil
}
