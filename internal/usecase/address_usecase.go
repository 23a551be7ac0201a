package usecase

import (
	"context"
	"errors"
	"strings"
	"time"

	"lotmarket/internal/domain/model"
	"lotmarket/internal/repository"
)

type AddressDTO struct {
	ID         int64   `json:"id"`
	UserID     int64   `json:"userId"`
	Name       string  `json:"name"`
	Company    string  `json:"company"`
	Line1      string  `json:"line1"`
	Line2      string  `json:"line2"`
	City       string  `json:"city"`
	Region     string  `json:"region"`
	PostalCode string  `json:"postalCode"`
	Country    string  `json:"country"`
	Phone      string  `json:"phone"`
	IsDefault  bool    `json:"isDefault"`
	CreatedAt  string  `json:"createdAt"`
	UpdatedAt  *string `json:"updatedAt,omitempty"`
}

// 作成・更新で共通
type AddressRequest struct {
	Name       string `json:"name"`
	Company    string `json:"company"`
	Line1      string `json:"line1"`
	Line2      string `json:"line2"`
	City       string `json:"city"`
	Region     string `json:"region"`
	PostalCode string `json:"postalCode"`
	Country    string `json:"country"`
	Phone      string `json:"phone"`
}

func (r AddressRequest) valid() bool {
	if strings.TrimSpace(r.Name) == "" || strings.TrimSpace(r.Line1) == "" || strings.TrimSpace(r.City) == "" || strings.TrimSpace(r.PostalCode) == "" {
		return false
	}
	//ISO 3166-1 alpha-2
	return len(strings.TrimSpace(r.Country)) == 2
}

type AddressUsecase struct {
	addresses repository.AddressRepository
}

func NewAddressUsecase(addresses repository.AddressRepository) *AddressUsecase {
	return &AddressUsecase{addresses: addresses}
}

func (u *AddressUsecase) List(ctx context.Context, userID int64) ([]AddressDTO, error) {
	if userID <= 0 {
		return nil, ErrUnauthorized
	}

	list, err := u.addresses.ListByUserID(ctx, userID)
	if err != nil {
		return nil, ErrInternal
	}

	out := make([]AddressDTO, 0, len(list))
	for i := range list {
		out = append(out, toAddressDTO(&list[i]))
	}
	return out, nil
}

func (u *AddressUsecase) Create(ctx context.Context, userID int64, req AddressRequest) (AddressDTO, error) {
	if userID <= 0 {
		return AddressDTO{}, ErrUnauthorized
	}

	//入力チェック
	if !req.valid() {
		return AddressDTO{}, ErrValidation
	}

	now := time.Now()
	a := applyAddress(model.Address{UserID: userID, CreatedAt: now}, req)
	a.UpdatedAt = now

	created, err := u.addresses.Create(ctx, a)
	if err != nil {
		return AddressDTO{}, ErrInternal
	}

	return toAddressDTO(&created), nil
}

func (u *AddressUsecase) Update(ctx context.Context, userID int64, addressID int64, req AddressRequest) error {
	if err := u.checkOwner(ctx, userID, addressID); err != nil {
		return err
	}
	if !req.valid() {
		return ErrValidation
	}

	a := applyAddress(model.Address{ID: addressID}, req)
	a.UpdatedAt = time.Now()

	if err := u.addresses.Update(ctx, a); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrNotFound
		}
		return ErrInternal
	}

	return nil
}

func (u *AddressUsecase) Delete(ctx context.Context, userID int64, addressID int64) error {
	if err := u.checkOwner(ctx, userID, addressID); err != nil {
		return err
	}

	if err := u.addresses.Delete(ctx, addressID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrNotFound
		}
		return ErrInternal
	}

	return nil
}

func (u *AddressUsecase) SetDefault(ctx context.Context, userID int64, addressID int64) error {
	if err := u.checkOwner(ctx, userID, addressID); err != nil {
		return err
	}

	//user内でdefaultは1つ
	if err := u.addresses.SetDefault(ctx, userID, addressID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrNotFound
		}
		return ErrInternal
	}

	return nil
}

// 所有チェック（本人のみ）
func (u *AddressUsecase) checkOwner(ctx context.Context, userID, addressID int64) error {
	if userID <= 0 {
		return ErrUnauthorized
	}
	if addressID <= 0 {
		return ErrValidation
	}

	a, err := u.addresses.FindByID(ctx, addressID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrNotFound
		}
		return ErrInternal
	}
	if a.UserID != userID {
		return ErrForbidden
	}
	return nil
}

func applyAddress(a model.Address, req AddressRequest) model.Address {
	a.Name = strings.TrimSpace(req.Name)
	a.Company = strings.TrimSpace(req.Company)
	a.Line1 = strings.TrimSpace(req.Line1)
	a.Line2 = strings.TrimSpace(req.Line2)
	a.City = strings.TrimSpace(req.City)
	a.Region = strings.TrimSpace(req.Region)
	a.PostalCode = strings.TrimSpace(req.PostalCode)
	a.Country = strings.ToUpper(strings.TrimSpace(req.Country))
	a.Phone = strings.TrimSpace(req.Phone)
	return a
}

func toAddressDTO(a *model.Address) AddressDTO {
	dto := AddressDTO{
		ID:         a.ID,
		UserID:     a.UserID,
		Name:       a.Name,
		Company:    a.Company,
		Line1:      a.Line1,
		Line2:      a.Line2,
		City:       a.City,
		Region:     a.Region,
		PostalCode: a.PostalCode,
		Country:    a.Country,
		Phone:      a.Phone,
		IsDefault:  a.IsDefault,
		CreatedAt:  a.CreatedAt.Format(time.RFC3339),
	}
	t := a.UpdatedAt.Format(time.RFC3339)
	dto.UpdatedAt = &t
	return dto
}
