package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gymcore_backend/internal/models"
	"gymcore_backend/internal/repositories"
	"gymcore_backend/pkg/utils"
)

var (
	ErrAssetNotFound      = errors.New("asset not found")
	ErrInvalidAssetStatus = fmt.Errorf("%w: status must be ACTIVE, MAINTENANCE or RETIRED", ErrValidation)
)

// CreateAssetRequest DTO
type CreateAssetRequest struct {
	Name          string   `json:"name" binding:"required"`
	SerialNumber  *string  `json:"serialNumber"`
	PurchaseDate  *string  `json:"purchaseDate"`
	PurchasePrice *float64 `json:"purchasePrice" binding:"omitempty,gte=0"`
	Status        string   `json:"status"`
	Notes         *string  `json:"notes"`
}

// UpdateAssetRequest DTO
type UpdateAssetRequest struct {
	Name          *string  `json:"name"`
	SerialNumber  *string  `json:"serialNumber"`
	PurchaseDate  *string  `json:"purchaseDate"`
	PurchasePrice *float64 `json:"purchasePrice" binding:"omitempty,gte=0"`
	Status        *string  `json:"status"`
	Notes         *string  `json:"notes"`
}

// AssetService manages the equipment registry.
type AssetService interface {
	CreateAsset(ctx context.Context, req CreateAssetRequest) (*models.Asset, error)
	GetAssetByID(ctx context.Context, id int64) (*models.Asset, error)
	GetAssets(ctx context.Context, status string) ([]models.Asset, error)
	UpdateAsset(ctx context.Context, id int64, req UpdateAssetRequest) (*models.Asset, error)
	RetireAsset(ctx context.Context, id int64) (*models.Asset, error)
}

type assetService struct {
	assetRepo repositories.AssetRepository
	cal       Calendar
}

// NewAssetService creates a new instance of AssetService.
func NewAssetService(ar repositories.AssetRepository, cal Calendar) AssetService {
	return &assetService{assetRepo: ar, cal: cal}
}

func normalizeAssetStatus(status string) (string, error) {
	status = strings.ToUpper(strings.TrimSpace(status))
	switch status {
	case models.AssetActive, models.AssetMaintenance, models.AssetRetired:
		return status, nil
	}
	return "", ErrInvalidAssetStatus
}

func (s *assetService) parsePurchaseDate(raw *string) (*time.Time, error) {
	if raw == nil || utils.IsEmpty(*raw) {
		return nil, nil
	}
	t, err := utils.ParseDateOrTime(*raw, s.cal.Location())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}
	return &t, nil
}

func (s *assetService) CreateAsset(ctx context.Context, req CreateAssetRequest) (*models.Asset, error) {
	if utils.IsEmpty(req.Name) {
		return nil, fmt.Errorf("%w: asset name cannot be empty", ErrValidation)
	}
	status := models.AssetActive
	if !utils.IsEmpty(req.Status) {
		var err error
		if status, err = normalizeAssetStatus(req.Status); err != nil {
			return nil, err
		}
	}
	purchased, err := s.parsePurchaseDate(req.PurchaseDate)
	if err != nil {
		return nil, err
	}
	a := &models.Asset{
		Name:          strings.TrimSpace(req.Name),
		SerialNumber:  trimmedOrNil(req.SerialNumber),
		PurchaseDate:  purchased,
		PurchasePrice: req.PurchasePrice,
		Status:        status,
		Notes:         trimmedOrNil(req.Notes),
	}
	if _, err := s.assetRepo.CreateAsset(ctx, a); err != nil {
		return nil, fmt.Errorf("failed to create asset: %w", err)
	}
	return a, nil
}

func (s *assetService) GetAssetByID(ctx context.Context, id int64) (*models.Asset, error) {
	a, err := s.assetRepo.GetAssetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrAssetNotFound
		}
		return nil, fmt.Errorf("failed to get asset: %w", err)
	}
	return a, nil
}

func (s *assetService) GetAssets(ctx context.Context, status string) ([]models.Asset, error) {
	if !utils.IsEmpty(status) {
		var err error
		if status, err = normalizeAssetStatus(status); err != nil {
			return nil, err
		}
	}
	list, err := s.assetRepo.GetAssets(ctx, status)
	if err != nil {
		return nil, fmt.Errorf("failed to list assets: %w", err)
	}
	return list, nil
}

func (s *assetService) UpdateAsset(ctx context.Context, id int64, req UpdateAssetRequest) (*models.Asset, error) {
	a, err := s.GetAssetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if req.Name != nil {
		if utils.IsEmpty(*req.Name) {
			return nil, fmt.Errorf("%w: asset name cannot be empty", ErrValidation)
		}
		a.Name = strings.TrimSpace(*req.Name)
	}
	if req.SerialNumber != nil {
		a.SerialNumber = trimmedOrNil(req.SerialNumber)
	}
	if req.PurchaseDate != nil {
		if a.PurchaseDate, err = s.parsePurchaseDate(req.PurchaseDate); err != nil {
			return nil, err
		}
	}
	if req.PurchasePrice != nil {
		a.PurchasePrice = req.PurchasePrice
	}
	if req.Status != nil {
		if a.Status, err = normalizeAssetStatus(*req.Status); err != nil {
			return nil, err
		}
	}
	if req.Notes != nil {
		a.Notes = trimmedOrNil(req.Notes)
	}
	return a, s.save(ctx, a)
}

// RetireAsset is the soft delete for equipment.
func (s *assetService) RetireAsset(ctx context.Context, id int64) (*models.Asset, error) {
	a, err := s.GetAssetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	a.Status = models.AssetRetired
	return a, s.save(ctx, a)
}

func (s *assetService) save(ctx context.Context, a *models.Asset) error {
	if err := s.assetRepo.UpdateAsset(ctx, a); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return ErrAssetNotFound
		}
		return fmt.Errorf("failed to update asset: %w", err)
	}
	return nil
}
