package services

import (
	"context"
	"testing"

	"gymcore_backend/internal/models"
	"gymcore_backend/internal/repositories"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type assetStub struct {
	assets map[int64]*models.Asset
}

func (s *assetStub) CreateAsset(ctx context.Context, a *models.Asset) (int64, error) {
	a.ID = int64(len(s.assets) + 1)
	cp := *a
	s.assets[a.ID] = &cp
	return a.ID, nil
}

func (s *assetStub) GetAssetByID(ctx context.Context, id int64) (*models.Asset, error) {
	a, ok := s.assets[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	cp := *a
	return &cp, nil
}

func (s *assetStub) GetAssets(ctx context.Context, status string) ([]models.Asset, error) {
	out := []models.Asset{}
	for _, a := range s.assets {
		if status == "" || a.Status == status {
			out = append(out, *a)
		}
	}
	return out, nil
}

func (s *assetStub) UpdateAsset(ctx context.Context, a *models.Asset) error {
	if _, ok := s.assets[a.ID]; !ok {
		return repositories.ErrNotFound
	}
	cp := *a
	s.assets[a.ID] = &cp
	return nil
}

type auditStub struct {
	entries []models.AuditLog
}

func (s *auditStub) CreateAuditLog(ctx context.Context, e *models.AuditLog) (int64, error) {
	e.ID = int64(len(s.entries) + 1)
	s.entries = append(s.entries, *e)
	return e.ID, nil
}

func (s *auditStub) GetAuditLogs(ctx context.Context, f models.AuditFilters) ([]models.AuditLog, int, error) {
	return s.entries, len(s.entries), nil
}

func TestPlanService(t *testing.T) {
	ctx := context.Background()
	db := newMemDB()
	svc := NewPlanService(db)

	plan, err := svc.CreatePlan(ctx, CreatePlanRequest{Name: " Mensual Individual ", Price: 100, DurationDays: 30})
	require.NoError(t, err)
	assert.Equal(t, "Mensual Individual", plan.Name)
	assert.True(t, plan.IsActive)

	_, err = svc.CreatePlan(ctx, CreatePlanRequest{Name: "Broken", DurationDays: 0})
	assert.ErrorIs(t, err, ErrValidation)

	price := 120.0
	updated, err := svc.UpdatePlan(ctx, plan.ID, UpdatePlanRequest{Price: &price})
	require.NoError(t, err)
	assert.Equal(t, 120.0, updated.Price)

	require.NoError(t, svc.DeletePlan(ctx, plan.ID))
	active, err := svc.GetPlans(ctx, true)
	require.NoError(t, err)
	assert.Empty(t, active)
	all, err := svc.GetPlans(ctx, false)
	require.NoError(t, err)
	assert.Len(t, all, 1)

	_, err = svc.GetPlanByID(ctx, 404)
	assert.ErrorIs(t, err, ErrPlanNotFound)
}

func TestAssetService(t *testing.T) {
	ctx := context.Background()
	svc := NewAssetService(&assetStub{assets: map[int64]*models.Asset{}}, NewCalendar(nil, nil))

	a, err := svc.CreateAsset(ctx, CreateAssetRequest{Name: "Treadmill", PurchaseDate: strPtr("2023-06-01")})
	require.NoError(t, err)
	assert.Equal(t, models.AssetActive, a.Status)
	require.NotNil(t, a.PurchaseDate)

	_, err = svc.CreateAsset(ctx, CreateAssetRequest{Name: "Bike", Status: "broken"})
	assert.ErrorIs(t, err, ErrInvalidAssetStatus)

	a, err = svc.UpdateAsset(ctx, a.ID, UpdateAssetRequest{Status: strPtr("maintenance")})
	require.NoError(t, err)
	assert.Equal(t, models.AssetMaintenance, a.Status)

	a, err = svc.RetireAsset(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, models.AssetRetired, a.Status)

	retired, err := svc.GetAssets(ctx, "retired")
	require.NoError(t, err)
	assert.Len(t, retired, 1)

	_, err = svc.RetireAsset(ctx, 99)
	assert.ErrorIs(t, err, ErrAssetNotFound)
}

func TestAuditService_RecordDefaults(t *testing.T) {
	stub := &auditStub{}
	clock := newTestClock(date(2024, 3, 5, 12, 0))
	svc := NewAuditService(stub, NewCalendar(nil, clock.Now))

	require.NoError(t, svc.Record(context.Background(), &models.AuditLog{Action: "POST /api/v1/clients", EntityType: "clients"}))
	require.Len(t, stub.entries, 1)
	assert.Equal(t, "unknown", stub.entries[0].IPAddress)
	assertInstant(t, clock.Now(), stub.entries[0].CreatedAt)
}
