package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"greenloop/internal/models"
	"greenloop/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockLedgerRepository is a mock of the LedgerRepository interface
type MockLedgerRepository struct {
	mock.Mock
}

func (m *MockLedgerRepository) Append(ctx context.Context, entry *models.PointEntry) error {
	args := m.Called(ctx, entry)
	return args.Error(0)
}

func (m *MockLedgerRepository) Deduct(ctx context.Context, entry *models.PointEntry) error {
	args := m.Called(ctx, entry)
	return args.Error(0)
}

func (m *MockLedgerRepository) Balance(ctx context.Context, userID uint) (int64, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockLedgerRepository) History(ctx context.Context, userID uint, limit, offset int) ([]models.PointEntry, error) {
	args := m.Called(ctx, userID, limit, offset)
	return args.Get(0).([]models.PointEntry), args.Error(1)
}

func (m *MockLedgerRepository) Redeem(ctx context.Context, userID, itemID uint, price int64) (*models.ItemRedemption, error) {
	args := m.Called(ctx, userID, itemID, price)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.ItemRedemption), args.Error(1)
}

func (m *MockLedgerRepository) RedemptionsByUser(ctx context.Context, userID uint, limit, offset int) ([]models.ItemRedemption, error) {
	args := m.Called(ctx, userID, limit, offset)
	return args.Get(0).([]models.ItemRedemption), args.Error(1)
}

func (m *MockLedgerRepository) ListRedemptions(ctx context.Context, limit, offset int) ([]models.ItemRedemption, error) {
	args := m.Called(ctx, limit, offset)
	return args.Get(0).([]models.ItemRedemption), args.Error(1)
}

// MockItemRepository is a mock of the ItemRepository interface
type MockItemRepository struct {
	mock.Mock
}

func (m *MockItemRepository) Create(ctx context.Context, item *models.Item) error {
	args := m.Called(ctx, item)
	return args.Error(0)
}

func (m *MockItemRepository) GetByID(ctx context.Context, id uint) (*models.Item, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Item), args.Error(1)
}

func (m *MockItemRepository) List(ctx context.Context, activeOnly bool, limit, offset int) ([]models.Item, error) {
	args := m.Called(ctx, activeOnly, limit, offset)
	return args.Get(0).([]models.Item), args.Error(1)
}

func (m *MockItemRepository) Update(ctx context.Context, item *models.Item) error {
	args := m.Called(ctx, item)
	return args.Error(0)
}

func (m *MockItemRepository) SetActive(ctx context.Context, id uint, active bool) error {
	args := m.Called(ctx, id, active)
	return args.Error(0)
}

func (m *MockItemRepository) Restock(ctx context.Context, id uint, delta int) error {
	args := m.Called(ctx, id, delta)
	return args.Error(0)
}

func (m *MockItemRepository) Delete(ctx context.Context, id uint) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

// MockSettingRepository is a mock of the SettingRepository interface
type MockSettingRepository struct {
	mock.Mock
}

func (m *MockSettingRepository) Snapshot(ctx context.Context) (*models.RewardSnapshot, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.RewardSnapshot), args.Error(1)
}

func (m *MockSettingRepository) List(ctx context.Context, kind models.SettingKind) ([]models.RewardSetting, error) {
	args := m.Called(ctx, kind)
	return args.Get(0).([]models.RewardSetting), args.Error(1)
}

func (m *MockSettingRepository) Upsert(ctx context.Context, setting *models.RewardSetting) error {
	args := m.Called(ctx, setting)
	return args.Error(0)
}

func (m *MockSettingRepository) Delete(ctx context.Context, kind models.SettingKind, key string) error {
	args := m.Called(ctx, kind, key)
	return args.Error(0)
}

func newPointsTestServer(ledgerRepo *MockLedgerRepository, itemRepo *MockItemRepository, settingRepo *MockSettingRepository, userRepo *MockUserRepository) *Server {
	return &Server{
		ledgerRepo:    ledgerRepo,
		pointsService: service.NewPointsService(ledgerRepo, settingRepo, nil, itemRepo, userRepo),
	}
}

func authedApp(userID uint, role models.Role) *fiber.App {
	app := fiber.New()
	app.Use(func(c *fiber.Ctx) error {
		c.Locals("userID", userID)
		c.Locals("userRole", role)
		return c.Next()
	})
	return app
}

func TestGetMyBalance(t *testing.T) {
	ledgerRepo := new(MockLedgerRepository)
	userRepo := new(MockUserRepository)
	userRepo.On("GetByID", mock.Anything, uint(1)).Return(&models.User{ID: 1}, nil).Once()
	ledgerRepo.On("Balance", mock.Anything, uint(1)).Return(int64(120), nil).Once()

	s := newPointsTestServer(ledgerRepo, new(MockItemRepository), new(MockSettingRepository), userRepo)
	app := authedApp(1, models.RoleUser)
	app.Get("/points/balance", s.GetMyBalance)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/points/balance", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var got map[string]int64
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
	assert.Equal(t, int64(120), got["balance"])
	ledgerRepo.AssertExpectations(t)
}

func TestRedeemItem(t *testing.T) {
	tests := []struct {
		name           string
		mockSetup      func(ledgerRepo *MockLedgerRepository, itemRepo *MockItemRepository, settingRepo *MockSettingRepository)
		expectedStatus int
	}{
		{
			name: "Success At Catalog Price",
			mockSetup: func(ledgerRepo *MockLedgerRepository, itemRepo *MockItemRepository, settingRepo *MockSettingRepository) {
				itemRepo.On("GetByID", mock.Anything, uint(5)).
					Return(&models.Item{ID: 5, Name: "Tote bag", Price: 50, Stock: 3, Active: true}, nil).Once()
				settingRepo.On("Snapshot", mock.Anything).Return(&models.RewardSnapshot{}, nil).Once()
				ledgerRepo.On("Redeem", mock.Anything, uint(1), uint(5), int64(50)).
					Return(&models.ItemRedemption{UserID: 1, ItemID: 5, PointsSpent: 50}, nil).Once()
				ledgerRepo.On("Balance", mock.Anything, uint(1)).Return(int64(70), nil).Once()
			},
			expectedStatus: http.StatusOK,
		},
		{
			name: "Gift Price Override Applies",
			mockSetup: func(ledgerRepo *MockLedgerRepository, itemRepo *MockItemRepository, settingRepo *MockSettingRepository) {
				itemRepo.On("GetByID", mock.Anything, uint(5)).
					Return(&models.Item{ID: 5, Name: "Tote bag", Price: 50, Stock: 3, Active: true}, nil).Once()
				settingRepo.On("Snapshot", mock.Anything).Return(&models.RewardSnapshot{
					GiftPrices: map[string]int64{"5": 35},
				}, nil).Once()
				ledgerRepo.On("Redeem", mock.Anything, uint(1), uint(5), int64(35)).
					Return(&models.ItemRedemption{UserID: 1, ItemID: 5, PointsSpent: 35}, nil).Once()
				ledgerRepo.On("Balance", mock.Anything, uint(1)).Return(int64(85), nil).Once()
			},
			expectedStatus: http.StatusOK,
		},
		{
			name: "Insufficient Balance",
			mockSetup: func(ledgerRepo *MockLedgerRepository, itemRepo *MockItemRepository, settingRepo *MockSettingRepository) {
				itemRepo.On("GetByID", mock.Anything, uint(5)).
					Return(&models.Item{ID: 5, Name: "Tote bag", Price: 50, Stock: 3, Active: true}, nil).Once()
				settingRepo.On("Snapshot", mock.Anything).Return(&models.RewardSnapshot{}, nil).Once()
				ledgerRepo.On("Redeem", mock.Anything, uint(1), uint(5), int64(50)).
					Return(nil, models.NewInsufficientBalanceError(20, 50)).Once()
			},
			expectedStatus: http.StatusConflict,
		},
		{
			name: "Out Of Stock",
			mockSetup: func(_ *MockLedgerRepository, itemRepo *MockItemRepository, _ *MockSettingRepository) {
				itemRepo.On("GetByID", mock.Anything, uint(5)).
					Return(&models.Item{ID: 5, Name: "Tote bag", Price: 50, Stock: 0, Active: true}, nil).Once()
			},
			expectedStatus: http.StatusConflict,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ledgerRepo := new(MockLedgerRepository)
			itemRepo := new(MockItemRepository)
			settingRepo := new(MockSettingRepository)
			tt.mockSetup(ledgerRepo, itemRepo, settingRepo)

			s := newPointsTestServer(ledgerRepo, itemRepo, settingRepo, new(MockUserRepository))
			app := authedApp(1, models.RoleUser)
			app.Post("/items/:id/redeem", s.RedeemItem)

			req := httptest.NewRequest(http.MethodPost, "/items/5/redeem", nil)
			resp, err := app.Test(req)
			require.NoError(t, err)
			assert.Equal(t, tt.expectedStatus, resp.StatusCode)

			ledgerRepo.AssertExpectations(t)
			itemRepo.AssertExpectations(t)
			settingRepo.AssertExpectations(t)
		})
	}
}

func TestGrantPoints(t *testing.T) {
	ledgerRepo := new(MockLedgerRepository)
	userRepo := new(MockUserRepository)
	userRepo.On("GetByID", mock.Anything, uint(3)).Return(&models.User{ID: 3}, nil).Once()
	ledgerRepo.On("Append", mock.Anything, mock.MatchedBy(func(e *models.PointEntry) bool {
		return e.UserID == 3 && e.Delta == 40 && e.Reason == models.ReasonAdminGrant
	})).Return(nil).Once()
	ledgerRepo.On("Balance", mock.Anything, uint(3)).Return(int64(65), nil).Once()

	s := newPointsTestServer(ledgerRepo, new(MockItemRepository), new(MockSettingRepository), userRepo)
	app := authedApp(1, models.RoleAdmin)
	app.Post("/users/:id/points", s.GrantPoints)

	body, _ := json.Marshal(map[string]int64{"delta": 40})
	req := httptest.NewRequest(http.MethodPost, "/users/3/points", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	ledgerRepo.AssertExpectations(t)
	userRepo.AssertExpectations(t)
}
