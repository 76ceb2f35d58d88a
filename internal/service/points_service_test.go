package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"greenloop/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ledgerRepoStub is a stub for repository.LedgerRepository.
type ledgerRepoStub struct {
	appendFn            func(context.Context, *models.PointEntry) error
	deductFn            func(context.Context, *models.PointEntry) error
	balanceFn           func(context.Context, uint) (int64, error)
	historyFn           func(context.Context, uint, int, int) ([]models.PointEntry, error)
	redeemFn            func(context.Context, uint, uint, int64) (*models.ItemRedemption, error)
	redemptionsByUserFn func(context.Context, uint, int, int) ([]models.ItemRedemption, error)
	listRedemptionsFn   func(context.Context, int, int) ([]models.ItemRedemption, error)
}

func (s *ledgerRepoStub) Append(ctx context.Context, entry *models.PointEntry) error {
	return s.appendFn(ctx, entry)
}
func (s *ledgerRepoStub) Deduct(ctx context.Context, entry *models.PointEntry) error {
	return s.deductFn(ctx, entry)
}
func (s *ledgerRepoStub) Balance(ctx context.Context, userID uint) (int64, error) {
	return s.balanceFn(ctx, userID)
}
func (s *ledgerRepoStub) History(ctx context.Context, userID uint, limit, offset int) ([]models.PointEntry, error) {
	return s.historyFn(ctx, userID, limit, offset)
}
func (s *ledgerRepoStub) Redeem(ctx context.Context, userID, itemID uint, price int64) (*models.ItemRedemption, error) {
	return s.redeemFn(ctx, userID, itemID, price)
}
func (s *ledgerRepoStub) RedemptionsByUser(ctx context.Context, userID uint, limit, offset int) ([]models.ItemRedemption, error) {
	return s.redemptionsByUserFn(ctx, userID, limit, offset)
}
func (s *ledgerRepoStub) ListRedemptions(ctx context.Context, limit, offset int) ([]models.ItemRedemption, error) {
	return s.listRedemptionsFn(ctx, limit, offset)
}

func noopLedgerRepo() *ledgerRepoStub {
	return &ledgerRepoStub{
		appendFn:  func(_ context.Context, _ *models.PointEntry) error { return nil },
		deductFn:  func(_ context.Context, _ *models.PointEntry) error { return nil },
		balanceFn: func(_ context.Context, _ uint) (int64, error) { return 0, nil },
		historyFn: func(_ context.Context, _ uint, _, _ int) ([]models.PointEntry, error) { return nil, nil },
		redeemFn: func(_ context.Context, userID, itemID uint, price int64) (*models.ItemRedemption, error) {
			return &models.ItemRedemption{UserID: userID, ItemID: itemID, PointsSpent: price}, nil
		},
		redemptionsByUserFn: func(_ context.Context, _ uint, _, _ int) ([]models.ItemRedemption, error) {
			return nil, nil
		},
		listRedemptionsFn: func(_ context.Context, _, _ int) ([]models.ItemRedemption, error) { return nil, nil },
	}
}

// settingRepoStub is a stub for repository.SettingRepository.
type settingRepoStub struct {
	snapshotFn func(context.Context) (*models.RewardSnapshot, error)
	listFn     func(context.Context, models.SettingKind) ([]models.RewardSetting, error)
	upsertFn   func(context.Context, *models.RewardSetting) error
	deleteFn   func(context.Context, models.SettingKind, string) error
}

func (s *settingRepoStub) Snapshot(ctx context.Context) (*models.RewardSnapshot, error) {
	return s.snapshotFn(ctx)
}
func (s *settingRepoStub) List(ctx context.Context, kind models.SettingKind) ([]models.RewardSetting, error) {
	return s.listFn(ctx, kind)
}
func (s *settingRepoStub) Upsert(ctx context.Context, setting *models.RewardSetting) error {
	return s.upsertFn(ctx, setting)
}
func (s *settingRepoStub) Delete(ctx context.Context, kind models.SettingKind, key string) error {
	return s.deleteFn(ctx, kind, key)
}

func noopSettingRepo() *settingRepoStub {
	return &settingRepoStub{
		snapshotFn: func(_ context.Context) (*models.RewardSnapshot, error) {
			return &models.RewardSnapshot{
				GiftPrices:       map[string]int64{},
				StreakMilestones: map[string]int64{},
				ActionRewards:    map[string]int64{},
				DefaultReward:    10,
			}, nil
		},
		listFn:   func(_ context.Context, _ models.SettingKind) ([]models.RewardSetting, error) { return nil, nil },
		upsertFn: func(_ context.Context, _ *models.RewardSetting) error { return nil },
		deleteFn: func(_ context.Context, _ models.SettingKind, _ string) error { return nil },
	}
}

// itemRepoStub is a stub for repository.ItemRepository.
type itemRepoStub struct {
	createFn    func(context.Context, *models.Item) error
	getByIDFn   func(context.Context, uint) (*models.Item, error)
	listFn      func(context.Context, bool, int, int) ([]models.Item, error)
	updateFn    func(context.Context, *models.Item) error
	setActiveFn func(context.Context, uint, bool) error
	restockFn   func(context.Context, uint, int) error
	deleteFn    func(context.Context, uint) error
}

func (s *itemRepoStub) Create(ctx context.Context, item *models.Item) error {
	return s.createFn(ctx, item)
}
func (s *itemRepoStub) GetByID(ctx context.Context, id uint) (*models.Item, error) {
	return s.getByIDFn(ctx, id)
}
func (s *itemRepoStub) List(ctx context.Context, activeOnly bool, limit, offset int) ([]models.Item, error) {
	return s.listFn(ctx, activeOnly, limit, offset)
}
func (s *itemRepoStub) Update(ctx context.Context, item *models.Item) error {
	return s.updateFn(ctx, item)
}
func (s *itemRepoStub) SetActive(ctx context.Context, id uint, active bool) error {
	return s.setActiveFn(ctx, id, active)
}
func (s *itemRepoStub) Restock(ctx context.Context, id uint, delta int) error {
	return s.restockFn(ctx, id, delta)
}
func (s *itemRepoStub) Delete(ctx context.Context, id uint) error {
	return s.deleteFn(ctx, id)
}

func noopItemRepo() *itemRepoStub {
	return &itemRepoStub{
		createFn: func(_ context.Context, _ *models.Item) error { return nil },
		getByIDFn: func(_ context.Context, id uint) (*models.Item, error) {
			return &models.Item{ID: id, Name: "Tote bag", Price: 50, Stock: 3, Active: true}, nil
		},
		listFn:      func(_ context.Context, _ bool, _, _ int) ([]models.Item, error) { return nil, nil },
		updateFn:    func(_ context.Context, _ *models.Item) error { return nil },
		setActiveFn: func(_ context.Context, _ uint, _ bool) error { return nil },
		restockFn:   func(_ context.Context, _ uint, _ int) error { return nil },
		deleteFn:    func(_ context.Context, _ uint) error { return nil },
	}
}

// userRepoStub is a stub for repository.UserRepository.
type userRepoStub struct {
	getByIDFn          func(context.Context, uint) (*models.User, error)
	getByIDWithPostsFn func(context.Context, uint, int) (*models.User, error)
	getByEmailFn       func(context.Context, string) (*models.User, error)
	getByUsernameFn    func(context.Context, string) (*models.User, error)
	createFn           func(context.Context, *models.User) error
	updateFn           func(context.Context, *models.User) error
	updateRoleFn       func(context.Context, uint, models.Role) error
	deleteFn           func(context.Context, uint) error
	listFn             func(context.Context, int, int) ([]models.User, error)
}

func (s *userRepoStub) GetByID(ctx context.Context, id uint) (*models.User, error) {
	return s.getByIDFn(ctx, id)
}
func (s *userRepoStub) GetByIDWithPosts(ctx context.Context, id uint, limit int) (*models.User, error) {
	return s.getByIDWithPostsFn(ctx, id, limit)
}
func (s *userRepoStub) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return s.getByEmailFn(ctx, email)
}
func (s *userRepoStub) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	return s.getByUsernameFn(ctx, username)
}
func (s *userRepoStub) Create(ctx context.Context, user *models.User) error {
	return s.createFn(ctx, user)
}
func (s *userRepoStub) Update(ctx context.Context, user *models.User) error {
	return s.updateFn(ctx, user)
}
func (s *userRepoStub) UpdateRole(ctx context.Context, id uint, role models.Role) error {
	return s.updateRoleFn(ctx, id, role)
}
func (s *userRepoStub) Delete(ctx context.Context, id uint) error {
	return s.deleteFn(ctx, id)
}
func (s *userRepoStub) List(ctx context.Context, limit, offset int) ([]models.User, error) {
	return s.listFn(ctx, limit, offset)
}

func noopUserRepo() *userRepoStub {
	return &userRepoStub{
		getByIDFn: func(_ context.Context, id uint) (*models.User, error) {
			return &models.User{ID: id, Username: "alice", Role: models.RoleUser}, nil
		},
		getByIDWithPostsFn: func(_ context.Context, id uint, _ int) (*models.User, error) {
			return &models.User{ID: id, Username: "alice", Role: models.RoleUser}, nil
		},
		getByEmailFn:    func(_ context.Context, _ string) (*models.User, error) { return nil, nil },
		getByUsernameFn: func(_ context.Context, _ string) (*models.User, error) { return nil, nil },
		createFn:        func(_ context.Context, _ *models.User) error { return nil },
		updateFn:        func(_ context.Context, _ *models.User) error { return nil },
		updateRoleFn:    func(_ context.Context, _ uint, _ models.Role) error { return nil },
		deleteFn:        func(_ context.Context, _ uint) error { return nil },
		listFn:          func(_ context.Context, _, _ int) ([]models.User, error) { return nil, nil },
	}
}

func newPointsService(ledger *ledgerRepoStub, settings *settingRepoStub, posts *postRepoStub, items *itemRepoStub) *PointsService {
	return NewPointsService(ledger, settings, posts, items, noopUserRepo())
}

func TestPointsService_Grant(t *testing.T) {
	t.Parallel()

	t.Run("Zero Delta Rejected", func(t *testing.T) {
		svc := newPointsService(noopLedgerRepo(), noopSettingRepo(), noopPostRepo(), noopItemRepo())
		_, err := svc.Grant(context.Background(), GrantPointsInput{ActorID: 1, UserID: 2, Delta: 0})
		assertValidationError(t, err)
	})

	t.Run("Positive Delta Uses Grant Reason", func(t *testing.T) {
		ledger := noopLedgerRepo()
		var appended *models.PointEntry
		ledger.appendFn = func(_ context.Context, e *models.PointEntry) error {
			appended = e
			return nil
		}
		svc := newPointsService(ledger, noopSettingRepo(), noopPostRepo(), noopItemRepo())

		entry, err := svc.Grant(context.Background(), GrantPointsInput{ActorID: 1, UserID: 2, Delta: 50})
		require.NoError(t, err)
		require.NotNil(t, appended)
		assert.Equal(t, models.ReasonAdminGrant, entry.Reason)
		require.NotNil(t, entry.ActorID)
		assert.Equal(t, uint(1), *entry.ActorID)
	})

	t.Run("Deduction Cannot Overdraw", func(t *testing.T) {
		ledger := noopLedgerRepo()
		ledger.deductFn = func(_ context.Context, e *models.PointEntry) error {
			return models.NewInsufficientBalanceError(30, -e.Delta)
		}
		svc := newPointsService(ledger, noopSettingRepo(), noopPostRepo(), noopItemRepo())

		_, err := svc.Grant(context.Background(), GrantPointsInput{ActorID: 1, UserID: 2, Delta: -40})
		assertErrorCode(t, err, "INSUFFICIENT_BALANCE")
	})

	t.Run("Deduction Within Balance Uses Deduct Reason", func(t *testing.T) {
		ledger := noopLedgerRepo()
		var deducted *models.PointEntry
		ledger.deductFn = func(_ context.Context, e *models.PointEntry) error {
			deducted = e
			return nil
		}
		ledger.appendFn = func(_ context.Context, _ *models.PointEntry) error {
			t.Fatal("deductions must not use the unchecked append path")
			return nil
		}
		svc := newPointsService(ledger, noopSettingRepo(), noopPostRepo(), noopItemRepo())

		entry, err := svc.Grant(context.Background(), GrantPointsInput{ActorID: 1, UserID: 2, Delta: -30})
		require.NoError(t, err)
		require.NotNil(t, deducted)
		assert.Equal(t, models.ReasonAdminDeduct, entry.Reason)
	})

	// Two deductions that are each affordable alone but not together must
	// resolve to exactly one append. The stub applies the balance check and
	// the append as one atomic step, as the repository transaction does.
	t.Run("Concurrent Deductions Overdraw At Most Once", func(t *testing.T) {
		ledger := noopLedgerRepo()
		var mu sync.Mutex
		balance := int64(100)
		ledger.deductFn = func(_ context.Context, e *models.PointEntry) error {
			mu.Lock()
			defer mu.Unlock()
			if balance+e.Delta < 0 {
				return models.NewInsufficientBalanceError(balance, -e.Delta)
			}
			balance += e.Delta
			return nil
		}
		ledger.balanceFn = func(_ context.Context, _ uint) (int64, error) {
			mu.Lock()
			defer mu.Unlock()
			return balance, nil
		}
		svc := newPointsService(ledger, noopSettingRepo(), noopPostRepo(), noopItemRepo())

		start := make(chan struct{})
		errs := make(chan error, 2)
		for i := 0; i < 2; i++ {
			go func() {
				<-start
				_, err := svc.Grant(context.Background(), GrantPointsInput{ActorID: 1, UserID: 2, Delta: -100})
				errs <- err
			}()
		}
		close(start)

		var succeeded, refused int
		for i := 0; i < 2; i++ {
			if err := <-errs; err == nil {
				succeeded++
			} else {
				assertErrorCode(t, err, "INSUFFICIENT_BALANCE")
				refused++
			}
		}
		assert.Equal(t, 1, succeeded)
		assert.Equal(t, 1, refused)
		assert.Equal(t, int64(0), balance)
	})
}

func TestPointsService_Redeem(t *testing.T) {
	t.Parallel()

	t.Run("Uses Item Price By Default", func(t *testing.T) {
		ledger := noopLedgerRepo()
		var priceUsed int64
		ledger.redeemFn = func(_ context.Context, userID, itemID uint, price int64) (*models.ItemRedemption, error) {
			priceUsed = price
			return &models.ItemRedemption{UserID: userID, ItemID: itemID, PointsSpent: price}, nil
		}
		svc := newPointsService(ledger, noopSettingRepo(), noopPostRepo(), noopItemRepo())

		redemption, err := svc.Redeem(context.Background(), RedeemInput{UserID: 1, ItemID: 5})
		require.NoError(t, err)
		assert.Equal(t, int64(50), priceUsed)
		assert.Equal(t, "Tote bag", redemption.Item.Name)
	})

	t.Run("Gift Price Override Wins", func(t *testing.T) {
		ledger := noopLedgerRepo()
		var priceUsed int64
		ledger.redeemFn = func(_ context.Context, userID, itemID uint, price int64) (*models.ItemRedemption, error) {
			priceUsed = price
			return &models.ItemRedemption{UserID: userID, ItemID: itemID, PointsSpent: price}, nil
		}
		settings := noopSettingRepo()
		settings.snapshotFn = func(_ context.Context) (*models.RewardSnapshot, error) {
			return &models.RewardSnapshot{GiftPrices: map[string]int64{"5": 35}}, nil
		}
		svc := newPointsService(ledger, settings, noopPostRepo(), noopItemRepo())

		_, err := svc.Redeem(context.Background(), RedeemInput{UserID: 1, ItemID: 5})
		require.NoError(t, err)
		assert.Equal(t, int64(35), priceUsed)
	})

	t.Run("Inactive Item Unavailable", func(t *testing.T) {
		items := noopItemRepo()
		items.getByIDFn = func(_ context.Context, id uint) (*models.Item, error) {
			return &models.Item{ID: id, Price: 50, Stock: 3, Active: false}, nil
		}
		svc := newPointsService(noopLedgerRepo(), noopSettingRepo(), noopPostRepo(), items)

		_, err := svc.Redeem(context.Background(), RedeemInput{UserID: 1, ItemID: 5})
		assertErrorCode(t, err, "ITEM_UNAVAILABLE")
	})
}

func TestPointsService_AwardSignupBonus(t *testing.T) {
	t.Parallel()

	t.Run("Appends Configured Bonus", func(t *testing.T) {
		ledger := noopLedgerRepo()
		var appended *models.PointEntry
		ledger.appendFn = func(_ context.Context, e *models.PointEntry) error {
			appended = e
			return nil
		}
		settings := noopSettingRepo()
		settings.snapshotFn = func(_ context.Context) (*models.RewardSnapshot, error) {
			return &models.RewardSnapshot{ActionRewards: map[string]int64{models.ReasonSignupBonus: 25}}, nil
		}
		svc := newPointsService(ledger, settings, noopPostRepo(), noopItemRepo())

		require.NoError(t, svc.AwardSignupBonus(context.Background(), 9))
		require.NotNil(t, appended)
		assert.Equal(t, int64(25), appended.Delta)
		assert.Equal(t, models.ReasonSignupBonus, appended.Reason)
	})

	t.Run("Zero Bonus Appends Nothing", func(t *testing.T) {
		ledger := noopLedgerRepo()
		ledger.appendFn = func(_ context.Context, _ *models.PointEntry) error {
			t.Fatal("unexpected ledger append")
			return nil
		}
		settings := noopSettingRepo()
		settings.snapshotFn = func(_ context.Context) (*models.RewardSnapshot, error) {
			return &models.RewardSnapshot{ActionRewards: map[string]int64{models.ReasonSignupBonus: 0}}, nil
		}
		svc := newPointsService(ledger, settings, noopPostRepo(), noopItemRepo())

		assert.NoError(t, svc.AwardSignupBonus(context.Background(), 9))
	})
}

func TestPointsService_AwardForApproval(t *testing.T) {
	t.Parallel()

	day := func(offset int) time.Time {
		return time.Date(2025, 6, 10, 12, 0, 0, 0, time.UTC).AddDate(0, 0, offset)
	}

	snapshotWithMilestones := func() *settingRepoStub {
		settings := noopSettingRepo()
		settings.snapshotFn = func(_ context.Context) (*models.RewardSnapshot, error) {
			return &models.RewardSnapshot{
				ActionRewards:    map[string]int64{models.ReasonPostApproved: 10},
				StreakMilestones: map[string]int64{"3": 15},
			}, nil
		}
		return settings
	}

	t.Run("Milestone Streak Pays Bonus", func(t *testing.T) {
		posts := noopPostRepo()
		posts.approvedDaysByUserFn = func(_ context.Context, _ uint) ([]time.Time, error) {
			return []time.Time{day(-2), day(-1), day(0)}, nil
		}
		ledger := noopLedgerRepo()
		var entries []*models.PointEntry
		ledger.appendFn = func(_ context.Context, e *models.PointEntry) error {
			entries = append(entries, e)
			return nil
		}
		svc := newPointsService(ledger, snapshotWithMilestones(), posts, noopItemRepo())

		post := &models.Post{ID: 4, UserID: 7, CreatedAt: day(0)}
		require.NoError(t, svc.AwardForApproval(context.Background(), post, 42))

		require.Len(t, entries, 2)
		assert.Equal(t, models.ReasonPostApproved, entries[0].Reason)
		assert.Equal(t, int64(10), entries[0].Delta)
		assert.Equal(t, models.ReasonStreakBonus, entries[1].Reason)
		assert.Equal(t, int64(15), entries[1].Delta)
		require.NotNil(t, entries[1].ReferenceID)
		assert.Equal(t, uint(4), *entries[1].ReferenceID)
	})

	t.Run("Broken Streak Pays No Bonus", func(t *testing.T) {
		posts := noopPostRepo()
		posts.approvedDaysByUserFn = func(_ context.Context, _ uint) ([]time.Time, error) {
			return []time.Time{day(-3), day(-2), day(0)}, nil
		}
		ledger := noopLedgerRepo()
		var entries []*models.PointEntry
		ledger.appendFn = func(_ context.Context, e *models.PointEntry) error {
			entries = append(entries, e)
			return nil
		}
		svc := newPointsService(ledger, snapshotWithMilestones(), posts, noopItemRepo())

		post := &models.Post{ID: 4, UserID: 7, CreatedAt: day(0)}
		require.NoError(t, svc.AwardForApproval(context.Background(), post, 42))

		require.Len(t, entries, 1)
		assert.Equal(t, models.ReasonPostApproved, entries[0].Reason)
	})

	t.Run("Second Approval Same Day No Double Bonus", func(t *testing.T) {
		posts := noopPostRepo()
		posts.approvedDaysByUserFn = func(_ context.Context, _ uint) ([]time.Time, error) {
			// Two approved posts on the anchor day
			return []time.Time{day(-2), day(-1), day(0), day(0)}, nil
		}
		ledger := noopLedgerRepo()
		var entries []*models.PointEntry
		ledger.appendFn = func(_ context.Context, e *models.PointEntry) error {
			entries = append(entries, e)
			return nil
		}
		svc := newPointsService(ledger, snapshotWithMilestones(), posts, noopItemRepo())

		post := &models.Post{ID: 5, UserID: 7, CreatedAt: day(0)}
		require.NoError(t, svc.AwardForApproval(context.Background(), post, 42))

		require.Len(t, entries, 1)
		assert.Equal(t, models.ReasonPostApproved, entries[0].Reason)
	})
}

func TestStreakEndingAt(t *testing.T) {
	t.Parallel()

	base := time.Date(2025, 6, 10, 8, 30, 0, 0, time.UTC)
	days := func(offsets ...int) []time.Time {
		out := make([]time.Time, 0, len(offsets))
		for _, o := range offsets {
			out = append(out, base.AddDate(0, 0, o))
		}
		return out
	}

	cases := []struct {
		name       string
		approved   []time.Time
		streak     int
		firstOfDay bool
	}{
		{"Single Day", days(0), 1, true},
		{"Three Consecutive", days(-2, -1, 0), 3, true},
		{"Gap Resets", days(-4, -3, -1, 0), 2, true},
		{"Anchor Missing From Query", days(-1), 2, true},
		{"Two Posts Same Day", days(-1, 0, 0), 2, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			streak, firstOfDay := streakEndingAt(tc.approved, base)
			assert.Equal(t, tc.streak, streak)
			assert.Equal(t, tc.firstOfDay, firstOfDay)
		})
	}
}
