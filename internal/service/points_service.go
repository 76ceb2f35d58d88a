package service

import (
	"context"
	"strconv"
	"time"

	"greenloop/internal/models"
	"greenloop/internal/repository"
)

// PointsService owns every ledger write. Balances are always derived from the
// ledger, so any code path that changes a balance goes through here.
type PointsService struct {
	ledgerRepo  repository.LedgerRepository
	settingRepo repository.SettingRepository
	postRepo    repository.PostRepository
	itemRepo    repository.ItemRepository
	userRepo    repository.UserRepository
}

type GrantPointsInput struct {
	ActorID uint
	UserID  uint
	Delta   int64
}

type RedeemInput struct {
	UserID uint
	ItemID uint
}

func NewPointsService(
	ledgerRepo repository.LedgerRepository,
	settingRepo repository.SettingRepository,
	postRepo repository.PostRepository,
	itemRepo repository.ItemRepository,
	userRepo repository.UserRepository,
) *PointsService {
	return &PointsService{
		ledgerRepo:  ledgerRepo,
		settingRepo: settingRepo,
		postRepo:    postRepo,
		itemRepo:    itemRepo,
		userRepo:    userRepo,
	}
}

func (s *PointsService) Balance(ctx context.Context, userID uint) (int64, error) {
	if _, err := s.userRepo.GetByID(ctx, userID); err != nil {
		return 0, err
	}
	return s.ledgerRepo.Balance(ctx, userID)
}

func (s *PointsService) History(ctx context.Context, userID uint, limit, offset int) ([]models.PointEntry, error) {
	return s.ledgerRepo.History(ctx, userID, normalizeLimit(limit), offset)
}

// Grant appends an admin adjustment to the ledger. Positive deltas use the
// admin_grant reason, negative ones admin_deduct. A deduction may not take the
// balance below zero; that check runs inside the repository transaction so
// concurrent deductions cannot both pass against the same balance.
func (s *PointsService) Grant(ctx context.Context, in GrantPointsInput) (*models.PointEntry, error) {
	if in.Delta == 0 {
		return nil, models.NewValidationError("Delta must be non-zero")
	}
	if _, err := s.userRepo.GetByID(ctx, in.UserID); err != nil {
		return nil, err
	}

	entry := &models.PointEntry{
		UserID:  in.UserID,
		ActorID: &in.ActorID,
		Delta:   in.Delta,
		Reason:  models.ReasonAdminGrant,
	}
	if in.Delta < 0 {
		entry.Reason = models.ReasonAdminDeduct
		if err := s.ledgerRepo.Deduct(ctx, entry); err != nil {
			return nil, err
		}
		return entry, nil
	}
	if err := s.ledgerRepo.Append(ctx, entry); err != nil {
		return nil, err
	}
	return entry, nil
}

// Redeem exchanges tokens for a catalog item. The effective price is the
// gift_price override for the item when one is configured, otherwise the
// item's own price. Balance and stock checks happen atomically in the
// repository transaction.
func (s *PointsService) Redeem(ctx context.Context, in RedeemInput) (*models.ItemRedemption, error) {
	item, err := s.itemRepo.GetByID(ctx, in.ItemID)
	if err != nil {
		return nil, err
	}
	if !item.Available() {
		return nil, models.NewItemUnavailableError(item.ID)
	}

	price := item.Price
	snapshot, err := s.settingRepo.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	if override, ok := snapshot.GiftPrices[strconv.FormatUint(uint64(item.ID), 10)]; ok {
		price = override
	}

	redemption, err := s.ledgerRepo.Redeem(ctx, in.UserID, item.ID, price)
	if err != nil {
		return nil, err
	}
	redemption.Item = *item
	return redemption, nil
}

func (s *PointsService) Redemptions(ctx context.Context, userID uint, limit, offset int) ([]models.ItemRedemption, error) {
	return s.ledgerRepo.RedemptionsByUser(ctx, userID, normalizeLimit(limit), offset)
}

func (s *PointsService) AllRedemptions(ctx context.Context, limit, offset int) ([]models.ItemRedemption, error) {
	return s.ledgerRepo.ListRedemptions(ctx, normalizeLimit(limit), offset)
}

// AwardSignupBonus credits the configured signup bonus to a new account.
// A zero configured bonus appends nothing.
func (s *PointsService) AwardSignupBonus(ctx context.Context, userID uint) error {
	snapshot, err := s.settingRepo.Snapshot(ctx)
	if err != nil {
		return err
	}
	bonus := snapshot.ActionReward(models.ReasonSignupBonus)
	if bonus == 0 {
		return nil
	}
	return s.ledgerRepo.Append(ctx, &models.PointEntry{
		UserID: userID,
		Delta:  bonus,
		Reason: models.ReasonSignupBonus,
	})
}

// AwardForApproval credits the author of a freshly approved post. It appends
// the action reward, then a streak bonus when this approval extends the
// author's run of consecutive posting days to exactly a configured milestone.
// Only the first approved post of a day can complete a milestone, so a second
// approval on the same day never double-pays the bonus.
func (s *PointsService) AwardForApproval(ctx context.Context, post *models.Post, reviewerID uint) error {
	snapshot, err := s.settingRepo.Snapshot(ctx)
	if err != nil {
		return err
	}

	reward := snapshot.ActionReward(models.ReasonPostApproved)
	if reward != 0 {
		err = s.ledgerRepo.Append(ctx, &models.PointEntry{
			UserID:      post.UserID,
			ActorID:     &reviewerID,
			Delta:       reward,
			Reason:      models.ReasonPostApproved,
			ReferenceID: &post.ID,
		})
		if err != nil {
			return err
		}
	}

	days, err := s.postRepo.ApprovedDaysByUser(ctx, post.UserID)
	if err != nil {
		return err
	}
	streak, firstOfDay := streakEndingAt(days, post.CreatedAt)
	if !firstOfDay {
		return nil
	}
	bonus, ok := repository.MilestoneBonus(snapshot, streak)
	if !ok || bonus == 0 {
		return nil
	}
	return s.ledgerRepo.Append(ctx, &models.PointEntry{
		UserID:      post.UserID,
		ActorID:     &reviewerID,
		Delta:       bonus,
		Reason:      models.ReasonStreakBonus,
		ReferenceID: &post.ID,
	})
}

// streakEndingAt counts the consecutive run of UTC calendar days with approved
// posts ending at anchor's day. firstOfDay reports whether anchor's day holds
// a single approved post, meaning this approval is the one that extended the
// streak to its current length.
func streakEndingAt(approved []time.Time, anchor time.Time) (streak int, firstOfDay bool) {
	perDay := make(map[string]int, len(approved))
	for _, t := range approved {
		perDay[t.UTC().Format("2006-01-02")]++
	}

	day := anchor.UTC().Truncate(24 * time.Hour)
	anchorKey := day.Format("2006-01-02")
	if perDay[anchorKey] == 0 {
		// The anchor post itself may not be visible to the caller's query yet.
		perDay[anchorKey] = 1
	}
	firstOfDay = perDay[anchorKey] == 1

	for perDay[day.Format("2006-01-02")] > 0 {
		streak++
		day = day.Add(-24 * time.Hour)
	}
	return streak, firstOfDay
}

func normalizeLimit(limit int) int {
	if limit <= 0 || limit > 100 {
		return 20
	}
	return limit
}
