package service

import (
	"context"

	"greenloop/internal/models"
	"greenloop/internal/repository"
)

type UserService struct {
	userRepo   repository.UserRepository
	ledgerRepo repository.LedgerRepository
}

type UpdateProfileInput struct {
	UserID   uint
	Username string
	Bio      string
	Avatar   string
}

type ChangeRoleInput struct {
	ActorID  uint
	TargetID uint
	Role     models.Role
}

// Profile is a user together with their derived token balance.
type Profile struct {
	User    *models.User `json:"user"`
	Balance int64        `json:"balance"`
}

func NewUserService(userRepo repository.UserRepository, ledgerRepo repository.LedgerRepository) *UserService {
	return &UserService{userRepo: userRepo, ledgerRepo: ledgerRepo}
}

func (s *UserService) ListUsers(ctx context.Context, limit, offset int) ([]models.User, error) {
	return s.userRepo.List(ctx, normalizeLimit(limit), offset)
}

func (s *UserService) GetUserByID(ctx context.Context, id uint) (*models.User, error) {
	return s.userRepo.GetByID(ctx, id)
}

// GetProfile returns a user with their approved posts and ledger balance.
func (s *UserService) GetProfile(ctx context.Context, id uint) (*Profile, error) {
	user, err := s.userRepo.GetByIDWithPosts(ctx, id, 10)
	if err != nil {
		return nil, err
	}
	balance, err := s.ledgerRepo.Balance(ctx, id)
	if err != nil {
		return nil, err
	}
	return &Profile{User: user, Balance: balance}, nil
}

func (s *UserService) UpdateProfile(ctx context.Context, in UpdateProfileInput) (*models.User, error) {
	user, err := s.userRepo.GetByID(ctx, in.UserID)
	if err != nil {
		return nil, err
	}

	const maxBioLen = 500
	const maxUsernameLen = 30

	if in.Username != "" {
		if len(in.Username) > maxUsernameLen {
			return nil, models.NewValidationError("Username too long (max 30 characters)")
		}
		user.Username = in.Username
	}
	if in.Bio != "" {
		if len(in.Bio) > maxBioLen {
			return nil, models.NewValidationError("Bio too long (max 500 characters)")
		}
		user.Bio = in.Bio
	}
	if in.Avatar != "" {
		user.Avatar = in.Avatar
	}

	if err := s.userRepo.Update(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// ChangeRole sets a user's role. Admins cannot change their own role, which
// keeps at least one admin able to undo a mistake.
func (s *UserService) ChangeRole(ctx context.Context, in ChangeRoleInput) (*models.User, error) {
	if !in.Role.Valid() {
		return nil, models.NewValidationError("Unknown role")
	}
	if in.ActorID == in.TargetID {
		return nil, models.NewValidationError("You cannot change your own role")
	}
	if err := s.userRepo.UpdateRole(ctx, in.TargetID, in.Role); err != nil {
		return nil, err
	}
	return s.userRepo.GetByID(ctx, in.TargetID)
}
