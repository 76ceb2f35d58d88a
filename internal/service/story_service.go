package service

import (
	"context"
	"strings"
	"time"

	"greenloop/internal/models"
	"greenloop/internal/repository"
)

// StoryService handles ephemeral stories. Expiry is enforced here at read
// time against an injected clock; expired rows simply stop being returned.
type StoryService struct {
	storyRepo repository.StoryRepository
	now       func() time.Time
}

type CreateStoryInput struct {
	UserID   uint
	Content  string
	ImageURL string
}

func NewStoryService(storyRepo repository.StoryRepository) *StoryService {
	return &StoryService{storyRepo: storyRepo, now: time.Now}
}

const maxStoryContentLen = 500

func (s *StoryService) CreateStory(ctx context.Context, in CreateStoryInput) (*models.Story, error) {
	content := strings.TrimSpace(in.Content)
	if content == "" && in.ImageURL == "" {
		return nil, models.NewValidationError("Story needs content or an image")
	}
	if len(content) > maxStoryContentLen {
		return nil, models.NewValidationError("Story too long (max 500 characters)")
	}

	story := &models.Story{
		UserID:   in.UserID,
		Content:  content,
		ImageURL: in.ImageURL,
	}
	if err := s.storyRepo.Create(ctx, story); err != nil {
		return nil, err
	}
	return story, nil
}

func (s *StoryService) ListActive(ctx context.Context, limit, offset int) ([]*models.Story, error) {
	return s.storyRepo.ListActive(ctx, s.now(), normalizeLimit(limit), offset)
}

func (s *StoryService) ListUserStories(ctx context.Context, userID uint) ([]*models.Story, error) {
	return s.storyRepo.ListActiveByUser(ctx, userID, s.now())
}

// GetStory returns an active story. An expired story is indistinguishable
// from a missing one.
func (s *StoryService) GetStory(ctx context.Context, storyID uint) (*models.Story, error) {
	story, err := s.storyRepo.GetByID(ctx, storyID)
	if err != nil {
		return nil, err
	}
	if !story.ActiveAt(s.now()) {
		return nil, models.NewNotFoundError("Story", storyID)
	}
	return story, nil
}

// ViewStory records that viewerID saw the story. Repeat views are no-ops, and
// authors viewing their own story are not counted.
func (s *StoryService) ViewStory(ctx context.Context, storyID, viewerID uint) (*models.Story, error) {
	story, err := s.GetStory(ctx, storyID)
	if err != nil {
		return nil, err
	}
	if story.UserID != viewerID {
		if err := s.storyRepo.RecordView(ctx, storyID, viewerID); err != nil {
			return nil, err
		}
	}
	return story, nil
}

// Viewers lists who saw a story. Only the author may ask.
func (s *StoryService) Viewers(ctx context.Context, storyID, currentUserID uint) ([]models.StoryView, error) {
	story, err := s.storyRepo.GetByID(ctx, storyID)
	if err != nil {
		return nil, err
	}
	if story.UserID != currentUserID {
		return nil, models.NewForbiddenError("Only the author can see story viewers")
	}
	return s.storyRepo.Viewers(ctx, storyID)
}

func (s *StoryService) DeleteStory(ctx context.Context, storyID, currentUserID uint, role models.Role) error {
	story, err := s.storyRepo.GetByID(ctx, storyID)
	if err != nil {
		return err
	}
	if story.UserID != currentUserID && !role.Can(models.CapDeleteAnyPost) {
		return models.NewForbiddenError("You can only delete your own stories")
	}
	return s.storyRepo.Delete(ctx, storyID)
}
