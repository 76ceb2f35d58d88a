package repository

import (
	"context"
	"errors"
	"time"

	"greenloop/internal/models"

	"gorm.io/gorm"
)

// StoryRepository defines persistence operations for stories. Expired stories
// are filtered at read time; rows are kept until deleted by their author.
type StoryRepository interface {
	Create(ctx context.Context, story *models.Story) error
	GetByID(ctx context.Context, id uint) (*models.Story, error)
	ListActive(ctx context.Context, now time.Time, limit, offset int) ([]*models.Story, error)
	ListActiveByUser(ctx context.Context, userID uint, now time.Time) ([]*models.Story, error)
	RecordView(ctx context.Context, storyID, viewerID uint) error
	Viewers(ctx context.Context, storyID uint) ([]models.StoryView, error)
	Delete(ctx context.Context, id uint) error
}

type storyRepository struct {
	db *gorm.DB
}

// NewStoryRepository returns a StoryRepository implementation.
func NewStoryRepository(db *gorm.DB) StoryRepository {
	return &storyRepository{db: db}
}

func (r *storyRepository) Create(ctx context.Context, story *models.Story) error {
	return r.db.WithContext(ctx).Create(story).Error
}

func (r *storyRepository) GetByID(ctx context.Context, id uint) (*models.Story, error) {
	var story models.Story
	err := r.applyViewCount(r.db.WithContext(ctx)).
		Preload("User").
		First(&story, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("Story", id)
		}
		return nil, models.NewInternalError(err)
	}
	return &story, nil
}

func (r *storyRepository) ListActive(ctx context.Context, now time.Time, limit, offset int) ([]*models.Story, error) {
	var stories []*models.Story
	err := r.applyViewCount(r.db.WithContext(ctx)).
		Preload("User").
		Where("created_at > ?", now.Add(-models.StoryWindow)).
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&stories).Error
	return stories, err
}

func (r *storyRepository) ListActiveByUser(ctx context.Context, userID uint, now time.Time) ([]*models.Story, error) {
	var stories []*models.Story
	err := r.applyViewCount(r.db.WithContext(ctx)).
		Preload("User").
		Where("user_id = ? AND created_at > ?", userID, now.Add(-models.StoryWindow)).
		Order("created_at DESC").
		Find(&stories).Error
	return stories, err
}

// RecordView is idempotent: a repeat view by the same viewer is a no-op.
func (r *storyRepository) RecordView(ctx context.Context, storyID, viewerID uint) error {
	return r.db.WithContext(ctx).Exec(
		`INSERT INTO story_views (story_id, viewer_id, viewed_at)
		 VALUES (?, ?, NOW())
		 ON CONFLICT (story_id, viewer_id) DO NOTHING`,
		storyID, viewerID,
	).Error
}

func (r *storyRepository) Viewers(ctx context.Context, storyID uint) ([]models.StoryView, error) {
	var views []models.StoryView
	err := r.db.WithContext(ctx).
		Preload("Viewer").
		Where("story_id = ?", storyID).
		Order("viewed_at ASC").
		Find(&views).Error
	return views, err
}

func (r *storyRepository) Delete(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Delete(&models.Story{}, id).Error
}

func (r *storyRepository) applyViewCount(db *gorm.DB) *gorm.DB {
	return db.Select("stories.*, (SELECT COUNT(*) FROM story_views WHERE story_views.story_id = stories.id) as views_count")
}
