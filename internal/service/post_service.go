package service

import (
	"context"
	"strings"
	"time"

	"greenloop/internal/models"
	"greenloop/internal/repository"
)

type PostService struct {
	postRepo repository.PostRepository
	// awardApproval runs after a post flips to approved. Wired to
	// PointsService.AwardForApproval in the server.
	awardApproval func(ctx context.Context, post *models.Post, reviewerID uint) error
	now           func() time.Time
}

type CreatePostInput struct {
	UserID   uint
	Title    string
	Content  string
	ImageURL string
}

type ListPostsInput struct {
	Limit         int
	Offset        int
	CurrentUserID uint
}

type ReviewPostInput struct {
	ReviewerID uint
	PostID     uint
	Status     models.PostStatus
}

type UpdatePostInput struct {
	UserID   uint
	PostID   uint
	Title    string
	Content  string
	ImageURL string
}

type DeletePostInput struct {
	UserID uint
	Role   models.Role
	PostID uint
}

func NewPostService(
	postRepo repository.PostRepository,
	awardApproval func(ctx context.Context, post *models.Post, reviewerID uint) error,
) *PostService {
	return &PostService{
		postRepo:      postRepo,
		awardApproval: awardApproval,
		now:           time.Now,
	}
}

const (
	maxPostTitleLen   = 200
	maxPostContentLen = 5000
)

// CreatePost submits a new eco-action post. Every post enters the moderation
// queue as pending regardless of who submits it.
func (s *PostService) CreatePost(ctx context.Context, in CreatePostInput) (*models.Post, error) {
	title := strings.TrimSpace(in.Title)
	content := strings.TrimSpace(in.Content)
	if title == "" {
		return nil, models.NewValidationError("Title is required")
	}
	if len(title) > maxPostTitleLen {
		return nil, models.NewValidationError("Title too long (max 200 characters)")
	}
	if content == "" {
		return nil, models.NewValidationError("Content is required")
	}
	if len(content) > maxPostContentLen {
		return nil, models.NewValidationError("Content too long (max 5000 characters)")
	}

	post := &models.Post{
		UserID:   in.UserID,
		Title:    title,
		Content:  content,
		ImageURL: in.ImageURL,
		Status:   models.PostStatusPending,
	}
	if err := s.postRepo.Create(ctx, post); err != nil {
		return nil, err
	}
	return post, nil
}

// GetPost returns a post. Unreviewed and rejected posts are visible only to
// their author and to moderators; everyone else gets not-found rather than a
// hint that the post exists.
func (s *PostService) GetPost(ctx context.Context, postID, currentUserID uint, role models.Role) (*models.Post, error) {
	post, err := s.postRepo.GetByID(ctx, postID, currentUserID)
	if err != nil {
		return nil, err
	}
	if post.Status != models.PostStatusApproved && post.UserID != currentUserID && !role.Can(models.CapModeratePosts) {
		return nil, models.NewNotFoundError("Post", postID)
	}
	return post, nil
}

// ListFeed returns the public feed of approved posts, newest first.
func (s *PostService) ListFeed(ctx context.Context, in ListPostsInput) ([]*models.Post, error) {
	return s.postRepo.List(ctx, models.PostStatusApproved, normalizeLimit(in.Limit), in.Offset, in.CurrentUserID)
}

// ListPending returns the moderation queue, oldest submissions first handled
// by the repository ordering.
func (s *PostService) ListPending(ctx context.Context, in ListPostsInput) ([]*models.Post, error) {
	return s.postRepo.List(ctx, models.PostStatusPending, normalizeLimit(in.Limit), in.Offset, in.CurrentUserID)
}

func (s *PostService) SearchPosts(ctx context.Context, query string, limit, offset int, currentUserID uint) ([]*models.Post, error) {
	if strings.TrimSpace(query) == "" {
		return nil, models.NewValidationError("Search query is required")
	}
	return s.postRepo.Search(ctx, query, normalizeLimit(limit), offset, currentUserID)
}

// GetUserPosts returns a user's posts. Viewers other than the author see only
// the approved ones unless they can moderate.
func (s *PostService) GetUserPosts(ctx context.Context, userID uint, limit, offset int, currentUserID uint, role models.Role) ([]*models.Post, error) {
	posts, err := s.postRepo.GetByUserID(ctx, userID, normalizeLimit(limit), offset, currentUserID)
	if err != nil {
		return nil, err
	}
	if userID == currentUserID || role.Can(models.CapModeratePosts) {
		return posts, nil
	}
	visible := make([]*models.Post, 0, len(posts))
	for _, p := range posts {
		if p.Status == models.PostStatusApproved {
			visible = append(visible, p)
		}
	}
	return visible, nil
}

// Review moves a pending post to approved or rejected. The transition is
// one-way and happens at most once; the repository rejects a second review
// with a conflict. Approval triggers the points award for the author.
func (s *PostService) Review(ctx context.Context, in ReviewPostInput) (*models.Post, error) {
	if in.Status != models.PostStatusApproved && in.Status != models.PostStatusRejected {
		return nil, models.NewValidationError("Status must be approved or rejected")
	}

	if err := s.postRepo.Review(ctx, in.PostID, in.Status, in.ReviewerID, s.now()); err != nil {
		return nil, err
	}
	post, err := s.postRepo.GetByID(ctx, in.PostID, in.ReviewerID)
	if err != nil {
		return nil, err
	}

	if in.Status == models.PostStatusApproved && s.awardApproval != nil {
		if err := s.awardApproval(ctx, post, in.ReviewerID); err != nil {
			return nil, err
		}
	}
	return post, nil
}

// UpdatePost edits a post's content. Only the author may edit, and only while
// the post is still pending; edits after review would bypass moderation.
func (s *PostService) UpdatePost(ctx context.Context, in UpdatePostInput) (*models.Post, error) {
	post, err := s.postRepo.GetByID(ctx, in.PostID, in.UserID)
	if err != nil {
		return nil, err
	}
	if post.UserID != in.UserID {
		return nil, models.NewForbiddenError("You can only edit your own posts")
	}
	if post.Status.Terminal() {
		return nil, models.NewConflictError("Reviewed posts can no longer be edited")
	}

	if title := strings.TrimSpace(in.Title); title != "" {
		if len(title) > maxPostTitleLen {
			return nil, models.NewValidationError("Title too long (max 200 characters)")
		}
		post.Title = title
	}
	if content := strings.TrimSpace(in.Content); content != "" {
		if len(content) > maxPostContentLen {
			return nil, models.NewValidationError("Content too long (max 5000 characters)")
		}
		post.Content = content
	}
	if in.ImageURL != "" {
		post.ImageURL = in.ImageURL
	}

	if err := s.postRepo.Update(ctx, post); err != nil {
		return nil, err
	}
	return post, nil
}

func (s *PostService) DeletePost(ctx context.Context, in DeletePostInput) error {
	post, err := s.postRepo.GetByID(ctx, in.PostID, in.UserID)
	if err != nil {
		return err
	}
	if post.UserID != in.UserID && !in.Role.Can(models.CapDeleteAnyPost) {
		return models.NewForbiddenError("You can only delete your own posts")
	}
	return s.postRepo.Delete(ctx, in.PostID)
}

// ToggleLike flips the caller's like on an approved post and returns the new
// state. Liking twice is harmless; the repository insert is idempotent.
func (s *PostService) ToggleLike(ctx context.Context, userID, postID uint) (bool, error) {
	post, err := s.postRepo.GetByID(ctx, postID, userID)
	if err != nil {
		return false, err
	}
	if post.Status != models.PostStatusApproved {
		return false, models.NewNotFoundError("Post", postID)
	}

	liked, err := s.postRepo.IsLiked(ctx, userID, postID)
	if err != nil {
		return false, err
	}
	if liked {
		if err := s.postRepo.Unlike(ctx, userID, postID); err != nil {
			return false, err
		}
		return false, nil
	}
	if err := s.postRepo.Like(ctx, userID, postID); err != nil {
		return false, err
	}
	return true, nil
}

// ListLikers returns the users who liked an approved post, most recent first.
func (s *PostService) ListLikers(ctx context.Context, postID, currentUserID uint) ([]models.User, error) {
	post, err := s.postRepo.GetByID(ctx, postID, currentUserID)
	if err != nil {
		return nil, err
	}
	if post.Status != models.PostStatusApproved {
		return nil, models.NewNotFoundError("Post", postID)
	}
	return s.postRepo.Likers(ctx, postID)
}
