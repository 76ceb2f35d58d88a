package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"greenloop/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// postRepoStub is a stub for repository.PostRepository.
type postRepoStub struct {
	createFn             func(context.Context, *models.Post) error
	getByIDFn            func(context.Context, uint, uint) (*models.Post, error)
	getByUserIDFn        func(context.Context, uint, int, int, uint) ([]*models.Post, error)
	listFn               func(context.Context, models.PostStatus, int, int, uint) ([]*models.Post, error)
	searchFn             func(context.Context, string, int, int, uint) ([]*models.Post, error)
	reviewFn             func(context.Context, uint, models.PostStatus, uint, time.Time) error
	approvedDaysByUserFn func(context.Context, uint) ([]time.Time, error)
	updateFn             func(context.Context, *models.Post) error
	deleteFn             func(context.Context, uint) error
	isLikedFn            func(context.Context, uint, uint) (bool, error)
	likeFn               func(context.Context, uint, uint) error
	unlikeFn             func(context.Context, uint, uint) error
	likersFn             func(context.Context, uint) ([]models.User, error)
}

func (s *postRepoStub) Create(ctx context.Context, post *models.Post) error {
	return s.createFn(ctx, post)
}
func (s *postRepoStub) GetByID(ctx context.Context, id, currentUserID uint) (*models.Post, error) {
	return s.getByIDFn(ctx, id, currentUserID)
}
func (s *postRepoStub) GetByUserID(ctx context.Context, userID uint, limit, offset int, currentUserID uint) ([]*models.Post, error) {
	return s.getByUserIDFn(ctx, userID, limit, offset, currentUserID)
}
func (s *postRepoStub) List(ctx context.Context, status models.PostStatus, limit, offset int, currentUserID uint) ([]*models.Post, error) {
	return s.listFn(ctx, status, limit, offset, currentUserID)
}
func (s *postRepoStub) Search(ctx context.Context, query string, limit, offset int, currentUserID uint) ([]*models.Post, error) {
	return s.searchFn(ctx, query, limit, offset, currentUserID)
}
func (s *postRepoStub) Review(ctx context.Context, id uint, status models.PostStatus, reviewerID uint, reviewedAt time.Time) error {
	return s.reviewFn(ctx, id, status, reviewerID, reviewedAt)
}
func (s *postRepoStub) ApprovedDaysByUser(ctx context.Context, userID uint) ([]time.Time, error) {
	return s.approvedDaysByUserFn(ctx, userID)
}
func (s *postRepoStub) Update(ctx context.Context, post *models.Post) error {
	return s.updateFn(ctx, post)
}
func (s *postRepoStub) Delete(ctx context.Context, id uint) error {
	return s.deleteFn(ctx, id)
}
func (s *postRepoStub) IsLiked(ctx context.Context, userID, postID uint) (bool, error) {
	return s.isLikedFn(ctx, userID, postID)
}
func (s *postRepoStub) Like(ctx context.Context, userID, postID uint) error {
	return s.likeFn(ctx, userID, postID)
}
func (s *postRepoStub) Unlike(ctx context.Context, userID, postID uint) error {
	return s.unlikeFn(ctx, userID, postID)
}
func (s *postRepoStub) Likers(ctx context.Context, postID uint) ([]models.User, error) {
	return s.likersFn(ctx, postID)
}

func noopPostRepo() *postRepoStub {
	return &postRepoStub{
		createFn:  func(_ context.Context, _ *models.Post) error { return nil },
		getByIDFn: func(_ context.Context, _, _ uint) (*models.Post, error) { return &models.Post{}, nil },
		getByUserIDFn: func(_ context.Context, _ uint, _, _ int, _ uint) ([]*models.Post, error) {
			return nil, nil
		},
		listFn: func(_ context.Context, _ models.PostStatus, _, _ int, _ uint) ([]*models.Post, error) {
			return nil, nil
		},
		searchFn: func(_ context.Context, _ string, _, _ int, _ uint) ([]*models.Post, error) {
			return nil, nil
		},
		reviewFn:             func(_ context.Context, _ uint, _ models.PostStatus, _ uint, _ time.Time) error { return nil },
		approvedDaysByUserFn: func(_ context.Context, _ uint) ([]time.Time, error) { return nil, nil },
		updateFn:             func(_ context.Context, _ *models.Post) error { return nil },
		deleteFn:             func(_ context.Context, _ uint) error { return nil },
		isLikedFn:            func(_ context.Context, _, _ uint) (bool, error) { return false, nil },
		likeFn:               func(_ context.Context, _, _ uint) error { return nil },
		unlikeFn:             func(_ context.Context, _, _ uint) error { return nil },
		likersFn:             func(_ context.Context, _ uint) ([]models.User, error) { return nil, nil },
	}
}

// assertValidationError asserts that err is an AppError with code VALIDATION_ERROR.
func assertValidationError(t *testing.T, err error) {
	t.Helper()
	assertErrorCode(t, err, "VALIDATION_ERROR")
}

// assertErrorCode asserts that err is an AppError carrying the given code.
func assertErrorCode(t *testing.T, err error, code string) {
	t.Helper()
	require.Error(t, err)
	var appErr *models.AppError
	require.True(t, errors.As(err, &appErr), "expected AppError, got %T: %v", err, err)
	assert.Equal(t, code, appErr.Code)
}

func TestPostService_CreatePost_Validation(t *testing.T) {
	t.Parallel()

	svc := NewPostService(noopPostRepo(), nil)
	ctx := context.Background()

	cases := []struct {
		name  string
		input CreatePostInput
	}{
		{"Empty Title", CreatePostInput{UserID: 1, Content: "planted a tree"}},
		{"Whitespace Title", CreatePostInput{UserID: 1, Title: "   ", Content: "planted a tree"}},
		{"Title Too Long", CreatePostInput{UserID: 1, Title: strings.Repeat("x", 201), Content: "c"}},
		{"Empty Content", CreatePostInput{UserID: 1, Title: "Beach cleanup"}},
		{"Content Too Long", CreatePostInput{UserID: 1, Title: "t", Content: strings.Repeat("x", 5001)}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.CreatePost(ctx, tc.input)
			assertValidationError(t, err)
		})
	}
}

func TestPostService_CreatePost_StartsPending(t *testing.T) {
	t.Parallel()

	repo := noopPostRepo()
	var created *models.Post
	repo.createFn = func(_ context.Context, p *models.Post) error {
		created = p
		return nil
	}

	svc := NewPostService(repo, nil)
	post, err := svc.CreatePost(context.Background(), CreatePostInput{
		UserID:  1,
		Title:   "  Beach cleanup  ",
		Content: "Collected 3 bags of litter",
	})
	require.NoError(t, err)
	require.NotNil(t, created)
	assert.Equal(t, models.PostStatusPending, post.Status)
	assert.Equal(t, "Beach cleanup", post.Title)
}

func TestPostService_GetPost_Visibility(t *testing.T) {
	t.Parallel()

	repo := noopPostRepo()
	repo.getByIDFn = func(_ context.Context, id, _ uint) (*models.Post, error) {
		return &models.Post{ID: id, UserID: 7, Status: models.PostStatusPending}, nil
	}
	svc := NewPostService(repo, nil)
	ctx := context.Background()

	t.Run("Stranger Gets Not Found", func(t *testing.T) {
		_, err := svc.GetPost(ctx, 1, 99, models.RoleUser)
		assertErrorCode(t, err, "NOT_FOUND")
	})

	t.Run("Author Sees Own Pending Post", func(t *testing.T) {
		post, err := svc.GetPost(ctx, 1, 7, models.RoleUser)
		require.NoError(t, err)
		assert.Equal(t, models.PostStatusPending, post.Status)
	})

	t.Run("Moderator Sees Pending Post", func(t *testing.T) {
		_, err := svc.GetPost(ctx, 1, 99, models.RoleModerator)
		assert.NoError(t, err)
	})
}

func TestPostService_Review(t *testing.T) {
	t.Parallel()

	t.Run("Invalid Status", func(t *testing.T) {
		svc := NewPostService(noopPostRepo(), nil)
		_, err := svc.Review(context.Background(), ReviewPostInput{ReviewerID: 1, PostID: 2, Status: models.PostStatusPending})
		assertValidationError(t, err)
	})

	t.Run("Approval Awards Points", func(t *testing.T) {
		repo := noopPostRepo()
		repo.getByIDFn = func(_ context.Context, id, _ uint) (*models.Post, error) {
			return &models.Post{ID: id, UserID: 7, Status: models.PostStatusApproved}, nil
		}

		var awardedPost *models.Post
		var awardedBy uint
		svc := NewPostService(repo, func(_ context.Context, post *models.Post, reviewerID uint) error {
			awardedPost = post
			awardedBy = reviewerID
			return nil
		})

		post, err := svc.Review(context.Background(), ReviewPostInput{ReviewerID: 42, PostID: 2, Status: models.PostStatusApproved})
		require.NoError(t, err)
		assert.Equal(t, models.PostStatusApproved, post.Status)
		require.NotNil(t, awardedPost)
		assert.Equal(t, uint(2), awardedPost.ID)
		assert.Equal(t, uint(42), awardedBy)
	})

	t.Run("Rejection Awards Nothing", func(t *testing.T) {
		repo := noopPostRepo()
		repo.getByIDFn = func(_ context.Context, id, _ uint) (*models.Post, error) {
			return &models.Post{ID: id, UserID: 7, Status: models.PostStatusRejected}, nil
		}

		awarded := false
		svc := NewPostService(repo, func(_ context.Context, _ *models.Post, _ uint) error {
			awarded = true
			return nil
		})

		_, err := svc.Review(context.Background(), ReviewPostInput{ReviewerID: 42, PostID: 2, Status: models.PostStatusRejected})
		require.NoError(t, err)
		assert.False(t, awarded)
	})

	t.Run("Repository Conflict Propagates", func(t *testing.T) {
		repo := noopPostRepo()
		repo.reviewFn = func(_ context.Context, _ uint, _ models.PostStatus, _ uint, _ time.Time) error {
			return models.NewConflictError("Post has already been reviewed")
		}
		svc := NewPostService(repo, nil)

		_, err := svc.Review(context.Background(), ReviewPostInput{ReviewerID: 42, PostID: 2, Status: models.PostStatusApproved})
		assertErrorCode(t, err, "CONFLICT")
	})
}

func TestPostService_UpdatePost_ReviewedPostLocked(t *testing.T) {
	t.Parallel()

	repo := noopPostRepo()
	repo.getByIDFn = func(_ context.Context, id, _ uint) (*models.Post, error) {
		return &models.Post{ID: id, UserID: 1, Status: models.PostStatusApproved}, nil
	}
	svc := NewPostService(repo, nil)

	_, err := svc.UpdatePost(context.Background(), UpdatePostInput{UserID: 1, PostID: 2, Title: "new"})
	assertErrorCode(t, err, "CONFLICT")
}

func TestPostService_DeletePost_Permissions(t *testing.T) {
	t.Parallel()

	repo := noopPostRepo()
	repo.getByIDFn = func(_ context.Context, id, _ uint) (*models.Post, error) {
		return &models.Post{ID: id, UserID: 7}, nil
	}
	svc := NewPostService(repo, nil)
	ctx := context.Background()

	t.Run("Stranger Forbidden", func(t *testing.T) {
		err := svc.DeletePost(ctx, DeletePostInput{UserID: 99, Role: models.RoleUser, PostID: 1})
		assertErrorCode(t, err, "FORBIDDEN")
	})

	t.Run("Owner Allowed", func(t *testing.T) {
		assert.NoError(t, svc.DeletePost(ctx, DeletePostInput{UserID: 7, Role: models.RoleUser, PostID: 1}))
	})

	t.Run("Moderator Allowed", func(t *testing.T) {
		assert.NoError(t, svc.DeletePost(ctx, DeletePostInput{UserID: 99, Role: models.RoleModerator, PostID: 1}))
	})
}

func TestPostService_ToggleLike(t *testing.T) {
	t.Parallel()

	approvedRepo := func() *postRepoStub {
		repo := noopPostRepo()
		repo.getByIDFn = func(_ context.Context, id, _ uint) (*models.Post, error) {
			return &models.Post{ID: id, UserID: 7, Status: models.PostStatusApproved}, nil
		}
		return repo
	}

	t.Run("Like Then Unlike", func(t *testing.T) {
		repo := approvedRepo()
		liked := false
		repo.isLikedFn = func(_ context.Context, _, _ uint) (bool, error) { return liked, nil }
		repo.likeFn = func(_ context.Context, _, _ uint) error { liked = true; return nil }
		repo.unlikeFn = func(_ context.Context, _, _ uint) error { liked = false; return nil }

		svc := NewPostService(repo, nil)
		ctx := context.Background()

		nowLiked, err := svc.ToggleLike(ctx, 1, 2)
		require.NoError(t, err)
		assert.True(t, nowLiked)

		nowLiked, err = svc.ToggleLike(ctx, 1, 2)
		require.NoError(t, err)
		assert.False(t, nowLiked)
	})

	t.Run("Pending Post Not Likeable", func(t *testing.T) {
		repo := noopPostRepo()
		repo.getByIDFn = func(_ context.Context, id, _ uint) (*models.Post, error) {
			return &models.Post{ID: id, Status: models.PostStatusPending}, nil
		}
		svc := NewPostService(repo, nil)

		_, err := svc.ToggleLike(context.Background(), 1, 2)
		assertErrorCode(t, err, "NOT_FOUND")
	})
}

func TestPostService_ListLikers(t *testing.T) {
	t.Parallel()

	t.Run("Approved Post Returns Likers", func(t *testing.T) {
		repo := noopPostRepo()
		repo.getByIDFn = func(_ context.Context, id, _ uint) (*models.Post, error) {
			return &models.Post{ID: id, UserID: 7, Status: models.PostStatusApproved}, nil
		}
		repo.likersFn = func(_ context.Context, postID uint) ([]models.User, error) {
			return []models.User{{ID: 3, Username: "fern"}, {ID: 9, Username: "moss"}}, nil
		}
		svc := NewPostService(repo, nil)

		likers, err := svc.ListLikers(context.Background(), 2, 1)
		require.NoError(t, err)
		require.Len(t, likers, 2)
		assert.Equal(t, "fern", likers[0].Username)
	})

	t.Run("Pending Post Not Found", func(t *testing.T) {
		repo := noopPostRepo()
		repo.getByIDFn = func(_ context.Context, id, _ uint) (*models.Post, error) {
			return &models.Post{ID: id, Status: models.PostStatusPending}, nil
		}
		svc := NewPostService(repo, nil)

		_, err := svc.ListLikers(context.Background(), 2, 1)
		assertErrorCode(t, err, "NOT_FOUND")
	})
}

func TestPostService_SearchPosts_RequiresQuery(t *testing.T) {
	t.Parallel()

	svc := NewPostService(noopPostRepo(), nil)
	_, err := svc.SearchPosts(context.Background(), "  ", 20, 0, 1)
	assertValidationError(t, err)
}

func TestPostService_GetUserPosts_FiltersForStrangers(t *testing.T) {
	t.Parallel()

	repo := noopPostRepo()
	repo.getByUserIDFn = func(_ context.Context, userID uint, _, _ int, _ uint) ([]*models.Post, error) {
		return []*models.Post{
			{ID: 1, UserID: userID, Status: models.PostStatusApproved},
			{ID: 2, UserID: userID, Status: models.PostStatusPending},
			{ID: 3, UserID: userID, Status: models.PostStatusRejected},
		}, nil
	}
	svc := NewPostService(repo, nil)
	ctx := context.Background()

	stranger, err := svc.GetUserPosts(ctx, 7, 20, 0, 99, models.RoleUser)
	require.NoError(t, err)
	require.Len(t, stranger, 1)
	assert.Equal(t, uint(1), stranger[0].ID)

	owner, err := svc.GetUserPosts(ctx, 7, 20, 0, 7, models.RoleUser)
	require.NoError(t, err)
	assert.Len(t, owner, 3)
}
