package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"echofeed/internal/media"
	"echofeed/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// postRepoStub is a stub for repository.PostRepository.
type postRepoStub struct {
	createFn       func(context.Context, *models.Post) error
	getByIDFn      func(context.Context, uint, uint) (*models.Post, error)
	listFn         func(context.Context, uint) ([]models.Post, error)
	listByAuthorFn func(context.Context, uint, uint) ([]models.Post, error)
	updateFn       func(context.Context, *models.Post) error
	deleteFn       func(context.Context, uint) error
	likeFn         func(context.Context, uint, uint) (bool, error)
	unlikeFn       func(context.Context, uint, uint) (bool, error)
	countLikesFn   func(context.Context, uint) (int, error)
	isLikedFn      func(context.Context, uint, uint) (bool, error)
}

func (s *postRepoStub) Create(ctx context.Context, post *models.Post) error {
	return s.createFn(ctx, post)
}
func (s *postRepoStub) GetByID(ctx context.Context, id, viewerID uint) (*models.Post, error) {
	return s.getByIDFn(ctx, id, viewerID)
}
func (s *postRepoStub) List(ctx context.Context, viewerID uint) ([]models.Post, error) {
	return s.listFn(ctx, viewerID)
}
func (s *postRepoStub) ListByAuthor(ctx context.Context, authorID, viewerID uint) ([]models.Post, error) {
	return s.listByAuthorFn(ctx, authorID, viewerID)
}
func (s *postRepoStub) Update(ctx context.Context, post *models.Post) error {
	return s.updateFn(ctx, post)
}
func (s *postRepoStub) Delete(ctx context.Context, id uint) error {
	return s.deleteFn(ctx, id)
}
func (s *postRepoStub) Like(ctx context.Context, userID, postID uint) (bool, error) {
	return s.likeFn(ctx, userID, postID)
}
func (s *postRepoStub) Unlike(ctx context.Context, userID, postID uint) (bool, error) {
	return s.unlikeFn(ctx, userID, postID)
}
func (s *postRepoStub) CountLikes(ctx context.Context, postID uint) (int, error) {
	return s.countLikesFn(ctx, postID)
}
func (s *postRepoStub) IsLiked(ctx context.Context, userID, postID uint) (bool, error) {
	return s.isLikedFn(ctx, userID, postID)
}

func noopPostRepo() *postRepoStub {
	return &postRepoStub{
		createFn:       func(_ context.Context, _ *models.Post) error { return nil },
		getByIDFn:      func(_ context.Context, _, _ uint) (*models.Post, error) { return &models.Post{}, nil },
		listFn:         func(_ context.Context, _ uint) ([]models.Post, error) { return nil, nil },
		listByAuthorFn: func(_ context.Context, _, _ uint) ([]models.Post, error) { return nil, nil },
		updateFn:       func(_ context.Context, _ *models.Post) error { return nil },
		deleteFn:       func(_ context.Context, _ uint) error { return nil },
		likeFn:         func(_ context.Context, _, _ uint) (bool, error) { return true, nil },
		unlikeFn:       func(_ context.Context, _, _ uint) (bool, error) { return true, nil },
		countLikesFn:   func(_ context.Context, _ uint) (int, error) { return 0, nil },
		isLikedFn:      func(_ context.Context, _, _ uint) (bool, error) { return false, nil },
	}
}

// commentRepoStub is a stub for repository.CommentRepository.
type commentRepoStub struct {
	createFn  func(context.Context, *models.Comment) error
	getByIDFn func(context.Context, uint) (*models.Comment, error)
}

func (s *commentRepoStub) Create(ctx context.Context, comment *models.Comment) error {
	return s.createFn(ctx, comment)
}
func (s *commentRepoStub) GetByID(ctx context.Context, id uint) (*models.Comment, error) {
	return s.getByIDFn(ctx, id)
}

func noopCommentRepo() *commentRepoStub {
	return &commentRepoStub{
		createFn:  func(_ context.Context, _ *models.Comment) error { return nil },
		getByIDFn: func(_ context.Context, _ uint) (*models.Comment, error) { return &models.Comment{}, nil },
	}
}

// mediaStoreStub is a stub for media.Store.
type mediaStoreStub struct {
	uploadFn func(context.Context, []byte, string, string) (*media.Asset, error)
	deleteFn func(context.Context, string) error
}

func (s *mediaStoreStub) Upload(ctx context.Context, content []byte, contentType, folder string) (*media.Asset, error) {
	return s.uploadFn(ctx, content, contentType, folder)
}
func (s *mediaStoreStub) Delete(ctx context.Context, publicID string) error {
	return s.deleteFn(ctx, publicID)
}

func noopMediaStore() *mediaStoreStub {
	return &mediaStoreStub{
		uploadFn: func(_ context.Context, _ []byte, _, _ string) (*media.Asset, error) {
			return &media.Asset{URL: "/media/posts/abc/master.jpg", PublicID: "posts/abc"}, nil
		},
		deleteFn: func(_ context.Context, _ string) error { return nil },
	}
}

// assertValidationError asserts that err is an AppError with code VALIDATION_ERROR.
func assertValidationError(t *testing.T, err error) {
	t.Helper()
	require.Error(t, err)
	var appErr *models.AppError
	require.True(t, errors.As(err, &appErr), "expected AppError, got %T: %v", err, err)
	assert.Equal(t, models.ErrCodeValidation, appErr.Code)
}

// assertForbiddenError asserts that err is an AppError with code FORBIDDEN.
func assertForbiddenError(t *testing.T, err error) {
	t.Helper()
	require.Error(t, err)
	var appErr *models.AppError
	require.True(t, errors.As(err, &appErr), "expected AppError, got %T: %v", err, err)
	assert.Equal(t, models.ErrCodeForbidden, appErr.Code)
}

func TestPostService_CreatePost_Validation(t *testing.T) {
	t.Parallel()

	svc := NewPostService(noopPostRepo(), noopCommentRepo(), noopMediaStore())
	ctx := context.Background()

	tests := []struct {
		name  string
		input CreatePostInput
	}{
		{
			name:  "empty title",
			input: CreatePostInput{AuthorID: 1, Content: "some content"},
		},
		{
			name:  "whitespace title",
			input: CreatePostInput{AuthorID: 1, Title: "   ", Content: "some content"},
		},
		{
			name:  "empty content",
			input: CreatePostInput{AuthorID: 1, Title: "A title"},
		},
		{
			name:  "title too long",
			input: CreatePostInput{AuthorID: 1, Title: strings.Repeat("x", 301), Content: "c"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.CreatePost(ctx, tt.input)
			assertValidationError(t, err)
		})
	}
}

func TestPostService_CreatePost_MultibyteTitleWithinCap(t *testing.T) {
	t.Parallel()

	svc := NewPostService(noopPostRepo(), noopCommentRepo(), noopMediaStore())

	// 300 two-byte runes stay inside the 300-character cap.
	_, err := svc.CreatePost(context.Background(), CreatePostInput{
		AuthorID: 1,
		Title:    strings.Repeat("é", 300),
		Content:  "c",
	})
	assert.NoError(t, err)
}

func TestPostService_CreatePost_TrimsFields(t *testing.T) {
	t.Parallel()

	repo := noopPostRepo()
	var created *models.Post
	repo.createFn = func(_ context.Context, p *models.Post) error {
		p.ID = 7
		created = p
		return nil
	}
	repo.getByIDFn = func(_ context.Context, id, _ uint) (*models.Post, error) {
		return &models.Post{ID: id}, nil
	}

	svc := NewPostService(repo, noopCommentRepo(), noopMediaStore())

	post, err := svc.CreatePost(context.Background(), CreatePostInput{
		AuthorID: 1,
		Title:    "  Hello  ",
		Content:  "  world  ",
	})
	require.NoError(t, err)
	require.NotNil(t, created)
	assert.Equal(t, "Hello", created.Title)
	assert.Equal(t, "world", created.Content)
	assert.Equal(t, uint(7), post.ID)
}

func TestPostService_CreatePost_UploadFailureAborts(t *testing.T) {
	t.Parallel()

	repo := noopPostRepo()
	repoCalled := false
	repo.createFn = func(_ context.Context, _ *models.Post) error {
		repoCalled = true
		return nil
	}

	store := noopMediaStore()
	store.uploadFn = func(_ context.Context, _ []byte, _, _ string) (*media.Asset, error) {
		return nil, errors.New("storage unavailable")
	}

	svc := NewPostService(repo, noopCommentRepo(), store)

	_, err := svc.CreatePost(context.Background(), CreatePostInput{
		AuthorID: 1,
		Title:    "T",
		Content:  "C",
		Image:    &ImageUpload{Content: []byte{1}, ContentType: "image/png"},
	})
	require.Error(t, err)
	var appErr *models.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, models.ErrCodeInternal, appErr.Code)
	assert.False(t, repoCalled, "post must not be persisted when the upload fails")
}

func TestPostService_UpdatePost_NonAuthorForbidden(t *testing.T) {
	t.Parallel()

	repo := noopPostRepo()
	repo.getByIDFn = func(_ context.Context, id, _ uint) (*models.Post, error) {
		return &models.Post{ID: id, AuthorID: 42, Title: "orig"}, nil
	}

	svc := NewPostService(repo, noopCommentRepo(), noopMediaStore())

	_, err := svc.UpdatePost(context.Background(), UpdatePostInput{
		UserID: 1,
		PostID: 5,
		Title:  "new",
	})
	assertForbiddenError(t, err)
}

func TestPostService_UpdatePost_EmptyFieldsKeepOldValues(t *testing.T) {
	t.Parallel()

	repo := noopPostRepo()
	repo.getByIDFn = func(_ context.Context, id, _ uint) (*models.Post, error) {
		return &models.Post{ID: id, AuthorID: 1, Title: "orig title", Content: "orig content"}, nil
	}
	var saved *models.Post
	repo.updateFn = func(_ context.Context, p *models.Post) error {
		saved = p
		return nil
	}

	svc := NewPostService(repo, noopCommentRepo(), noopMediaStore())

	_, err := svc.UpdatePost(context.Background(), UpdatePostInput{
		UserID:  1,
		PostID:  5,
		Title:   "   ",
		Content: "",
	})
	require.NoError(t, err)
	require.NotNil(t, saved)
	assert.Equal(t, "orig title", saved.Title)
	assert.Equal(t, "orig content", saved.Content)
}

func TestPostService_UpdatePost_RemoveImageClearsFields(t *testing.T) {
	t.Parallel()

	repo := noopPostRepo()
	repo.getByIDFn = func(_ context.Context, id, _ uint) (*models.Post, error) {
		return &models.Post{
			ID: id, AuthorID: 1,
			Title: "t", Content: "c",
			ImageURL: "/media/posts/old/master.jpg", ImagePublicID: "posts/old",
		}, nil
	}
	var saved *models.Post
	repo.updateFn = func(_ context.Context, p *models.Post) error {
		saved = p
		return nil
	}

	store := noopMediaStore()
	var deleted string
	store.deleteFn = func(_ context.Context, publicID string) error {
		deleted = publicID
		return nil
	}

	svc := NewPostService(repo, noopCommentRepo(), store)

	_, err := svc.UpdatePost(context.Background(), UpdatePostInput{
		UserID:      1,
		PostID:      5,
		RemoveImage: true,
	})
	require.NoError(t, err)
	require.NotNil(t, saved)
	assert.Empty(t, saved.ImageURL)
	assert.Empty(t, saved.ImagePublicID)
	assert.Equal(t, "posts/old", deleted)
}

func TestPostService_DeletePost(t *testing.T) {
	t.Parallel()

	t.Run("non-author forbidden", func(t *testing.T) {
		repo := noopPostRepo()
		repo.getByIDFn = func(_ context.Context, id, _ uint) (*models.Post, error) {
			return &models.Post{ID: id, AuthorID: 42}, nil
		}
		svc := NewPostService(repo, noopCommentRepo(), noopMediaStore())

		err := svc.DeletePost(context.Background(), 1, 5)
		assertForbiddenError(t, err)
	})

	t.Run("media delete failure does not surface", func(t *testing.T) {
		repo := noopPostRepo()
		repo.getByIDFn = func(_ context.Context, id, _ uint) (*models.Post, error) {
			return &models.Post{ID: id, AuthorID: 1, ImagePublicID: "posts/gone"}, nil
		}
		store := noopMediaStore()
		store.deleteFn = func(_ context.Context, _ string) error {
			return errors.New("asset store down")
		}
		svc := NewPostService(repo, noopCommentRepo(), store)

		err := svc.DeletePost(context.Background(), 1, 5)
		assert.NoError(t, err)
	})
}

func TestPostService_ToggleLike(t *testing.T) {
	t.Parallel()

	liked := false
	repo := noopPostRepo()
	repo.getByIDFn = func(_ context.Context, id, _ uint) (*models.Post, error) {
		count := 0
		if liked {
			count = 1
		}
		return &models.Post{ID: id, AuthorID: 2, Liked: liked, LikesCount: count}, nil
	}
	repo.isLikedFn = func(_ context.Context, _, _ uint) (bool, error) { return liked, nil }
	repo.likeFn = func(_ context.Context, _, _ uint) (bool, error) {
		liked = true
		return true, nil
	}
	repo.unlikeFn = func(_ context.Context, _, _ uint) (bool, error) {
		liked = false
		return true, nil
	}

	svc := NewPostService(repo, noopCommentRepo(), noopMediaStore())
	ctx := context.Background()

	first, err := svc.ToggleLike(ctx, 1, 5)
	require.NoError(t, err)
	assert.True(t, first.Liked)
	assert.Equal(t, 1, first.LikesCount)

	second, err := svc.ToggleLike(ctx, 1, 5)
	require.NoError(t, err)
	assert.False(t, second.Liked)
	assert.Equal(t, 0, second.LikesCount)
}

func TestPostService_AddComment(t *testing.T) {
	t.Parallel()

	t.Run("validation", func(t *testing.T) {
		svc := NewPostService(noopPostRepo(), noopCommentRepo(), noopMediaStore())
		ctx := context.Background()

		_, _, err := svc.AddComment(ctx, 1, 5, "   ")
		assertValidationError(t, err)

		_, _, err = svc.AddComment(ctx, 1, 5, strings.Repeat("x", 501))
		assertValidationError(t, err)
	})

	t.Run("success returns inserted comment", func(t *testing.T) {
		comments := noopCommentRepo()
		comments.createFn = func(_ context.Context, c *models.Comment) error {
			c.ID = 9
			return nil
		}
		comments.getByIDFn = func(_ context.Context, id uint) (*models.Comment, error) {
			return &models.Comment{ID: id, Text: "hi", Author: models.User{ID: 1, Username: "ana"}}, nil
		}
		svc := NewPostService(noopPostRepo(), comments, noopMediaStore())

		post, comment, err := svc.AddComment(context.Background(), 1, 5, "  hi  ")
		require.NoError(t, err)
		require.NotNil(t, post)
		require.NotNil(t, comment)
		assert.Equal(t, uint(9), comment.ID)
		assert.Equal(t, "ana", comment.Author.Username)
	})

	t.Run("exactly 500 chars accepted", func(t *testing.T) {
		svc := NewPostService(noopPostRepo(), noopCommentRepo(), noopMediaStore())

		_, _, err := svc.AddComment(context.Background(), 1, 5, strings.Repeat("y", 500))
		assert.NoError(t, err)
	})

	t.Run("caps count characters not bytes", func(t *testing.T) {
		svc := NewPostService(noopPostRepo(), noopCommentRepo(), noopMediaStore())
		ctx := context.Background()

		// 500 four-byte runes are within the cap; 501 are not.
		_, _, err := svc.AddComment(ctx, 1, 5, strings.Repeat("\U0001F600", 500))
		assert.NoError(t, err)

		_, _, err = svc.AddComment(ctx, 1, 5, strings.Repeat("\U0001F600", 501))
		assertValidationError(t, err)
	})
}
