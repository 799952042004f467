package service

import (
	"context"
	"strings"
	"unicode/utf8"

	"echofeed/internal/media"
	"echofeed/internal/middleware"
	"echofeed/internal/models"
	"echofeed/internal/repository"
)

const (
	maxTitleLen   = 300
	maxContentLen = 50000
	maxCommentLen = 500
)

type PostService struct {
	postRepo    repository.PostRepository
	commentRepo repository.CommentRepository
	media       media.Store
}

// ImageUpload carries a decoded multipart image file.
type ImageUpload struct {
	Content     []byte
	ContentType string
}

type CreatePostInput struct {
	AuthorID uint
	Title    string
	Content  string
	Image    *ImageUpload
}

type UpdatePostInput struct {
	UserID      uint
	PostID      uint
	Title       string
	Content     string
	Image       *ImageUpload
	RemoveImage bool
}

// LikeResult reports the state of a post after a like toggle.
type LikeResult struct {
	Liked      bool
	LikesCount int
	Post       *models.Post
}

func NewPostService(
	postRepo repository.PostRepository,
	commentRepo repository.CommentRepository,
	mediaStore media.Store,
) *PostService {
	return &PostService{
		postRepo:    postRepo,
		commentRepo: commentRepo,
		media:       mediaStore,
	}
}

func (s *PostService) CreatePost(ctx context.Context, in CreatePostInput) (*models.Post, error) {
	title := strings.TrimSpace(in.Title)
	content := strings.TrimSpace(in.Content)

	if title == "" {
		return nil, models.NewValidationError("Title is required")
	}
	if utf8.RuneCountInString(title) > maxTitleLen {
		return nil, models.NewValidationError("Title too long (max 300 characters)")
	}
	if content == "" {
		return nil, models.NewValidationError("Content is required")
	}
	if utf8.RuneCountInString(content) > maxContentLen {
		return nil, models.NewValidationError("Content too long (max 50000 characters)")
	}

	post := &models.Post{
		Title:    title,
		Content:  content,
		AuthorID: in.AuthorID,
	}

	// Upload before persisting so a storage failure leaves no orphan row.
	if in.Image != nil {
		asset, err := s.media.Upload(ctx, in.Image.Content, in.Image.ContentType, "posts")
		if err != nil {
			middleware.MediaStoreErrors.WithLabelValues("upload").Inc()
			return nil, models.NewInternalError(err)
		}
		post.ImageURL = asset.URL
		post.ImagePublicID = asset.PublicID
	}

	if err := s.postRepo.Create(ctx, post); err != nil {
		return nil, err
	}
	return s.postRepo.GetByID(ctx, post.ID, in.AuthorID)
}

func (s *PostService) ListPosts(ctx context.Context, viewerID uint) ([]models.Post, error) {
	return s.postRepo.List(ctx, viewerID)
}

func (s *PostService) GetUserPosts(ctx context.Context, userID uint) ([]models.Post, error) {
	return s.postRepo.ListByAuthor(ctx, userID, userID)
}

func (s *PostService) GetPost(ctx context.Context, id, viewerID uint) (*models.Post, error) {
	return s.postRepo.GetByID(ctx, id, viewerID)
}

func (s *PostService) UpdatePost(ctx context.Context, in UpdatePostInput) (*models.Post, error) {
	post, err := s.postRepo.GetByID(ctx, in.PostID, in.UserID)
	if err != nil {
		return nil, err
	}
	if post.AuthorID != in.UserID {
		return nil, models.NewForbiddenError("You can only update your own posts")
	}

	if title := strings.TrimSpace(in.Title); title != "" {
		if utf8.RuneCountInString(title) > maxTitleLen {
			return nil, models.NewValidationError("Title too long (max 300 characters)")
		}
		post.Title = title
	}
	if content := strings.TrimSpace(in.Content); content != "" {
		if utf8.RuneCountInString(content) > maxContentLen {
			return nil, models.NewValidationError("Content too long (max 50000 characters)")
		}
		post.Content = content
	}

	switch {
	case in.Image != nil:
		asset, err := s.media.Upload(ctx, in.Image.Content, in.Image.ContentType, "posts")
		if err != nil {
			middleware.MediaStoreErrors.WithLabelValues("upload").Inc()
			return nil, models.NewInternalError(err)
		}
		s.deleteAssetQuietly(ctx, post.ImagePublicID)
		post.ImageURL = asset.URL
		post.ImagePublicID = asset.PublicID
	case in.RemoveImage:
		s.deleteAssetQuietly(ctx, post.ImagePublicID)
		post.ImageURL = ""
		post.ImagePublicID = ""
	}

	if err := s.postRepo.Update(ctx, post); err != nil {
		return nil, err
	}
	return s.postRepo.GetByID(ctx, post.ID, in.UserID)
}

// DeletePost removes the row first; the media asset is cleaned up afterwards
// on a best-effort basis so a storage hiccup never resurrects the post.
func (s *PostService) DeletePost(ctx context.Context, userID, postID uint) error {
	post, err := s.postRepo.GetByID(ctx, postID, userID)
	if err != nil {
		return err
	}
	if post.AuthorID != userID {
		return models.NewForbiddenError("You can only delete your own posts")
	}

	if err := s.postRepo.Delete(ctx, postID); err != nil {
		return err
	}
	s.deleteAssetQuietly(ctx, post.ImagePublicID)
	return nil
}

func (s *PostService) ToggleLike(ctx context.Context, userID, postID uint) (*LikeResult, error) {
	if _, err := s.postRepo.GetByID(ctx, postID, userID); err != nil {
		return nil, err
	}

	liked, err := s.postRepo.IsLiked(ctx, userID, postID)
	if err != nil {
		return nil, err
	}
	if liked {
		if _, err := s.postRepo.Unlike(ctx, userID, postID); err != nil {
			return nil, err
		}
	} else {
		if _, err := s.postRepo.Like(ctx, userID, postID); err != nil {
			return nil, err
		}
	}

	post, err := s.postRepo.GetByID(ctx, postID, userID)
	if err != nil {
		return nil, err
	}
	return &LikeResult{
		Liked:      post.Liked,
		LikesCount: post.LikesCount,
		Post:       post,
	}, nil
}

func (s *PostService) AddComment(ctx context.Context, userID, postID uint, text string) (*models.Post, *models.Comment, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, nil, models.NewValidationError("Comment text is required")
	}
	// Caps count characters, not bytes; multibyte text is not penalized.
	if utf8.RuneCountInString(text) > maxCommentLen {
		return nil, nil, models.NewValidationError("Comment too long (max 500 characters)")
	}

	if _, err := s.postRepo.GetByID(ctx, postID, userID); err != nil {
		return nil, nil, err
	}

	comment := &models.Comment{
		PostID:   postID,
		AuthorID: userID,
		Text:     text,
	}
	if err := s.commentRepo.Create(ctx, comment); err != nil {
		return nil, nil, err
	}

	// Re-read so the returned comment carries its author and the post its
	// refreshed comment list.
	comment, err := s.commentRepo.GetByID(ctx, comment.ID)
	if err != nil {
		return nil, nil, err
	}
	post, err := s.postRepo.GetByID(ctx, postID, userID)
	if err != nil {
		return nil, nil, err
	}
	return post, comment, nil
}

func (s *PostService) deleteAssetQuietly(ctx context.Context, publicID string) {
	if publicID == "" {
		return
	}
	if err := s.media.Delete(ctx, publicID); err != nil {
		middleware.MediaStoreErrors.WithLabelValues("delete").Inc()
		middleware.Logger.WarnContext(ctx, "failed to delete media asset",
			"public_id", publicID, "error", err)
	}
}
