// Package service holds the business logic between HTTP handlers and repositories.
package service

import (
	"context"
	"strings"

	"echofeed/internal/media"
	"echofeed/internal/middleware"
	"echofeed/internal/models"
	"echofeed/internal/repository"
	"echofeed/internal/validation"

	"golang.org/x/crypto/bcrypt"
)

type UserService struct {
	userRepo repository.UserRepository
	media    media.Store
}

type RegisterInput struct {
	Username string
	Email    string
	Password string
}

// AvatarUpload carries a decoded multipart avatar file.
type AvatarUpload struct {
	Content     []byte
	ContentType string
}

type UpdateProfileInput struct {
	UserID       uint
	Username     string
	Email        string
	Password     string
	Avatar       *AvatarUpload
	RemoveAvatar bool
}

func NewUserService(userRepo repository.UserRepository, mediaStore media.Store) *UserService {
	return &UserService{userRepo: userRepo, media: mediaStore}
}

func (s *UserService) Register(ctx context.Context, in RegisterInput) (*models.User, error) {
	username := strings.TrimSpace(in.Username)
	email := strings.ToLower(strings.TrimSpace(in.Email))

	if err := validation.ValidateUsername(username); err != nil {
		return nil, err
	}
	if err := validation.ValidateEmail(email); err != nil {
		return nil, err
	}
	if err := validation.ValidatePassword(in.Password); err != nil {
		return nil, err
	}

	if existing, err := s.userRepo.GetByEmail(ctx, email); err != nil {
		return nil, err
	} else if existing != nil {
		return nil, models.NewConflictError("Email already registered")
	}
	if existing, err := s.userRepo.GetByUsername(ctx, username); err != nil {
		return nil, err
	} else if existing != nil {
		return nil, models.NewConflictError("Username already taken")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, models.NewInternalError(err)
	}

	user := &models.User{
		Username: username,
		Email:    email,
		Password: string(hash),
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// Authenticate returns the user for valid credentials. Unknown email and
// wrong password produce the same error so the response cannot be used to
// probe for registered addresses.
func (s *UserService) Authenticate(ctx context.Context, email, password string) (*models.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return nil, models.NewValidationError("Email and password are required")
	}

	user, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, models.NewUnauthorizedError("Invalid credentials")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		return nil, models.NewUnauthorizedError("Invalid credentials")
	}
	return user, nil
}

func (s *UserService) GetUserByID(ctx context.Context, id uint) (*models.User, error) {
	return s.userRepo.GetByID(ctx, id)
}

func (s *UserService) UpdateProfile(ctx context.Context, in UpdateProfileInput) (*models.User, error) {
	user, err := s.userRepo.GetByID(ctx, in.UserID)
	if err != nil {
		return nil, err
	}

	if in.Username != "" {
		username := strings.TrimSpace(in.Username)
		if err := validation.ValidateUsername(username); err != nil {
			return nil, err
		}
		if username != user.Username {
			if other, err := s.userRepo.GetByUsername(ctx, username); err != nil {
				return nil, err
			} else if other != nil && other.ID != user.ID {
				return nil, models.NewConflictError("Username already taken")
			}
			user.Username = username
		}
	}

	if in.Email != "" {
		email := strings.ToLower(strings.TrimSpace(in.Email))
		if err := validation.ValidateEmail(email); err != nil {
			return nil, err
		}
		if email != user.Email {
			if other, err := s.userRepo.GetByEmail(ctx, email); err != nil {
				return nil, err
			} else if other != nil && other.ID != user.ID {
				return nil, models.NewConflictError("Email already registered")
			}
			user.Email = email
		}
	}

	if in.Password != "" {
		if err := validation.ValidatePassword(in.Password); err != nil {
			return nil, err
		}
		hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
		if err != nil {
			return nil, models.NewInternalError(err)
		}
		user.Password = string(hash)
	}

	switch {
	case in.Avatar != nil:
		asset, err := s.media.Upload(ctx, in.Avatar.Content, in.Avatar.ContentType, "avatars")
		if err != nil {
			return nil, models.NewInternalError(err)
		}
		s.deleteAssetQuietly(ctx, user.AvatarPublicID)
		user.AvatarURL = asset.URL
		user.AvatarPublicID = asset.PublicID
	case in.RemoveAvatar:
		s.deleteAssetQuietly(ctx, user.AvatarPublicID)
		user.AvatarURL = ""
		user.AvatarPublicID = ""
	}

	if err := s.userRepo.Update(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// deleteAssetQuietly removes a stored asset without surfacing failures.
// The DB record is already the source of truth at this point.
func (s *UserService) deleteAssetQuietly(ctx context.Context, publicID string) {
	if publicID == "" {
		return
	}
	if err := s.media.Delete(ctx, publicID); err != nil {
		middleware.MediaStoreErrors.WithLabelValues("delete").Inc()
		middleware.Logger.WarnContext(ctx, "failed to delete media asset",
			"public_id", publicID, "error", err)
	}
}
