package server

import (
	"echofeed/internal/models"
	"echofeed/internal/service"

	"github.com/gofiber/fiber/v2"
)

// GetMyProfile handles GET /api/users/me
func (s *Server) GetMyProfile(c *fiber.Ctx) error {
	user, err := s.userService.GetUserByID(c.Context(), currentUserID(c))
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(user)
}

// UpdateMyProfile handles PUT /api/users/me. The body may be JSON or
// multipart form data with an optional profileImage file; every field is
// independently optional.
func (s *Server) UpdateMyProfile(c *fiber.Ctx) error {
	var req struct {
		Username     string `json:"username" form:"username"`
		Email        string `json:"email" form:"email"`
		Password     string `json:"password" form:"password"`
		RemoveAvatar *bool  `json:"removeAvatar"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	in := service.UpdateProfileInput{
		UserID:       currentUserID(c),
		Username:     req.Username,
		Email:        req.Email,
		Password:     req.Password,
		RemoveAvatar: removeFlagSet(req.RemoveAvatar, c.FormValue("removeAvatar")),
	}

	if fh := formFile(c, "profileImage"); fh != nil {
		content, contentType, err := readImageFile(c, fh)
		if err != nil {
			return nil
		}
		in.Avatar = &service.AvatarUpload{Content: content, ContentType: contentType}
	}

	user, err := s.userService.UpdateProfile(c.Context(), in)
	if err != nil {
		return respondServiceError(c, err)
	}

	return c.JSON(fiber.Map{
		"message": "Profile updated",
		"user":    user,
	})
}
