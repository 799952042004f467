// Package server contains the HTTP handlers for the application's API endpoints.
package server

import (
	"errors"
	"io"
	"mime/multipart"
	"strings"

	"echofeed/internal/media"
	"echofeed/internal/models"
	"echofeed/internal/observability"

	"github.com/gofiber/fiber/v2"
)

// errResponseWritten is a sentinel indicating the HTTP response was already
// committed by a helper.  Handlers must return nil (not this error) to avoid
// Fiber's ErrorHandler overwriting the response.
var errResponseWritten = errors.New("response already written")

// parseID extracts a route parameter by name as a positive uint.
// On failure it writes a 400 JSON response and returns errResponseWritten.
// Callers should check: if err != nil { return nil }
func (s *Server) parseID(c *fiber.Ctx, param string) (uint, error) {
	id, err := c.ParamsInt(param)
	if err != nil || id <= 0 {
		label := "ID"
		if param != "id" {
			label = param
		}
		_ = models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid "+label))
		return 0, errResponseWritten
	}
	return uint(id), nil
}

// respondServiceError maps an AppError code to its HTTP status and writes the
// response. Conflicts render as 400 to match the external contract.
func respondServiceError(c *fiber.Ctx, err error) error {
	var appErr *models.AppError
	if !errors.As(err, &appErr) {
		appErr = models.NewInternalError(err)
	}

	if appErr.Code == models.ErrCodeInternal {
		observability.RecordErrorInContext(c.UserContext(), err)
	}

	status := fiber.StatusInternalServerError
	switch appErr.Code {
	case models.ErrCodeValidation, models.ErrCodeConflict:
		status = fiber.StatusBadRequest
	case models.ErrCodeUnauthorized:
		status = fiber.StatusUnauthorized
	case models.ErrCodeForbidden:
		status = fiber.StatusForbidden
	case models.ErrCodeNotFound:
		status = fiber.StatusNotFound
	}
	return models.RespondWithError(c, status, appErr)
}

// currentUserID reads the authenticated user ID set by AuthRequired.
func currentUserID(c *fiber.Ctx) uint {
	if id, ok := c.Locals("userID").(uint); ok {
		return id
	}
	return 0
}

// readImageFile loads a multipart image upload, enforcing the size cap and
// sniffing the content type. The client-declared type is ignored.
// On failure it writes a 400 JSON response and returns errResponseWritten.
func readImageFile(c *fiber.Ctx, fh *multipart.FileHeader) ([]byte, string, error) {
	if fh.Size > media.MaxUploadSize {
		_ = models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Image too large (max 5 MB)"))
		return nil, "", errResponseWritten
	}

	f, err := fh.Open()
	if err != nil {
		_ = models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Could not read uploaded file"))
		return nil, "", errResponseWritten
	}
	defer f.Close()

	content, err := io.ReadAll(io.LimitReader(f, media.MaxUploadSize+1))
	if err != nil {
		_ = models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Could not read uploaded file"))
		return nil, "", errResponseWritten
	}
	if len(content) > media.MaxUploadSize {
		_ = models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Image too large (max 5 MB)"))
		return nil, "", errResponseWritten
	}

	contentType, ok := media.DetectImage(content)
	if !ok {
		_ = models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Uploaded file is not an image"))
		return nil, "", errResponseWritten
	}
	return content, contentType, nil
}

// formFile returns the named multipart file if the request is multipart and
// carries one, nil otherwise.
func formFile(c *fiber.Ctx, field string) *multipart.FileHeader {
	if !strings.HasPrefix(c.Get(fiber.HeaderContentType), fiber.MIMEMultipartForm) {
		return nil
	}
	fh, err := c.FormFile(field)
	if err != nil {
		return nil
	}
	return fh
}

// removeFlagSet reports whether a remove flag is set. Only the JSON boolean
// true and the exact form string "true" count; looser coercions ("1", "True")
// are rejected.
func removeFlagSet(jsonValue *bool, formValue string) bool {
	if jsonValue != nil {
		return *jsonValue
	}
	return formValue == "true"
}
