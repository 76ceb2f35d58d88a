package server

import (
	"io"

	"greenloop/internal/models"
	"greenloop/internal/storage"

	"github.com/gofiber/fiber/v2"
)

// UploadImage handles POST /api/uploads
// @Summary Upload an image
// @Description Store an image for use in posts and stories and return its public URL
// @Tags uploads
// @Accept multipart/form-data
// @Produce json
// @Param image formData file true "Image file"
// @Success 201 {object} object{key=string,url=string}
// @Failure 400 {object} models.ErrorResponse
// @Router /uploads [post]
func (s *Server) UploadImage(c *fiber.Ctx) error {
	file, err := c.FormFile("image")
	if err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("No file uploaded"))
	}
	if file.Size > storage.DefaultMaxUploadSizeMB*1024*1024 {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("File too large"))
	}

	src, err := file.Open()
	if err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Unable to read uploaded file"))
	}
	defer func() { _ = src.Close() }()

	content, err := io.ReadAll(src)
	if err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Unable to read uploaded file"))
	}

	key, url, err := s.objectStore.Put(file.Filename, file.Header.Get("Content-Type"), content)
	if err != nil {
		return respondServiceError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"key": key,
		"url": url,
	})
}
