package server

import (
	"greenloop/internal/models"
	"greenloop/internal/service"

	"github.com/gofiber/fiber/v2"
)

// CreateStory handles POST /api/stories
// @Summary Post a story
// @Description Create a story visible for 24 hours
// @Tags stories
// @Accept json
// @Produce json
// @Param request body object{content=string,image_url=string} true "Story content"
// @Success 201 {object} models.Story
// @Router /stories [post]
func (s *Server) CreateStory(c *fiber.Ctx) error {
	var req struct {
		Content  string `json:"content"`
		ImageURL string `json:"image_url"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	story, err := s.storyService.CreateStory(c.Context(), service.CreateStoryInput{
		UserID:   currentUserID(c),
		Content:  req.Content,
		ImageURL: req.ImageURL,
	})
	if err != nil {
		return respondServiceError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(story)
}

// GetStories handles GET /api/stories. Only stories inside their 24h window
// are returned.
func (s *Server) GetStories(c *fiber.Ctx) error {
	p := parsePagination(c, 50)
	stories, err := s.storyService.ListActive(c.Context(), p.Limit, p.Offset)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(stories)
}

// GetStory handles GET /api/stories/:id. Fetching a story records the
// caller's view; repeat views do not add up.
func (s *Server) GetStory(c *fiber.Ctx) error {
	storyID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	story, err := s.storyService.ViewStory(c.Context(), storyID, currentUserID(c))
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(story)
}

// GetStoryViewers handles GET /api/stories/:id/viewers. Author only.
func (s *Server) GetStoryViewers(c *fiber.Ctx) error {
	storyID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	viewers, err := s.storyService.Viewers(c.Context(), storyID, currentUserID(c))
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(viewers)
}

// DeleteStory handles DELETE /api/stories/:id
func (s *Server) DeleteStory(c *fiber.Ctx) error {
	storyID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	if err := s.storyService.DeleteStory(c.Context(), storyID, currentUserID(c), currentRole(c)); err != nil {
		return respondServiceError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// GetUserStories handles GET /api/users/:id/stories
func (s *Server) GetUserStories(c *fiber.Ctx) error {
	userID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	stories, err := s.storyService.ListUserStories(c.Context(), userID)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(stories)
}
