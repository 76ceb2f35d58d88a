package server

import (
	"greenloop/internal/models"
	"greenloop/internal/service"

	"github.com/gofiber/fiber/v2"
)

// GetRewardSnapshot handles GET /api/settings/rewards. Readable by any
// authenticated user so clients can render prices and bonuses up front.
// @Summary Assembled reward settings
// @Tags settings
// @Produce json
// @Success 200 {object} models.RewardSnapshot
// @Router /settings/rewards [get]
func (s *Server) GetRewardSnapshot(c *fiber.Ctx) error {
	snapshot, err := s.settingsService.Snapshot(c.Context())
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(snapshot)
}

// ListSettings handles GET /api/admin/settings?kind=...
func (s *Server) ListSettings(c *fiber.Ctx) error {
	settings, err := s.settingsService.List(c.Context(), models.SettingKind(c.Query("kind")))
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(settings)
}

// UpdateSetting handles PUT /api/admin/settings
// @Summary Create or update a reward setting
// @Description Upsert one (kind, key) setting. Validation depends on the kind.
// @Tags admin
// @Accept json
// @Produce json
// @Param request body object{kind=string,key=string,value=int} true "Setting upsert"
// @Success 200 {object} models.RewardSetting
// @Failure 400 {object} models.ErrorResponse
// @Router /admin/settings [put]
func (s *Server) UpdateSetting(c *fiber.Ctx) error {
	var req struct {
		Kind  string `json:"kind"`
		Key   string `json:"key"`
		Value int64  `json:"value"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	setting, err := s.settingsService.UpdateSetting(c.Context(), service.UpdateSettingInput{
		ActorID: currentUserID(c),
		Kind:    models.SettingKind(req.Kind),
		Key:     req.Key,
		Value:   req.Value,
	})
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(setting)
}

// DeleteSetting handles DELETE /api/admin/settings/:kind/:key. Deleting a
// setting restores the built-in fallback for that key.
func (s *Server) DeleteSetting(c *fiber.Ctx) error {
	kind := models.SettingKind(c.Params("kind"))
	key := c.Params("key")

	if err := s.settingsService.DeleteSetting(c.Context(), kind, key); err != nil {
		return respondServiceError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}
