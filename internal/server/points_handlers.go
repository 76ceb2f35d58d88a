package server

import (
	"greenloop/internal/models"
	"greenloop/internal/service"

	"github.com/gofiber/fiber/v2"
)

// GetMyBalance handles GET /api/points/balance. The balance is always derived
// from the ledger, never read from a stored counter.
// @Summary Current token balance
// @Tags points
// @Produce json
// @Success 200 {object} object{balance=int}
// @Router /points/balance [get]
func (s *Server) GetMyBalance(c *fiber.Ctx) error {
	balance, err := s.pointsService.Balance(c.Context(), currentUserID(c))
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(fiber.Map{"balance": balance})
}

// GetMyHistory handles GET /api/points/history
func (s *Server) GetMyHistory(c *fiber.Ctx) error {
	p := parsePagination(c, 20)
	entries, err := s.pointsService.History(c.Context(), currentUserID(c), p.Limit, p.Offset)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(entries)
}

// GetMyRedemptions handles GET /api/points/redemptions
func (s *Server) GetMyRedemptions(c *fiber.Ctx) error {
	p := parsePagination(c, 20)
	redemptions, err := s.pointsService.Redemptions(c.Context(), currentUserID(c), p.Limit, p.Offset)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(redemptions)
}

// RedeemItem handles POST /api/items/:id/redeem
// @Summary Redeem a catalog item
// @Description Spend tokens on an item. The debit and the stock decrement commit atomically.
// @Tags points
// @Produce json
// @Param id path int true "Item ID"
// @Success 200 {object} models.ItemRedemption
// @Failure 409 {object} models.ErrorResponse
// @Failure 422 {object} models.ErrorResponse
// @Router /items/{id}/redeem [post]
func (s *Server) RedeemItem(c *fiber.Ctx) error {
	itemID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	userID := currentUserID(c)
	redemption, err := s.pointsService.Redeem(c.Context(), service.RedeemInput{
		UserID: userID,
		ItemID: itemID,
	})
	if err != nil {
		return respondServiceError(c, err)
	}

	balance, err := s.ledgerRepo.Balance(c.Context(), userID)
	if err != nil {
		return respondServiceError(c, err)
	}

	s.publishUserEvent(userID, EventItemRedeemed, map[string]interface{}{
		"item_id":      redemption.ItemID,
		"item_name":    redemption.Item.Name,
		"points_spent": redemption.PointsSpent,
		"balance":      balance,
	})

	return c.JSON(fiber.Map{
		"redemption": redemption,
		"balance":    balance,
	})
}

// GrantPoints handles POST /api/users/:id/points
// @Summary Grant or deduct points
// @Description Append an admin adjustment to a user's ledger. Deductions cannot overdraw.
// @Tags admin
// @Accept json
// @Produce json
// @Param id path int true "User ID"
// @Param request body object{delta=int} true "Signed point adjustment"
// @Success 201 {object} models.PointEntry
// @Router /users/{id}/points [post]
func (s *Server) GrantPoints(c *fiber.Ctx) error {
	userID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	var req struct {
		Delta int64 `json:"delta"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	entry, err := s.pointsService.Grant(c.Context(), service.GrantPointsInput{
		ActorID: currentUserID(c),
		UserID:  userID,
		Delta:   req.Delta,
	})
	if err != nil {
		return respondServiceError(c, err)
	}

	balance, err := s.ledgerRepo.Balance(c.Context(), userID)
	if err != nil {
		return respondServiceError(c, err)
	}
	s.publishUserEvent(userID, EventPointsAwarded, map[string]interface{}{
		"delta":   req.Delta,
		"balance": balance,
	})

	return c.Status(fiber.StatusCreated).JSON(entry)
}

// GetAllRedemptions handles GET /api/admin/redemptions
func (s *Server) GetAllRedemptions(c *fiber.Ctx) error {
	p := parsePagination(c, 50)
	redemptions, err := s.pointsService.AllRedemptions(c.Context(), p.Limit, p.Offset)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(redemptions)
}
