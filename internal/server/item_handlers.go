package server

import (
	"greenloop/internal/models"
	"greenloop/internal/service"

	"github.com/gofiber/fiber/v2"
)

// GetItems handles GET /api/items. Regular users see the active catalog;
// catalog managers may pass include_inactive=true to see everything.
// @Summary List the redeemable catalog
// @Tags items
// @Produce json
// @Param include_inactive query bool false "Include inactive items (catalog managers only)"
// @Success 200 {array} models.Item
// @Router /items [get]
func (s *Server) GetItems(c *fiber.Ctx) error {
	p := parsePagination(c, 50)
	items, err := s.itemService.ListCatalog(
		c.Context(), currentRole(c), c.QueryBool("include_inactive"), p.Limit, p.Offset)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(items)
}

// GetItem handles GET /api/items/:id
func (s *Server) GetItem(c *fiber.Ctx) error {
	itemID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	item, err := s.itemService.GetItem(c.Context(), itemID)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(item)
}

// CreateItem handles POST /api/admin/items
// @Summary Add a catalog item
// @Tags admin
// @Accept json
// @Produce json
// @Param request body object{name=string,description=string,image_url=string,price=int,stock=int} true "Item definition"
// @Success 201 {object} models.Item
// @Router /admin/items [post]
func (s *Server) CreateItem(c *fiber.Ctx) error {
	var req struct {
		Name        string `json:"name"`
		Description string `json:"description"`
		ImageURL    string `json:"image_url"`
		Price       int64  `json:"price"`
		Stock       int    `json:"stock"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	item, err := s.itemService.CreateItem(c.Context(), service.CreateItemInput{
		Name:        req.Name,
		Description: req.Description,
		ImageURL:    req.ImageURL,
		Price:       req.Price,
		Stock:       req.Stock,
	})
	if err != nil {
		return respondServiceError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(item)
}

// UpdateItem handles PUT /api/admin/items/:id
func (s *Server) UpdateItem(c *fiber.Ctx) error {
	itemID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	var req struct {
		Name        string `json:"name"`
		Description string `json:"description"`
		ImageURL    string `json:"image_url"`
		Price       *int64 `json:"price"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	item, err := s.itemService.UpdateItem(c.Context(), service.UpdateItemInput{
		ItemID:      itemID,
		Name:        req.Name,
		Description: req.Description,
		ImageURL:    req.ImageURL,
		Price:       req.Price,
	})
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(item)
}

// RestockItem handles POST /api/admin/items/:id/restock
// @Summary Adjust item stock
// @Description Add or remove stock by a signed delta. Stock never goes negative.
// @Tags admin
// @Accept json
// @Produce json
// @Param id path int true "Item ID"
// @Param request body object{delta=int} true "Signed stock adjustment"
// @Success 200 {object} models.Item
// @Router /admin/items/{id}/restock [post]
func (s *Server) RestockItem(c *fiber.Ctx) error {
	itemID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	var req struct {
		Delta int `json:"delta"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	item, err := s.itemService.Restock(c.Context(), itemID, req.Delta)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(item)
}

// ActivateItem handles POST /api/admin/items/:id/activate
func (s *Server) ActivateItem(c *fiber.Ctx) error {
	return s.setItemActive(c, true)
}

// DeactivateItem handles POST /api/admin/items/:id/deactivate. An inactive
// item disappears from the public catalog but keeps its redemption history.
func (s *Server) DeactivateItem(c *fiber.Ctx) error {
	return s.setItemActive(c, false)
}

func (s *Server) setItemActive(c *fiber.Ctx, active bool) error {
	itemID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	if err := s.itemService.SetActive(c.Context(), itemID, active); err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(fiber.Map{"active": active})
}

// DeleteItem handles DELETE /api/admin/items/:id
func (s *Server) DeleteItem(c *fiber.Ctx) error {
	itemID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	if err := s.itemService.DeleteItem(c.Context(), itemID); err != nil {
		return respondServiceError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}
