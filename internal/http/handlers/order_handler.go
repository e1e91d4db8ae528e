package handlers

import (
	"context"

	"github.com/gofiber/fiber/v2"

	"swiftcart/internal/domain"
	applog "swiftcart/internal/log"
	"swiftcart/internal/ratelimit"
	"swiftcart/internal/repos"
	"swiftcart/internal/services"
	"swiftcart/internal/validate"
)

type OrderHandler struct {
	Order *services.OrderService
	Repo  *repos.OrderRepo
}

// POST /api/orders. Requires a logged-in user (RequireUser runs first).
func (h *OrderHandler) Create(c *fiber.Ctx) error {
	u, _ := c.Locals("user").(*domain.User)
	if u == nil {
		return fail(c, fiber.StatusUnauthorized, "Please log in")
	}

	var in services.CartInput
	if err := c.BodyParser(&in); err != nil {
		return fail(c, fiber.StatusBadRequest, "Invalid request body")
	}

	res := h.Order.Create(context.Background(), u.ID, ratelimit.ClientID(c), in)
	if !res.Success {
		applog.Info(c, "order.create.declined", map[string]any{"user_id": u.ID, "reason": res.Message})
		return c.Status(fiber.StatusBadRequest).JSON(res)
	}
	applog.Audit(c, "order.create", map[string]any{"user_id": u.ID, "order_id": res.OrderID})
	return c.JSON(res)
}

// GET /api/orders/:id, owner or admin only.
func (h *OrderHandler) View(c *fiber.Ctx) error {
	id, ok := validate.ID(c.Params("id"))
	if !ok {
		return fail(c, fiber.StatusNotFound, "Order not found")
	}
	o, err := h.Repo.Get(id)
	if err != nil {
		return fail(c, fiber.StatusNotFound, "Order not found")
	}

	u, _ := c.Locals("user").(*domain.User)
	if u == nil || (u.ID != o.UserID && u.Role != "ADMIN") {
		applog.Security(c, "access.denied.order", map[string]any{"order_id": id})
		return fail(c, fiber.StatusNotFound, "Order not found")
	}
	return okData(c, o)
}

// GET /api/orders, the current user's order history.
func (h *OrderHandler) History(c *fiber.Ctx) error {
	u, _ := c.Locals("user").(*domain.User)
	if u == nil {
		return fail(c, fiber.StatusUnauthorized, "Please log in")
	}
	orders, err := h.Repo.ListByUser(u.ID)
	if err != nil {
		applog.Error(c, "orders.history.fail", err, nil)
		return fail(c, fiber.StatusInternalServerError, "Could not load orders")
	}
	return okData(c, orders)
}
