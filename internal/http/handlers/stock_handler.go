package handlers

import (
	"context"
	"database/sql"
	"errors"

	"github.com/gofiber/fiber/v2"

	applog "swiftcart/internal/log"
	"swiftcart/internal/ratelimit"
	"swiftcart/internal/repos"
	"swiftcart/internal/services"
	"swiftcart/internal/validate"
)

type StockHandler struct {
	Order    *services.OrderService
	Products *repos.ProductRepo
	Limiter  ratelimit.Store
}

// GET /api/availability?productId=. Effective stock: persisted count
// minus unexpired reservations.
func (h *StockHandler) Availability(c *fiber.Ctx) error {
	productID, ok := validate.ID(c.Query("productId"))
	if !ok {
		return fail(c, fiber.StatusBadRequest, "missing productId")
	}

	eff, err := h.Order.EffectiveStock(context.Background(), productID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return fail(c, fiber.StatusNotFound, "Product not found")
		}
		applog.Error(c, "availability.fail", err, map[string]any{"product": productID})
		return fail(c, fiber.StatusInternalServerError, "Could not check availability")
	}

	status := "OUT_OF_STOCK"
	switch {
	case eff >= 5:
		status = "IN_STOCK"
	case eff > 0:
		status = "LOW_STOCK"
	}
	return okData(c, fiber.Map{"status": status, "qty": eff})
}

// POST /api/notify. Back-in-stock signup, throttled per client.
func (h *StockHandler) NotifySignup(c *fiber.Ctx) error {
	if rl := h.Limiter.Check(context.Background(), ratelimit.ClientID(c), ratelimit.Notification); !rl.Allowed {
		applog.Security(c, "rate.notify.hit", nil)
		return fail(c, fiber.StatusTooManyRequests, "Too many signups, try again later")
	}

	var body struct {
		ProductID string `json:"productId"`
		Email     string `json:"email"`
	}
	if err := c.BodyParser(&body); err != nil {
		return fail(c, fiber.StatusBadRequest, "Invalid request body")
	}
	productID, ok := validate.ID(body.ProductID)
	if !ok {
		return fail(c, fiber.StatusBadRequest, "missing productId")
	}
	email, ok := validate.Email(body.Email)
	if !ok {
		return fail(c, fiber.StatusBadRequest, "enter a valid email")
	}

	if err := h.Products.SaveNotifyRequest(productID, email); err != nil {
		applog.Error(c, "notify.save.fail", err, map[string]any{"product": productID})
		return fail(c, fiber.StatusInternalServerError, "Could not save signup")
	}
	applog.Info(c, "notify.signup", map[string]any{"product": productID})
	return c.JSON(fiber.Map{"success": true, "message": "We'll let you know when it's back"})
}
