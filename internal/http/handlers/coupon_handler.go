package handlers

import (
	"context"

	"github.com/gofiber/fiber/v2"

	"swiftcart/internal/domain"
	applog "swiftcart/internal/log"
	"swiftcart/internal/ratelimit"
	"swiftcart/internal/services"
	"swiftcart/internal/validate"
)

type CouponHandler struct {
	Coupons *services.CouponService
	Limiter ratelimit.Store
}

func currentUserID(c *fiber.Ctx) string {
	if u, ok := c.Locals("user").(*domain.User); ok && u != nil {
		return u.ID
	}
	return ""
}

// POST /api/coupons/validate
func (h *CouponHandler) Validate(c *fiber.Ctx) error {
	if rl := h.Limiter.Check(context.Background(), ratelimit.ClientID(c), ratelimit.API); !rl.Allowed {
		applog.Security(c, "rate.coupon.hit", nil)
		return fail(c, fiber.StatusTooManyRequests, "Too many requests, retry soon")
	}

	var body struct {
		Code       string   `json:"code"`
		OrderTotal float64  `json:"orderTotal"`
		Categories []string `json:"categories"`
	}
	if err := c.BodyParser(&body); err != nil {
		return fail(c, fiber.StatusBadRequest, "Invalid request body")
	}
	code, ok := validate.CouponCode(body.Code)
	if !ok {
		return fail(c, fiber.StatusBadRequest, "Invalid coupon code")
	}

	res := h.Coupons.Validate(code, body.OrderTotal, body.Categories, currentUserID(c))
	if !res.Success {
		applog.Info(c, "coupon.declined", map[string]any{"code": code, "reason": res.Message})
	}
	return c.JSON(res)
}

// GET /api/coupons/available?orderTotal=&categories=a,b
func (h *CouponHandler) Available(c *fiber.Ctx) error {
	total := c.QueryFloat("orderTotal", 0)
	var categories []string
	if raw := c.Query("categories"); raw != "" {
		for _, cat := range splitCSV(raw) {
			categories = append(categories, cat)
		}
	}

	list, err := h.Coupons.Available(total, categories, currentUserID(c))
	if err != nil {
		applog.Error(c, "coupon.available", err, nil)
		return fail(c, fiber.StatusInternalServerError, "Could not load coupons")
	}
	return okData(c, list)
}
