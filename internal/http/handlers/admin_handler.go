package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"swiftcart/internal/domain"
	applog "swiftcart/internal/log"
	"swiftcart/internal/repos"
	"swiftcart/internal/services"
	"swiftcart/internal/validate"
)

type AdminHandler struct {
	Order    *services.OrderService
	Orders   *repos.OrderRepo
	Coupons  *repos.CouponRepo
	Delivery *repos.DeliveryRepo
	Settings *services.SettingsService
}

// GET /admin/orders
func (h *AdminHandler) ListOrders(c *fiber.Ctx) error {
	ords, err := h.Orders.ListLatest(100)
	if err != nil {
		applog.Error(c, "admin.orders.list.fail", err, nil)
		return fail(c, fiber.StatusInternalServerError, "Could not load orders")
	}
	return okData(c, ords)
}

// POST /admin/orders/:id/paid. The admin "mark as paid" action, the
// second trigger for stock deduction besides the payment webhook.
func (h *AdminHandler) MarkPaid(c *fiber.Ctx) error {
	id, ok := validate.ID(c.Params("id"))
	if !ok {
		return fail(c, fiber.StatusBadRequest, "missing id")
	}
	res := h.Order.MarkPaid(id)
	if !res.Success {
		applog.Error(c, "admin.orders.paid.fail", nil, map[string]any{"order_id": id, "reason": res.Message})
		return c.Status(fiber.StatusBadRequest).JSON(res)
	}
	applog.Audit(c, "admin.orders.paid", map[string]any{"order_id": id})
	return c.JSON(res)
}

// POST /admin/orders/:id/delivered
func (h *AdminHandler) MarkDelivered(c *fiber.Ctx) error {
	id, ok := validate.ID(c.Params("id"))
	if !ok {
		return fail(c, fiber.StatusBadRequest, "missing id")
	}
	res := h.Order.MarkDelivered(id)
	if !res.Success {
		return c.Status(fiber.StatusBadRequest).JSON(res)
	}
	applog.Audit(c, "admin.orders.delivered", map[string]any{"order_id": id})
	return c.JSON(res)
}

// POST /admin/delivery-options. Upserts one option and drop the
// settings cache so checkout sees it immediately.
func (h *AdminHandler) UpsertDeliveryOption(c *fiber.Ctx) error {
	var opt domain.DeliveryOption
	if err := c.BodyParser(&opt); err != nil {
		return fail(c, fiber.StatusBadRequest, "Invalid request body")
	}
	if opt.Idx < 0 || opt.Name == "" || opt.DaysToDeliver < 0 || opt.ShippingPrice < 0 {
		return fail(c, fiber.StatusBadRequest, "invalid delivery option")
	}
	if err := h.Delivery.Upsert(opt); err != nil {
		applog.Error(c, "admin.delivery.save.fail", err, nil)
		return fail(c, fiber.StatusBadRequest, "could not save delivery option")
	}
	h.Settings.Invalidate()
	applog.Audit(c, "admin.delivery.save", map[string]any{"idx": opt.Idx, "name": opt.Name})
	return c.JSON(fiber.Map{"success": true, "message": "Delivery option saved"})
}

type couponRequest struct {
	Code                 string   `json:"code"`
	Description          string   `json:"description"`
	DiscountType         string   `json:"discountType"`
	DiscountValue        float64  `json:"discountValue"`
	MinOrderValue        float64  `json:"minOrderValue"`
	MaxDiscount          *float64 `json:"maxDiscount"`
	UsageLimit           int      `json:"usageLimit"`
	UsagePerUser         int      `json:"usagePerUser"`
	StartDate            string   `json:"startDate"`
	EndDate              string   `json:"endDate"`
	ApplicableCategories []string `json:"applicableCategories"`
}

// POST /admin/coupons
func (h *AdminHandler) CreateCoupon(c *fiber.Ctx) error {
	var req couponRequest
	if err := c.BodyParser(&req); err != nil {
		return fail(c, fiber.StatusBadRequest, "Invalid request body")
	}
	code, ok := validate.CouponCode(req.Code)
	if !ok {
		return fail(c, fiber.StatusBadRequest, "invalid coupon code")
	}
	if req.DiscountType != domain.DiscountPercentage && req.DiscountType != domain.DiscountFixed {
		return fail(c, fiber.StatusBadRequest, "discountType must be percentage or fixed")
	}
	if req.DiscountValue <= 0 || req.UsageLimit < 1 || req.UsagePerUser < 1 {
		return fail(c, fiber.StatusBadRequest, "invalid coupon values")
	}
	start, err := time.Parse(time.RFC3339, req.StartDate)
	if err != nil {
		return fail(c, fiber.StatusBadRequest, "invalid startDate")
	}
	end, err := time.Parse(time.RFC3339, req.EndDate)
	if err != nil || !end.After(start) {
		return fail(c, fiber.StatusBadRequest, "invalid endDate")
	}

	coupon := domain.Coupon{
		Code:                 code,
		Description:          req.Description,
		DiscountType:         req.DiscountType,
		DiscountValue:        req.DiscountValue,
		MinOrderValue:        req.MinOrderValue,
		MaxDiscount:          req.MaxDiscount,
		UsageLimit:           req.UsageLimit,
		UsagePerUser:         req.UsagePerUser,
		StartDate:            start,
		EndDate:              end,
		IsActive:             true,
		ApplicableCategories: req.ApplicableCategories,
	}
	if err := h.Coupons.Create(coupon); err != nil {
		applog.Error(c, "admin.coupons.create.fail", err, map[string]any{"code": code})
		return fail(c, fiber.StatusBadRequest, "could not create coupon")
	}
	applog.Audit(c, "admin.coupons.create", map[string]any{"code": code})
	return c.JSON(fiber.Map{"success": true, "message": "Coupon created"})
}

// POST /admin/coupons/:code/deactivate
func (h *AdminHandler) DeactivateCoupon(c *fiber.Ctx) error {
	code, ok := validate.CouponCode(c.Params("code"))
	if !ok {
		return fail(c, fiber.StatusBadRequest, "invalid coupon code")
	}
	if err := h.Coupons.Deactivate(code); err != nil {
		return fail(c, fiber.StatusNotFound, "coupon not found")
	}
	applog.Audit(c, "admin.coupons.deactivate", map[string]any{"code": code})
	return c.JSON(fiber.Map{"success": true, "message": "Coupon deactivated"})
}
