package handlers

import (
	"github.com/gofiber/fiber/v2"

	applog "swiftcart/internal/log"
	"swiftcart/internal/services"
	"swiftcart/internal/validate"
)

// WebhookHandler receives payment-provider callbacks. Provider SDK
// verification happens upstream; this endpoint only consumes the
// success event and drives stock deduction.
type WebhookHandler struct {
	Order *services.OrderService
}

// POST /api/webhooks/payment
func (h *WebhookHandler) PaymentConfirmed(c *fiber.Ctx) error {
	var body struct {
		OrderID string `json:"orderId"`
		Event   string `json:"event"`
	}
	if err := c.BodyParser(&body); err != nil {
		return fail(c, fiber.StatusBadRequest, "Invalid request body")
	}
	if body.Event != "payment.succeeded" {
		// Not ours to handle; acknowledge so the provider stops retrying.
		return c.JSON(fiber.Map{"success": true, "message": "Event ignored"})
	}
	orderID, ok := validate.ID(body.OrderID)
	if !ok {
		return fail(c, fiber.StatusBadRequest, "missing orderId")
	}

	res := h.Order.MarkPaid(orderID)
	if !res.Success {
		// Leave it to provider retries / manual reconciliation.
		applog.Error(c, "webhook.payment.fail", nil, map[string]any{
			"order_id": orderID, "reason": res.Message})
		return c.Status(fiber.StatusUnprocessableEntity).JSON(res)
	}
	applog.Audit(c, "webhook.payment", map[string]any{"order_id": orderID})
	return c.JSON(res)
}
