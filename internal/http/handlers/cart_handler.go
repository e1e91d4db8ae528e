package handlers

import (
	"github.com/gofiber/fiber/v2"

	"swiftcart/internal/domain"
	applog "swiftcart/internal/log"
	"swiftcart/internal/pricing"
	"swiftcart/internal/repos"
	"swiftcart/internal/services"
	"swiftcart/internal/validate"
)

// CartHandler serves the pricing quote the client calls on every cart
// mutation. The client cart is a local replica; this endpoint is where
// it learns the server's view of prices and totals.
type CartHandler struct {
	Products *repos.ProductRepo
	Settings *services.SettingsService
}

type quoteRequest struct {
	Items         []services.CartItemInput `json:"items"`
	Address       *domain.ShippingAddress  `json:"shippingAddress"`
	DeliveryIndex *int                     `json:"deliveryDateIndex"`
}

func (h *CartHandler) Quote(c *fiber.Ctx) error {
	var req quoteRequest
	if err := c.BodyParser(&req); err != nil {
		return fail(c, fiber.StatusBadRequest, "Invalid request body")
	}

	ids := make([]string, 0, len(req.Items))
	for _, it := range req.Items {
		if id, ok := validate.ID(it.ProductID); ok {
			ids = append(ids, id)
		}
	}
	products, err := h.Products.ByIDs(ids)
	if err != nil {
		applog.Error(c, "cart.quote.products", err, nil)
		return fail(c, fiber.StatusInternalServerError, "Could not compute prices")
	}

	items := make([]domain.OrderItem, 0, len(req.Items))
	for _, it := range req.Items {
		p, found := products[it.ProductID]
		if !found {
			continue
		}
		items = append(items, domain.OrderItem{
			ProductID: p.ID,
			Name:      p.Name,
			Slug:      p.Slug,
			Category:  p.Category,
			Qty:       validate.Qty(it.Qty),
			Price:     p.Price,
			Size:      it.Size,
			Color:     it.Color,
		})
	}

	opts, err := h.Settings.DeliveryOptions()
	if err != nil {
		applog.Error(c, "cart.quote.settings", err, nil)
		return fail(c, fiber.StatusInternalServerError, "Could not compute prices")
	}
	quote, err := pricing.Calculate(opts, pricing.Input{
		Items:         items,
		Address:       req.Address,
		DeliveryIndex: req.DeliveryIndex,
	})
	if err != nil {
		applog.Error(c, "cart.quote.calc", err, nil)
		return fail(c, fiber.StatusInternalServerError, "Could not compute prices")
	}
	return okData(c, quote)
}
