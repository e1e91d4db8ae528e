package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"swiftcart/internal/domain"
	applog "swiftcart/internal/log"
	"swiftcart/internal/pricing"
	"swiftcart/internal/ratelimit"
	"swiftcart/internal/repos"
	"swiftcart/internal/reservation"
	"swiftcart/internal/validate"
)

type CartItemInput struct {
	ProductID string `json:"productId"`
	Qty       int    `json:"quantity"`
	Size      string `json:"size"`
	Color     string `json:"color"`
	// Price is the client's local view. Audited against the server
	// price, never used for totals.
	Price    float64 `json:"price"`
	ClientID string  `json:"clientId"`
}

type CartInput struct {
	Items         []CartItemInput         `json:"items"`
	Address       *domain.ShippingAddress `json:"shippingAddress"`
	DeliveryIndex *int                    `json:"deliveryDateIndex"`
	PaymentMethod string                  `json:"paymentMethod"`
	CouponCode    string                  `json:"couponCode"`
	ClientTotal   float64                 `json:"totalPrice"`
}

type CreateResult struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	OrderID string `json:"orderId,omitempty"`
}

type Result struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

type OrderService struct {
	Products *repos.ProductRepo
	Orders   *repos.OrderRepo
	Coupons  *CouponService
	Settings *SettingsService
	Stock    reservation.Store
	Limiter  ratelimit.Store
	Outbox   *Outbox
	Notify   Notifier
}

func NewOrderService(
	products *repos.ProductRepo,
	orders *repos.OrderRepo,
	coupons *CouponService,
	settings *SettingsService,
	stock reservation.Store,
	limiter ratelimit.Store,
	outbox *Outbox,
	notify Notifier,
) *OrderService {
	return &OrderService{
		Products: products,
		Orders:   orders,
		Coupons:  coupons,
		Settings: settings,
		Stock:    stock,
		Limiter:  limiter,
		Outbox:   outbox,
		Notify:   notify,
	}
}

// Create places an order from a client cart. The sequence is fixed:
// rate limit, reserve stock, validate coupon, recompute price, persist,
// then release reservations and commit coupon usage. Reordering it
// would, for example, redeem a coupon for an order that then fails on
// stock. Only item identity, quantity, size and color are trusted from
// the client; prices and totals are recomputed from the store's view.
func (s *OrderService) Create(ctx context.Context, userID, clientID string, in CartInput) CreateResult {
	ident := userID
	if ident == "" {
		ident = clientID
	}
	if rl := s.Limiter.Check(ctx, ident, ratelimit.Order); !rl.Allowed {
		return CreateResult{Message: fmt.Sprintf(
			"Too many order attempts. Please try again in %d seconds.", int(rl.ResetIn.Seconds())+1)}
	}

	if len(in.Items) == 0 {
		return CreateResult{Message: "Your cart is empty"}
	}
	method, ok := validate.PaymentMethod(in.PaymentMethod)
	if !ok {
		return CreateResult{Message: "Unsupported payment method"}
	}

	// Safety net against duplicate submissions: drop any holds left
	// over from this user's earlier attempts.
	s.Stock.ReleaseUser(ctx, userID)

	ids := make([]string, 0, len(in.Items))
	seen := make(map[string]bool, len(in.Items))
	for _, it := range in.Items {
		if !seen[it.ProductID] {
			seen[it.ProductID] = true
			ids = append(ids, it.ProductID)
		}
	}
	products, err := s.Products.ByIDs(ids)
	if err != nil {
		applog.BgError("order.create.products", err, map[string]any{"user_id": userID})
		return CreateResult{Message: "Could not place order. Please try again."}
	}

	// Reserve every line; collect every shortfall so the user gets one
	// itemized message, and roll back this attempt's holds on failure.
	var granted []string
	var short []string
	items := make([]domain.OrderItem, 0, len(in.Items))
	for _, it := range in.Items {
		p, found := products[it.ProductID]
		if !found || !p.Active {
			short = append(short, fmt.Sprintf("%s (no longer available)", it.ProductID))
			continue
		}
		qty := validate.Qty(it.Qty)
		key, ok := s.Stock.Create(ctx, p.ID, qty, userID, p.CountInStock)
		if !ok {
			eff := s.Stock.EffectiveStock(ctx, p.ID, p.CountInStock)
			short = append(short, fmt.Sprintf("%s (%d available)", p.Name, eff))
			continue
		}
		granted = append(granted, key)
		items = append(items, domain.OrderItem{
			ProductID: p.ID,
			Name:      p.Name,
			Slug:      p.Slug,
			Category:  p.Category,
			Qty:       qty,
			Price:     p.Price,
			Size:      it.Size,
			Color:     it.Color,
		})
	}
	if len(short) > 0 {
		for _, key := range granted {
			s.Stock.Release(ctx, key)
		}
		return CreateResult{Message: "Insufficient stock for: " + strings.Join(short, ", ")}
	}

	// Server-side coupon re-validation, against the server's item total.
	itemsTotal := 0.0
	categories := make([]string, 0, len(items))
	for _, it := range items {
		itemsTotal += it.Price * float64(it.Qty)
		categories = append(categories, it.Category)
	}
	itemsTotal = pricing.Round2(itemsTotal)

	discount := 0.0
	couponCode := ""
	if in.CouponCode != "" {
		code, ok := validate.CouponCode(in.CouponCode)
		if !ok {
			s.releaseAll(ctx, granted)
			return CreateResult{Message: "Invalid coupon code"}
		}
		vr := s.Coupons.Validate(code, itemsTotal, categories, userID)
		if !vr.Success {
			s.releaseAll(ctx, granted)
			return CreateResult{Message: vr.Message}
		}
		discount = vr.Data.DiscountAmount
		couponCode = vr.Data.Code
	}

	opts, err := s.Settings.DeliveryOptions()
	if err != nil {
		s.releaseAll(ctx, granted)
		applog.BgError("order.create.settings", err, map[string]any{"user_id": userID})
		return CreateResult{Message: "Could not place order. Please try again."}
	}
	quote, err := pricing.Calculate(opts, pricing.Input{
		Items:         items,
		Address:       in.Address,
		DeliveryIndex: in.DeliveryIndex,
	})
	if err != nil {
		s.releaseAll(ctx, granted)
		applog.BgError("order.create.pricing", err, map[string]any{"user_id": userID})
		return CreateResult{Message: "Could not place order. Please try again."}
	}

	total := pricing.Round2(quote.TotalPrice - discount)
	if total < 0 {
		total = 0
	}

	order := domain.Order{
		ID:             uuid.NewString(),
		UserID:         userID,
		Items:          items,
		Address:        in.Address,
		PaymentMethod:  method,
		ItemsPrice:     quote.ItemsPrice,
		ShippingPrice:  quote.ShippingPrice,
		TaxPrice:       quote.TaxPrice,
		DiscountAmount: discount,
		CouponCode:     couponCode,
		TotalPrice:     total,
	}
	if err := s.Orders.Create(order); err != nil {
		s.releaseAll(ctx, granted)
		applog.BgError("order.create.persist", err, map[string]any{"user_id": userID})
		return CreateResult{Message: "Could not place order. Please try again."}
	}

	if in.ClientTotal != 0 && in.ClientTotal != total {
		applog.BgInfo("order.total.mismatch", map[string]any{
			"order_id": order.ID, "server_total": total, "client_total": in.ClientTotal})
	}

	// The persisted order now carries the commitment; holds and the
	// coupon counter are follow-ups, retried and logged, never blocking
	// the success response.
	s.Outbox.Enqueue("reservation.release", order.ID, func() error {
		s.Stock.ReleaseUser(context.Background(), userID)
		return nil
	})
	if couponCode != "" {
		code := couponCode
		s.Outbox.Enqueue("coupon.increment", order.ID, func() error {
			return s.Coupons.IncrementUsage(code, userID)
		})
	}

	return CreateResult{Success: true, Message: "Order placed", OrderID: order.ID}
}

func (s *OrderService) releaseAll(ctx context.Context, keys []string) {
	for _, key := range keys {
		s.Stock.Release(ctx, key)
	}
}

// MarkPaid runs on payment confirmation only (webhook or admin action),
// never at order creation: bank-transfer and COD orders exist unpaid.
// It deducts persisted stock and bumps sales counters for every line,
// atomically when a transaction is available; the fallback path applies
// guarded per-item updates and reports exactly what was applied if it
// has to stop midway.
func (s *OrderService) MarkPaid(orderID string) Result {
	o, err := s.Orders.Get(orderID)
	if err != nil {
		return Result{Message: "Order not found"}
	}
	if o.IsPaid {
		return Result{Success: true, Message: "Order already paid"}
	}

	now := time.Now()
	tx, err := s.Orders.Beginx()
	if err == nil {
		for _, it := range o.Items {
			if derr := s.Products.DeductTx(tx, it.ProductID, it.Qty); derr != nil {
				_ = tx.Rollback()
				applog.BgError("order.paid.deduct", derr, map[string]any{"order_id": orderID})
				return Result{Message: "Stock deduction failed: " + derr.Error()}
			}
		}
		if perr := s.Orders.SetPaidTx(tx, orderID, now); perr != nil {
			_ = tx.Rollback()
			applog.BgError("order.paid.update", perr, map[string]any{"order_id": orderID})
			return Result{Message: "Could not update order"}
		}
		if cerr := tx.Commit(); cerr != nil {
			applog.BgError("order.paid.commit", cerr, map[string]any{"order_id": orderID})
			return Result{Message: "Could not update order"}
		}
	} else {
		// No transaction available: guarded per-item updates. A failure
		// partway through is surfaced with what was already applied so
		// it can be reconciled, not silently half-done.
		var applied []string
		for _, it := range o.Items {
			if derr := s.Products.Deduct(it.ProductID, it.Qty); derr != nil {
				applog.BgError("order.paid.deduct.partial", derr, map[string]any{
					"order_id": orderID, "applied": applied})
				return Result{Message: fmt.Sprintf(
					"Stock deduction failed for %s; already applied: %s", it.ProductID, strings.Join(applied, ", "))}
			}
			applied = append(applied, it.ProductID)
		}
		if perr := s.Orders.SetPaid(orderID, now); perr != nil {
			applog.BgError("order.paid.update", perr, map[string]any{"order_id": orderID})
			return Result{Message: "Could not update order"}
		}
	}

	o.IsPaid = true
	go func() {
		if nerr := s.Notify.PurchaseReceipt(o); nerr != nil {
			applog.BgError("notify.purchase_receipt.fail", nerr, map[string]any{"order_id": orderID})
		}
	}()

	return Result{Success: true, Message: "Order marked as paid"}
}

// MarkDelivered flips delivery status and queues the review reminder.
func (s *OrderService) MarkDelivered(orderID string) Result {
	o, err := s.Orders.Get(orderID)
	if err != nil {
		return Result{Message: "Order not found"}
	}
	if !o.IsPaid {
		return Result{Message: "Order is not paid yet"}
	}
	if o.IsDelivered {
		return Result{Success: true, Message: "Order already delivered"}
	}
	if err := s.Orders.SetDelivered(orderID, time.Now()); err != nil {
		applog.BgError("order.delivered.update", err, map[string]any{"order_id": orderID})
		return Result{Message: "Could not update order"}
	}

	go func() {
		if nerr := s.Notify.ReviewReminder(o); nerr != nil {
			applog.BgError("notify.review_reminder.fail", nerr, map[string]any{"order_id": orderID})
		}
	}()

	return Result{Success: true, Message: "Order marked as delivered"}
}

// EffectiveStock is persisted stock minus unexpired reservations, the
// number the storefront shows as "left in stock".
func (s *OrderService) EffectiveStock(ctx context.Context, productID string) (int, error) {
	p, err := s.Products.Get(productID)
	if err != nil {
		return 0, err
	}
	return s.Stock.EffectiveStock(ctx, productID, p.CountInStock), nil
}
