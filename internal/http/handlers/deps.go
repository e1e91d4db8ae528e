package handlers

import (
	"github.com/jmoiron/sqlx"

	"swiftcart/internal/ratelimit"
	"swiftcart/internal/repos"
	"swiftcart/internal/reservation"
	"swiftcart/internal/services"
)

type Deps struct {
	AuthHandler    *AuthHandler
	CartHandler    *CartHandler
	CouponHandler  *CouponHandler
	OrderHandler   *OrderHandler
	StockHandler   *StockHandler
	WebhookHandler *WebhookHandler
	AdminHandler   *AdminHandler
}

func NewDeps(db *sqlx.DB, auth *services.AuthService, stock reservation.Store, limiter ratelimit.Store) *Deps {
	prodRepo := repos.NewProductRepo(db)
	couponRepo := repos.NewCouponRepo(db)
	orderRepo := repos.NewOrderRepo(db)
	deliveryRepo := repos.NewDeliveryRepo(db)

	couponSvc := services.NewCouponService(couponRepo)
	settingsSvc := services.NewSettingsService(deliveryRepo)
	outbox := services.NewOutbox()
	orderSvc := services.NewOrderService(
		prodRepo, orderRepo, couponSvc, settingsSvc, stock, limiter, outbox, services.LogNotifier{})

	return &Deps{
		AuthHandler:    &AuthHandler{Auth: auth, Limiter: limiter},
		CartHandler:    &CartHandler{Products: prodRepo, Settings: settingsSvc},
		CouponHandler:  &CouponHandler{Coupons: couponSvc, Limiter: limiter},
		OrderHandler:   &OrderHandler{Order: orderSvc, Repo: orderRepo},
		StockHandler:   &StockHandler{Order: orderSvc, Products: prodRepo, Limiter: limiter},
		WebhookHandler: &WebhookHandler{Order: orderSvc},
		AdminHandler: &AdminHandler{
			Order:    orderSvc,
			Orders:   orderRepo,
			Coupons:  couponRepo,
			Delivery: deliveryRepo,
			Settings: settingsSvc,
		},
	}
}
