package handlers_test

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	_ "modernc.org/sqlite" // pure-Go SQLite driver

	"swiftcart/internal/http/handlers"
	"swiftcart/internal/ratelimit"
	"swiftcart/internal/repos"
	"swiftcart/internal/reservation"
	"swiftcart/internal/services"
)

// Minimal app mirroring the routing in cmd/swiftcart.
func newTestApp(t *testing.T) (*fiber.App, *repos.UserRepo) {
	t.Helper()
	db, err := repos.OpenDB(":memory:")
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	userRepo := repos.NewUserRepo(db)
	authSvc := &services.AuthService{Users: userRepo}
	deps := handlers.NewDeps(db, authSvc, reservation.NewMemoryStore(), ratelimit.NewMemoryStore())

	app := fiber.New()
	app.Use(requestid.New())
	app.Use(func(c *fiber.Ctx) error {
		if sid := c.Cookies("sid"); sid != "" {
			if u, err := authSvc.CurrentUser(sid); err == nil && u != nil {
				c.Locals("user", u)
			}
		}
		return c.Next()
	})

	api := app.Group("/api")
	api.Post("/cart/price", deps.CartHandler.Quote)
	api.Get("/availability", deps.StockHandler.Availability)
	api.Post("/webhooks/payment", deps.WebhookHandler.PaymentConfirmed)
	api.Get("/orders", handlers.RequireUser(authSvc), deps.OrderHandler.History)

	admin := app.Group("/admin", handlers.RequireAdmin(authSvc))
	admin.Get("/orders", deps.AdminHandler.ListOrders)

	return app, userRepo
}

func jsonBody(t *testing.T, v any) io.Reader {
	t.Helper()
	b, err := json.Marshal(v)
	if err != nil {
		t.Fatal(err)
	}
	return bytes.NewReader(b)
}

func decode(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()
	defer resp.Body.Close()
	var out map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatal(err)
	}
	return out
}

func TestAdminGuard(t *testing.T) {
	app, userRepo := newTestApp(t)

	// Anonymous -> 401
	resp, err := app.Test(httptest.NewRequest("GET", "/admin/orders", nil))
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("anonymous: want 401, got %d", resp.StatusCode)
	}

	// Logged-in non-admin -> 403
	_ = userRepo.BindSession("sid-user", "u-maya")
	reqUser := httptest.NewRequest("GET", "/admin/orders", nil)
	reqUser.AddCookie(&http.Cookie{Name: "sid", Value: "sid-user"})
	respUser, err := app.Test(reqUser)
	if err != nil {
		t.Fatal(err)
	}
	if respUser.StatusCode != http.StatusForbidden {
		t.Fatalf("non-admin: want 403, got %d", respUser.StatusCode)
	}

	// Admin -> 200
	_ = userRepo.BindSession("sid-admin", "u-admin")
	reqAdmin := httptest.NewRequest("GET", "/admin/orders", nil)
	reqAdmin.AddCookie(&http.Cookie{Name: "sid", Value: "sid-admin"})
	respAdmin, err := app.Test(reqAdmin)
	if err != nil {
		t.Fatal(err)
	}
	if respAdmin.StatusCode != http.StatusOK {
		t.Fatalf("admin: want 200, got %d", respAdmin.StatusCode)
	}
}

func TestOrderHistoryRequiresLogin(t *testing.T) {
	app, _ := newTestApp(t)
	resp, err := app.Test(httptest.NewRequest("GET", "/api/orders", nil))
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("want 401, got %d", resp.StatusCode)
	}
}

func TestQuoteIgnoresClientPrices(t *testing.T) {
	app, _ := newTestApp(t)

	// Seed catalog: tshirt-001 is $21.80. The client claims $1.
	req := httptest.NewRequest("POST", "/api/cart/price", jsonBody(t, fiber.Map{
		"items": []fiber.Map{{"productId": "tshirt-001", "quantity": 2, "price": 1}},
	}))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("want 200, got %d", resp.StatusCode)
	}
	body := decode(t, resp)
	data, _ := body["data"].(map[string]any)
	if data == nil {
		t.Fatalf("missing data: %v", body)
	}
	if got := data["itemsPrice"].(float64); got != 43.60 {
		t.Fatalf("want itemsPrice 43.60 from server prices, got %v", got)
	}
	// No address yet: shipping and tax stay undefined.
	if data["shippingPrice"] != nil || data["taxPrice"] != nil {
		t.Fatalf("want undefined shipping/tax, got %v / %v", data["shippingPrice"], data["taxPrice"])
	}
}

func TestAvailabilityStatuses(t *testing.T) {
	app, _ := newTestApp(t)

	cases := []struct {
		productID  string
		wantStatus string
	}{
		{"tshirt-001", "IN_STOCK"}, // seeded with 40
	}
	for _, tc := range cases {
		resp, err := app.Test(httptest.NewRequest("GET", "/api/availability?productId="+tc.productID, nil))
		if err != nil {
			t.Fatal(err)
		}
		body := decode(t, resp)
		data, _ := body["data"].(map[string]any)
		if data == nil || data["status"] != tc.wantStatus {
			t.Fatalf("%s: want %s, got %v", tc.productID, tc.wantStatus, body)
		}
	}

	// Unknown product -> 404
	resp, err := app.Test(httptest.NewRequest("GET", "/api/availability?productId=ghost-001", nil))
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("want 404 for unknown product, got %d", resp.StatusCode)
	}
}

func TestWebhookFiltersEvents(t *testing.T) {
	app, _ := newTestApp(t)

	// Foreign events are acknowledged without touching any order.
	req := httptest.NewRequest("POST", "/api/webhooks/payment", jsonBody(t, fiber.Map{
		"orderId": "o1", "event": "payment.failed",
	}))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("want 200 ack, got %d", resp.StatusCode)
	}

	// A success event for an unknown order is left for provider retries.
	req = httptest.NewRequest("POST", "/api/webhooks/payment", jsonBody(t, fiber.Map{
		"orderId": "ghost", "event": "payment.succeeded",
	}))
	req.Header.Set("Content-Type", "application/json")
	resp, err = app.Test(req)
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Fatalf("want 422 for unknown order, got %d", resp.StatusCode)
	}
}
