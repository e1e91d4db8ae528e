package handlers

import (
	"context"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	applog "swiftcart/internal/log"
	"swiftcart/internal/ratelimit"
	"swiftcart/internal/services"
	"swiftcart/internal/validate"
)

type AuthHandler struct {
	Auth    *services.AuthService
	Limiter ratelimit.Store
}

func ensureSID(c *fiber.Ctx) string {
	sid := c.Cookies("sid")
	if sid == "" {
		sid = uuid.NewString()
		c.Cookie(&fiber.Cookie{
			Name:     "sid",
			Value:    sid,
			Path:     "/",
			HTTPOnly: true,
			SameSite: fiber.CookieSameSiteLaxMode,
			Secure:   false, // set true behind TLS
		})
	}
	return sid
}

func (h *AuthHandler) Login(c *fiber.Ctx) error {
	if rl := h.Limiter.Check(context.Background(), ratelimit.ClientID(c), ratelimit.Auth); !rl.Allowed {
		applog.Security(c, "rate.login.hit", nil)
		return fail(c, fiber.StatusTooManyRequests, "Too many attempts. Please try again later.")
	}

	var body struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := c.BodyParser(&body); err != nil {
		return fail(c, fiber.StatusBadRequest, "Invalid request body")
	}
	email, ok := validate.Email(body.Email)
	if !ok || !validate.Password(body.Password) {
		applog.Security(c, "auth.login.fail", map[string]any{"reason": "bad_format"})
		return fail(c, fiber.StatusUnauthorized, "Invalid email or password")
	}

	sid := ensureSID(c)
	u, err := h.Auth.Login(sid, email, body.Password)
	if err != nil {
		applog.Security(c, "auth.login.fail", map[string]any{"email": email})
		return fail(c, fiber.StatusUnauthorized, "Invalid email or password")
	}
	applog.Audit(c, "auth.login", map[string]any{"user_id": u.ID})
	return okData(c, fiber.Map{"name": u.Name, "role": u.Role})
}

func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	if sid := c.Cookies("sid"); sid != "" {
		_ = h.Auth.Logout(sid)
	}
	return c.JSON(fiber.Map{"success": true, "message": "Logged out"})
}
