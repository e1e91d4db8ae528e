package services

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"swiftcart/internal/domain"
	"swiftcart/internal/pricing"
	"swiftcart/internal/repos"
)

const maxAvailableCoupons = 5

type CouponInfo struct {
	Code           string  `json:"code"`
	Description    string  `json:"description"`
	DiscountType   string  `json:"discountType"`
	DiscountValue  float64 `json:"discountValue"`
	DiscountAmount float64 `json:"discountAmount"`
}

type ValidationResult struct {
	Success bool        `json:"success"`
	Message string      `json:"message"`
	Data    *CouponInfo `json:"data,omitempty"`
}

type AvailableCoupon struct {
	Code              string  `json:"code"`
	Description       string  `json:"description"`
	DiscountType      string  `json:"discountType"`
	DiscountValue     float64 `json:"discountValue"`
	MinOrderValue     float64 `json:"minOrderValue"`
	IsApplicable      bool    `json:"isApplicable"`
	PotentialDiscount float64 `json:"potentialDiscount"`
}

type CouponService struct {
	Coupons *repos.CouponRepo

	// Now is the clock; tests override it.
	Now func() time.Time
}

func NewCouponService(coupons *repos.CouponRepo) *CouponService {
	return &CouponService{Coupons: coupons, Now: time.Now}
}

func declined(msg string) ValidationResult {
	return ValidationResult{Success: false, Message: msg}
}

// Validate runs the full eligibility chain for a code against an order
// total. Each failure mode has its own message; checks short-circuit in
// a fixed order so callers can rely on the most specific reason.
func (s *CouponService) Validate(code string, orderTotal float64, categories []string, userID string) ValidationResult {
	c, err := s.Coupons.ByCode(code)
	if errors.Is(err, sql.ErrNoRows) {
		return declined("Coupon not found")
	}
	if err != nil {
		return declined("Could not check coupon. Please try again.")
	}

	if !c.IsActive {
		return declined("Coupon is not active")
	}
	now := s.Now()
	if now.Before(c.StartDate) {
		return declined("Coupon is not valid yet")
	}
	if now.After(c.EndDate) {
		return declined("Coupon has expired")
	}
	if c.UsedCount >= c.UsageLimit {
		return declined("Coupon usage limit reached")
	}
	if userID != "" {
		used, err := s.Coupons.UserUsageCount(c.Code, userID)
		if err != nil {
			return declined("Could not check coupon. Please try again.")
		}
		if used >= c.UsagePerUser {
			return declined("You have already used this coupon")
		}
	}
	if orderTotal < c.MinOrderValue {
		return declined(fmt.Sprintf("Order total must be at least $%.2f to use this coupon", c.MinOrderValue))
	}
	if len(c.ApplicableCategories) > 0 && !intersects(c.ApplicableCategories, categories) {
		return declined("Coupon does not apply to the items in your cart")
	}

	return ValidationResult{
		Success: true,
		Message: "Coupon applied",
		Data: &CouponInfo{
			Code:           c.Code,
			Description:    c.Description,
			DiscountType:   c.DiscountType,
			DiscountValue:  c.DiscountValue,
			DiscountAmount: Discount(c, orderTotal),
		},
	}
}

// Discount computes the amount a coupon takes off a given total:
// percentage capped at MaxDiscount when set, fixed taken flat, and the
// result never exceeding the total itself.
func Discount(c domain.Coupon, orderTotal float64) float64 {
	var d float64
	switch c.DiscountType {
	case domain.DiscountPercentage:
		d = orderTotal * c.DiscountValue / 100
		if c.MaxDiscount != nil && d > *c.MaxDiscount {
			d = *c.MaxDiscount
		}
	case domain.DiscountFixed:
		d = c.DiscountValue
	}
	if d > orderTotal {
		d = orderTotal
	}
	if d < 0 {
		d = 0
	}
	return pricing.Round2(d)
}

// IncrementUsage commits a redemption. Called exactly once per placed
// order, after the order write succeeded.
func (s *CouponService) IncrementUsage(code, userID string) error {
	return s.Coupons.Redeem(code, userID)
}

// Available lists up to 5 coupons worth showing at checkout, most
// valuable first. Discovery only; Validate remains the gate.
func (s *CouponService) Available(orderTotal float64, categories []string, userID string) ([]AvailableCoupon, error) {
	active, err := s.Coupons.ListActive(s.Now())
	if err != nil {
		return nil, err
	}

	out := make([]AvailableCoupon, 0, maxAvailableCoupons)
	for _, c := range active {
		if c.UsedCount >= c.UsageLimit {
			continue
		}
		if len(c.ApplicableCategories) > 0 && !intersects(c.ApplicableCategories, categories) {
			continue
		}
		if userID != "" {
			used, err := s.Coupons.UserUsageCount(c.Code, userID)
			if err != nil {
				return nil, err
			}
			if used >= c.UsagePerUser {
				continue
			}
		}
		ac := AvailableCoupon{
			Code:          c.Code,
			Description:   c.Description,
			DiscountType:  c.DiscountType,
			DiscountValue: c.DiscountValue,
			MinOrderValue: c.MinOrderValue,
			IsApplicable:  orderTotal >= c.MinOrderValue,
		}
		if ac.IsApplicable {
			ac.PotentialDiscount = Discount(c, orderTotal)
		}
		out = append(out, ac)
		if len(out) == maxAvailableCoupons {
			break
		}
	}
	return out, nil
}

func intersects(a, b []string) bool {
	for _, x := range a {
		for _, y := range b {
			if x == y {
				return true
			}
		}
	}
	return false
}
