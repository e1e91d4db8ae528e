package services_test

import (
	"strings"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite" // pure-Go SQLite driver

	"swiftcart/internal/domain"
	"swiftcart/internal/repos"
	"swiftcart/internal/services"
)

func memdb(t *testing.T) *sqlx.DB {
	t.Helper()
	db, err := repos.OpenDB(":memory:")
	if err != nil {
		t.Fatal(err)
	}
	return db
}

func f64(v float64) *float64 { return &v }

func mkCoupon(t *testing.T, repo *repos.CouponRepo, c domain.Coupon) {
	t.Helper()
	if c.StartDate.IsZero() {
		c.StartDate = time.Now().Add(-time.Hour)
	}
	if c.EndDate.IsZero() {
		c.EndDate = time.Now().Add(24 * time.Hour)
	}
	if err := repo.Create(c); err != nil {
		t.Fatal(err)
	}
}

func TestValidate_ShortCircuitMessages(t *testing.T) {
	db := memdb(t)
	repo := repos.NewCouponRepo(db)
	svc := services.NewCouponService(repo)

	mkCoupon(t, repo, domain.Coupon{
		Code: "INACTIVE", DiscountType: domain.DiscountFixed, DiscountValue: 5,
		UsageLimit: 10, UsagePerUser: 1, IsActive: false,
	})
	mkCoupon(t, repo, domain.Coupon{
		Code: "EXPIRED", DiscountType: domain.DiscountFixed, DiscountValue: 5,
		UsageLimit: 10, UsagePerUser: 1, IsActive: true,
		StartDate: time.Now().Add(-48 * time.Hour), EndDate: time.Now().Add(-24 * time.Hour),
	})
	mkCoupon(t, repo, domain.Coupon{
		Code: "FUTURE", DiscountType: domain.DiscountFixed, DiscountValue: 5,
		UsageLimit: 10, UsagePerUser: 1, IsActive: true,
		StartDate: time.Now().Add(24 * time.Hour), EndDate: time.Now().Add(48 * time.Hour),
	})
	mkCoupon(t, repo, domain.Coupon{
		Code: "MINBUY", DiscountType: domain.DiscountFixed, DiscountValue: 5,
		MinOrderValue: 100, UsageLimit: 10, UsagePerUser: 1, IsActive: true,
	})
	mkCoupon(t, repo, domain.Coupon{
		Code: "SHOESONLY", DiscountType: domain.DiscountFixed, DiscountValue: 5,
		UsageLimit: 10, UsagePerUser: 1, IsActive: true,
		ApplicableCategories: []string{"Shoes"},
	})

	cases := []struct {
		name       string
		code       string
		total      float64
		categories []string
		wantMsg    string
	}{
		{"unknown code", "NOPE", 50, nil, "Coupon not found"},
		{"inactive", "INACTIVE", 50, nil, "Coupon is not active"},
		{"expired", "EXPIRED", 50, nil, "Coupon has expired"},
		{"not yet valid", "FUTURE", 50, nil, "Coupon is not valid yet"},
		{"below minimum", "MINBUY", 50, nil, "at least"},
		{"category mismatch", "SHOESONLY", 50, []string{"Jeans"}, "does not apply"},
	}
	for _, tc := range cases {
		res := svc.Validate(tc.code, tc.total, tc.categories, "u-maya")
		if res.Success {
			t.Fatalf("%s: want decline", tc.name)
		}
		if !strings.Contains(res.Message, tc.wantMsg) {
			t.Fatalf("%s: want message containing %q, got %q", tc.name, tc.wantMsg, res.Message)
		}
	}
}

func TestValidate_CaseInsensitiveAndTrimmed(t *testing.T) {
	db := memdb(t)
	repo := repos.NewCouponRepo(db)
	svc := services.NewCouponService(repo)

	mkCoupon(t, repo, domain.Coupon{
		Code: "DEAL5", DiscountType: domain.DiscountFixed, DiscountValue: 5,
		UsageLimit: 10, UsagePerUser: 1, IsActive: true,
	})

	res := svc.Validate("deal5", 50, nil, "")
	if !res.Success {
		t.Fatalf("lowercase lookup should succeed: %s", res.Message)
	}
	if res.Data.Code != "DEAL5" {
		t.Fatalf("want canonical code DEAL5, got %s", res.Data.Code)
	}
}

func TestDiscount_PercentageCapAndFloor(t *testing.T) {
	// 50% of 100 = 50, capped at 20.
	c := domain.Coupon{DiscountType: domain.DiscountPercentage, DiscountValue: 50, MaxDiscount: f64(20)}
	if d := services.Discount(c, 100); d != 20 {
		t.Fatalf("want capped discount 20, got %v", d)
	}

	// Fixed discount never exceeds the order total.
	c = domain.Coupon{DiscountType: domain.DiscountFixed, DiscountValue: 30}
	if d := services.Discount(c, 12.50); d != 12.50 {
		t.Fatalf("want discount clamped to 12.50, got %v", d)
	}
}

func TestIncrementUsage_Monotonic(t *testing.T) {
	db := memdb(t)
	repo := repos.NewCouponRepo(db)
	svc := services.NewCouponService(repo)

	mkCoupon(t, repo, domain.Coupon{
		Code: "TWICE", DiscountType: domain.DiscountFixed, DiscountValue: 5,
		UsageLimit: 2, UsagePerUser: 5, IsActive: true,
	})

	for i := 1; i <= 2; i++ {
		if err := svc.IncrementUsage("TWICE", "u-maya"); err != nil {
			t.Fatal(err)
		}
		c, err := repo.ByCode("TWICE")
		if err != nil {
			t.Fatal(err)
		}
		if c.UsedCount != i {
			t.Fatalf("want usedCount=%d, got %d", i, c.UsedCount)
		}
	}

	// The guarded update refuses to pass the usage limit.
	if err := svc.IncrementUsage("TWICE", "u-maya"); err == nil {
		t.Fatal("increment past usage limit should fail")
	}
	c, _ := repo.ByCode("TWICE")
	if c.UsedCount != 2 {
		t.Fatalf("usedCount must never exceed usageLimit, got %d", c.UsedCount)
	}
}

func TestValidate_PerUserCap(t *testing.T) {
	db := memdb(t)
	repo := repos.NewCouponRepo(db)
	svc := services.NewCouponService(repo)

	mkCoupon(t, repo, domain.Coupon{
		Code: "ONEEACH", DiscountType: domain.DiscountFixed, DiscountValue: 5,
		UsageLimit: 100, UsagePerUser: 1, IsActive: true,
	})

	if err := svc.IncrementUsage("ONEEACH", "u-maya"); err != nil {
		t.Fatal(err)
	}

	// Plenty of global usage left, but this user is done.
	res := svc.Validate("ONEEACH", 50, nil, "u-maya")
	if res.Success || !strings.Contains(res.Message, "already used") {
		t.Fatalf("want per-user decline, got %+v", res)
	}

	// A different user is unaffected.
	if res := svc.Validate("ONEEACH", 50, nil, "u-other"); !res.Success {
		t.Fatalf("other user should validate: %s", res.Message)
	}
}

func TestAvailable(t *testing.T) {
	db := memdb(t)
	repo := repos.NewCouponRepo(db)
	svc := services.NewCouponService(repo)

	mkCoupon(t, repo, domain.Coupon{
		Code: "BIG", DiscountType: domain.DiscountPercentage, DiscountValue: 30,
		MinOrderValue: 200, UsageLimit: 10, UsagePerUser: 1, IsActive: true,
	})
	mkCoupon(t, repo, domain.Coupon{
		Code: "SMALL", DiscountType: domain.DiscountFixed, DiscountValue: 5,
		UsageLimit: 10, UsagePerUser: 1, IsActive: true,
	})
	mkCoupon(t, repo, domain.Coupon{
		Code: "USEDUP", DiscountType: domain.DiscountFixed, DiscountValue: 50,
		UsageLimit: 1, UsagePerUser: 1, IsActive: true,
	})
	if err := svc.IncrementUsage("USEDUP", "someone"); err != nil {
		t.Fatal(err)
	}

	list, err := svc.Available(100, nil, "")
	if err != nil {
		t.Fatal(err)
	}

	byCode := make(map[string]services.AvailableCoupon, len(list))
	for _, ac := range list {
		byCode[ac.Code] = ac
	}
	if _, ok := byCode["USEDUP"]; ok {
		t.Fatal("globally exhausted coupon must not be listed")
	}
	if ac := byCode["BIG"]; ac.IsApplicable || ac.PotentialDiscount != 0 {
		t.Fatalf("below-minimum coupon should be listed as not applicable: %+v", ac)
	}
	if ac := byCode["SMALL"]; !ac.IsApplicable || ac.PotentialDiscount != 5 {
		t.Fatalf("want SMALL applicable with discount 5, got %+v", ac)
	}
}
