package pricing_test

import (
	"reflect"
	"testing"

	"swiftcart/internal/domain"
	"swiftcart/internal/pricing"
)

var testOptions = []domain.DeliveryOption{
	{Idx: 0, Name: "Tomorrow", DaysToDeliver: 1, ShippingPrice: 12.90},
	{Idx: 1, Name: "Next 3 Days", DaysToDeliver: 3, ShippingPrice: 5},
}

func items(price float64, qty int) []domain.OrderItem {
	return []domain.OrderItem{{ProductID: "p1", Name: "P1", Qty: qty, Price: price}}
}

func TestCalculate_NoAddress(t *testing.T) {
	q, err := pricing.Calculate(testOptions, pricing.Input{Items: items(10, 2)})
	if err != nil {
		t.Fatal(err)
	}
	if q.ItemsPrice != 20 {
		t.Fatalf("want itemsPrice=20, got %v", q.ItemsPrice)
	}
	// Pre-address state: shipping and tax undefined, not zero.
	if q.ShippingPrice != nil || q.TaxPrice != nil {
		t.Fatalf("want nil shipping/tax, got %v %v", q.ShippingPrice, q.TaxPrice)
	}
	if q.TotalPrice != 20 {
		t.Fatalf("want totalPrice=20, got %v", q.TotalPrice)
	}
	// Default delivery index is the last configured option.
	if q.DeliveryIndex != 1 {
		t.Fatalf("want default index 1, got %d", q.DeliveryIndex)
	}
}

func TestCalculate_WithAddress(t *testing.T) {
	idx := 1
	q, err := pricing.Calculate(testOptions, pricing.Input{
		Items:         items(10, 2),
		Address:       &domain.ShippingAddress{FullName: "Maya", City: "Springfield"},
		DeliveryIndex: &idx,
	})
	if err != nil {
		t.Fatal(err)
	}
	// 20 items + 5 shipping + 3 tax (15% of 20)
	if q.ShippingPrice == nil || *q.ShippingPrice != 5 {
		t.Fatalf("want shipping=5, got %v", q.ShippingPrice)
	}
	if q.TaxPrice == nil || *q.TaxPrice != 3 {
		t.Fatalf("want tax=3, got %v", q.TaxPrice)
	}
	if q.TotalPrice != 28 {
		t.Fatalf("want total=28, got %v", q.TotalPrice)
	}
}

func TestCalculate_FreeShippingThreshold(t *testing.T) {
	opts := []domain.DeliveryOption{
		{Idx: 0, Name: "Standard", DaysToDeliver: 5, ShippingPrice: 30, FreeShippingMinPrice: 500},
	}
	addr := &domain.ShippingAddress{FullName: "Maya"}

	q, err := pricing.Calculate(opts, pricing.Input{Items: items(500, 1), Address: addr})
	if err != nil {
		t.Fatal(err)
	}
	if *q.ShippingPrice != 0 {
		t.Fatalf("at threshold: want free shipping, got %v", *q.ShippingPrice)
	}

	q, err = pricing.Calculate(opts, pricing.Input{Items: items(499.99, 1), Address: addr})
	if err != nil {
		t.Fatal(err)
	}
	if *q.ShippingPrice != 30 {
		t.Fatalf("below threshold: want shipping=30, got %v", *q.ShippingPrice)
	}
}

func TestCalculate_Pure(t *testing.T) {
	in := pricing.Input{
		Items:   items(19.99, 3),
		Address: &domain.ShippingAddress{FullName: "Maya"},
	}
	a, err := pricing.Calculate(testOptions, in)
	if err != nil {
		t.Fatal(err)
	}
	b, err := pricing.Calculate(testOptions, in)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(a, b) {
		t.Fatalf("same input produced different quotes:\n%+v\n%+v", a, b)
	}
}

func TestCalculate_OutOfRangeIndexFallsBack(t *testing.T) {
	idx := 99
	q, err := pricing.Calculate(testOptions, pricing.Input{Items: items(10, 1), DeliveryIndex: &idx})
	if err != nil {
		t.Fatal(err)
	}
	if q.DeliveryIndex != 1 {
		t.Fatalf("want fallback to last index, got %d", q.DeliveryIndex)
	}
}

func TestCalculate_NoOptions(t *testing.T) {
	if _, err := pricing.Calculate(nil, pricing.Input{Items: items(10, 1)}); err == nil {
		t.Fatal("want error with no delivery options")
	}
}

func TestRound2(t *testing.T) {
	if got := pricing.Round2(10.006); got != 10.01 {
		t.Fatalf("want 10.01, got %v", got)
	}
	if got := pricing.Round2(3.0); got != 3.0 {
		t.Fatalf("want 3.0, got %v", got)
	}
}
