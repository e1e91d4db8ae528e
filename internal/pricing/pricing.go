// Package pricing computes the server-side order totals. Calculate is
// pure given its inputs plus the configured delivery options, so the
// storefront can call it on every cart mutation.
package pricing

import (
	"errors"
	"math"

	"swiftcart/internal/domain"
)

// TaxRate is a flat simplification, not a jurisdiction-aware engine.
const TaxRate = 0.15

var ErrNoDeliveryOptions = errors.New("no delivery options configured")

type Input struct {
	Items []domain.OrderItem
	// Address nil means the pre-address cart state: shipping and tax
	// are not yet defined (distinct from zero).
	Address *domain.ShippingAddress
	// DeliveryIndex nil selects the last configured option.
	DeliveryIndex *int
}

type Quote struct {
	AvailableDeliveryDates []domain.DeliveryOption `json:"availableDeliveryDates"`
	DeliveryIndex          int                     `json:"deliveryDateIndex"`
	ItemsPrice             float64                 `json:"itemsPrice"`
	ShippingPrice          *float64                `json:"shippingPrice"`
	TaxPrice               *float64                `json:"taxPrice"`
	TotalPrice             float64                 `json:"totalPrice"`
}

// Round2 rounds to 2 decimal places. Applied at each intermediate sum
// so drift does not accumulate across repeated cart mutations.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func Calculate(options []domain.DeliveryOption, in Input) (Quote, error) {
	if len(options) == 0 {
		return Quote{}, ErrNoDeliveryOptions
	}

	idx := len(options) - 1 // default: last configured option
	if in.DeliveryIndex != nil {
		idx = *in.DeliveryIndex
		if idx < 0 || idx >= len(options) {
			idx = len(options) - 1
		}
	}
	opt := options[idx]

	items := 0.0
	for _, it := range in.Items {
		items += it.Price * float64(it.Qty)
	}
	items = Round2(items)

	q := Quote{
		AvailableDeliveryDates: options,
		DeliveryIndex:          idx,
		ItemsPrice:             items,
	}

	if in.Address != nil {
		shipping := opt.ShippingPrice
		if opt.FreeShippingMinPrice > 0 && items >= opt.FreeShippingMinPrice {
			shipping = 0
		}
		tax := Round2(items * TaxRate)
		q.ShippingPrice = &shipping
		q.TaxPrice = &tax
	}

	total := items
	if q.ShippingPrice != nil {
		total += *q.ShippingPrice
	}
	if q.TaxPrice != nil {
		total += *q.TaxPrice
	}
	q.TotalPrice = Round2(total)
	return q, nil
}
