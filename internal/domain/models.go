package domain

import "time"

type Product struct {
	ID           string  `db:"id" json:"id"`
	Name         string  `db:"name" json:"name"`
	Slug         string  `db:"slug" json:"slug"`
	Category     string  `db:"category" json:"category"`
	Price        float64 `db:"price" json:"price"`
	CountInStock int     `db:"count_in_stock" json:"countInStock"`
	NumSales     int     `db:"num_sales" json:"numSales"`
	Active       bool    `db:"active" json:"active"`
	CreatedAt    string  `db:"created_at" json:"-"`
}

// DeliveryOption is one row of the configurable delivery-date list.
// Callers select one by index; the last entry is the default.
type DeliveryOption struct {
	Idx                  int     `db:"idx" json:"index"`
	Name                 string  `db:"name" json:"name"`
	DaysToDeliver        int     `db:"days_to_deliver" json:"daysToDeliver"`
	ShippingPrice        float64 `db:"shipping_price" json:"shippingPrice"`
	FreeShippingMinPrice float64 `db:"free_shipping_min_price" json:"freeShippingMinPrice"`
}

type ShippingAddress struct {
	FullName   string `json:"fullName"`
	Phone      string `json:"phone"`
	Street     string `json:"street"`
	City       string `json:"city"`
	Province   string `json:"province"`
	PostalCode string `json:"postalCode"`
	Country    string `json:"country"`
}

// OrderItem is a snapshot of a cart line at commit time. Price is the
// server's price at commit, never the client's.
type OrderItem struct {
	ProductID string  `db:"product_id" json:"productId"`
	Name      string  `db:"name" json:"name"`
	Slug      string  `db:"slug" json:"slug"`
	Category  string  `db:"category" json:"category"`
	Qty       int     `db:"qty" json:"quantity"`
	Price     float64 `db:"price" json:"price"`
	Size      string  `db:"size" json:"size,omitempty"`
	Color     string  `db:"color" json:"color,omitempty"`
}

const (
	DiscountPercentage = "percentage"
	DiscountFixed      = "fixed"
)

type Coupon struct {
	Code                 string    `json:"code"`
	Description          string    `json:"description"`
	DiscountType         string    `json:"discountType"` // percentage | fixed
	DiscountValue        float64   `json:"discountValue"`
	MinOrderValue        float64   `json:"minOrderValue"`
	MaxDiscount          *float64  `json:"maxDiscount,omitempty"`
	UsageLimit           int       `json:"usageLimit"`
	UsedCount            int       `json:"usedCount"`
	UsagePerUser         int       `json:"usagePerUser"`
	StartDate            time.Time `json:"startDate"`
	EndDate              time.Time `json:"endDate"`
	IsActive             bool      `json:"isActive"`
	ApplicableCategories []string  `json:"applicableCategories,omitempty"`
}

type Order struct {
	ID             string           `json:"id"`
	UserID         string           `json:"userId"`
	Items          []OrderItem      `json:"items"`
	Address        *ShippingAddress `json:"shippingAddress,omitempty"`
	PaymentMethod  string           `json:"paymentMethod"`
	ItemsPrice     float64          `json:"itemsPrice"`
	ShippingPrice  *float64         `json:"shippingPrice,omitempty"`
	TaxPrice       *float64         `json:"taxPrice,omitempty"`
	DiscountAmount float64          `json:"discountAmount"`
	CouponCode     string           `json:"couponCode,omitempty"`
	TotalPrice     float64          `json:"totalPrice"`
	IsPaid         bool             `json:"isPaid"`
	PaidAt         string           `json:"paidAt,omitempty"`
	IsDelivered    bool             `json:"isDelivered"`
	DeliveredAt    string           `json:"deliveredAt,omitempty"`
	Status         string           `json:"status"`
	CreatedAt      string           `json:"createdAt"`
}
