package repos

import (
	"time"

	"github.com/jmoiron/sqlx"

	"swiftcart/internal/domain"
)

type OrderRepo struct{ db *sqlx.DB }

func NewOrderRepo(db *sqlx.DB) *OrderRepo { return &OrderRepo{db: db} }

type orderRow struct {
	ID             string   `db:"id"`
	UserID         string   `db:"user_id"`
	PaymentMethod  string   `db:"payment_method"`
	ItemsPrice     float64  `db:"items_price"`
	ShippingPrice  *float64 `db:"shipping_price"`
	TaxPrice       *float64 `db:"tax_price"`
	DiscountAmount float64  `db:"discount_amount"`
	CouponCode     *string  `db:"coupon_code"`
	TotalPrice     float64  `db:"total_price"`
	ShipFullName   *string  `db:"ship_full_name"`
	ShipPhone      *string  `db:"ship_phone"`
	ShipStreet     *string  `db:"ship_street"`
	ShipCity       *string  `db:"ship_city"`
	ShipProvince   *string  `db:"ship_province"`
	ShipPostalCode *string  `db:"ship_postal_code"`
	ShipCountry    *string  `db:"ship_country"`
	IsPaid         bool     `db:"is_paid"`
	PaidAt         *string  `db:"paid_at"`
	IsDelivered    bool     `db:"is_delivered"`
	DeliveredAt    *string  `db:"delivered_at"`
	Status         string   `db:"status"`
	CreatedAt      string   `db:"created_at"`
}

func (r orderRow) toDomain() domain.Order {
	o := domain.Order{
		ID:             r.ID,
		UserID:         r.UserID,
		PaymentMethod:  r.PaymentMethod,
		ItemsPrice:     r.ItemsPrice,
		ShippingPrice:  r.ShippingPrice,
		TaxPrice:       r.TaxPrice,
		DiscountAmount: r.DiscountAmount,
		TotalPrice:     r.TotalPrice,
		IsPaid:         r.IsPaid,
		IsDelivered:    r.IsDelivered,
		Status:         r.Status,
		CreatedAt:      r.CreatedAt,
	}
	if r.CouponCode != nil {
		o.CouponCode = *r.CouponCode
	}
	if r.PaidAt != nil {
		o.PaidAt = *r.PaidAt
	}
	if r.DeliveredAt != nil {
		o.DeliveredAt = *r.DeliveredAt
	}
	if r.ShipFullName != nil {
		deref := func(s *string) string {
			if s == nil {
				return ""
			}
			return *s
		}
		o.Address = &domain.ShippingAddress{
			FullName:   deref(r.ShipFullName),
			Phone:      deref(r.ShipPhone),
			Street:     deref(r.ShipStreet),
			City:       deref(r.ShipCity),
			Province:   deref(r.ShipProvince),
			PostalCode: deref(r.ShipPostalCode),
			Country:    deref(r.ShipCountry),
		}
	}
	return o
}

// Create persists the order header and its item snapshots in a single
// transaction, so no half-committed order is ever visible.
func (r *OrderRepo) Create(o domain.Order) error {
	tx, err := r.db.Beginx()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	var coupon *string
	if o.CouponCode != "" {
		coupon = &o.CouponCode
	}
	var fullName, phone, street, city, province, postal, country *string
	if o.Address != nil {
		a := o.Address
		fullName, phone, street = &a.FullName, &a.Phone, &a.Street
		city, province, postal, country = &a.City, &a.Province, &a.PostalCode, &a.Country
	}

	if _, err := tx.Exec(`
	  INSERT INTO orders
	    (id, user_id, payment_method, items_price, shipping_price, tax_price,
	     discount_amount, coupon_code, total_price,
	     ship_full_name, ship_phone, ship_street, ship_city, ship_province, ship_postal_code, ship_country,
	     status, created_at)
	  VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,'PLACED',?)
	`, o.ID, o.UserID, o.PaymentMethod, o.ItemsPrice, o.ShippingPrice, o.TaxPrice,
		o.DiscountAmount, coupon, o.TotalPrice,
		fullName, phone, street, city, province, postal, country,
		time.Now().UTC().Format(time.RFC3339)); err != nil {
		return err
	}

	for _, it := range o.Items {
		if _, err := tx.Exec(`
		  INSERT INTO order_items(order_id, product_id, name, slug, category, qty, price, size, color)
		  VALUES(?,?,?,?,?,?,?,?,?)
		`, o.ID, it.ProductID, it.Name, it.Slug, it.Category, it.Qty, it.Price, it.Size, it.Color); err != nil {
			return err
		}
	}

	return tx.Commit()
}

func (r *OrderRepo) Get(orderID string) (domain.Order, error) {
	var row orderRow
	if err := r.db.Get(&row, `SELECT * FROM orders WHERE id = ?`, orderID); err != nil {
		return domain.Order{}, err
	}
	o := row.toDomain()

	if err := r.db.Select(&o.Items, `
		SELECT product_id, name, slug, category, qty, price, size, color
		FROM order_items WHERE order_id = ?
		ORDER BY name
	`, orderID); err != nil {
		return domain.Order{}, err
	}
	return o, nil
}

func (r *OrderRepo) ListByUser(userID string) ([]domain.Order, error) {
	var rows []orderRow
	err := r.db.Select(&rows, `
		SELECT * FROM orders WHERE user_id = ?
		ORDER BY datetime(created_at) DESC
	`, userID)
	if err != nil {
		return nil, err
	}
	out := make([]domain.Order, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toDomain())
	}
	return out, nil
}

func (r *OrderRepo) ListLatest(limit int) ([]domain.Order, error) {
	if limit <= 0 {
		limit = 100
	}
	var rows []orderRow
	err := r.db.Select(&rows, `
		SELECT * FROM orders
		ORDER BY datetime(created_at) DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	out := make([]domain.Order, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toDomain())
	}
	return out, nil
}

// SetPaidTx flips payment status inside the caller's stock-deduction
// transaction.
func (r *OrderRepo) SetPaidTx(tx *sqlx.Tx, orderID string, at time.Time) error {
	_, err := tx.Exec(`UPDATE orders SET is_paid = 1, paid_at = ?, status = 'PAID' WHERE id = ?`,
		at.UTC().Format(time.RFC3339), orderID)
	return err
}

func (r *OrderRepo) SetPaid(orderID string, at time.Time) error {
	_, err := r.db.Exec(`UPDATE orders SET is_paid = 1, paid_at = ?, status = 'PAID' WHERE id = ?`,
		at.UTC().Format(time.RFC3339), orderID)
	return err
}

func (r *OrderRepo) SetDelivered(orderID string, at time.Time) error {
	_, err := r.db.Exec(`UPDATE orders SET is_delivered = 1, delivered_at = ?, status = 'DELIVERED' WHERE id = ?`,
		at.UTC().Format(time.RFC3339), orderID)
	return err
}

func (r *OrderRepo) Beginx() (*sqlx.Tx, error) { return r.db.Beginx() }
