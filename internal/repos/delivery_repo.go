package repos

import (
	"github.com/jmoiron/sqlx"

	"swiftcart/internal/domain"
)

// DeliveryRepo reads and writes the configured delivery-date option
// list. Order in the list matters: the last row is the default.
type DeliveryRepo struct{ db *sqlx.DB }

func NewDeliveryRepo(db *sqlx.DB) *DeliveryRepo { return &DeliveryRepo{db: db} }

func (r *DeliveryRepo) Options() ([]domain.DeliveryOption, error) {
	var out []domain.DeliveryOption
	err := r.db.Select(&out, `
		SELECT idx, name, days_to_deliver, shipping_price, free_shipping_min_price
		FROM delivery_options
		ORDER BY idx
	`)
	return out, err
}

func (r *DeliveryRepo) Upsert(o domain.DeliveryOption) error {
	_, err := r.db.Exec(`
		INSERT INTO delivery_options(idx, name, days_to_deliver, shipping_price, free_shipping_min_price)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(idx) DO UPDATE SET
		  name = excluded.name,
		  days_to_deliver = excluded.days_to_deliver,
		  shipping_price = excluded.shipping_price,
		  free_shipping_min_price = excluded.free_shipping_min_price
	`, o.Idx, o.Name, o.DaysToDeliver, o.ShippingPrice, o.FreeShippingMinPrice)
	return err
}
