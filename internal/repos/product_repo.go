package repos

import (
	"fmt"

	"github.com/jmoiron/sqlx"

	"swiftcart/internal/domain"
)

type ProductRepo struct{ db *sqlx.DB }

func NewProductRepo(db *sqlx.DB) *ProductRepo { return &ProductRepo{db: db} }

func (r *ProductRepo) Get(id string) (*domain.Product, error) {
	var p domain.Product
	err := r.db.Get(&p, `
		SELECT id,name,slug,category,price,count_in_stock,num_sales,active,created_at
		FROM products WHERE id = ?`, id)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// ByIDs bulk-fetches products in one query so order placement doesn't
// issue a lookup per cart line.
func (r *ProductRepo) ByIDs(ids []string) (map[string]domain.Product, error) {
	out := make(map[string]domain.Product, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	query, args, err := sqlx.In(`
		SELECT id,name,slug,category,price,count_in_stock,num_sales,active,created_at
		FROM products WHERE id IN (?)`, ids)
	if err != nil {
		return nil, err
	}
	var rows []domain.Product
	if err := r.db.Select(&rows, query, args...); err != nil {
		return nil, err
	}
	for _, p := range rows {
		out[p.ID] = p
	}
	return out, nil
}

// DeductTx subtracts qty and bumps num_sales inside the caller's
// transaction, only if enough stock remains.
func (r *ProductRepo) DeductTx(tx *sqlx.Tx, productID string, qty int) error {
	res, err := tx.Exec(`
		UPDATE products
		SET count_in_stock = count_in_stock - ?, num_sales = num_sales + ?
		WHERE id = ? AND count_in_stock >= ?
	`, qty, qty, productID, qty)
	if err != nil {
		return err
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return fmt.Errorf("insufficient stock for %s", productID)
	}
	return nil
}

// Deduct is the non-transactional fallback: same guarded conditional
// update, applied directly.
func (r *ProductRepo) Deduct(productID string, qty int) error {
	res, err := r.db.Exec(`
		UPDATE products
		SET count_in_stock = count_in_stock - ?, num_sales = num_sales + ?
		WHERE id = ? AND count_in_stock >= ?
	`, qty, qty, productID, qty)
	if err != nil {
		return err
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return fmt.Errorf("insufficient stock for %s", productID)
	}
	return nil
}

// SaveNotifyRequest records a back-in-stock signup (idempotent per
// product+email).
func (r *ProductRepo) SaveNotifyRequest(productID, email string) error {
	_, err := r.db.Exec(`
		INSERT INTO stock_notify_requests(product_id, email)
		VALUES(?, ?)
		ON CONFLICT(product_id, email) DO NOTHING
	`, productID, email)
	return err
}
