package repos

import (
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"

	"swiftcart/internal/domain"
)

var ErrUsageLimitReached = errors.New("coupon usage limit reached")

type CouponRepo struct{ db *sqlx.DB }

func NewCouponRepo(db *sqlx.DB) *CouponRepo { return &CouponRepo{db: db} }

type couponRow struct {
	Code                 string   `db:"code"`
	Description          string   `db:"description"`
	DiscountType         string   `db:"discount_type"`
	DiscountValue        float64  `db:"discount_value"`
	MinOrderValue        float64  `db:"min_order_value"`
	MaxDiscount          *float64 `db:"max_discount"`
	UsageLimit           int      `db:"usage_limit"`
	UsedCount            int      `db:"used_count"`
	UsagePerUser         int      `db:"usage_per_user"`
	StartDate            string   `db:"start_date"`
	EndDate              string   `db:"end_date"`
	IsActive             bool     `db:"is_active"`
	ApplicableCategories *string  `db:"applicable_categories"`
}

func (r couponRow) toDomain() (domain.Coupon, error) {
	start, err := time.Parse(time.RFC3339, r.StartDate)
	if err != nil {
		return domain.Coupon{}, err
	}
	end, err := time.Parse(time.RFC3339, r.EndDate)
	if err != nil {
		return domain.Coupon{}, err
	}
	c := domain.Coupon{
		Code:          r.Code,
		Description:   r.Description,
		DiscountType:  r.DiscountType,
		DiscountValue: r.DiscountValue,
		MinOrderValue: r.MinOrderValue,
		MaxDiscount:   r.MaxDiscount,
		UsageLimit:    r.UsageLimit,
		UsedCount:     r.UsedCount,
		UsagePerUser:  r.UsagePerUser,
		StartDate:     start,
		EndDate:       end,
		IsActive:      r.IsActive,
	}
	if r.ApplicableCategories != nil && *r.ApplicableCategories != "" {
		if err := json.Unmarshal([]byte(*r.ApplicableCategories), &c.ApplicableCategories); err != nil {
			return domain.Coupon{}, err
		}
	}
	return c, nil
}

const couponCols = `code,description,discount_type,discount_value,min_order_value,max_discount,
	usage_limit,used_count,usage_per_user,start_date,end_date,is_active,applicable_categories`

// ByCode looks a coupon up case-insensitively. Returns sql.ErrNoRows
// when the code is unknown.
func (r *CouponRepo) ByCode(code string) (domain.Coupon, error) {
	var row couponRow
	err := r.db.Get(&row, `SELECT `+couponCols+` FROM coupons WHERE UPPER(code) = UPPER(?)`, code)
	if err != nil {
		return domain.Coupon{}, err
	}
	return row.toDomain()
}

// UserUsageCount counts redemptions of a coupon by one user.
func (r *CouponRepo) UserUsageCount(code, userID string) (int, error) {
	var n int
	err := r.db.Get(&n, `
		SELECT COUNT(*) FROM coupon_redemptions
		WHERE UPPER(code) = UPPER(?) AND user_id = ?`, code, userID)
	return n, err
}

// Redeem increments used_count and records the redeeming user in one
// transaction. The increment is guarded so used_count can never pass
// usage_limit even under concurrent redemptions.
func (r *CouponRepo) Redeem(code, userID string) error {
	tx, err := r.db.Beginx()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.Exec(`
		UPDATE coupons SET used_count = used_count + 1
		WHERE UPPER(code) = UPPER(?) AND used_count < usage_limit
	`, code)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrUsageLimitReached
	}

	if userID != "" {
		if _, err := tx.Exec(`
			INSERT INTO coupon_redemptions(code, user_id, used_at)
			VALUES(UPPER(?), ?, ?)
		`, code, userID, time.Now().UTC().Format(time.RFC3339)); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// ListActive returns active coupons whose window contains now, ordered
// by discount value descending.
func (r *CouponRepo) ListActive(now time.Time) ([]domain.Coupon, error) {
	var rows []couponRow
	err := r.db.Select(&rows, `
		SELECT `+couponCols+` FROM coupons
		WHERE is_active = 1 AND start_date <= ? AND end_date >= ?
		ORDER BY discount_value DESC
	`, now.Format(time.RFC3339), now.Format(time.RFC3339))
	if err != nil {
		return nil, err
	}
	out := make([]domain.Coupon, 0, len(rows))
	for _, row := range rows {
		c, err := row.toDomain()
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, nil
}

func (r *CouponRepo) Create(c domain.Coupon) error {
	var cats *string
	if len(c.ApplicableCategories) > 0 {
		b, err := json.Marshal(c.ApplicableCategories)
		if err != nil {
			return err
		}
		s := string(b)
		cats = &s
	}
	_, err := r.db.Exec(`
		INSERT INTO coupons
		  (code,description,discount_type,discount_value,min_order_value,max_discount,
		   usage_limit,used_count,usage_per_user,start_date,end_date,is_active,applicable_categories)
		VALUES (UPPER(?),?,?,?,?,?,?,0,?,?,?,?,?)
	`, c.Code, c.Description, c.DiscountType, c.DiscountValue, c.MinOrderValue, c.MaxDiscount,
		c.UsageLimit, c.UsagePerUser,
		c.StartDate.Format(time.RFC3339), c.EndDate.Format(time.RFC3339), c.IsActive, cats)
	return err
}

func (r *CouponRepo) Deactivate(code string) error {
	res, err := r.db.Exec(`UPDATE coupons SET is_active = 0 WHERE UPPER(code) = UPPER(?)`, code)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sql.ErrNoRows
	}
	return nil
}
