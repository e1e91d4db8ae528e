package repos

import (
	"log"
	"time"

	"github.com/jmoiron/sqlx"
	"golang.org/x/crypto/bcrypt"
	_ "modernc.org/sqlite"
)

func OpenDB(dsn string) (*sqlx.DB, error) {
	db, err := sqlx.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	if err = db.Ping(); err != nil {
		return nil, err
	}

	if err := ensureSchema(db); err != nil {
		return nil, err
	}
	// Seed baseline data if DB is empty (idempotent; safe on every start)
	if err := seedIfEmpty(db); err != nil {
		return nil, err
	}
	if err := seedUsers(db); err != nil {
		return nil, err
	}

	return db, nil
}

func ensureSchema(db *sqlx.DB) error {
	schema := `
PRAGMA foreign_keys = ON;

-- Products
CREATE TABLE IF NOT EXISTS products(
  id TEXT PRIMARY KEY,
  name TEXT NOT NULL,
  slug TEXT NOT NULL UNIQUE,
  category TEXT NOT NULL,
  price NUMERIC NOT NULL CHECK (price >= 0),
  count_in_stock INTEGER NOT NULL DEFAULT 0 CHECK (count_in_stock >= 0),
  num_sales INTEGER NOT NULL DEFAULT 0,
  active INTEGER NOT NULL DEFAULT 1,
  created_at TEXT DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_products_category ON products(category);
CREATE INDEX IF NOT EXISTS idx_products_slug     ON products(slug);

-- Coupons
CREATE TABLE IF NOT EXISTS coupons(
  code TEXT PRIMARY KEY,
  description TEXT,
  discount_type TEXT NOT NULL CHECK (discount_type IN ('percentage','fixed')),
  discount_value NUMERIC NOT NULL CHECK (discount_value >= 0),
  min_order_value NUMERIC NOT NULL DEFAULT 0,
  max_discount NUMERIC,
  usage_limit INTEGER NOT NULL,
  used_count INTEGER NOT NULL DEFAULT 0,
  usage_per_user INTEGER NOT NULL DEFAULT 1,
  start_date TEXT NOT NULL,
  end_date TEXT NOT NULL,
  is_active INTEGER NOT NULL DEFAULT 1,
  applicable_categories TEXT
);

CREATE TABLE IF NOT EXISTS coupon_redemptions(
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  code TEXT NOT NULL REFERENCES coupons(code) ON DELETE CASCADE,
  user_id TEXT NOT NULL,
  used_at TEXT DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_redemptions_code_user ON coupon_redemptions(code, user_id);

-- Orders
CREATE TABLE IF NOT EXISTS orders(
  id TEXT PRIMARY KEY,
  user_id TEXT NOT NULL,
  payment_method TEXT NOT NULL,
  items_price NUMERIC NOT NULL,
  shipping_price NUMERIC,
  tax_price NUMERIC,
  discount_amount NUMERIC NOT NULL DEFAULT 0,
  coupon_code TEXT,
  total_price NUMERIC NOT NULL CHECK (total_price >= 0),
  ship_full_name TEXT, ship_phone TEXT, ship_street TEXT,
  ship_city TEXT, ship_province TEXT, ship_postal_code TEXT, ship_country TEXT,
  is_paid INTEGER NOT NULL DEFAULT 0,
  paid_at TEXT,
  is_delivered INTEGER NOT NULL DEFAULT 0,
  delivered_at TEXT,
  status TEXT NOT NULL DEFAULT 'PLACED',
  created_at TEXT DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_orders_user       ON orders(user_id);
CREATE INDEX IF NOT EXISTS idx_orders_created_at ON orders(created_at);

CREATE TABLE IF NOT EXISTS order_items(
  order_id TEXT NOT NULL REFERENCES orders(id) ON DELETE CASCADE,
  product_id TEXT NOT NULL,
  name TEXT NOT NULL,
  slug TEXT NOT NULL,
  category TEXT NOT NULL,
  qty INTEGER NOT NULL CHECK (qty >= 1),
  price NUMERIC NOT NULL,
  size TEXT NOT NULL DEFAULT '',
  color TEXT NOT NULL DEFAULT '',
  PRIMARY KEY (order_id, product_id, size, color)
);

-- Delivery-date options (site configuration)
CREATE TABLE IF NOT EXISTS delivery_options(
  idx INTEGER PRIMARY KEY,
  name TEXT NOT NULL,
  days_to_deliver INTEGER NOT NULL,
  shipping_price NUMERIC NOT NULL,
  free_shipping_min_price NUMERIC NOT NULL DEFAULT 0
);

-- Back-in-stock notification signups
CREATE TABLE IF NOT EXISTS stock_notify_requests(
  product_id TEXT NOT NULL,
  email TEXT NOT NULL,
  created_at TEXT DEFAULT CURRENT_TIMESTAMP,
  PRIMARY KEY (product_id, email)
);

-- Users & Sessions
CREATE TABLE IF NOT EXISTS users(
  id TEXT PRIMARY KEY,
  email TEXT NOT NULL UNIQUE,
  name TEXT NOT NULL,
  password_hash TEXT NOT NULL,
  role TEXT NOT NULL CHECK (role IN ('USER','ADMIN')),
  created_at TEXT DEFAULT CURRENT_TIMESTAMP
);
CREATE UNIQUE INDEX IF NOT EXISTS idx_users_email ON users(LOWER(email));

CREATE TABLE IF NOT EXISTS sessions(
  id TEXT PRIMARY KEY,
  user_id TEXT NULL REFERENCES users(id) ON DELETE SET NULL,
  created_at TEXT DEFAULT CURRENT_TIMESTAMP,
  last_seen  TEXT
);
CREATE INDEX IF NOT EXISTS idx_sessions_user ON sessions(user_id);
`
	_, err := db.Exec(schema)
	return err
}

func seedIfEmpty(db *sqlx.DB) error {
	var n int
	if err := db.Get(&n, `SELECT COUNT(*) FROM delivery_options`); err != nil {
		return err
	}
	if n > 0 {
		return nil
	}

	log.Println("[seed] inserting demo products/coupons/delivery options")

	now := time.Now().UTC()
	tx := db.MustBegin()
	defer func() { _ = tx.Rollback() }()

	tx.MustExec(`INSERT INTO delivery_options(idx,name,days_to_deliver,shipping_price,free_shipping_min_price) VALUES
	  (0,'Tomorrow',1,12.90,0),
	  (1,'Next 3 Days',3,6.90,0),
	  (2,'Next 5 Days',5,4.90,35)`)

	tx.MustExec(`INSERT INTO products(id,name,slug,category,price,count_in_stock) VALUES
	  ('tshirt-001','Classic Crew Tee','classic-crew-tee','T-Shirts',21.80,40),
	  ('jeans-001','Slim Fit Jeans','slim-fit-jeans','Jeans',39.95,25),
	  ('shoes-001','Canvas Sneakers','canvas-sneakers','Shoes',54.00,12),
	  ('watch-001','Minimal Quartz Watch','minimal-quartz-watch','Wrist Watches',89.99,6)`)

	month := now.AddDate(0, 1, 0).Format(time.RFC3339)
	start := now.AddDate(0, 0, -1).Format(time.RFC3339)
	tx.MustExec(`INSERT INTO coupons
	  (code,description,discount_type,discount_value,min_order_value,max_discount,usage_limit,usage_per_user,start_date,end_date,is_active,applicable_categories)
	  VALUES
	  ('SAVE10','$10 off orders over $20','fixed',10,20,NULL,100,1,?,?,1,NULL),
	  ('WELCOME20','20% off your first order','percentage',20,0,25,500,1,?,?,1,NULL),
	  ('SHOEFAN15','15% off shoes','percentage',15,30,NULL,50,2,?,?,1,'["Shoes"]')`,
		start, month, start, month, start, month)

	return tx.Commit()
}

// seedUsers ensures one USER and one ADMIN exist (idempotent).
func seedUsers(db *sqlx.DB) error {
	type u struct {
		ID, Email, Name, Role, Hash string
	}
	mk := func(id, email, name, role, raw string) u {
		h, _ := bcrypt.GenerateFromPassword([]byte(raw), 12)
		return u{ID: id, Email: email, Name: name, Role: role, Hash: string(h)}
	}

	users := []u{
		mk("u-maya", "maya@swiftcart.test", "Maya", "USER", "Passw0rd!"),
		mk("u-admin", "admin@swiftcart.test", "Admin", "ADMIN", "Passw0rd!"),
	}

	tx := db.MustBegin()
	defer func() { _ = tx.Rollback() }()

	for _, x := range users {
		if _, err := tx.Exec(`
			INSERT INTO users(id,email,name,password_hash,role)
			VALUES(?,?,?,?,?)
			ON CONFLICT(email) DO NOTHING
		`, x.ID, x.Email, x.Name, x.Hash, x.Role); err != nil {
			return err
		}
	}

	return tx.Commit()
}
