// Package testdb opens an isolated in-memory sqlite schema for repository and service tests.
package testdb

import (
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/ferremas/backoffice/pkg/db/models"
	"github.com/ferremas/backoffice/pkg/enums"
)

var schema = []string{
	`CREATE TABLE users (
  id TEXT PRIMARY KEY,
  username TEXT NOT NULL UNIQUE,
  email TEXT NOT NULL UNIQUE,
  password_hash TEXT NOT NULL,
  first_name TEXT,
  last_name TEXT,
  phone TEXT,
  address TEXT,
  role TEXT NOT NULL DEFAULT 'customer',
  is_active INTEGER NOT NULL DEFAULT 1,
  password_change_required INTEGER NOT NULL DEFAULT 0,
  last_login_at DATETIME,
  created_at DATETIME,
  updated_at DATETIME
);`,
	`CREATE TABLE branches (
  id TEXT PRIMARY KEY,
  name TEXT NOT NULL,
  address TEXT NOT NULL,
  city TEXT NOT NULL,
  region TEXT NOT NULL,
  phone TEXT,
  is_main INTEGER NOT NULL DEFAULT 0,
  is_active INTEGER NOT NULL DEFAULT 1,
  created_at DATETIME,
  updated_at DATETIME
);`,
	`CREATE TABLE categories (
  id TEXT PRIMARY KEY,
  name TEXT NOT NULL,
  description TEXT,
  parent_id TEXT REFERENCES categories(id) ON DELETE SET NULL,
  created_at DATETIME
);`,
	`CREATE TABLE products (
  id TEXT PRIMARY KEY,
  sku TEXT NOT NULL UNIQUE,
  name TEXT NOT NULL,
  description TEXT,
  brand TEXT,
  category_id TEXT REFERENCES categories(id) ON DELETE SET NULL,
  price TEXT NOT NULL,
  discount_percentage TEXT NOT NULL DEFAULT '0',
  is_active INTEGER NOT NULL DEFAULT 1,
  created_at DATETIME,
  updated_at DATETIME
);`,
	`CREATE TABLE price_history (
  id TEXT PRIMARY KEY,
  product_id TEXT NOT NULL REFERENCES products(id) ON DELETE CASCADE,
  price TEXT NOT NULL,
  discount_percentage TEXT NOT NULL DEFAULT '0',
  changed_by TEXT,
  created_at DATETIME
);`,
	`CREATE TABLE stock (
  id TEXT PRIMARY KEY,
  product_id TEXT NOT NULL REFERENCES products(id) ON DELETE CASCADE,
  branch_id TEXT NOT NULL REFERENCES branches(id) ON DELETE CASCADE,
  quantity INTEGER NOT NULL DEFAULT 0,
  min_stock INTEGER NOT NULL DEFAULT 5,
  updated_at DATETIME,
  CONSTRAINT uq_stock_product_branch UNIQUE (product_id, branch_id)
);`,
	`CREATE TABLE orders (
  id TEXT PRIMARY KEY,
  order_number TEXT NOT NULL UNIQUE,
  user_id TEXT NOT NULL REFERENCES users(id) ON DELETE RESTRICT,
  branch_id TEXT REFERENCES branches(id) ON DELETE SET NULL,
  status TEXT NOT NULL DEFAULT 'pending',
  total_amount TEXT NOT NULL,
  discount_amount TEXT NOT NULL DEFAULT '0',
  delivery_method TEXT NOT NULL,
  delivery_address TEXT,
  delivery_cost TEXT NOT NULL DEFAULT '0',
  notes TEXT,
  created_at DATETIME,
  updated_at DATETIME
);`,
	`CREATE TABLE order_items (
  id TEXT PRIMARY KEY,
  order_id TEXT NOT NULL REFERENCES orders(id) ON DELETE CASCADE,
  product_id TEXT NOT NULL REFERENCES products(id) ON DELETE RESTRICT,
  quantity INTEGER NOT NULL CHECK (quantity > 0),
  unit_price TEXT NOT NULL,
  created_at DATETIME
);`,
	`CREATE TABLE order_status_history (
  id TEXT PRIMARY KEY,
  order_id TEXT NOT NULL REFERENCES orders(id) ON DELETE CASCADE,
  old_status TEXT NOT NULL,
  new_status TEXT NOT NULL,
  notes TEXT,
  changed_by TEXT,
  created_at DATETIME
);`,
	`CREATE TABLE payments (
  id TEXT PRIMARY KEY,
  order_id TEXT NOT NULL REFERENCES orders(id) ON DELETE RESTRICT,
  amount TEXT NOT NULL,
  currency TEXT NOT NULL DEFAULT 'CLP',
  payment_method TEXT NOT NULL,
  status TEXT NOT NULL DEFAULT 'pending',
  transaction_id TEXT,
  buy_order TEXT,
  token TEXT,
  payment_date DATETIME,
  notes TEXT,
  created_at DATETIME,
  updated_at DATETIME
);`,
	`CREATE UNIQUE INDEX uq_payments_live_order ON payments(order_id) WHERE status IN ('pending','processing','completed');`,
	`CREATE TABLE currency_exchange_rates (
  id TEXT PRIMARY KEY,
  from_currency TEXT NOT NULL,
  to_currency TEXT NOT NULL,
  rate TEXT NOT NULL,
  fetched_at DATETIME NOT NULL
);`,
}

// Open returns a fresh database with the back-office schema applied.
func Open(t testing.TB) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_fk=1", uuid.NewString())
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		SkipDefaultTransaction: true,
		NowFunc:                func() time.Time { return time.Now().UTC() },
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	for _, stmt := range schema {
		if err := conn.Exec(stmt).Error; err != nil {
			t.Fatalf("apply schema: %v", err)
		}
	}
	t.Cleanup(func() {
		if sqlDB, err := conn.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return conn
}

func MustCreateUser(t testing.TB, db *gorm.DB, role enums.Role) *models.User {
	t.Helper()
	suffix := uuid.NewString()[:8]
	user := &models.User{
		Username:     "user_" + suffix,
		Email:        fmt.Sprintf("user_%s@ferremas.test", suffix),
		PasswordHash: "hash",
		Role:         role,
		IsActive:     true,
	}
	if err := db.Create(user).Error; err != nil {
		t.Fatalf("create user: %v", err)
	}
	return user
}

func MustCreateBranch(t testing.TB, db *gorm.DB, name string) *models.Branch {
	t.Helper()
	branch := &models.Branch{
		Name:     name,
		Address:  "Av. Providencia 1234",
		City:     "Santiago",
		Region:   "RM",
		IsActive: true,
	}
	if err := db.Create(branch).Error; err != nil {
		t.Fatalf("create branch: %v", err)
	}
	return branch
}

func MustCreateProduct(t testing.TB, db *gorm.DB, sku string, price int64) *models.Product {
	t.Helper()
	product := &models.Product{
		SKU:                sku,
		Name:               "Product " + sku,
		Price:              decimal.NewFromInt(price),
		DiscountPercentage: decimal.Zero,
		IsActive:           true,
	}
	if err := db.Create(product).Error; err != nil {
		t.Fatalf("create product: %v", err)
	}
	return product
}

func MustCreateStock(t testing.TB, db *gorm.DB, productID, branchID uuid.UUID, quantity, minStock int) *models.Stock {
	t.Helper()
	row := &models.Stock{
		ProductID: productID,
		BranchID:  branchID,
		Quantity:  quantity,
		MinStock:  minStock,
	}
	if err := db.Create(row).Error; err != nil {
		t.Fatalf("create stock: %v", err)
	}
	return row
}
