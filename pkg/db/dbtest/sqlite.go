// Package dbtest opens throwaway SQLite databases carrying the checkout schema.
package dbtest

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

var schema = []string{
	`CREATE TABLE vendor_policies (
		vendor_id TEXT PRIMARY KEY,
		vendor_name TEXT NOT NULL,
		minimum_order_cents INTEGER NOT NULL DEFAULT 0,
		delivery_fee_cents INTEGER NOT NULL DEFAULT 0,
		platform_fee_type TEXT NOT NULL DEFAULT 'FIXED',
		platform_fee_value TEXT NOT NULL DEFAULT '0',
		estimated_prep_minutes INTEGER NOT NULL DEFAULT 0,
		created_at DATETIME,
		updated_at DATETIME
	)`,
	`CREATE TABLE promo_codes (
		id TEXT PRIMARY KEY,
		code TEXT NOT NULL UNIQUE,
		discount_type TEXT NOT NULL,
		value TEXT NOT NULL,
		minimum_order_cents INTEGER,
		starts_at DATETIME,
		expires_at DATETIME,
		active BOOLEAN NOT NULL DEFAULT 1,
		created_at DATETIME,
		updated_at DATETIME
	)`,
	`CREATE TABLE loyalty_accounts (
		customer_id TEXT PRIMARY KEY,
		points_balance INTEGER NOT NULL DEFAULT 0 CHECK (points_balance >= 0),
		updated_at DATETIME
	)`,
	`CREATE TABLE checkout_confirmations (
		session_id TEXT PRIMARY KEY,
		payment_reference TEXT NOT NULL,
		customer_id TEXT NOT NULL,
		currency TEXT NOT NULL DEFAULT 'USD',
		aggregate_total_cents INTEGER NOT NULL,
		order_count INTEGER NOT NULL,
		promo_code TEXT,
		loyalty_points_used INTEGER NOT NULL DEFAULT 0,
		confirmed_at DATETIME NOT NULL
	)`,
	`CREATE TABLE orders (
		id TEXT PRIMARY KEY,
		session_id TEXT NOT NULL,
		position INTEGER NOT NULL,
		customer_id TEXT NOT NULL,
		vendor_id TEXT NOT NULL,
		vendor_name TEXT NOT NULL,
		currency TEXT NOT NULL DEFAULT 'USD',
		status TEXT NOT NULL,
		delivery_mode TEXT NOT NULL,
		delivery_address TEXT,
		scheduled_for DATETIME,
		promo_code TEXT,
		loyalty_points_used INTEGER NOT NULL DEFAULT 0,
		subtotal_cents INTEGER NOT NULL,
		delivery_fee_cents INTEGER NOT NULL DEFAULT 0,
		platform_fee_cents INTEGER NOT NULL DEFAULT 0,
		tax_cents INTEGER NOT NULL DEFAULT 0,
		promo_discount_cents INTEGER NOT NULL DEFAULT 0,
		loyalty_discount_cents INTEGER NOT NULL DEFAULT 0,
		discount_cents INTEGER NOT NULL DEFAULT 0,
		total_cents INTEGER NOT NULL,
		payment_reference TEXT NOT NULL,
		estimated_delivery_at DATETIME,
		cancelled_at DATETIME,
		completed_at DATETIME,
		created_at DATETIME,
		updated_at DATETIME,
		UNIQUE (session_id, vendor_id)
	)`,
	`CREATE TABLE order_line_items (
		id TEXT PRIMARY KEY,
		order_id TEXT NOT NULL REFERENCES orders(id) ON DELETE CASCADE,
		position INTEGER NOT NULL,
		product_id TEXT NOT NULL,
		product_name TEXT NOT NULL,
		unit_price_cents INTEGER NOT NULL,
		quantity INTEGER NOT NULL,
		line_subtotal_cents INTEGER NOT NULL,
		created_at DATETIME
	)`,
	`CREATE TABLE outbox_events (
		id TEXT PRIMARY KEY,
		event_type TEXT NOT NULL,
		aggregate_type TEXT NOT NULL,
		aggregate_id TEXT NOT NULL,
		ordering_key TEXT NOT NULL DEFAULT '',
		payload TEXT NOT NULL,
		created_at DATETIME,
		published_at DATETIME,
		attempt_count INTEGER NOT NULL DEFAULT 0,
		last_error TEXT
	)`,
	`CREATE TABLE outbox_dlq (
		id TEXT PRIMARY KEY,
		event_id TEXT NOT NULL UNIQUE,
		event_type TEXT NOT NULL,
		aggregate_type TEXT NOT NULL,
		aggregate_id TEXT NOT NULL,
		payload_json TEXT NOT NULL,
		error_reason TEXT NOT NULL,
		error_message TEXT,
		attempt_count INTEGER NOT NULL DEFAULT 0,
		failed_at DATETIME,
		created_at DATETIME
	)`,
}

// Open returns an in-memory database private to the calling test with every
// checkout table created. The pool is capped at one connection so that
// transactions and plain reads observe the same database.
func Open(t *testing.T) *gorm.DB {
	t.Helper()

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_foreign_keys=on", name)
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		SkipDefaultTransaction: true,
		TranslateError:         true,
	})
	require.NoError(t, err)

	sqlDB, err := conn.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	for _, stmt := range schema {
		require.NoError(t, conn.Exec(stmt).Error)
	}
	return conn
}
