package migrations

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// ActiveOrderIndex allows at most one pending or approved order per customer.
const ActiveOrderIndex = "ux_operations_one_active_order"

// Run applies the schema for the bounded contexts. Intended to replace adapter-level automigrate.
func Run(db *gorm.DB) error {
	if db == nil {
		return nil
	}
	if err := db.AutoMigrate(tables()...); err != nil {
		return err
	}
	// GORM index tags cannot express a partial index, so it is created by hand.
	return db.Exec(fmt.Sprintf(
		"CREATE UNIQUE INDEX IF NOT EXISTS %s ON operations (customer_id) WHERE type = 'order' AND status IN ('pending', 'approved')",
		ActiveOrderIndex,
	)).Error
}

// Reset drops every table and recreates the schema.
func Reset(db *gorm.DB) error {
	if db == nil {
		return nil
	}
	all := tables()
	for i := len(all) - 1; i >= 0; i-- {
		if err := db.Migrator().DropTable(all[i]); err != nil {
			return err
		}
	}
	return Run(db)
}

// ResyncSequences moves PostgreSQL id sequences past rows inserted with explicit ids.
func ResyncSequences(db *gorm.DB) error {
	if db == nil || db.Dialector.Name() != "postgres" {
		return nil
	}
	for _, table := range []string{"users", "series", "books", "operations", "operation_items"} {
		stmt := fmt.Sprintf(
			"SELECT setval(pg_get_serial_sequence('%[1]s', 'id'), COALESCE((SELECT MAX(id) FROM %[1]s), 0) + 1, false)",
			table,
		)
		if err := db.Exec(stmt).Error; err != nil {
			return fmt.Errorf("resync %s sequence: %w", table, err)
		}
	}
	return nil
}

func tables() []any {
	return []any{
		&userRecord{},
		&sessionRecord{},
		&seriesRecord{},
		&bookRecord{},
		&operationRecord{},
		&operationItemRecord{},
		&idempotencyRecord{},
	}
}

// User schema mirrors the users Postgres adapter.
type userRecord struct {
	ID           int64     `gorm:"primaryKey;column:id"`
	Name         string    `gorm:"column:name;not null;uniqueIndex"`
	Email        string    `gorm:"column:email;not null;uniqueIndex"`
	PasswordHash string    `gorm:"column:password_hash;not null"`
	Role         string    `gorm:"column:role;type:varchar(16);not null;default:customer"`
	StoreName    string    `gorm:"column:store_name"`
	Address      string    `gorm:"column:address"`
	Phone        string    `gorm:"column:phone"`
	CreatedAt    time.Time `gorm:"column:created_at"`
	UpdatedAt    time.Time `gorm:"column:updated_at"`
}

func (userRecord) TableName() string { return "users" }

// Session schema mirrors the session store.
type sessionRecord struct {
	Token     string     `gorm:"primaryKey;column:token;size:512"`
	UserID    int64      `gorm:"column:user_id;index"`
	ExpiresAt *time.Time `gorm:"column:expires_at;index"`
	CreatedAt time.Time  `gorm:"column:created_at;index"`
	UpdatedAt time.Time  `gorm:"column:updated_at;index"`
}

func (sessionRecord) TableName() string { return "user_sessions" }

// Series and book schema mirror the catalog Postgres adapter.
type seriesRecord struct {
	ID   int64  `gorm:"primaryKey;column:id"`
	Name string `gorm:"column:name;not null;uniqueIndex"`
}

func (seriesRecord) TableName() string { return "series" }

type bookRecord struct {
	ID        int64           `gorm:"primaryKey;column:id"`
	Title     string          `gorm:"column:title;not null;uniqueIndex"`
	UnitPrice decimal.Decimal `gorm:"column:unit_price;type:numeric(10,2);not null"`
	SeriesID  *int64          `gorm:"column:series_id;index"`
	CreatedAt time.Time       `gorm:"column:created_at"`
	UpdatedAt time.Time       `gorm:"column:updated_at"`
}

func (bookRecord) TableName() string { return "books" }

// Operation schema mirrors the operations ledger adapter.
type operationRecord struct {
	ID         int64                 `gorm:"primaryKey;column:id"`
	CustomerID int64                 `gorm:"column:customer_id;not null;index:idx_operations_customer_type_status,priority:1"`
	Type       string                `gorm:"column:type;type:varchar(16);not null;index:idx_operations_customer_type_status,priority:2"`
	Status     string                `gorm:"column:status;type:varchar(16);not null;index:idx_operations_customer_type_status,priority:3"`
	Notes      string                `gorm:"column:notes"`
	CreatedAt  time.Time             `gorm:"column:created_at;not null"`
	Items      []operationItemRecord `gorm:"foreignKey:OperationID;constraint:OnDelete:CASCADE"`
}

func (operationRecord) TableName() string { return "operations" }

type operationItemRecord struct {
	ID          int64 `gorm:"primaryKey;column:id"`
	OperationID int64 `gorm:"column:operation_id;not null;index"`
	BookID      int64 `gorm:"column:book_id;not null;index"`
	Quantity    int64 `gorm:"column:quantity;not null"`
}

func (operationItemRecord) TableName() string { return "operation_items" }

// Idempotency schema mirrors the operations idempotency store.
type idempotencyRecord struct {
	Key         string    `gorm:"primaryKey;column:key;size:255"`
	RequestHash string    `gorm:"column:request_hash;size:128;not null"`
	OperationID int64     `gorm:"column:operation_id;not null;index"`
	CreatedAt   time.Time `gorm:"column:created_at"`
}

func (idempotencyRecord) TableName() string { return "order_idempotency_keys" }
