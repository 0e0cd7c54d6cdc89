package postgres

import (
	"context"
	"database/sql"
	"errors"
	"slices"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/Apurer/book-distribution-api/internal/domains/operations/domain"
	"github.com/Apurer/book-distribution-api/internal/domains/operations/ports"
)

var _ ports.Ledger = (*Ledger)(nil)

// ActiveOrderIndex is the partial unique index that allows one pending or approved order per customer.
const ActiveOrderIndex = "ux_operations_one_active_order"

// customerLockSpace keeps ledger advisory locks apart from other users of pg_advisory_xact_lock.
const customerLockSpace int64 = 0x4c454447 << 32

// Ledger persists operations with GORM. Caller manages DB lifecycle and schema.
type Ledger struct {
	db *gorm.DB
}

func NewLedger(db *gorm.DB) *Ledger {
	return &Ledger{db: db}
}

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

func (l *Ledger) Transact(ctx context.Context, fn func(uow ports.UnitOfWork) error) error {
	if err := l.ensureDB(); err != nil {
		return err
	}
	return l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&unitOfWork{db: tx, postgres: l.isPostgres()})
	})
}

func (l *Ledger) View(ctx context.Context, fn func(uow ports.UnitOfWork) error) error {
	if err := l.ensureDB(); err != nil {
		return err
	}
	var opts []*sql.TxOptions
	if l.isPostgres() {
		opts = append(opts, &sql.TxOptions{Isolation: sql.LevelRepeatableRead, ReadOnly: true})
	}
	return l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&unitOfWork{db: tx, postgres: l.isPostgres(), readOnly: true})
	}, opts...)
}

func (l *Ledger) isPostgres() bool {
	return l.db.Dialector != nil && l.db.Dialector.Name() == "postgres"
}

func (l *Ledger) ensureDB() error {
	if l == nil || l.db == nil {
		return errors.New("postgres ledger not configured")
	}
	return nil
}

var errReadOnly = errors.New("ledger view is read-only")

type unitOfWork struct {
	db       *gorm.DB
	postgres bool
	readOnly bool
}

// LockCustomer takes a transaction-scoped advisory lock. Other dialects rely on the
// database serialising writers.
func (u *unitOfWork) LockCustomer(ctx context.Context, customerID int64) error {
	if !u.postgres {
		return nil
	}
	return u.db.WithContext(ctx).Exec("SELECT pg_advisory_xact_lock(?)", customerLockSpace^customerID).Error
}

func (u *unitOfWork) Create(ctx context.Context, op *domain.Operation) (*domain.Operation, error) {
	if u.readOnly {
		return nil, errReadOnly
	}
	if op == nil {
		return nil, errors.New("operation is nil")
	}
	if err := op.Validate(); err != nil {
		return nil, err
	}
	if op.ID != 0 {
		var taken int64
		if err := u.db.WithContext(ctx).Model(&operationRecord{}).Where("id = ?", op.ID).Count(&taken).Error; err != nil {
			return nil, err
		}
		if taken > 0 {
			return nil, ports.ErrOperationExists
		}
	}
	record := toRecord(op)
	if err := u.db.WithContext(ctx).Create(&record).Error; err != nil {
		return nil, translateCreateError(err, op)
	}
	if op.ID != 0 && u.postgres {
		if err := u.db.WithContext(ctx).Exec(
			"SELECT setval(pg_get_serial_sequence('operations', 'id'), (SELECT MAX(id) FROM operations))",
		).Error; err != nil {
			return nil, err
		}
	}
	return u.Get(ctx, record.ID)
}

func (u *unitOfWork) Get(ctx context.Context, id int64) (*domain.Operation, error) {
	var record operationRecord
	err := u.db.WithContext(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("id") }).
		First(&record, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ports.ErrNotFound
		}
		return nil, err
	}
	return record.toDomain(), nil
}

func (u *unitOfWork) UpdateStatus(ctx context.Context, id int64, status domain.Status) error {
	if u.readOnly {
		return errReadOnly
	}
	result := u.db.WithContext(ctx).Model(&operationRecord{}).Where("id = ?", id).Update("status", string(status))
	if result.Error != nil {
		// Only status changes here, so a unique violation can only come from the active-order index.
		if isDuplicate(result.Error) {
			return ports.ErrActiveOrderExists
		}
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ports.ErrNotFound
	}
	return nil
}

// Delete removes items first, then the operation, inside the caller's transaction.
func (u *unitOfWork) Delete(ctx context.Context, id int64) error {
	if u.readOnly {
		return errReadOnly
	}
	db := u.db.WithContext(ctx)
	if err := db.Where("operation_id = ?", id).Delete(&operationItemRecord{}).Error; err != nil {
		return err
	}
	result := db.Delete(&operationRecord{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ports.ErrNotFound
	}
	return nil
}

func (u *unitOfWork) List(ctx context.Context, filter domain.Filter) ([]*domain.Operation, error) {
	query := u.db.WithContext(ctx).Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("id") })
	if filter.CustomerID != 0 {
		query = query.Where("customer_id = ?", filter.CustomerID)
	}
	if filter.Type != "" {
		query = query.Where("type = ?", string(filter.Type))
	}
	if len(filter.Statuses) > 0 {
		query = query.Where("status IN ?", statusStrings(filter.Statuses))
	}
	var records []operationRecord
	if err := query.Order("id DESC").Find(&records).Error; err != nil {
		return nil, err
	}
	ops := make([]*domain.Operation, 0, len(records))
	for i := range records {
		ops = append(ops, records[i].toDomain())
	}
	return ops, nil
}

func (u *unitOfWork) LatestOrder(ctx context.Context, customerID int64, statuses ...domain.Status) (*domain.Operation, error) {
	query := u.db.WithContext(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("id") }).
		Where("customer_id = ? AND type = ?", customerID, string(domain.TypeOrder))
	if len(statuses) > 0 {
		query = query.Where("status IN ?", statusStrings(statuses))
	}
	var records []operationRecord
	if err := query.Order("id DESC").Limit(1).Find(&records).Error; err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, nil
	}
	return records[0].toDomain(), nil
}

func (u *unitOfWork) ReportExistsAfter(ctx context.Context, customerID, operationID int64) (bool, error) {
	var count int64
	err := u.db.WithContext(ctx).Model(&operationRecord{}).
		Where("customer_id = ? AND type = ? AND id > ?", customerID, string(domain.TypeReport), operationID).
		Count(&count).Error
	return count > 0, err
}

type stockRow struct {
	BookID int64
	Total  int64
}

func (u *unitOfWork) Inventory(ctx context.Context, customerID int64) (domain.Inventory, error) {
	return u.inventory(ctx, u.counted(ctx).Where("o.customer_id = ?", customerID))
}

func (u *unitOfWork) GlobalInventory(ctx context.Context) (domain.Inventory, error) {
	return u.inventory(ctx, u.counted(ctx))
}

func (u *unitOfWork) SoldByBook(ctx context.Context, customerID int64) (map[int64]int64, error) {
	var rows []stockRow
	err := u.items(ctx).
		Select("i.book_id AS book_id, SUM(-i.quantity) AS total").
		Where("o.customer_id = ? AND i.quantity < 0", customerID).
		Group("i.book_id").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	sold := make(map[int64]int64, len(rows))
	for _, row := range rows {
		sold[row.BookID] = row.Total
	}
	return sold, nil
}

func (u *unitOfWork) DeliveredUnits(ctx context.Context, customerID int64) (int64, error) {
	var row struct{ Total int64 }
	err := u.items(ctx).
		Select("COALESCE(SUM(i.quantity), 0) AS total").
		Where("o.customer_id = ? AND o.type = ? AND o.status = ?", customerID, string(domain.TypeOrder), string(domain.StatusDelivered)).
		Scan(&row).Error
	return row.Total, err
}

func (u *unitOfWork) items(ctx context.Context) *gorm.DB {
	return u.db.WithContext(ctx).
		Table("operation_items AS i").
		Joins("JOIN operations AS o ON o.id = i.operation_id")
}

// counted restricts items to qualifying operations: delivered orders and all reports.
func (u *unitOfWork) counted(ctx context.Context) *gorm.DB {
	return u.items(ctx).Where("((o.type = ? AND o.status = ?) OR o.type = ?)",
		string(domain.TypeOrder), string(domain.StatusDelivered), string(domain.TypeReport))
}

func (u *unitOfWork) inventory(_ context.Context, query *gorm.DB) (domain.Inventory, error) {
	var rows []stockRow
	err := query.
		Select("i.book_id AS book_id, SUM(i.quantity) AS total").
		Group("i.book_id").
		Having("SUM(i.quantity) <> 0").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	inv := make(domain.Inventory, len(rows))
	for _, row := range rows {
		inv[row.BookID] = row.Total
	}
	return inv, nil
}

// translateCreateError maps a unique violation on insert. With TranslateError on, drivers
// report a bare gorm.ErrDuplicatedKey, so the row decides which constraint it could have hit:
// only an active order can clash on ActiveOrderIndex. Anything else is a primary key race.
func translateCreateError(err error, op *domain.Operation) error {
	if !isDuplicate(err) {
		return err
	}
	if op.IsOrder() && slices.Contains(domain.ActiveOrderStatuses, op.Status) {
		return ports.ErrActiveOrderExists
	}
	if op.ID != 0 {
		return ports.ErrOperationExists
	}
	return err
}

func isDuplicate(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, ActiveOrderIndex) ||
		strings.Contains(msg, "UNIQUE constraint failed: operations.customer_id")
}

func statusStrings(statuses []domain.Status) []string {
	out := make([]string, 0, len(statuses))
	for _, s := range statuses {
		out = append(out, string(s))
	}
	return out
}

func toRecord(op *domain.Operation) operationRecord {
	record := operationRecord{
		ID:         op.ID,
		CustomerID: op.CustomerID,
		Type:       string(op.Type),
		Status:     string(op.Status),
		Notes:      op.Notes,
		CreatedAt:  op.CreatedAt,
	}
	for _, item := range op.Items {
		record.Items = append(record.Items, operationItemRecord{BookID: item.BookID, Quantity: item.Quantity})
	}
	return record
}

func (r operationRecord) toDomain() *domain.Operation {
	op := &domain.Operation{
		ID:         r.ID,
		CustomerID: r.CustomerID,
		Type:       domain.Type(r.Type),
		Status:     domain.Status(r.Status),
		Notes:      r.Notes,
		CreatedAt:  r.CreatedAt,
	}
	for _, item := range r.Items {
		op.Items = append(op.Items, domain.OperationItem{
			ID:          item.ID,
			OperationID: item.OperationID,
			BookID:      item.BookID,
			Quantity:    item.Quantity,
		})
	}
	return op
}
