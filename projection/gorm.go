package projection

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/hellofresh/bankengine"
	"github.com/hellofresh/bankengine/aggregate"
	"github.com/hellofresh/bankengine/domain/order"
	"github.com/hellofresh/bankengine/matching"
	"github.com/hellofresh/bankengine/money"
)

var _ Store = &GormOrderBook{}

type (
	// GormOrderBook is a Store backed by a relational database
	GormOrderBook struct {
		db *gorm.DB
	}

	orderBookRow struct {
		OrderID           string          `gorm:"column:order_id;primaryKey"`
		SecurityID        string          `gorm:"column:security_id;index:idx_order_book_lookup"`
		Side              string          `gorm:"column:side;index:idx_order_book_lookup"`
		Price             decimal.Decimal `gorm:"column:price;type:numeric(20,2)"`
		Currency          string          `gorm:"column:currency;size:3"`
		RemainingQuantity int64           `gorm:"column:remaining_quantity"`
		PlacedAt          time.Time       `gorm:"column:placed_at"`
		Pending           bool            `gorm:"column:pending;index:idx_order_book_lookup"`
		Version           int             `gorm:"column:version"`
	}
)

// TableName is the table of the order book
func (orderBookRow) TableName() string {
	return "order_book"
}

// NewGormOrderBook returns a new GormOrderBook
func NewGormOrderBook(db *gorm.DB) (*GormOrderBook, error) {
	if db == nil {
		return nil, bankengine.InvalidArgumentError("db")
	}

	return &GormOrderBook{db: db}, nil
}

// Migrate creates or updates the order book table
func (b *GormOrderBook) Migrate(ctx context.Context) error {
	return b.db.WithContext(ctx).AutoMigrate(&orderBookRow{})
}

// PendingOrders returns the pending orders in price-time priority
func (b *GormOrderBook) PendingOrders(ctx context.Context, securityID string, side order.Side) ([]matching.BookEntry, error) {
	priceOrder := "price ASC"
	if side == order.Buy {
		priceOrder = "price DESC"
	}

	var rows []orderBookRow
	err := b.db.WithContext(ctx).
		Where("security_id = ? AND side = ? AND pending AND remaining_quantity > 0", securityID, string(side)).
		Order(priceOrder).
		Order("placed_at ASC").
		Order("order_id ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	entries := make([]matching.BookEntry, 0, len(rows))
	for _, row := range rows {
		price, err := money.New(row.Price, row.Currency)
		if err != nil {
			return nil, err
		}

		entries = append(entries, matching.BookEntry{
			OrderID:           aggregate.ID(row.OrderID),
			SecurityID:        row.SecurityID,
			Side:              order.Side(row.Side),
			Price:             price,
			RemainingQuantity: row.RemainingQuantity,
			PlacedAt:          row.PlacedAt,
		})
	}

	return entries, nil
}

// Insert adds a pending order, an already known order is left untouched
func (b *GormOrderBook) Insert(ctx context.Context, entry matching.BookEntry, version int) error {
	return b.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&orderBookRow{
			OrderID:           string(entry.OrderID),
			SecurityID:        entry.SecurityID,
			Side:              string(entry.Side),
			Price:             entry.Price.Amount(),
			Currency:          entry.Price.Currency(),
			RemainingQuantity: entry.RemainingQuantity,
			PlacedAt:          entry.PlacedAt,
			Pending:           true,
			Version:           version,
		}).Error
}

// Update sets the remaining quantity of an order
func (b *GormOrderBook) Update(ctx context.Context, orderID aggregate.ID, remainingQuantity int64, version int) error {
	return b.update(ctx, orderID, version, map[string]interface{}{
		"remaining_quantity": remainingQuantity,
		"pending":            remainingQuantity > 0,
		"version":            version,
	})
}

// Remove takes an order out of the book
func (b *GormOrderBook) Remove(ctx context.Context, orderID aggregate.ID, version int) error {
	return b.update(ctx, orderID, version, map[string]interface{}{
		"pending": false,
		"version": version,
	})
}

func (b *GormOrderBook) update(ctx context.Context, orderID aggregate.ID, version int, values map[string]interface{}) error {
	return b.db.WithContext(ctx).
		Model(&orderBookRow{}).
		Where("order_id = ? AND version < ?", string(orderID), version).
		Updates(values).Error
}
