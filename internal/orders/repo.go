package orders

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/marketplace-checkout/pkg/db/models"
	"github.com/angelmondragon/marketplace-checkout/pkg/enums"
	"github.com/angelmondragon/marketplace-checkout/pkg/pagination"
)

type repository struct {
	db *gorm.DB
}

// NewRepository builds an orders repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) CreateConfirmation(ctx context.Context, confirmation *models.CheckoutConfirmation) error {
	return r.db.WithContext(ctx).Create(confirmation).Error
}

func (r *repository) FindConfirmation(ctx context.Context, sessionID uuid.UUID) (*models.CheckoutConfirmation, error) {
	var confirmation models.CheckoutConfirmation
	err := r.db.WithContext(ctx).Where("session_id = ?", sessionID).First(&confirmation).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &confirmation, nil
}

// CreateOrders inserts the orders and then their line items.
func (r *repository) CreateOrders(ctx context.Context, orders []models.Order) error {
	if len(orders) == 0 {
		return nil
	}
	if err := r.db.WithContext(ctx).Omit("Items").Create(&orders).Error; err != nil {
		return err
	}
	var items []models.OrderLineItem
	for _, order := range orders {
		for _, item := range order.Items {
			item.OrderID = order.ID
			items = append(items, item)
		}
	}
	if len(items) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(&items).Error
}

func (r *repository) FindOrdersBySession(ctx context.Context, sessionID uuid.UUID) ([]models.Order, error) {
	var orders []models.Order
	err := r.db.WithContext(ctx).
		Preload("Items", orderItemsByPosition).
		Where("session_id = ?", sessionID).
		Order("position ASC").
		Find(&orders).Error
	if err != nil {
		return nil, err
	}
	return orders, nil
}

func (r *repository) FindByID(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).
		Preload("Items", orderItemsByPosition).
		Where("id = ?", orderID).
		First(&order).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// ListByCustomer pages a customer's orders newest first.
func (r *repository) ListByCustomer(ctx context.Context, customerID uuid.UUID, params pagination.Params) (*OrderList, error) {
	cursor, err := pagination.Decode(params.Cursor)
	if err != nil {
		return nil, err
	}

	var rows []models.Order
	if err := r.db.WithContext(ctx).
		Preload("Items", orderItemsByPosition).
		Where("customer_id = ?", customerID).
		Scopes(pagination.Scope(cursor, params.Limit)).
		Find(&rows).Error; err != nil {
		return nil, err
	}

	rows, next := pagination.Trim(rows, params.Limit, func(o models.Order) pagination.Cursor {
		return pagination.Cursor{CreatedAt: o.CreatedAt, ID: o.ID}
	})
	list := &OrderList{Orders: make([]OrderDTO, 0, len(rows)), NextCursor: next}
	for _, row := range rows {
		list.Orders = append(list.Orders, FromModel(row))
	}
	return list, nil
}

// UpdateStatus applies updates only while the order is still in status from.
// It reports false when another writer moved the order first.
func (r *repository) UpdateStatus(ctx context.Context, orderID uuid.UUID, from enums.OrderStatus, updates map[string]any) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ? AND status = ?", orderID, from).
		Updates(updates)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func orderItemsByPosition(db *gorm.DB) *gorm.DB {
	return db.Order("position ASC")
}
