package loyalty

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/angelmondragon/marketplace-checkout/pkg/db/models"
)

// ErrInsufficientBalance is returned by Debit when the account cannot cover the points.
var ErrInsufficientBalance = errors.New("loyalty balance is insufficient")

// Repository reads and adjusts loyalty_accounts.
type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	if tx == nil {
		return r
	}
	return &Repository{db: tx}
}

// Balance returns the customer's points. Customers without an account have zero.
func (r *Repository) Balance(ctx context.Context, customerID uuid.UUID) (int, error) {
	var account models.LoyaltyAccount
	err := r.db.WithContext(ctx).Where("customer_id = ?", customerID).First(&account).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return account.PointsBalance, nil
}

// Debit removes points only if the balance covers them.
func (r *Repository) Debit(ctx context.Context, customerID uuid.UUID, points int) error {
	if points <= 0 {
		return nil
	}
	res := r.db.WithContext(ctx).
		Model(&models.LoyaltyAccount{}).
		Where("customer_id = ? AND points_balance >= ?", customerID, points).
		Update("points_balance", gorm.Expr("points_balance - ?", points))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrInsufficientBalance
	}
	return nil
}

// Credit adds points, opening the account if needed.
func (r *Repository) Credit(ctx context.Context, customerID uuid.UUID, points int) error {
	if points <= 0 {
		return nil
	}
	account := models.LoyaltyAccount{CustomerID: customerID, PointsBalance: points}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "customer_id"}},
			DoUpdates: clause.Assignments(map[string]any{
				"points_balance": gorm.Expr("loyalty_accounts.points_balance + ?", points),
			}),
		}).
		Create(&account).Error
}
