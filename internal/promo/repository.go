package promo

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/marketplace-checkout/pkg/db/models"
)

// Repository reads promo codes from the promo_codes table.
type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) FindByCode(ctx context.Context, code string) (*Rule, error) {
	var row models.PromoCode
	err := r.db.WithContext(ctx).
		Where("code = ?", NormalizeCode(code)).
		First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	rule := ruleFromModel(row)
	return &rule, nil
}

// Upsert stores a rule under its normalized code.
func (r *Repository) Upsert(ctx context.Context, row *models.PromoCode) error {
	row.Code = NormalizeCode(row.Code)
	var existing models.PromoCode
	err := r.db.WithContext(ctx).Where("code = ?", row.Code).First(&existing).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		if row.ID == uuid.Nil {
			row.ID = uuid.New()
		}
		return r.db.WithContext(ctx).Create(row).Error
	case err != nil:
		return err
	}
	row.ID = existing.ID
	row.CreatedAt = existing.CreatedAt
	return r.db.WithContext(ctx).Save(row).Error
}

// Seed upserts every rule in the catalog and returns how many were written.
func (r *Repository) Seed(ctx context.Context, catalog StaticCatalog) (int, error) {
	written := 0
	for _, rule := range catalog {
		row := modelFromRule(rule)
		if err := r.Upsert(ctx, &row); err != nil {
			return written, err
		}
		written++
	}
	return written, nil
}

func modelFromRule(rule Rule) models.PromoCode {
	return models.PromoCode{
		Code:              rule.Code,
		DiscountType:      rule.DiscountType,
		Value:             rule.Value,
		MinimumOrderCents: rule.MinimumOrderCents,
		StartsAt:          rule.StartsAt,
		ExpiresAt:         rule.ExpiresAt,
		Active:            rule.Active,
	}
}

func ruleFromModel(row models.PromoCode) Rule {
	return Rule{
		Code:              row.Code,
		DiscountType:      row.DiscountType,
		Value:             row.Value,
		MinimumOrderCents: row.MinimumOrderCents,
		StartsAt:          row.StartsAt,
		ExpiresAt:         row.ExpiresAt,
		Active:            row.Active,
	}
}
