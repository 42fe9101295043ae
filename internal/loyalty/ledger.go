package loyalty

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// TxLedger adjusts balances inside a transaction owned by the caller.
type TxLedger struct {
	repo *Repository
}

func NewTxLedger(repo *Repository) TxLedger {
	return TxLedger{repo: repo}
}

func (l TxLedger) Debit(ctx context.Context, tx *gorm.DB, customerID uuid.UUID, points int) error {
	return l.repo.WithTx(tx).Debit(ctx, customerID, points)
}

func (l TxLedger) Credit(ctx context.Context, tx *gorm.DB, customerID uuid.UUID, points int) error {
	return l.repo.WithTx(tx).Credit(ctx, customerID, points)
}
