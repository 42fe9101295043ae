package checkout

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/marketplace-checkout/internal/cart"
	"github.com/angelmondragon/marketplace-checkout/internal/loyalty"
	"github.com/angelmondragon/marketplace-checkout/internal/pricing"
	"github.com/angelmondragon/marketplace-checkout/internal/promo"
	"github.com/angelmondragon/marketplace-checkout/pkg/enums"
	pkgerrors "github.com/angelmondragon/marketplace-checkout/pkg/errors"
	"github.com/angelmondragon/marketplace-checkout/pkg/types"
)

type promoValidator interface {
	Validate(ctx context.Context, code string, subtotalCents int) (*promo.Applied, error)
}

type balanceReader interface {
	Balance(ctx context.Context, customerID uuid.UUID) (int, error)
}

type sessionRecorder interface {
	IncSession(result string)
}

// Service prices carts into checkout sessions.
type Service interface {
	Preview(ctx context.Context, input PreviewInput) (*Session, error)
	LoyaltySummary(ctx context.Context, customerID uuid.UUID, subtotalCents int) (*LoyaltySummary, error)
}

// PreviewInput is everything the client sends to price a cart.
// TaxRate overrides the configured default; TaxAmounts overrides the estimate per vendor.
type PreviewInput struct {
	CustomerID      uuid.UUID
	Lines           []cart.Line
	DeliveryMode    enums.DeliveryMode
	DeliveryAddress *types.Address
	ScheduledFor    *time.Time
	PromoCode       string
	LoyaltyPoints   int
	TaxRate         *decimal.Decimal
	TaxAmounts      map[uuid.UUID]int
}

type LoyaltySummary struct {
	CustomerID          uuid.UUID `json:"customer_id"`
	BalancePoints       int       `json:"balance_points"`
	MaxRedeemablePoints int       `json:"max_redeemable_points"`
	Increment           int       `json:"increment"`
}

type Options struct {
	Currency         enums.Currency
	SessionTTL       time.Duration
	SessionRetention time.Duration
	TaxRate          decimal.Decimal
	Now              func() time.Time
}

type service struct {
	promos   promoValidator
	balances balanceReader
	policies pricing.PolicyStore
	store    SessionStore
	metrics  sessionRecorder
	opts     Options
}

// NewService builds the checkout preview service.
func NewService(
	promos promoValidator,
	balances balanceReader,
	policies pricing.PolicyStore,
	store SessionStore,
	metrics sessionRecorder,
	opts Options,
) (Service, error) {
	if promos == nil {
		return nil, fmt.Errorf("promo validator required")
	}
	if balances == nil {
		return nil, fmt.Errorf("loyalty balance reader required")
	}
	if policies == nil {
		return nil, fmt.Errorf("vendor policy store required")
	}
	if store == nil {
		return nil, fmt.Errorf("session store required")
	}
	if opts.SessionTTL <= 0 {
		return nil, fmt.Errorf("session ttl must be positive")
	}
	if opts.Currency == "" {
		opts.Currency = enums.CurrencyUSD
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &service{
		promos:   promos,
		balances: balances,
		policies: policies,
		store:    store,
		metrics:  metrics,
		opts:     opts,
	}, nil
}

func (s *service) Preview(ctx context.Context, input PreviewInput) (*Session, error) {
	session, err := s.preview(ctx, input)
	s.recordSession(err)
	return session, err
}

func (s *service) preview(ctx context.Context, input PreviewInput) (*Session, error) {
	if input.CustomerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "customer id is required")
	}
	groups, err := cart.Partition(input.Lines)
	if err != nil {
		return nil, err
	}
	subtotal := cart.SubtotalCents(groups)

	var promoCode *string
	promoDiscount := 0
	if input.PromoCode != "" {
		applied, err := s.promos.Validate(ctx, input.PromoCode, subtotal)
		if err != nil {
			return nil, err
		}
		code := applied.Rule.Code
		promoCode = &code
		promoDiscount = applied.DiscountCents
	}

	loyaltyDiscount := 0
	if input.LoyaltyPoints != 0 {
		balance, err := s.balances.Balance(ctx, input.CustomerID)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read loyalty balance")
		}
		loyaltyDiscount, err = loyalty.Redeem(input.LoyaltyPoints, balance, subtotal-promoDiscount)
		if err != nil {
			return nil, err
		}
	}

	vendorIDs := make([]uuid.UUID, 0, len(groups))
	for _, group := range groups {
		vendorIDs = append(vendorIDs, group.VendorID)
	}
	policies, err := s.policies.FindPolicies(ctx, vendorIDs)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load vendor policies")
	}

	rate := s.opts.TaxRate
	if input.TaxRate != nil {
		rate = *input.TaxRate
	}
	breakdowns, err := pricing.Calculate(pricing.Input{
		Groups:               groups,
		Policies:             policies,
		DeliveryMode:         input.DeliveryMode,
		Tax:                  pricing.Tax{Rate: rate, AmountsByVendor: input.TaxAmounts},
		PromoDiscountCents:   promoDiscount,
		LoyaltyDiscountCents: loyaltyDiscount,
	})
	if err != nil {
		return nil, err
	}

	session, err := BuildSession(BuildParams{
		CustomerID:        input.CustomerID,
		Currency:          s.opts.Currency,
		Breakdowns:        breakdowns,
		DeliveryMode:      input.DeliveryMode,
		DeliveryAddress:   input.DeliveryAddress,
		ScheduledFor:      input.ScheduledFor,
		PromoCode:         promoCode,
		LoyaltyPointsUsed: loyaltyDiscount,
		Now:               s.opts.Now(),
		TTL:               s.opts.SessionTTL,
	})
	if err != nil {
		return nil, err
	}

	if err := s.store.Save(ctx, session, s.opts.SessionTTL+s.opts.SessionRetention); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "store checkout session")
	}
	return session, nil
}

func (s *service) LoyaltySummary(ctx context.Context, customerID uuid.UUID, subtotalCents int) (*LoyaltySummary, error) {
	if customerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "customer id is required")
	}
	if subtotalCents < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "subtotal must not be negative")
	}
	balance, err := s.balances.Balance(ctx, customerID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read loyalty balance")
	}
	return &LoyaltySummary{
		CustomerID:          customerID,
		BalancePoints:       balance,
		MaxRedeemablePoints: loyalty.MaxRedeemable(balance, subtotalCents),
		Increment:           loyalty.RedemptionIncrement,
	}, nil
}

func (s *service) recordSession(err error) {
	if s.metrics == nil {
		return
	}
	if err == nil {
		s.metrics.IncSession("ok")
		return
	}
	if typed := pkgerrors.As(err); typed != nil {
		s.metrics.IncSession(string(typed.Code()))
		return
	}
	s.metrics.IncSession(string(pkgerrors.CodeInternal))
}
