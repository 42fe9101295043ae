package controllers

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/marketplace-checkout/api/responses"
	"github.com/angelmondragon/marketplace-checkout/api/validators"
	"github.com/angelmondragon/marketplace-checkout/internal/cart"
	checkoutsvc "github.com/angelmondragon/marketplace-checkout/internal/checkout"
	"github.com/angelmondragon/marketplace-checkout/internal/orders"
	"github.com/angelmondragon/marketplace-checkout/pkg/enums"
	pkgerrors "github.com/angelmondragon/marketplace-checkout/pkg/errors"
	"github.com/angelmondragon/marketplace-checkout/pkg/logger"
	"github.com/angelmondragon/marketplace-checkout/pkg/types"
)

// PaymentConfirmer materializes orders for a paid checkout session.
type PaymentConfirmer interface {
	ConfirmPayment(ctx context.Context, sessionID uuid.UUID, paymentReference string) (*orders.SessionOrders, error)
}

type checkoutLineRequest struct {
	ProductID      uuid.UUID `json:"product_id" validate:"required"`
	VendorID       uuid.UUID `json:"vendor_id" validate:"required"`
	VendorName     string    `json:"vendor_name"`
	ProductName    string    `json:"product_name" validate:"required,max=200"`
	UnitPriceCents int       `json:"unit_price_cents" validate:"min=0"`
	Quantity       int       `json:"quantity" validate:"gt=0"`
}

type checkoutSessionRequest struct {
	CustomerID      uuid.UUID             `json:"customer_id" validate:"required"`
	Lines           []checkoutLineRequest `json:"lines" validate:"dive"`
	DeliveryMode    string                `json:"delivery_mode" validate:"required"`
	DeliveryAddress *types.Address        `json:"delivery_address,omitempty"`
	ScheduledFor    *time.Time            `json:"scheduled_for,omitempty"`
	PromoCode       string                `json:"promo_code,omitempty" validate:"max=64"`
	LoyaltyPoints   int                   `json:"loyalty_points" validate:"min=0"`
	TaxRate         *string               `json:"tax_rate,omitempty" validate:"omitempty,fraction"`
	TaxAmounts      map[uuid.UUID]int     `json:"tax_amounts,omitempty"`
}

func (req checkoutSessionRequest) toInput() (checkoutsvc.PreviewInput, error) {
	mode, err := enums.ParseDeliveryMode(req.DeliveryMode)
	if err != nil {
		return checkoutsvc.PreviewInput{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid delivery_mode").
			WithDetails(map[string]any{"field": "delivery_mode"})
	}
	input := checkoutsvc.PreviewInput{
		CustomerID:      req.CustomerID,
		Lines:           make([]cart.Line, 0, len(req.Lines)),
		DeliveryMode:    mode,
		DeliveryAddress: req.DeliveryAddress,
		ScheduledFor:    req.ScheduledFor,
		PromoCode:       validators.SanitizeString(req.PromoCode, 64),
		LoyaltyPoints:   req.LoyaltyPoints,
		TaxAmounts:      req.TaxAmounts,
	}
	if req.TaxRate != nil {
		rate, err := decimal.NewFromString(strings.TrimSpace(*req.TaxRate))
		if err != nil {
			return checkoutsvc.PreviewInput{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid tax_rate").
				WithDetails(map[string]any{"field": "tax_rate"})
		}
		input.TaxRate = &rate
	}
	for _, line := range req.Lines {
		input.Lines = append(input.Lines, cart.Line{
			ProductID:      line.ProductID,
			VendorID:       line.VendorID,
			VendorName:     validators.SanitizeString(line.VendorName, 200),
			ProductName:    validators.SanitizeString(line.ProductName, 200),
			UnitPriceCents: line.UnitPriceCents,
			Quantity:       line.Quantity,
		})
	}
	return input, nil
}

// CreateCheckoutSession prices the cart into a checkout session the payment
// processor can charge.
func CreateCheckoutSession(svc checkoutsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "checkout service unavailable"))
			return
		}

		var payload checkoutSessionRequest
		if err := validators.DecodeJSONBody(w, r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		input, err := payload.toInput()
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		ctx := logg.WithCustomerID(r.Context(), input.CustomerID.String())
		session, err := svc.Preview(ctx, input)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		logg.Info(logg.WithSessionID(ctx, session.ID.String()), "checkout.session.created")
		responses.WriteSuccessStatus(w, http.StatusCreated, session)
	}
}

type confirmPaymentRequest struct {
	PaymentReference string `json:"payment_reference" validate:"required,max=255"`
}

// ConfirmCheckoutSession materializes one order per vendor for a paid session.
// A repeated confirmation returns the existing orders with 200.
func ConfirmCheckoutSession(confirmer PaymentConfirmer, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if confirmer == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "order materializer unavailable"))
			return
		}

		sessionID, err := validators.ParseUUIDParam(r, "sessionId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload confirmPaymentRequest
		if err := validators.DecodeJSONBody(w, r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		ctx := logg.WithSessionID(r.Context(), sessionID.String())
		out, err := confirmer.ConfirmPayment(ctx, sessionID, strings.TrimSpace(payload.PaymentReference))
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		status := http.StatusCreated
		if out.Duplicate {
			status = http.StatusOK
		}
		responses.WriteSuccessStatus(w, status, out)
	}
}

// CheckoutSessionOrders lists the orders materialized for a session.
func CheckoutSessionOrders(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}
		sessionID, err := validators.ParseUUIDParam(r, "sessionId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		out, err := svc.ListBySession(r.Context(), sessionID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, out)
	}
}
