package webhooks

import (
	"context"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/angelmondragon/marketplace-checkout/api/responses"
	"github.com/angelmondragon/marketplace-checkout/api/validators"
	"github.com/angelmondragon/marketplace-checkout/internal/orders"
	pkgerrors "github.com/angelmondragon/marketplace-checkout/pkg/errors"
	"github.com/angelmondragon/marketplace-checkout/pkg/logger"
)

type paymentConfirmer interface {
	ConfirmPayment(ctx context.Context, sessionID uuid.UUID, paymentReference string) (*orders.SessionOrders, error)
}

type paymentConfirmedRequest struct {
	SessionID        uuid.UUID `json:"session_id" validate:"required"`
	PaymentReference string    `json:"payment_reference" validate:"required,max=255"`
}

// PaymentConfirmed is the HTTP twin of the payments subscription: the
// processor posts {session_id, payment_reference} after a successful charge.
// Delivery is at-least-once, so duplicates answer 200 with the existing orders.
func PaymentConfirmed(confirmer paymentConfirmer, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if confirmer == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "order materializer unavailable"))
			return
		}

		var payload paymentConfirmedRequest
		if err := validators.DecodeJSONBody(w, r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		ctx := logg.WithSessionID(r.Context(), payload.SessionID.String())
		out, err := confirmer.ConfirmPayment(ctx, payload.SessionID, strings.TrimSpace(payload.PaymentReference))
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		logg.Info(logg.WithFields(ctx, map[string]any{
			"orders":    len(out.Orders),
			"duplicate": out.Duplicate,
		}), "webhook.payment.confirmed")
		responses.WriteSuccess(w, out)
	}
}
