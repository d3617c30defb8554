package webhooks

import (
	"context"
	"io"
	"net/http"

	"github.com/thedailydev/dailydev-backend/api/responses"
	revenuecatwebhook "github.com/thedailydev/dailydev-backend/internal/webhooks/revenuecat"
	pkgerrors "github.com/thedailydev/dailydev-backend/pkg/errors"
	"github.com/thedailydev/dailydev-backend/pkg/logger"
)

type RevenueCatWebhookService interface {
	HandleEvent(ctx context.Context, evt *revenuecatwebhook.Event) (revenuecatwebhook.Outcome, error)
}

// RevenueCatWebhook authenticates the shared bearer secret and applies the
// event to the ledger. Unknown users and event types are acknowledged so
// RevenueCat stops retrying them.
func RevenueCatWebhook(svc RevenueCatWebhookService, secret string, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "webhook service unavailable"))
			return
		}

		if err := revenuecatwebhook.VerifyAuthorization(r.Header.Get("Authorization"), secret); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		body, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "read request body"))
			return
		}

		evt, err := revenuecatwebhook.ParsePayload(body)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		if _, err := svc.HandleEvent(ctx, evt); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteAck(w)
	}
}
