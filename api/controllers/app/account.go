package app

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/thedailydev/dailydev-backend/api/middleware"
	"github.com/thedailydev/dailydev-backend/api/responses"
	"github.com/thedailydev/dailydev-backend/api/validators"
	"github.com/thedailydev/dailydev-backend/internal/ledger"
	"github.com/thedailydev/dailydev-backend/internal/users"
	pkgerrors "github.com/thedailydev/dailydev-backend/pkg/errors"
	"github.com/thedailydev/dailydev-backend/pkg/logger"
)

type AccountBootstrapper interface {
	Bootstrap(ctx context.Context, userID uuid.UUID, in users.BootstrapInput) (*ledger.SubscriptionSnapshot, error)
}

type SessionSigner interface {
	SignOut(userID uuid.UUID)
}

type TokenRevoker interface {
	RevokeToken(ctx context.Context, tokenID string, ttl time.Duration) error
}

type bootstrapRequest struct {
	FirstName *string `json:"first_name,omitempty" validate:"omitempty,max=100"`
	LastName  *string `json:"last_name,omitempty" validate:"omitempty,max=100"`
}

// Bootstrap creates the account mirror and its inactive subscription row.
func Bootstrap(svc AccountBootstrapper, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "account service unavailable"))
			return
		}
		userID, err := requireUser(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var payload bootstrapRequest
		if err := decodeOptionalBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		in := users.BootstrapInput{
			FirstName: validators.SanitizeOptional(payload.FirstName, 100),
			LastName:  validators.SanitizeOptional(payload.LastName, 100),
		}
		if email := middleware.EmailFromContext(r.Context()); email != "" {
			in.Email = &email
		}

		snapshot, err := svc.Bootstrap(r.Context(), userID, in)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, snapshot)
	}
}

// SignOut drops the user's cached subscription state and revokes the access
// token for the rest of its lifetime. The cache is cleared first so nothing
// fetched under the old session survives it.
func SignOut(sessions SessionSigner, revoker TokenRevoker, fallbackTTL time.Duration, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := requireUser(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if sessions != nil {
			sessions.SignOut(userID)
		}

		if tokenID := middleware.TokenIDFromContext(r.Context()); tokenID != "" && revoker != nil {
			ttl := fallbackTTL
			if exp := middleware.TokenExpiryFromContext(r.Context()); exp > 0 {
				if remaining := time.Until(time.Unix(exp, 0)); remaining > 0 {
					ttl = remaining
				}
			}
			if err := revoker.RevokeToken(r.Context(), tokenID, ttl); err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "revoke token"))
				return
			}
		}
		responses.WriteSuccess(w, map[string]bool{"signed_out": true})
	}
}
