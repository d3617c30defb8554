package users

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/thedailydev/dailydev-backend/internal/ledger"
	pkgerrors "github.com/thedailydev/dailydev-backend/pkg/errors"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// BootstrapService creates the local account mirror and its inactive ledger
// row on first sign-in.
type BootstrapService struct {
	tx     txRunner
	users  *Repository
	ledger ledger.Repository
}

func NewBootstrapService(tx txRunner, users *Repository, ledgerRepo ledger.Repository) (*BootstrapService, error) {
	if tx == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "transaction runner required")
	}
	if users == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "users repository required")
	}
	if ledgerRepo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "ledger repository required")
	}
	return &BootstrapService{tx: tx, users: users, ledger: ledgerRepo}, nil
}

// BootstrapInput carries the optional profile fields captured at sign-up.
type BootstrapInput struct {
	Email     *string
	FirstName *string
	LastName  *string
}

// Bootstrap is safe to repeat; existing rows are returned unchanged.
func (s *BootstrapService) Bootstrap(ctx context.Context, userID uuid.UUID, in BootstrapInput) (*ledger.SubscriptionSnapshot, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.users.WithTx(tx).Ensure(ctx, userID, in.Email); err != nil {
			return err
		}
		return s.ledger.WithTx(tx).EnsureRow(ctx, userID, in.FirstName, in.LastName)
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "bootstrap account")
	}

	row, err := s.ledger.FindByUserID(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load subscription")
	}
	return ledger.FromModel(row), nil
}
