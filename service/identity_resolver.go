package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/medilocker/medigate/core"
	"github.com/medilocker/medigate/ports"
)

// Resolution is the outcome of mapping a verified identity to an account.
type Resolution struct {
	Account      *core.Account
	IsNewAccount bool
}

// IdentityResolver maps a verified wallet identity to an existing account
// or provisions a new one, idempotently. Roles accumulate: logging in
// under a new role grants it without touching existing ones.
type IdentityResolver struct {
	accounts ports.AccountStore
}

// NewIdentityResolver creates a resolver over the given account store.
func NewIdentityResolver(accounts ports.AccountStore) *IdentityResolver {
	return &IdentityResolver{accounts: accounts}
}

// Resolve finds or creates the account for the address and ensures the
// requested role is present. Safe under concurrent first-time logins for
// the same address: the create race loser reads the winner's account back.
func (r *IdentityResolver) Resolve(ctx context.Context, address string, role core.Role) (*Resolution, error) {
	addr := core.NormalizeAddress(address)

	account, err := r.accounts.FindByAddress(ctx, addr)
	switch {
	case err == nil:
		return r.ensureRole(ctx, account, role)

	case errors.Is(err, core.ErrAccountNotFound):
		created, err := r.accounts.Create(ctx, addr, role)
		if err == nil {
			return &Resolution{Account: created, IsNewAccount: true}, nil
		}
		if !errors.Is(err, core.ErrAccountExists) {
			return nil, fmt.Errorf("%w: %v", core.ErrAccountProvisioning, err)
		}
		// Lost the create race: read the winner's row back.
		account, err = r.accounts.FindByAddress(ctx, addr)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", core.ErrAccountProvisioning, err)
		}
		return r.ensureRole(ctx, account, role)

	default:
		return nil, fmt.Errorf("%w: %v", core.ErrAccountProvisioning, err)
	}
}

func (r *IdentityResolver) ensureRole(ctx context.Context, account *core.Account, role core.Role) (*Resolution, error) {
	if !account.HasRole(role) {
		if err := r.accounts.AddRole(ctx, account.ID, role); err != nil {
			return nil, fmt.Errorf("%w: %v", core.ErrAccountProvisioning, err)
		}
		account.Roles = append(account.Roles, role)
	}
	return &Resolution{Account: account}, nil
}
