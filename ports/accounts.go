package ports

import (
	"context"

	"github.com/medilocker/medigate/core"
)

// AccountStore persists accounts and their role grants.
//
// Create must enforce address uniqueness and return core.ErrAccountExists
// when a concurrent caller won the race, so the resolver can read the
// winner's row back instead of duplicating the account.
type AccountStore interface {
	FindByAddress(ctx context.Context, address string) (*core.Account, error)
	Create(ctx context.Context, address string, role core.Role) (*core.Account, error)
	AddRole(ctx context.Context, accountID string, role core.Role) error
	Roles(ctx context.Context, accountID string) ([]core.Role, error)
}
