package accountstore

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/medilocker/medigate/core"
	"github.com/medilocker/medigate/ports"
)

// MemoryStore is an in-memory implementation of the AccountStore interface
// for single-instance deployments and tests.
type MemoryStore struct {
	byAddress map[string]*core.Account
	byID      map[string]*core.Account
	mu        sync.Mutex
}

// NewMemoryStore creates a new in-memory account store.
func NewMemoryStore() ports.AccountStore {
	return &MemoryStore{
		byAddress: make(map[string]*core.Account),
		byID:      make(map[string]*core.Account),
	}
}

func cloneAccount(a *core.Account) *core.Account {
	out := *a
	out.Roles = append([]core.Role(nil), a.Roles...)
	return &out
}

// FindByAddress looks up an account by its wallet address.
func (s *MemoryStore) FindByAddress(ctx context.Context, address string) (*core.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	account, ok := s.byAddress[core.NormalizeAddress(address)]
	if !ok {
		return nil, core.ErrAccountNotFound
	}
	return cloneAccount(account), nil
}

// Create provisions a new account with exactly the given role. Returns
// core.ErrAccountExists if the address already has one.
func (s *MemoryStore) Create(ctx context.Context, address string, role core.Role) (*core.Account, error) {
	addr := core.NormalizeAddress(address)

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.byAddress[addr]; ok {
		return nil, core.ErrAccountExists
	}

	account := &core.Account{
		ID:        uuid.New().String(),
		Address:   addr,
		Roles:     []core.Role{role},
		CreatedAt: time.Now(),
	}
	s.byAddress[addr] = account
	s.byID[account.ID] = account

	return cloneAccount(account), nil
}

// AddRole grants a role to an account if not already present.
func (s *MemoryStore) AddRole(ctx context.Context, accountID string, role core.Role) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	account, ok := s.byID[accountID]
	if !ok {
		return core.ErrAccountNotFound
	}
	if !account.HasRole(role) {
		account.Roles = append(account.Roles, role)
	}
	return nil
}

// Roles returns the role set of an account.
func (s *MemoryStore) Roles(ctx context.Context, accountID string) ([]core.Role, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	account, ok := s.byID[accountID]
	if !ok {
		return nil, core.ErrAccountNotFound
	}
	return append([]core.Role(nil), account.Roles...), nil
}
