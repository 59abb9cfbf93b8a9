package service

import (
	"context"
	"sync"
	"testing"

	"github.com/medilocker/medigate/adapters/accountstore"
	"github.com/medilocker/medigate/core"
	"github.com/stretchr/testify/require"
)

const resolverAddr = "0x71c7656ec7ab88b098defb751b7401b5f6d8976f"

func TestResolveProvisionsNewAccount(t *testing.T) {
	r := NewIdentityResolver(accountstore.NewMemoryStore())

	res, err := r.Resolve(context.Background(), resolverAddr, core.RolePatient)
	require.NoError(t, err)
	require.True(t, res.IsNewAccount)
	require.False(t, res.Account.OnboardingComplete)
	require.Equal(t, []core.Role{core.RolePatient}, res.Account.Roles)
}

func TestResolveIsIdempotent(t *testing.T) {
	r := NewIdentityResolver(accountstore.NewMemoryStore())
	ctx := context.Background()

	first, err := r.Resolve(ctx, resolverAddr, core.RolePatient)
	require.NoError(t, err)

	second, err := r.Resolve(ctx, resolverAddr, core.RolePatient)
	require.NoError(t, err)
	require.False(t, second.IsNewAccount)
	require.Equal(t, first.Account.ID, second.Account.ID)
	require.Equal(t, []core.Role{core.RolePatient}, second.Account.Roles)
}

func TestResolveGrantsRolesAdditively(t *testing.T) {
	r := NewIdentityResolver(accountstore.NewMemoryStore())
	ctx := context.Background()

	first, err := r.Resolve(ctx, resolverAddr, core.RolePatient)
	require.NoError(t, err)

	second, err := r.Resolve(ctx, resolverAddr, core.RoleDoctor)
	require.NoError(t, err)
	require.False(t, second.IsNewAccount)
	require.Equal(t, first.Account.ID, second.Account.ID)
	require.ElementsMatch(t, []core.Role{core.RolePatient, core.RoleDoctor}, second.Account.Roles)
}

func TestResolveConcurrentFirstLogin(t *testing.T) {
	store := accountstore.NewMemoryStore()
	r := NewIdentityResolver(store)
	ctx := context.Background()

	const callers = 8
	results := make([]*Resolution, callers)
	errs := make([]error, callers)

	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = r.Resolve(ctx, resolverAddr, core.RolePatient)
		}(i)
	}
	wg.Wait()

	newAccounts := 0
	for i := 0; i < callers; i++ {
		require.NoError(t, errs[i])
		require.Equal(t, results[0].Account.ID, results[i].Account.ID, "all callers must observe the same account")
		if results[i].IsNewAccount {
			newAccounts++
		}
	}
	require.Equal(t, 1, newAccounts, "exactly one caller provisions the account")

	account, err := store.FindByAddress(ctx, resolverAddr)
	require.NoError(t, err)
	require.Equal(t, results[0].Account.ID, account.ID)
}
