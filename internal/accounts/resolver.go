// Package accounts resolves human-readable account names to New Relic account ids.
package accounts

import (
	"context"
	"strings"

	"github.com/nrlogs/nrlogs/internal/newrelic"
	apperrors "github.com/nrlogs/nrlogs/internal/pkg/errors"
)

// Lister lists the accounts visible to the configured credentials.
// *newrelic.Client implements it.
type Lister interface {
	ListAccounts(ctx context.Context) ([]newrelic.Account, error)
}

// Resolver maps account names to ids. It holds no cache; every call asks the backend.
type Resolver struct {
	lister Lister
}

// NewResolver creates a resolver backed by lister.
func NewResolver(lister Lister) *Resolver {
	return &Resolver{lister: lister}
}

// Resolve returns the id of the first account whose name matches name,
// ignoring case. Listing failures are returned unchanged.
func (r *Resolver) Resolve(ctx context.Context, name string) (string, error) {
	accounts, err := r.lister.ListAccounts(ctx)
	if err != nil {
		return "", err
	}

	if acct, ok := Find(accounts, name); ok {
		return acct.ID, nil
	}

	available := make([]string, len(accounts))
	for i, a := range accounts {
		available[i] = a.DisplayName()
	}
	return "", apperrors.AccountNotFoundError(name, available)
}

// Find returns the first account named name, ignoring case.
func Find(accounts []newrelic.Account, name string) (newrelic.Account, bool) {
	for _, a := range accounts {
		if a.Name != "" && strings.EqualFold(a.Name, name) {
			return a, true
		}
	}
	return newrelic.Account{}, false
}
