// Package middleware wraps a ports.WizardStore to add behavior such as
// encryption at rest, independent of the backing store.
package middleware

import "github.com/aretw0/fixpath/pkg/ports"

// Middleware allows wrapping a WizardStore to add behavior.
type Middleware func(ports.WizardStore) ports.WizardStore

// Chain applies middlewares so the first one is the outermost.
func Chain(store ports.WizardStore, mws ...Middleware) ports.WizardStore {
	for i := len(mws) - 1; i >= 0; i-- {
		store = mws[i](store)
	}
	return store
}
