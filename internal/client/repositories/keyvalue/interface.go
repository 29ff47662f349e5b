// Package keyvalue persists small scoped key/value pairs in the local SQLite
// database. Scopes keep unrelated stores (secure token, UI preferences, device
// salt) from clobbering each other.
package keyvalue

import "context"

// Scope partitions the key space.
type Scope string

const (
	ScopeSecure Scope = "secure"
	ScopePrefs  Scope = "prefs"
	ScopeDevice Scope = "device"
)

// Repository is the storage contract. Get returns common.ErrorNotFound when the
// key is absent; Delete of an absent key is not an error.
type Repository interface {
	Get(ctx context.Context, scope Scope, key string) ([]byte, error)
	Set(ctx context.Context, scope Scope, key string, value []byte) error
	Delete(ctx context.Context, scope Scope, key string) error
	List(ctx context.Context, scope Scope) (map[string][]byte, error)
	Clear(ctx context.Context, scope Scope) error
}
