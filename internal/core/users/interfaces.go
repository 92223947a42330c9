package users

import (
	"context"

	"Vouch/internal/core/content"
	"Vouch/internal/core/registry"
)

// UserRepository persists the local registration cache.
type UserRepository interface {
	// Upsert inserts rec or replaces the record with the same DID.
	Upsert(ctx context.Context, rec *LocalUserRecord) error
	GetByDID(ctx context.Context, did string) (*LocalUserRecord, error)
	List(ctx context.Context, limit, offset int) ([]*LocalUserRecord, error)
	Delete(ctx context.Context, did string) error
}

// Chain is the subset of the registry contract the user service reads.
type Chain interface {
	GetUserInfo(ctx context.Context, did string) (*registry.RegisteredUser, error)
	GetAllRegisteredUsersDIDs(ctx context.Context) ([]string, error)
}

// ProfileReader loads stored profiles.
type ProfileReader interface {
	RetrieveProfile(ctx context.Context, cidStr string) (*content.Profile, error)
}

// UserService reads registered users from the contract and the content
// store, and maintains the local cache.
type UserService interface {
	// IndexUser validates rec and writes it to the cache. Idempotent per DID.
	IndexUser(ctx context.Context, rec *LocalUserRecord) error

	// GetCachedUser returns the cached record for did.
	GetCachedUser(ctx context.Context, did string) (*LocalUserRecord, error)

	// ListRegisteredDIDs returns every DID known to the contract.
	ListRegisteredDIDs(ctx context.Context) ([]string, error)

	// GetUserDetails joins the contract record and the stored profile for did.
	GetUserDetails(ctx context.Context, did string) (*UserDetails, error)

	// SyncFromChain rebuilds the cache from the contract. Individual DIDs that
	// fail are counted and skipped.
	SyncFromChain(ctx context.Context) (*SyncResult, error)
}
