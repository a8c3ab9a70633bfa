// Package blob wraps the object-storage backend behind the four primitives
// the directory actually uses: list, fetch, put, delete. The backend offers
// no transactions and no compare-and-swap; a freshly put key is readable
// through its locator immediately but may lag in List results.
package blob

import "context"

// ObjectInfo identifies one stored object. Key is the logical path the
// object was put under; Locator is what Fetch and Delete accept (for the S3
// backend the two coincide).
type ObjectInfo struct {
	Key     string
	Locator string
}

// PutOptions control object visibility. Non-public objects (backups) are
// written without a public-read ACL.
type PutOptions struct {
	Public bool
}

// Store is the object-storage contract. Fetch of a missing locator returns
// common.ErrNotFound; any transport failure surfaces as
// common.ErrStoreUnavailable and must be treated as "outcome unknown".
type Store interface {
	List(ctx context.Context, prefix string) ([]ObjectInfo, error)
	Fetch(ctx context.Context, locator string) ([]byte, error)
	Put(ctx context.Context, key string, data []byte, opts PutOptions) (string, error)
	Delete(ctx context.Context, locator string) error
}
