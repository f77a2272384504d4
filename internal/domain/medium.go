package domain

import "context"

// KeyChange is the medium's native signal that a key was written by another
// handle (another process or tab sharing the same storage).
type KeyChange struct {
	Key    string
	Origin string
}

// Medium is the durable key-value storage shared by every instance.
//
// Get reports ok=false for a missing key. Watch delivers changes made through
// other handles only; the returned channel is closed when ctx is done.
type Medium interface {
	Get(ctx context.Context, key string) (value string, ok bool, err error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
	Watch(ctx context.Context) (<-chan KeyChange, error)
}
