package valkey

import "github.com/redis/rueidis"

// NewStoreForTest creates a Store around the provided rueidis client.
func NewStoreForTest(c rueidis.Client) *Store {
	return &Store{client: c}
}
