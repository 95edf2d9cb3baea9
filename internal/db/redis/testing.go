package redis

import "github.com/redis/rueidis"

// NewStoreForTest wraps an existing client (used with rueidis/mock in other packages' tests).
func NewStoreForTest(c rueidis.Client) *Store {
	return &Store{client: c}
}
