package config

import (
	"fmt"
)

type CacheKeyStruct struct{}

func NewCacheKeyStruct() *CacheKeyStruct {
	return &CacheKeyStruct{}
}

// UserByTokenKey returns the cache key for an authenticated user keyed by
// the SHA-256 digest of their bearer token.
func (r *CacheKeyStruct) UserByTokenKey(tokenDigest string) string {
	return fmt.Sprintf("user:token:%s", tokenDigest)
}

var CacheKey = NewCacheKeyStruct()
