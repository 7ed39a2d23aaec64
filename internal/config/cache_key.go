package config

import (
	"fmt"
)

type CacheKeyStruct struct{}

func NewCacheKeyStruct() *CacheKeyStruct {
	return &CacheKeyStruct{}
}

// AdminSessionKey returns the cache key for an admin's active session.
func (r *CacheKeyStruct) AdminSessionKey(adminID int) string {
	return fmt.Sprintf("login:admin:%d", adminID)
}

// QuestionListKey returns the cache key for the full question list snapshot.
func (r *CacheKeyStruct) QuestionListKey() string {
	return "questions:list"
}

// TagUsageKey returns the cache key for the precomputed tag usage stats.
func (r *CacheKeyStruct) TagUsageKey() string {
	return "questions:tag_usage"
}

// TagOptionsKey returns the cache key for the sorted tag option list.
func (r *CacheKeyStruct) TagOptionsKey() string {
	return "questions:tag_options"
}

var CacheKey = NewCacheKeyStruct()
