package config

import (
	"fmt"
)

type CacheKeyStruct struct{}

func NewCacheKeyStruct() *CacheKeyStruct {
	return &CacheKeyStruct{}
}

// CandidateConnectionKey returns the cache key for a candidate's live
// conductor connection (jti of the token holding the WebSocket).
func (r *CacheKeyStruct) CandidateConnectionKey(candidateID int) string {
	return fmt.Sprintf("conn:%d", candidateID)
}

// SessionAccessHashKey returns the cache key for a session's access-code hash.
func (r *CacheKeyStruct) SessionAccessHashKey(sessionID string) string {
	return fmt.Sprintf("session:%s:access_hash", sessionID)
}

// SessionWarningsKey returns the cache key mirroring a session's warning count
// for external monitors.
func (r *CacheKeyStruct) SessionWarningsKey(sessionID string) string {
	return fmt.Sprintf("session:%s:warnings", sessionID)
}

var CacheKey = NewCacheKeyStruct()
