// Sentinel - Behavioral Login Anomaly Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sentinel

package detection

import (
	"context"
	"time"

	"github.com/tomtom215/sentinel/internal/cache"
)

// TokenCache fronts a ProfileStore with an LRU of push tokens. Writes go
// through to the store and replace the cached value.
type TokenCache struct {
	next  ProfileStore
	cache *cache.LRU[string]
}

// NewTokenCache wraps next. Users without a token are cached too, as "".
func NewTokenCache(next ProfileStore, capacity int, ttl time.Duration) *TokenCache {
	return &TokenCache{next: next, cache: cache.NewLRU[string]("push_tokens", capacity, ttl)}
}

// PushToken implements TokenLookup.
func (c *TokenCache) PushToken(ctx context.Context, userID string) (string, error) {
	if token, ok := c.cache.Get(userID); ok {
		return token, nil
	}
	token, err := c.next.PushToken(ctx, userID)
	if err != nil {
		return "", err
	}
	c.cache.Add(userID, token)
	return token, nil
}

// SetPushToken implements ProfileStore.
func (c *TokenCache) SetPushToken(ctx context.Context, userID, token string) error {
	if err := c.next.SetPushToken(ctx, userID, token); err != nil {
		c.cache.Remove(userID)
		return err
	}
	c.cache.Add(userID, token)
	return nil
}
