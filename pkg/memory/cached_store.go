package memory

import (
	"context"
	"log"
	"time"

	"personabot/pkg/cache"
)

// Cache is the subset of cache.Cache used here.
type Cache interface {
	Key(parts ...string) string
	GetJSON(ctx context.Context, key string, dest any) error
	SetJSON(ctx context.Context, key string, value any, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

var _ Cache = (*cache.Cache)(nil)

// CachedStore is a read-through cache in front of another Store.
// Appends go to the underlying store first, then drop the cached entry.
type CachedStore struct {
	Store
	cache Cache
}

func NewCachedStore(store Store, cache Cache) *CachedStore {
	return &CachedStore{
		Store: store,
		cache: cache,
	}
}

func (c *CachedStore) GlobalMemories() []string {
	ctx := context.Background()
	key := c.cache.Key("global_memories")

	var memories []string
	if err := c.cache.GetJSON(ctx, key, &memories); err == nil && memories != nil {
		return memories
	}

	memories = c.Store.GlobalMemories()
	c.fill(ctx, key, memories, cache.GlobalMemoriesTTL)
	return memories
}

func (c *CachedStore) ChannelMemories(channelID string) []string {
	ctx := context.Background()
	key := c.cache.Key("channel_memories", channelID)

	var memories []string
	if err := c.cache.GetJSON(ctx, key, &memories); err == nil && memories != nil {
		return memories
	}

	memories = c.Store.ChannelMemories(channelID)
	c.fill(ctx, key, memories, cache.ChannelMemoriesTTL)
	return memories
}

// fill caches non-empty reads. An empty read may be a failed one, since
// stores report read errors as empty, so it is left to the next call.
func (c *CachedStore) fill(ctx context.Context, key string, memories []string, ttl time.Duration) {
	if len(memories) == 0 {
		return
	}
	if err := c.cache.SetJSON(ctx, key, memories, ttl); err != nil {
		log.Printf("Error caching memories: %v", err)
	}
}

func (c *CachedStore) AppendGlobal(text string) error {
	if err := c.Store.AppendGlobal(text); err != nil {
		return err
	}
	if err := c.cache.Delete(context.Background(), c.cache.Key("global_memories")); err != nil {
		log.Printf("Error invalidating global memory cache: %v", err)
	}
	return nil
}

func (c *CachedStore) AppendChannel(channelID, text string) error {
	if err := c.Store.AppendChannel(channelID, text); err != nil {
		return err
	}
	if err := c.cache.Delete(context.Background(), c.cache.Key("channel_memories", channelID)); err != nil {
		log.Printf("Error invalidating channel memory cache: %v", err)
	}
	return nil
}
