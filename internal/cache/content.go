// Package cache keeps fetched Tracim contents in Redis so that reopening
// the feed or paging through it does not refetch every record.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/nhle/tracimfeed/internal/activity"
	"github.com/nhle/tracimfeed/internal/model"
	"github.com/nhle/tracimfeed/internal/tracim"
)

const keyPrefix = "tracimfeed:content:"

// ContentCache wraps a FeedAPI and serves GetContent cache-aside from
// Redis. Comments and notification pages always go to the server.
type ContentCache struct {
	next  activity.FeedAPI
	redis *redis.Client
	ttl   time.Duration
	log   *zap.Logger

	hits   atomic.Int64
	misses atomic.Int64
}

// NewContentCache builds a cache in front of next. A zero ttl keeps
// entries until they are invalidated.
func NewContentCache(next activity.FeedAPI, client *redis.Client, ttl time.Duration, log *zap.Logger) *ContentCache {
	if log == nil {
		log = zap.NewNop()
	}
	return &ContentCache{next: next, redis: client, ttl: ttl, log: log.Named("cache")}
}

// Dial connects to Redis and checks the connection.
func Dial(ctx context.Context, addr string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{Addr: addr, DB: db})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("connecting to redis %s: %w", addr, err)
	}
	return client, nil
}

func contentKey(contentID int) string {
	return keyPrefix + strconv.Itoa(contentID)
}

// FetchNotificationPage is never cached.
func (c *ContentCache) FetchNotificationPage(
	ctx context.Context,
	userID int,
	req tracim.PageRequest,
) (*model.MessagePage, error) {
	return c.next.FetchNotificationPage(ctx, userID, req)
}

// GetComment is never cached.
func (c *ContentCache) GetComment(ctx context.Context, workspaceID, contentID, commentID int) (*model.Content, error) {
	return c.next.GetComment(ctx, workspaceID, contentID, commentID)
}

// GetContent returns the cached record or fetches and stores it. Redis
// failures degrade to a direct fetch.
func (c *ContentCache) GetContent(ctx context.Context, contentID int) (*model.Content, error) {
	key := contentKey(contentID)

	data, err := c.redis.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var content model.Content
		if uErr := json.Unmarshal(data, &content); uErr == nil {
			c.hits.Add(1)
			return &content, nil
		}
		c.log.Warn("dropping undecodable cache entry", zap.String("key", key))
	case !errors.Is(err, redis.Nil):
		c.log.Debug("redis get failed", zap.String("key", key), zap.Error(err))
	}
	c.misses.Add(1)

	content, err := c.next.GetContent(ctx, contentID)
	if err != nil {
		return nil, err
	}

	if payload, err := json.Marshal(content); err == nil {
		if err := c.redis.Set(ctx, key, payload, c.ttl).Err(); err != nil {
			c.log.Debug("redis set failed", zap.String("key", key), zap.Error(err))
		}
	}
	return content, nil
}

// Invalidate drops the cached record of contentID.
func (c *ContentCache) Invalidate(ctx context.Context, contentID int) error {
	if err := c.redis.Del(ctx, contentKey(contentID)).Err(); err != nil {
		return fmt.Errorf("invalidating content %d: %w", contentID, err)
	}
	return nil
}

// Stats returns the hit and miss counters.
func (c *ContentCache) Stats() (hits, misses int64) {
	return c.hits.Load(), c.misses.Load()
}
