package iam

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/TanzeemAgra/Healthcare-sub004/pkg/logger"
	"github.com/TanzeemAgra/Healthcare-sub004/pkg/rbac"
	"github.com/TanzeemAgra/Healthcare-sub004/pkg/repository"
)

// CachedPermissions is a Redis read-through cache in front of the permission
// repository. Records live under <prefix><user_id> and are dropped on every
// replace. Redis failures degrade to the repository; they never fail a request.
type CachedPermissions struct {
	next   repository.PermissionRepositoryInterface
	redis  redis.UniversalClient
	ttl    time.Duration
	prefix string
	logger *logger.Logger
}

// NewCachedPermissions wraps next with a cache on client
func NewCachedPermissions(next repository.PermissionRepositoryInterface, client redis.UniversalClient, ttl time.Duration, prefix string, log *logger.Logger) *CachedPermissions {
	if prefix == "" {
		prefix = "permissions:"
	}
	return &CachedPermissions{
		next:   next,
		redis:  client,
		ttl:    ttl,
		prefix: prefix,
		logger: log,
	}
}

func (c *CachedPermissions) key(userID string) string {
	return c.prefix + userID
}

// Get returns the cached record, falling back to the repository on a miss
func (c *CachedPermissions) Get(ctx context.Context, userID string) (*rbac.PermissionRecord, error) {
	cached, err := c.redis.Get(ctx, c.key(userID)).Bytes()
	switch {
	case err == nil:
		var record rbac.PermissionRecord
		if jsonErr := json.Unmarshal(cached, &record); jsonErr == nil {
			return &record, nil
		}
		c.logger.WithContext(ctx).WithField("user_id", userID).Warn("Discarding malformed cached permission record")
	case !errors.Is(err, redis.Nil):
		c.logger.WithContext(ctx).WithError(err).Warn("Permission cache read failed")
	}

	record, err := c.next.Get(ctx, userID)
	if err != nil {
		return nil, err
	}

	if data, err := json.Marshal(record); err == nil {
		if err := c.redis.Set(ctx, c.key(userID), data, c.ttl).Err(); err != nil {
			c.logger.WithContext(ctx).WithError(err).Warn("Permission cache write failed")
		}
	}
	return record, nil
}

// Replace writes through to the repository and invalidates the cached copy
func (c *CachedPermissions) Replace(ctx context.Context, record *rbac.PermissionRecord, updatedBy string) error {
	if err := c.next.Replace(ctx, record, updatedBy); err != nil {
		return err
	}
	c.Invalidate(ctx, record.UserID)
	return nil
}

// Invalidate drops the cached record of userID
func (c *CachedPermissions) Invalidate(ctx context.Context, userID string) {
	if err := c.redis.Del(ctx, c.key(userID)).Err(); err != nil {
		c.logger.WithContext(ctx).WithError(err).WithField("user_id", userID).Warn("Permission cache invalidation failed")
	}
}

var _ repository.PermissionRepositoryInterface = (*CachedPermissions)(nil)
