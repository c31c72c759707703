package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"istancool/internal/middleware"
	"istancool/internal/observability"

	"github.com/redis/go-redis/v9"
)

const (
	CategoryKeyPrefix = "category:%d"
	DistrictKeyPrefix = "district:%d"
	ResetKeyPrefix    = "reset:%s"
	DistrictListKey   = "districts:%s"
	FeaturedPostsKey  = "posts:featured:%d:%d"

	HomepageCategoriesKey = "categories:homepage"
	MapPostsKey           = "posts:map"

	featuredPattern     = "posts:featured:*"
	districtListPattern = "districts:*"
)

const (
	CategoryTTL = 10 * time.Minute
	DistrictTTL = time.Hour
	ListTTL     = 2 * time.Minute
)

func CategoryKey(id uint) string {
	return fmt.Sprintf(CategoryKeyPrefix, id)
}

func DistrictKey(id uint) string {
	return fmt.Sprintf(DistrictKeyPrefix, id)
}

// DistrictsKey is the list key for one region filter; "" means all.
func DistrictsKey(region string) string {
	if region == "" {
		region = "all"
	}
	return fmt.Sprintf(DistrictListKey, region)
}

func FeaturedKey(skip, limit int) string {
	return fmt.Sprintf(FeaturedPostsKey, skip, limit)
}

// ResetKey holds the single-use marker of a password reset token.
func ResetKey(jti string) string {
	return fmt.Sprintf(ResetKeyPrefix, jti)
}

// Aside loads key into dest, falling back to load and caching its result for
// ttl. Without Redis it just calls load. Cache errors never fail the read.
func Aside(ctx context.Context, key string, dest any, ttl time.Duration, load func() error) error {
	if client == nil {
		return load()
	}
	family := keyFamily(key)

	raw, err := client.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		if jsonErr := json.Unmarshal(raw, dest); jsonErr == nil {
			observability.CacheLookups.WithLabelValues(family, "hit").Inc()
			return nil
		}
		client.Del(ctx, key)
	case !errors.Is(err, redis.Nil):
		middleware.Logger.WarnContext(ctx, "cache read failed", "key", key, "error", err)
	}
	observability.CacheLookups.WithLabelValues(family, "miss").Inc()

	if err := load(); err != nil {
		return err
	}

	data, err := json.Marshal(dest)
	if err != nil {
		return nil
	}
	if err := client.Set(ctx, key, data, ttl).Err(); err != nil {
		middleware.Logger.WarnContext(ctx, "cache write failed", "key", key, "error", err)
	}
	return nil
}

func keyFamily(key string) string {
	if i := strings.IndexByte(key, ':'); i >= 0 {
		return key[:i]
	}
	return key
}

func Invalidate(ctx context.Context, keys ...string) {
	if client != nil && len(keys) > 0 {
		client.Del(ctx, keys...)
	}
}

func invalidatePattern(ctx context.Context, pattern string) {
	if client == nil {
		return
	}
	iter := client.Scan(ctx, 0, pattern, 100).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if len(keys) > 0 {
		client.Del(ctx, keys...)
	}
}

// InvalidateCategory drops the category and every list embedding category data.
func InvalidateCategory(ctx context.Context, id uint) {
	Invalidate(ctx, CategoryKey(id), HomepageCategoriesKey, MapPostsKey)
	invalidatePattern(ctx, featuredPattern)
}

func InvalidateDistricts(ctx context.Context) {
	invalidatePattern(ctx, districtListPattern)
}

// InvalidatePostLists drops the featured and map lists.
func InvalidatePostLists(ctx context.Context) {
	Invalidate(ctx, MapPostsKey)
	invalidatePattern(ctx, featuredPattern)
}
