package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/obramarket/ObraMarket/internal/pkg/env"
)

var (
	client *redis.Client
	ctx    = context.Background()
)

const storefrontTTL = 5 * time.Minute

// SetupCache initializes the connection to the Redis cache server
func SetupCache() {
	host := env.GetEnv("CACHE_HOST", "localhost")
	port := env.GetEnv("CACHE_PORT", "6379")

	client = redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%s", host, port),
		Password: "", // no password set
		DB:       0,  // use default DB
	})

	// Test the connection
	pong, err := client.Ping(ctx).Result()
	if err != nil {
		log.Printf("Warning: Could not connect to Redis cache: %v", err)
	} else {
		log.Printf("Successfully connected to Redis cache: %s", pong)
	}
}

// GetClient returns the Redis client instance
func GetClient() *redis.Client {
	if client == nil {
		SetupCache()
	}
	return client
}

// Set stores a value in the cache with the given key and expiration time
func Set(key string, value interface{}, expiration time.Duration) error {
	return GetClient().Set(ctx, key, value, expiration).Err()
}

// Get retrieves a value from the cache by key
func Get(key string) (string, error) {
	return GetClient().Get(ctx, key).Result()
}

// Delete removes a value from the cache by key
func Delete(key string) error {
	return GetClient().Del(ctx, key).Err()
}

func storefrontKey(slug string) string {
	return "storefront:" + slug
}

// SetStorefront caches a serialized storefront record under its slug.
func SetStorefront(slug string, value interface{}) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return Set(storefrontKey(slug), data, storefrontTTL)
}

// GetStorefront loads a cached storefront record into out. Returns false on
// miss or on any cache error; callers fall back to the database.
func GetStorefront(slug string, out interface{}) bool {
	raw, err := Get(storefrontKey(slug))
	if err != nil {
		return false
	}
	return json.Unmarshal([]byte(raw), out) == nil
}

// InvalidateStorefront drops the cached record for a slug. Used when a store
// is suspended so delisting takes effect immediately.
func InvalidateStorefront(slug string) {
	if err := Delete(storefrontKey(slug)); err != nil {
		log.Printf("cache: failed to invalidate storefront %s: %v", slug, err)
	}
}
