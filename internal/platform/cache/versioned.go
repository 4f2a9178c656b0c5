package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// BumpChannel carries version bumps between processes.
const BumpChannel = "tax.bump"

// Versioned is a JSON cache whose keys embed a namespace version. Bumping the
// version orphans every key written before it.
type Versioned struct {
	client     *redis.Client
	ttl        time.Duration
	versionKey string
}

// NewVersioned instantiates a cache under the given namespace.
func NewVersioned(client *redis.Client, namespace string, ttl time.Duration) *Versioned {
	return &Versioned{client: client, ttl: ttl, versionKey: namespace + ":version"}
}

// Version returns the current namespace version, initialising when missing.
func (c *Versioned) Version(ctx context.Context) (int64, error) {
	if c == nil || c.client == nil {
		return 0, nil
	}
	ver, err := c.client.Get(ctx, c.versionKey).Int64()
	if errors.Is(err, redis.Nil) {
		if err := c.client.SetNX(ctx, c.versionKey, 1, 0).Err(); err != nil {
			return 0, err
		}
		return c.client.Get(ctx, c.versionKey).Int64()
	}
	if err != nil {
		return 0, err
	}
	if ver <= 0 {
		ver = 1
		if err := c.client.Set(ctx, c.versionKey, ver, 0).Err(); err != nil {
			return 0, err
		}
	}
	return ver, nil
}

// BuildKey composes the cache key with the current version.
func (c *Versioned) BuildKey(ctx context.Context, parts ...string) (string, error) {
	joined := strings.Join(parts, ":")
	if c == nil || c.client == nil {
		return joined, nil
	}
	ver, err := c.Version(ctx)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s:%d", joined, ver), nil
}

// FetchJSON loads a cached value into dest or populates it using the loader.
// The returned flag reports a cache hit.
func (c *Versioned) FetchJSON(ctx context.Context, key string, dest any, loader func(context.Context) (any, error)) (bool, error) {
	if loader == nil {
		return false, errors.New("cache: loader required")
	}
	if c == nil || c.client == nil {
		value, err := loader(ctx)
		if err != nil {
			return false, err
		}
		return false, roundTrip(value, dest)
	}
	payload, err := c.client.Get(ctx, key).Bytes()
	if err == nil {
		return true, json.Unmarshal(payload, dest)
	}
	if !errors.Is(err, redis.Nil) {
		return false, err
	}
	value, err := loader(ctx)
	if err != nil {
		return false, err
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return false, err
	}
	if err := c.client.Set(ctx, key, raw, c.ttl).Err(); err != nil {
		return false, err
	}
	return false, json.Unmarshal(raw, dest)
}

// Bump invalidates the namespace by incrementing its version and publishing the new value.
func (c *Versioned) Bump(ctx context.Context) error {
	if c == nil || c.client == nil {
		return nil
	}
	ver, err := c.client.Incr(ctx, c.versionKey).Result()
	if err != nil {
		return err
	}
	return c.client.Publish(ctx, BumpChannel, c.versionKey+"="+strconv.FormatInt(ver, 10)).Err()
}

// ListenForInvalidation applies version bumps published by other processes.
func (c *Versioned) ListenForInvalidation(ctx context.Context) error {
	if c == nil || c.client == nil {
		return nil
	}
	pubsub := c.client.Subscribe(ctx, BumpChannel)
	go func() {
		defer func() { _ = pubsub.Close() }()
		ch := pubsub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				key, value, found := strings.Cut(msg.Payload, "=")
				if !found || key != c.versionKey {
					continue
				}
				if ver, err := strconv.ParseInt(value, 10, 64); err == nil {
					_ = c.client.Set(ctx, c.versionKey, ver, 0).Err()
				}
			}
		}
	}()
	return nil
}

func roundTrip(value, dest any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, dest)
}
