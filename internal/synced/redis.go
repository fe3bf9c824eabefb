package synced

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	redisKeyPrefix     = "darwinawards:synced:"
	redisChannel       = "darwinawards:synced"
	redisVersionSuffix = ":version"
)

// publishScript stores and announces a value only when its version is newer
// than the stored one. KEYS: value, version. ARGV: version, payload, channel.
var publishScript = redis.NewScript(`
local current = tonumber(redis.call('GET', KEYS[2]) or '')
if current and current >= tonumber(ARGV[1]) then
	return current
end
redis.call('SET', KEYS[1], ARGV[2])
redis.call('SET', KEYS[2], ARGV[1])
redis.call('PUBLISH', ARGV[3], ARGV[2])
return 0
`)

// RedisStore keeps the latest version of every synced value in Redis and
// announces new versions on a pub/sub channel, for peers that are not on
// the UDP session relay's network path.
type RedisStore struct {
	client *redis.Client
	logger *slog.Logger
}

// Connect initializes a Redis client from URL or host:port input.
func Connect(ctx context.Context, redisURL string) (*redis.Client, error) {
	var rdb *redis.Client
	if strings.HasPrefix(redisURL, "redis://") || strings.HasPrefix(redisURL, "rediss://") {
		opt, err := redis.ParseURL(redisURL)
		if err != nil {
			return nil, fmt.Errorf("parse redis url: %w", err)
		}
		rdb = redis.NewClient(opt)
	} else {
		rdb = redis.NewClient(&redis.Options{
			Addr:         redisURL,
			DialTimeout:  5 * time.Second,
			ReadTimeout:  3 * time.Second,
			WriteTimeout: 3 * time.Second,
		})
	}

	// Verify connection
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return rdb, nil
}

func NewRedisStore(client *redis.Client, logger *slog.Logger) *RedisStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &RedisStore{client: client, logger: logger}
}

// PublishValue stores v as the current version and announces it.
// Older versions never overwrite a newer stored one; the check and the
// write happen atomically in Redis.
func (s *RedisStore) PublishValue(ctx context.Context, v Value) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal synced value: %w", err)
	}

	key := redisKeyPrefix + v.Name
	stored, err := publishScript.Run(ctx, s.client,
		[]string{key, key + redisVersionSuffix},
		strconv.FormatInt(v.Version, 10), payload, redisChannel,
	).Int64()
	if err != nil {
		return fmt.Errorf("failed to publish synced value %s: %w", v.Name, err)
	}
	if stored != 0 {
		s.logger.Debug("synced_value_stale",
			"name", v.Name,
			"version", v.Version,
			"stored_version", stored,
		)
	}
	return nil
}

// Load returns the stored version of name.
func (s *RedisStore) Load(ctx context.Context, name string) (Value, bool, error) {
	raw, err := s.client.Get(ctx, redisKeyPrefix+name).Bytes()
	if errors.Is(err, redis.Nil) {
		return Value{}, false, nil
	}
	if err != nil {
		return Value{}, false, fmt.Errorf("failed to load synced value %s: %w", name, err)
	}

	var v Value
	if err := json.Unmarshal(raw, &v); err != nil {
		return Value{}, false, fmt.Errorf("failed to decode synced value %s: %w", name, err)
	}
	return v, true, nil
}

// Subscribe delivers announced values to fn until ctx is done.
// Values already stored are delivered first so a late subscriber catches up.
func (s *RedisStore) Subscribe(ctx context.Context, fn func(Value), names ...string) error {
	sub := s.client.Subscribe(ctx, redisChannel)
	defer sub.Close()

	// wait for the subscription to be confirmed before catching up,
	// so nothing published in between is lost
	if _, err := sub.Receive(ctx); err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", redisChannel, err)
	}

	for _, name := range names {
		v, found, err := s.Load(ctx, name)
		if err != nil {
			s.logger.Warn("synced_value_load_failed", "name", name, "error", err.Error())
			continue
		}
		if found {
			fn(v)
		}
	}

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			var v Value
			if err := json.Unmarshal([]byte(msg.Payload), &v); err != nil {
				s.logger.Warn("synced_value_decode_failed", "error", err.Error())
				continue
			}
			fn(v)
		}
	}
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}
