package identity

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/MrEthical07/goAuthz/permission"
	"github.com/redis/go-redis/v9"
)

// ErrRedisUnavailable wraps transport failures from the Redis store.
var ErrRedisUnavailable = errors.New("identity redis unavailable")

const (
	defaultRedisPrefix = "authz"
	roleField          = "role"
)

// RedisStore reads identities from Redis hashes at <prefix>:user:<id>.
// A hash that exists is an existing identity; its "role" field is the role
// record.
type RedisStore struct {
	client redis.UniversalClient
	prefix string
}

// NewRedisStore returns a store using client. An empty prefix means "authz".
func NewRedisStore(client redis.UniversalClient, prefix string) *RedisStore {
	if prefix == "" {
		prefix = defaultRedisPrefix
	}
	return &RedisStore{client: client, prefix: prefix}
}

func (s *RedisStore) key(id int64) string {
	return s.prefix + ":user:" + strconv.FormatInt(id, 10)
}

func (s *RedisStore) Exists(ctx context.Context, id int64) (bool, error) {
	n, err := s.client.Exists(ctx, s.key(id)).Result()
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return n == 1, nil
}

func (s *RedisStore) CurrentRole(ctx context.Context, id int64) (permission.Role, bool, error) {
	role, err := s.client.HGet(ctx, s.key(id), roleField).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	if role == "" {
		return "", false, nil
	}
	return permission.Role(role), true, nil
}

// Put provisions id with role in a single round trip. An empty role creates
// the identity without a role record.
func (s *RedisStore) Put(ctx context.Context, id int64, role permission.Role) error {
	key := s.key(id)
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, key, "id", id)
		if role == "" {
			pipe.HDel(ctx, key, roleField)
		} else {
			pipe.HSet(ctx, key, roleField, string(role))
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

// Delete removes id. Deleting a missing identity is not an error.
func (s *RedisStore) Delete(ctx context.Context, id int64) error {
	if err := s.client.Del(ctx, s.key(id)).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}
