package auth

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// storeTimeout bounds a single credential store round trip.
const storeTimeout = 2 * time.Second

// userKey returns the Redis key for a user's credential hash.
func userKey(name string) string {
	return "user:" + name
}

// RedisStore persists credential records in Redis, one hash per user.
type RedisStore struct {
	client redis.Cmdable
}

// NewRedisStore creates a RedisStore backed by the given client.
func NewRedisStore(client redis.Cmdable) *RedisStore {
	return &RedisStore{client: client}
}

// UsernameExists reports whether a credential record exists for name.
func (s *RedisStore) UsernameExists(ctx context.Context, name string) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, storeTimeout)
	defer cancel()

	n, err := s.client.Exists(ctx, userKey(name)).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// CreateUser stores a new credential record. HSETNX on the password_hash
// field makes the uniqueness check and the insert a single atomic step.
func (s *RedisStore) CreateUser(ctx context.Context, name, password string) error {
	hash, err := hashPassword(password)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, storeTimeout)
	defer cancel()

	set, err := s.client.HSetNX(ctx, userKey(name), "password_hash", hash).Result()
	if err != nil {
		return err
	}
	if !set {
		return ErrUsernameTaken
	}

	createdAt := time.Now().UTC().Format(time.RFC3339)
	return s.client.HSet(ctx, userKey(name), "created_at", createdAt).Err()
}

// VerifyCredentials reports whether name exists and password matches.
func (s *RedisStore) VerifyCredentials(ctx context.Context, name, password string) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, storeTimeout)
	defer cancel()

	hash, err := s.client.HGet(ctx, userKey(name), "password_hash").Result()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return checkPassword(hash, password), nil
}
