package store

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"auth-be/internal/domain"
	"auth-be/pkg/errors"
	"auth-be/pkg/logger"
)

const (
	redisProfileKey = "profile:%s"
	redisIndexKey   = "profiles:index"
)

// RedisStore keeps one hash per profile plus an id index set
type RedisStore struct {
	rdb *redis.Client
	log *logger.Logger
}

// NewRedisStore creates a Redis-backed profile store
func NewRedisStore(redisURL string, log *logger.Logger) (*RedisStore, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	opts.MaxRetries = 3
	opts.DialTimeout = 5 * time.Second
	opts.ReadTimeout = 3 * time.Second
	opts.WriteTimeout = 3 * time.Second

	rdb := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &RedisStore{rdb: rdb, log: log}, nil
}

// Close closes the Redis connection
func (s *RedisStore) Close() error {
	if s.rdb != nil {
		return s.rdb.Close()
	}
	return nil
}

// Health checks the Redis connection
func (s *RedisStore) Health(ctx context.Context) error {
	return s.rdb.Ping(ctx).Err()
}

// Put writes a full profile document under id
func (s *RedisStore) Put(ctx context.Context, id string, profile *domain.Profile) error {
	key := fmt.Sprintf(redisProfileKey, id)

	pipe := s.rdb.TxPipeline()
	pipe.HSet(ctx, key, profileToHash(profile))
	pipe.SAdd(ctx, redisIndexKey, id)

	start := time.Now()
	_, err := pipe.Exec(ctx)
	if err != nil {
		s.log.WithError(err).WithField("profile_id", id).Error("redis_profile_put")
		return errors.NewStoreError("failed to write profile", err)
	}
	s.log.WithFields(map[string]interface{}{
		"profile_id": id,
		"duration":   time.Since(start),
	}).Debug("redis_profile_put")
	return nil
}

// Get fetches the profile document for id
func (s *RedisStore) Get(ctx context.Context, id string) (*domain.Profile, error) {
	key := fmt.Sprintf(redisProfileKey, id)

	fields, err := s.rdb.HGetAll(ctx, key).Result()
	if err != nil {
		s.log.WithError(err).WithField("profile_id", id).Error("redis_profile_get")
		return nil, errors.NewStoreError("failed to read profile", err)
	}
	if len(fields) == 0 {
		return nil, errors.NewNotFoundError("profile not found")
	}
	return profileFromHash(id, fields)
}

// Update applies a partial write to the profile hash
func (s *RedisStore) Update(ctx context.Context, id string, fields map[string]interface{}) error {
	key := fmt.Sprintf(redisProfileKey, id)

	exists, err := s.rdb.Exists(ctx, key).Result()
	if err != nil {
		return errors.NewStoreError("failed to read profile", err)
	}
	if exists == 0 {
		return errors.NewNotFoundError("profile not found")
	}

	values := make(map[string]interface{}, len(fields))
	for field, value := range fields {
		values[field] = encodeHashValue(value)
	}

	if err := s.rdb.HSet(ctx, key, values).Err(); err != nil {
		s.log.WithError(err).WithField("profile_id", id).Error("redis_profile_update")
		return errors.NewStoreError("failed to update profile", err)
	}
	return nil
}

// Delete removes the profile document and its index entry
func (s *RedisStore) Delete(ctx context.Context, id string) error {
	key := fmt.Sprintf(redisProfileKey, id)

	pipe := s.rdb.TxPipeline()
	del := pipe.Del(ctx, key)
	pipe.SRem(ctx, redisIndexKey, id)

	if _, err := pipe.Exec(ctx); err != nil {
		s.log.WithError(err).WithField("profile_id", id).Error("redis_profile_delete")
		return errors.NewStoreError("failed to delete profile", err)
	}
	if del.Val() == 0 {
		return errors.NewNotFoundError("profile not found")
	}
	return nil
}

// ListAll returns every profile document in the index
func (s *RedisStore) ListAll(ctx context.Context) ([]*domain.Profile, error) {
	ids, err := s.rdb.SMembers(ctx, redisIndexKey).Result()
	if err != nil {
		return nil, errors.NewStoreError("failed to list profiles", err)
	}

	profiles := make([]*domain.Profile, 0, len(ids))
	for _, id := range ids {
		profile, err := s.Get(ctx, id)
		if err != nil {
			// Index entries can outlive their hash when a delete raced; skip
			if errors.IsType(err, errors.ErrorTypeNotFound) {
				continue
			}
			return nil, err
		}
		profiles = append(profiles, profile)
	}
	return profiles, nil
}

func profileToHash(profile *domain.Profile) map[string]interface{} {
	hash := map[string]interface{}{
		"email":          profile.Email,
		FieldDisplayName: profile.DisplayName,
		FieldIsAdmin:     strconv.FormatBool(profile.IsAdmin),
		FieldStatus:      profile.Status,
		"created_at":     profile.CreatedAt.UTC().Format(time.RFC3339Nano),
		FieldLastLogin:   encodeHashValue(profile.LastLogin),
		FieldAdminSince:  encodeHashValue(profile.AdminSince),
	}
	return hash
}

func profileFromHash(id string, fields map[string]string) (*domain.Profile, error) {
	profile := &domain.Profile{
		ID:          id,
		Email:       fields["email"],
		DisplayName: fields[FieldDisplayName],
		Status:      fields[FieldStatus],
	}
	profile.IsAdmin, _ = strconv.ParseBool(fields[FieldIsAdmin])

	createdAt, err := time.Parse(time.RFC3339Nano, fields["created_at"])
	if err != nil {
		return nil, errors.NewStoreError("corrupt profile document", err)
	}
	profile.CreatedAt = createdAt

	if raw := fields[FieldLastLogin]; raw != "" {
		t, err := time.Parse(time.RFC3339Nano, raw)
		if err != nil {
			return nil, errors.NewStoreError("corrupt profile document", err)
		}
		profile.LastLogin = &t
	}
	if raw := fields[FieldAdminSince]; raw != "" {
		t, err := time.Parse(time.RFC3339Nano, raw)
		if err != nil {
			return nil, errors.NewStoreError("corrupt profile document", err)
		}
		profile.AdminSince = &t
	}
	return profile, nil
}

func encodeHashValue(value interface{}) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case bool:
		return strconv.FormatBool(v)
	case time.Time:
		return v.UTC().Format(time.RFC3339Nano)
	case *time.Time:
		if v == nil {
			return ""
		}
		return v.UTC().Format(time.RFC3339Nano)
	default:
		return fmt.Sprintf("%v", v)
	}
}
