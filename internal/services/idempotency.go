package services

import (
	"context"
	"sync"
	"time"

	"github.com/cryptoarcade/backend/internal/logger"
	"github.com/cryptoarcade/backend/internal/models"
	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// IdempotencyStore guards a client-supplied key: only one holder may settle
// under it at a time, and the first result is kept for replays.
type IdempotencyStore interface {
	// Acquire takes the lock for key. It returns ErrDuplicateInFlight when
	// another holder has it. The returned func releases the lock.
	Acquire(ctx context.Context, key string, ttl time.Duration) (func(), error)
	Result(ctx context.Context, key string) ([]byte, bool)
	SaveResult(ctx context.Context, key string, data []byte, ttl time.Duration)
}

const (
	idemLockPrefix   = "settle:idem:lock:"
	idemResultPrefix = "settle:idem:result:"
)

// releaseScript deletes the lock only if it still holds our token.
var releaseScript = redis.NewScript(`if redis.call("get", KEYS[1]) == ARGV[1] then return redis.call("del", KEYS[1]) else return 0 end`)

type RedisIdempotency struct {
	redis    *redis.Client
	newToken func() string
}

func NewRedisIdempotency(rdb *redis.Client) *RedisIdempotency {
	return &RedisIdempotency{redis: rdb, newToken: uuid.NewString}
}

func (s *RedisIdempotency) Acquire(ctx context.Context, key string, ttl time.Duration) (func(), error) {
	lockKey := idemLockPrefix + key
	token := s.newToken()

	ok, err := s.redis.SetNX(ctx, lockKey, token, ttl).Result()
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, models.ErrDuplicateInFlight
	}

	return func() {
		// the request context may already be done
		rctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		if err := releaseScript.Run(rctx, s.redis, []string{lockKey}, token).Err(); err != nil && err != redis.Nil {
			logger.Warn("idempotency lock release failed", zap.String("key", key), zap.Error(err))
		}
	}, nil
}

func (s *RedisIdempotency) Result(ctx context.Context, key string) ([]byte, bool) {
	data, err := s.redis.Get(ctx, idemResultPrefix+key).Bytes()
	if err != nil {
		if err != redis.Nil {
			logger.WarnCtx(ctx, "idempotency cache read failed", zap.String("key", key), zap.Error(err))
		}
		return nil, false
	}
	return data, true
}

func (s *RedisIdempotency) SaveResult(ctx context.Context, key string, data []byte, ttl time.Duration) {
	if err := s.redis.Set(ctx, idemResultPrefix+key, data, ttl).Err(); err != nil {
		logger.WarnCtx(ctx, "idempotency cache write failed", zap.String("key", key), zap.Error(err))
	}
}

// MemoryIdempotency is the single-process fallback used when Redis is not
// configured.
type MemoryIdempotency struct {
	mu      sync.Mutex
	locks   map[string]memEntry
	results map[string]memEntry
	now     func() time.Time
}

type memEntry struct {
	value   []byte
	expires time.Time
}

func NewMemoryIdempotency() *MemoryIdempotency {
	return &MemoryIdempotency{
		locks:   make(map[string]memEntry),
		results: make(map[string]memEntry),
		now:     time.Now,
	}
}

func (s *MemoryIdempotency) Acquire(_ context.Context, key string, ttl time.Duration) (func(), error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if e, ok := s.locks[key]; ok && now.Before(e.expires) {
		return nil, models.ErrDuplicateInFlight
	}
	sweepExpired(s.locks, now)
	token := []byte(uuid.NewString())
	s.locks[key] = memEntry{value: token, expires: now.Add(ttl)}

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if e, ok := s.locks[key]; ok && string(e.value) == string(token) {
			delete(s.locks, key)
		}
	}, nil
}

func (s *MemoryIdempotency) Result(_ context.Context, key string) ([]byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.results[key]
	if !ok {
		return nil, false
	}
	if !s.now().Before(e.expires) {
		delete(s.results, key)
		return nil, false
	}
	return e.value, true
}

func (s *MemoryIdempotency) SaveResult(_ context.Context, key string, data []byte, ttl time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	sweepExpired(s.results, now)
	s.results[key] = memEntry{value: data, expires: now.Add(ttl)}
}

func (s *MemoryIdempotency) size() (locks, results int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.locks), len(s.results)
}

func sweepExpired(m map[string]memEntry, now time.Time) {
	for k, e := range m {
		if !now.Before(e.expires) {
			delete(m, k)
		}
	}
}
