package tokenstore

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

var _ Store = (*RedisStore)(nil)

// KEYS: old record, new record, user set.
// ARGV: user id, new ttl ms, old hash, new hash.
const rotateScript = `
local owner = redis.call("GET", KEYS[1])
if not owner or owner ~= ARGV[1] then
  return 0
end
redis.call("DEL", KEYS[1])
redis.call("SREM", KEYS[3], ARGV[3])
redis.call("SET", KEYS[2], ARGV[1], "PX", ARGV[2])
redis.call("SADD", KEYS[3], ARGV[4])
redis.call("PEXPIRE", KEYS[3], ARGV[2])
return 1
`

// KEYS: token record.
// ARGV: user set prefix, token hash.
const deleteScript = `
local owner = redis.call("GET", KEYS[1])
if not owner then
  return 0
end
redis.call("DEL", KEYS[1])
redis.call("SREM", ARGV[1] .. owner, ARGV[2])
return 1
`

// KEYS: user set.
// ARGV: token record prefix.
const deleteAllScript = `
local hashes = redis.call("SMEMBERS", KEYS[1])
for _, h in ipairs(hashes) do
  redis.call("DEL", ARGV[1] .. h)
end
redis.call("DEL", KEYS[1])
return #hashes
`

var (
	rotateLua    = redis.NewScript(rotateScript)
	deleteLua    = redis.NewScript(deleteScript)
	deleteAllLua = redis.NewScript(deleteAllScript)
)

// RedisStore keeps one key per token holding the owner id, expiring with
// the token, plus a set of hashes per user for DeleteAllForUser.
type RedisStore struct {
	rdb    redis.UniversalClient
	prefix string
}

func NewRedisStore(rdb redis.UniversalClient, prefix string) *RedisStore {
	if prefix == "" {
		prefix = "rt"
	}
	return &RedisStore{rdb: rdb, prefix: prefix}
}

func (s *RedisStore) key(hash string) string       { return s.prefix + ":" + hash }
func (s *RedisStore) userKey(userID string) string { return s.prefix + "u:" + userID }

func (s *RedisStore) Save(ctx context.Context, userID, token string, expiresAt time.Time) error {
	ttl := time.Until(expiresAt)
	if ttl <= 0 {
		return nil
	}
	hash := HashToken(token)
	pipe := s.rdb.TxPipeline()
	pipe.Set(ctx, s.key(hash), userID, ttl)
	pipe.SAdd(ctx, s.userKey(userID), hash)
	// refresh ttl is constant, so the newest token outlives the rest
	pipe.PExpire(ctx, s.userKey(userID), ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return unavailable("save", err)
	}
	return nil
}

func (s *RedisStore) FindByToken(ctx context.Context, token string) (*Record, error) {
	hash := HashToken(token)
	var get *redis.StringCmd
	var pttl *redis.DurationCmd
	_, err := s.rdb.Pipelined(ctx, func(p redis.Pipeliner) error {
		get = p.Get(ctx, s.key(hash))
		pttl = p.PTTL(ctx, s.key(hash))
		return nil
	})
	if errors.Is(err, redis.Nil) || errors.Is(get.Err(), redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, unavailable("find", err)
	}

	rec := &Record{TokenHash: hash, UserID: get.Val()}
	if d := pttl.Val(); d > 0 {
		rec.ExpiresAt = time.Now().Add(d)
	}
	return rec, nil
}

func (s *RedisStore) DeleteByToken(ctx context.Context, token string) (bool, error) {
	hash := HashToken(token)
	n, err := deleteLua.Run(ctx, s.rdb, []string{s.key(hash)}, s.userKey(""), hash).Int()
	if err != nil {
		return false, unavailable("delete", err)
	}
	return n == 1, nil
}

func (s *RedisStore) DeleteAllForUser(ctx context.Context, userID string) error {
	if err := deleteAllLua.Run(ctx, s.rdb, []string{s.userKey(userID)}, s.key("")).Err(); err != nil {
		return unavailable("delete all", err)
	}
	return nil
}

func (s *RedisStore) Rotate(ctx context.Context, oldToken, userID, newToken string, expiresAt time.Time) (bool, error) {
	ttl := time.Until(expiresAt)
	if ttl <= 0 {
		ttl = time.Millisecond
	}
	oldHash, newHash := HashToken(oldToken), HashToken(newToken)
	n, err := rotateLua.Run(ctx, s.rdb,
		[]string{s.key(oldHash), s.key(newHash), s.userKey(userID)},
		userID, ttl.Milliseconds(), oldHash, newHash,
	).Int()
	if err != nil {
		return false, unavailable("rotate", err)
	}
	return n == 1, nil
}
