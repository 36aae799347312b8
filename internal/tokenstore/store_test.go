package tokenstore

import (
	"context"
	"fmt"
	"os"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/Skotchmaster/blog_api/internal/models"
)

func newSQLiteDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, db.AutoMigrate(&models.Token{}))
	return db
}

func newRedisStore(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return NewRedisStore(rdb, "rt"), mr
}

type backend struct {
	name string
	new  func(t *testing.T) Store
}

func backends() []backend {
	return []backend{
		{name: "memory", new: func(t *testing.T) Store { return NewMemoryStore() }},
		{name: "gorm", new: func(t *testing.T) Store { return NewGormStore(newSQLiteDB(t)) }},
		{name: "redis", new: func(t *testing.T) Store { s, _ := newRedisStore(t); return s }},
		{name: "mongo", new: newMongoStore},
	}
}

// newMongoStore needs a live server.
func newMongoStore(t *testing.T) Store {
	t.Helper()
	uri := os.Getenv("MONGO_TEST_URI")
	if uri == "" {
		t.Skip("MONGO_TEST_URI not set; skipping mongo store test")
	}
	client, err := mongo.Connect(options.Client().ApplyURI(uri))
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Disconnect(context.Background()) })

	db := client.Database("blog_api_test_" + uuid.NewString()[:8])
	t.Cleanup(func() { _ = db.Drop(context.Background()) })

	s := NewMongoStore(db)
	require.NoError(t, s.EnsureIndexes(context.Background()))
	return s
}

func TestStore_Contract(t *testing.T) {
	for _, b := range backends() {
		b := b
		t.Run(b.name, func(t *testing.T) {
			ctx := context.Background()
			exp := time.Now().Add(time.Hour)

			t.Run("save and find", func(t *testing.T) {
				s := b.new(t)
				require.NoError(t, s.Save(ctx, "u1", "tok-1", exp))

				rec, err := s.FindByToken(ctx, "tok-1")
				require.NoError(t, err)
				assert.Equal(t, "u1", rec.UserID)
				assert.Equal(t, HashToken("tok-1"), rec.TokenHash)
				assert.WithinDuration(t, exp, rec.ExpiresAt, 2*time.Second)

				_, err = s.FindByToken(ctx, "unknown")
				assert.ErrorIs(t, err, ErrNotFound)
			})

			t.Run("expired record is not found", func(t *testing.T) {
				s := b.new(t)
				require.NoError(t, s.Save(ctx, "u1", "old", time.Now().Add(-time.Minute)))

				_, err := s.FindByToken(ctx, "old")
				assert.ErrorIs(t, err, ErrNotFound)
			})

			t.Run("delete is idempotent", func(t *testing.T) {
				s := b.new(t)
				require.NoError(t, s.Save(ctx, "u1", "tok-1", exp))

				ok, err := s.DeleteByToken(ctx, "tok-1")
				require.NoError(t, err)
				assert.True(t, ok)

				ok, err = s.DeleteByToken(ctx, "tok-1")
				require.NoError(t, err)
				assert.False(t, ok)

				_, err = s.FindByToken(ctx, "tok-1")
				assert.ErrorIs(t, err, ErrNotFound)
			})

			t.Run("delete all for user", func(t *testing.T) {
				s := b.new(t)
				require.NoError(t, s.Save(ctx, "u1", "a", exp))
				require.NoError(t, s.Save(ctx, "u1", "b", exp))
				require.NoError(t, s.Save(ctx, "u2", "c", exp))

				require.NoError(t, s.DeleteAllForUser(ctx, "u1"))

				for _, tok := range []string{"a", "b"} {
					_, err := s.FindByToken(ctx, tok)
					assert.ErrorIs(t, err, ErrNotFound, tok)
				}
				rec, err := s.FindByToken(ctx, "c")
				require.NoError(t, err)
				assert.Equal(t, "u2", rec.UserID)
			})

			t.Run("rotate", func(t *testing.T) {
				s := b.new(t)
				require.NoError(t, s.Save(ctx, "u1", "old", exp))

				ok, err := s.Rotate(ctx, "old", "u1", "new", exp)
				require.NoError(t, err)
				assert.True(t, ok)

				_, err = s.FindByToken(ctx, "old")
				assert.ErrorIs(t, err, ErrNotFound)
				rec, err := s.FindByToken(ctx, "new")
				require.NoError(t, err)
				assert.Equal(t, "u1", rec.UserID)

				ok, err = s.Rotate(ctx, "old", "u1", "newer", exp)
				require.NoError(t, err)
				assert.False(t, ok)
				_, err = s.FindByToken(ctx, "newer")
				assert.ErrorIs(t, err, ErrNotFound)
			})

			t.Run("rotate wrong owner", func(t *testing.T) {
				s := b.new(t)
				require.NoError(t, s.Save(ctx, "u1", "old", exp))

				ok, err := s.Rotate(ctx, "old", "u2", "new", exp)
				require.NoError(t, err)
				assert.False(t, ok)

				_, err = s.FindByToken(ctx, "old")
				require.NoError(t, err)
				_, err = s.FindByToken(ctx, "new")
				assert.ErrorIs(t, err, ErrNotFound)
			})
		})
	}
}

func TestStore_ConcurrentRotate_SingleWinner(t *testing.T) {
	stores := map[string]func(t *testing.T) Store{
		"memory": func(t *testing.T) Store { return NewMemoryStore() },
		"gorm":   func(t *testing.T) Store { return NewGormStore(newSQLiteDB(t)) },
		"redis":  func(t *testing.T) Store { s, _ := newRedisStore(t); return s },
		"mongo":  newMongoStore,
	}
	for name, mk := range stores {
		mk := mk
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			s := mk(t)
			exp := time.Now().Add(time.Hour)
			require.NoError(t, s.Save(ctx, "u1", "old", exp))

			const n = 16
			var wins atomic.Int32
			var wg sync.WaitGroup
			start := make(chan struct{})
			for i := 0; i < n; i++ {
				wg.Add(1)
				go func(i int) {
					defer wg.Done()
					<-start
					ok, err := s.Rotate(ctx, "old", "u1", fmt.Sprintf("new-%d", i), exp)
					assert.NoError(t, err)
					if ok {
						wins.Add(1)
					}
				}(i)
			}
			close(start)
			wg.Wait()

			assert.Equal(t, int32(1), wins.Load())

			live := 0
			for i := 0; i < n; i++ {
				if _, err := s.FindByToken(ctx, fmt.Sprintf("new-%d", i)); err == nil {
					live++
				}
			}
			assert.Equal(t, 1, live)
		})
	}
}

func TestPurgeExpired(t *testing.T) {
	ctx := context.Background()
	purgers := map[string]interface {
		Store
		Purger
	}{
		"memory": NewMemoryStore(),
		"gorm":   NewGormStore(newSQLiteDB(t)),
	}
	for name, s := range purgers {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, s.Save(ctx, "u1", "live", time.Now().Add(time.Hour)))
			require.NoError(t, s.Save(ctx, "u1", "dead-1", time.Now().Add(-time.Hour)))
			require.NoError(t, s.Save(ctx, "u2", "dead-2", time.Now().Add(-time.Minute)))

			n, err := s.PurgeExpired(ctx, time.Now())
			require.NoError(t, err)
			assert.Equal(t, int64(2), n)

			_, err = s.FindByToken(ctx, "live")
			require.NoError(t, err)
		})
	}
}

func TestStore_FaultsAreUnavailable(t *testing.T) {
	ctx := context.Background()

	t.Run("gorm", func(t *testing.T) {
		db := newSQLiteDB(t)
		sqlDB, err := db.DB()
		require.NoError(t, err)
		require.NoError(t, sqlDB.Close())

		s := NewGormStore(db)
		assert.ErrorIs(t, s.Save(ctx, "u1", "t", time.Now().Add(time.Hour)), ErrUnavailable)

		_, err = s.FindByToken(ctx, "t")
		assert.ErrorIs(t, err, ErrUnavailable)
		assert.NotErrorIs(t, err, ErrNotFound)

		_, err = s.Rotate(ctx, "t", "u1", "t2", time.Now().Add(time.Hour))
		assert.ErrorIs(t, err, ErrUnavailable)
	})

	t.Run("redis", func(t *testing.T) {
		s, mr := newRedisStore(t)
		mr.Close()

		assert.ErrorIs(t, s.Save(ctx, "u1", "t", time.Now().Add(time.Hour)), ErrUnavailable)

		_, err := s.FindByToken(ctx, "t")
		assert.ErrorIs(t, err, ErrUnavailable)
		assert.NotErrorIs(t, err, ErrNotFound)

		ok, err := s.DeleteByToken(ctx, "t")
		assert.ErrorIs(t, err, ErrUnavailable)
		assert.False(t, ok)

		assert.ErrorIs(t, s.DeleteAllForUser(ctx, "u1"), ErrUnavailable)
	})
}

func TestRedisStore_DeletesKeepUserSetInStep(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s, mr := newRedisStore(t)
	exp := time.Now().Add(time.Hour)
	require.NoError(t, s.Save(ctx, "u1", "a", exp))
	require.NoError(t, s.Save(ctx, "u1", "b", exp))
	require.NoError(t, s.Save(ctx, "u2", "c", exp))

	ok, err := s.DeleteByToken(ctx, "a")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.False(t, mr.Exists(s.key(HashToken("a"))))
	members, err := mr.SMembers(s.userKey("u1"))
	require.NoError(t, err)
	assert.Equal(t, []string{HashToken("b")}, members)

	require.NoError(t, s.DeleteAllForUser(ctx, "u1"))
	assert.False(t, mr.Exists(s.key(HashToken("b"))))
	assert.False(t, mr.Exists(s.userKey("u1")))
	assert.True(t, mr.Exists(s.key(HashToken("c"))))
	assert.True(t, mr.Exists(s.userKey("u2")))

	require.NoError(t, s.DeleteAllForUser(ctx, "nobody"))
}

func TestMongoStore_FailedRotateKeepsOldSession(t *testing.T) {
	ctx := context.Background()
	s := newMongoStore(t)
	exp := time.Now().Add(time.Hour)
	require.NoError(t, s.Save(ctx, "u1", "old", exp))
	require.NoError(t, s.Save(ctx, "u2", "taken", exp))

	// the unique index on token rejects the update
	_, err := s.Rotate(ctx, "old", "u1", "taken", exp)
	assert.ErrorIs(t, err, ErrUnavailable)

	rec, err := s.FindByToken(ctx, "old")
	require.NoError(t, err)
	assert.Equal(t, "u1", rec.UserID)
}

func TestMemoryStore_RemovesUserIndexWithLastToken(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := NewMemoryStore()
	require.NoError(t, s.Save(ctx, "u1", "a", time.Now().Add(time.Hour)))
	_, err := s.DeleteByToken(ctx, "a")
	require.NoError(t, err)

	assert.Equal(t, 0, s.Len())
	assert.Empty(t, s.byUser)
}

func TestHashToken(t *testing.T) {
	t.Parallel()

	h := HashToken("abc")
	assert.Len(t, h, 64)
	assert.Equal(t, h, HashToken("abc"))
	assert.NotEqual(t, h, HashToken("abd"))
}
