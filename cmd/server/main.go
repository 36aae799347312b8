package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"gorm.io/gorm"

	"github.com/Skotchmaster/blog_api/internal/config"
	"github.com/Skotchmaster/blog_api/internal/db"
	"github.com/Skotchmaster/blog_api/internal/events"
	"github.com/Skotchmaster/blog_api/internal/httpserver"
	"github.com/Skotchmaster/blog_api/internal/logging"
	"github.com/Skotchmaster/blog_api/internal/middleware/security"
	"github.com/Skotchmaster/blog_api/internal/repo"
	"github.com/Skotchmaster/blog_api/internal/search"
	"github.com/Skotchmaster/blog_api/internal/service"
	"github.com/Skotchmaster/blog_api/internal/tokens"
	"github.com/Skotchmaster/blog_api/internal/tokenstore"
)

const janitorInterval = 10 * time.Minute

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger := logging.New(cfg.LogLevel, cfg.Env)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx = logging.IntoContext(ctx, logger)

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("server_failed", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	initCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	gdb, err := db.Open(initCtx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("db init: %w", err)
	}
	defer db.Close(gdb)
	if err := db.Migrate(gdb); err != nil {
		return fmt.Errorf("db migrate: %w", err)
	}

	store, closeStore, err := openTokenStore(initCtx, cfg, gdb)
	if err != nil {
		return fmt.Errorf("token store: %w", err)
	}
	defer closeStore()

	var publisher service.Publisher = events.Noop{}
	if len(cfg.KafkaBrokers) > 0 {
		prod := events.NewProducer(cfg.KafkaBrokers)
		defer prod.Close()
		publisher = prod
	}

	var index service.Indexer
	if cfg.ESURL != "" {
		es, err := search.NewClient(initCtx, search.Config{
			URL:      cfg.ESURL,
			Username: cfg.ESUser,
			Password: cfg.ESPassword,
			Index:    cfg.ESIndex,
		})
		if err != nil {
			logger.Warn("search_disabled", "reason", "elasticsearch unreachable", "error", err)
		} else {
			index = es
		}
	}

	codec, err := tokens.NewCodec(tokens.Config{
		AccessSecret:  cfg.JWTAccessSecret,
		RefreshSecret: cfg.JWTRefreshSecret,
		AccessTTL:     cfg.AccessTokenExpiry,
		RefreshTTL:    cfg.RefreshTokenExpiry,
	})
	if err != nil {
		return fmt.Errorf("token codec: %w", err)
	}

	r := repo.New(gdb)
	paging := httpserver.Paging{DefaultLimit: cfg.DefaultResLimit, DefaultOffset: cfg.DefaultResOffset}
	secure := cfg.IsProduction()

	e := httpserver.New(logger, security.Options{
		AllowAllOrigins:   cfg.IsDevelopment(),
		Origins:           cfg.WhitelistOrigins,
		RequestsPerMinute: cfg.RateLimit,
	}, &httpserver.Deps{
		Auth: &httpserver.AuthHTTP{
			Svc: &service.AuthService{
				Users:        r,
				Codec:        codec,
				Store:        store,
				Events:       publisher,
				IsAdminEmail: cfg.IsAdminEmail,
			},
			SecureCookies: secure,
		},
		Users: &httpserver.UsersHTTP{
			Svc:           &service.UserService{Repo: r, Store: store, Index: index, Events: publisher},
			Paging:        paging,
			SecureCookies: secure,
		},
		Blogs:    &httpserver.BlogsHTTP{Svc: &service.BlogService{Repo: r, Index: index, Events: publisher}, Paging: paging},
		Likes:    &httpserver.LikesHTTP{Svc: &service.LikeService{Repo: r, Events: publisher}},
		Comments: &httpserver.CommentsHTTP{Svc: &service.CommentService{Repo: r, Events: publisher}},
		Verifier: codec,
		Roles:    r,
		Ready:    func(ctx context.Context) error { return db.Ping(ctx, gdb) },
	})

	if p, ok := store.(tokenstore.Purger); ok {
		go tokenstore.RunJanitor(ctx, p, janitorInterval)
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           e,
		ReadTimeout:       10 * time.Second,
		ReadHeaderTimeout: 3 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		logger.Info("server_started", "addr", srv.Addr, "env", cfg.Env, "token_store", cfg.TokenStore)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
		close(errc)
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	logger.Info("server_stopping")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	return srv.Shutdown(shutdownCtx)
}

// openTokenStore picks the refresh token backend named by TOKEN_STORE.
func openTokenStore(ctx context.Context, cfg *config.Config, gdb *gorm.DB) (tokenstore.Store, func(), error) {
	noop := func() {}

	switch cfg.TokenStore {
	case config.StoreMemory:
		return tokenstore.NewMemoryStore(), noop, nil

	case config.StoreRedis:
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err := rdb.Ping(ctx).Err(); err != nil {
			_ = rdb.Close()
			return nil, nil, fmt.Errorf("redis ping: %w", err)
		}
		return tokenstore.NewRedisStore(rdb, "blog:rt"), func() { _ = rdb.Close() }, nil

	case config.StoreMongo:
		client, err := mongo.Connect(options.Client().ApplyURI(cfg.MongoURI))
		if err != nil {
			return nil, nil, fmt.Errorf("mongo connect: %w", err)
		}
		closeFn := func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = client.Disconnect(ctx)
		}
		if err := client.Ping(ctx, nil); err != nil {
			closeFn()
			return nil, nil, fmt.Errorf("mongo ping: %w", err)
		}
		s := tokenstore.NewMongoStore(client.Database(cfg.MongoDB))
		if err := s.EnsureIndexes(ctx); err != nil {
			closeFn()
			return nil, nil, err
		}
		return s, closeFn, nil

	default:
		return tokenstore.NewGormStore(gdb), noop, nil
	}
}
