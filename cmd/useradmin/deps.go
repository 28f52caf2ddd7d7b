package main

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/redis/go-redis/v9"
	"github.com/samber/oops"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/ayush/useradmin/internal/audit"
	"github.com/ayush/useradmin/internal/auth"
	"github.com/ayush/useradmin/internal/config"
	"github.com/ayush/useradmin/internal/remote"
	"github.com/ayush/useradmin/internal/store"
	"github.com/ayush/useradmin/internal/store/memory"
	"github.com/ayush/useradmin/internal/users"
)

// userStore is what both the user and authentication services need from
// the user table.
type userStore interface {
	users.Repository
	auth.CredentialStore
}

var (
	_ userStore              = (*store.UserRepository)(nil)
	_ userStore              = (*memory.UserRepository)(nil)
	_ auth.SessionRepository = (*store.SessionRepository)(nil)
	_ auth.SessionRepository = (*store.RedisSessionRepository)(nil)
	_ auth.SessionRepository = (*memory.SessionRepository)(nil)
)

// stores holds the repositories chosen by sessions.backend and the
// functions releasing their connections.
type stores struct {
	users    userStore
	sessions auth.SessionRepository
	closers  []func()
}

// Close releases connections in reverse order of opening.
func (s *stores) Close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		s.closers[i]()
	}
}

func openStores(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*stores, error) {
	if cfg.Sessions.Backend == config.BackendMemory {
		logger.Warn("using in-memory storage, data is lost on restart")
		mem := memory.New()
		return &stores{users: mem.Users(), sessions: mem.Sessions()}, nil
	}

	s := &stores{}

	if cfg.Postgres.AutoMigrate {
		if err := migrateUp(cfg.Postgres.DSN, logger); err != nil {
			return nil, err
		}
	}

	pool, err := store.Connect(ctx, cfg.Postgres.DSN, logger)
	if err != nil {
		return nil, err
	}
	s.closers = append(s.closers, pool.Close)
	s.users = store.NewUserRepository(pool)
	s.sessions = store.NewSessionRepository(pool)

	if cfg.Sessions.Backend == config.BackendRedis {
		rdb, err := store.NewRedisClient(ctx, store.RedisOptions{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		}, logger)
		if err != nil {
			s.Close()
			return nil, err
		}
		s.closers = append(s.closers, func() { closeRedis(rdb, logger) })
		s.sessions = store.NewRedisSessionRepository(rdb)
	}

	return s, nil
}

func closeRedis(rdb *redis.Client, logger *slog.Logger) {
	if err := rdb.Close(); err != nil {
		logger.Warn("redis close failed", "error", err)
	}
}

func migrateUp(dsn string, logger *slog.Logger) error {
	m, err := store.NewMigrator(dsn)
	if err != nil {
		return err
	}
	defer func() {
		if err := m.Close(); err != nil {
			logger.Warn("migrator close failed", "error", err)
		}
	}()
	if err := m.Up(); err != nil {
		return err
	}
	logger.Info("database migrations applied")
	return nil
}

// openAudit connects the MongoDB audit trail, or returns a no-op recorder
// when mongo.uri is empty.
func openAudit(ctx context.Context, cfg *config.Config, logger *slog.Logger) (audit.Recorder, func(), error) {
	if cfg.Mongo.URI == "" {
		return audit.Nop{}, func() {}, nil
	}

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.Mongo.URI))
	if err != nil {
		return nil, nil, oops.Code("MONGO_CONNECT_FAILED").Wrap(err)
	}
	disconnect := func() {
		if err := client.Disconnect(context.Background()); err != nil {
			logger.Warn("mongo disconnect failed", "error", err)
		}
	}

	recorder := audit.NewMongoRecorder(client.Database(cfg.Mongo.Database), logger)
	if err := recorder.EnsureIndexes(ctx); err != nil {
		disconnect()
		return nil, nil, err
	}
	return recorder, disconnect, nil
}

// remoteSource picks the manifest source, or nil when remote components
// are disabled.
func remoteSource(cfg *config.Config) (remote.Source, error) {
	switch cfg.Remote.Source {
	case config.RemoteHTTP:
		return remote.NewHTTPSource(cfg.Remote.URL, &http.Client{Timeout: remote.DefaultLoadTimeout}), nil
	case config.RemoteMinio:
		m := cfg.Remote.Minio
		src, err := remote.NewMinioSource(remote.MinioOptions{
			Endpoint:  m.Endpoint,
			AccessKey: m.AccessKey,
			SecretKey: m.SecretKey,
			Bucket:    m.Bucket,
			Object:    m.Object,
			Region:    m.Region,
			UseSSL:    m.UseSSL,
		})
		if err != nil {
			return nil, err
		}
		return src, nil
	default:
		return nil, nil
	}
}
