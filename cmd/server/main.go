package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/example/moonbaby-storefront/internal/adapter/amqpfeed"
	"github.com/example/moonbaby-storefront/internal/adapter/cache"
	"github.com/example/moonbaby-storefront/internal/adapter/firebaseauth"
	fsadapter "github.com/example/moonbaby-storefront/internal/adapter/firestore"
	"github.com/example/moonbaby-storefront/internal/adapter/httpapi"
	"github.com/example/moonbaby-storefront/internal/adapter/memstore"
	"github.com/example/moonbaby-storefront/internal/adapter/natsstan"
	"github.com/example/moonbaby-storefront/internal/adapter/redisstore"
	"github.com/example/moonbaby-storefront/internal/adapter/repo"
	"github.com/example/moonbaby-storefront/internal/config"
	"github.com/example/moonbaby-storefront/internal/domain"
	"github.com/example/moonbaby-storefront/internal/usecase"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	cfg, err := config.Load(os.Getenv("STOREFRONT_CONFIG"))
	if err != nil {
		slog.Error("load config", "err", err)
		os.Exit(1)
	}
	logger := newLogger(cfg)
	slog.SetDefault(logger)

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("server stopped", "err", err)
		os.Exit(1)
	}
}

func newLogger(cfg config.Config) *slog.Logger {
	level, _ := config.ParseLevel(cfg.LogLevel)
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
}

// backends — внешние клиенты; закрываются при остановке.
type backends struct {
	pool      *pgxpool.Pool
	firestore *firestore.Client
	redis     *redis.Client
}

func (b *backends) close() {
	if b.pool != nil {
		b.pool.Close()
	}
	if b.firestore != nil {
		_ = b.firestore.Close()
	}
	if b.redis != nil {
		_ = b.redis.Close()
	}
}

func (b *backends) postgres(ctx context.Context, cfg config.Config) (*pgxpool.Pool, error) {
	if b.pool != nil {
		return b.pool, nil
	}
	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("db connect: %w", err)
	}
	if err := repo.EnsureSchema(ctx, pool); err != nil {
		pool.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}
	b.pool = pool
	return pool, nil
}

func (b *backends) firestoreClient(ctx context.Context, cfg config.Config) (*firestore.Client, error) {
	if b.firestore != nil {
		return b.firestore, nil
	}
	client, err := fsadapter.NewClient(ctx, cfg.FirebaseProjectID, cfg.FirebaseCredentialsFile)
	if err != nil {
		return nil, err
	}
	b.firestore = client
	return client, nil
}

func (b *backends) redisClient(ctx context.Context, cfg config.Config) (*redis.Client, error) {
	if b.redis != nil {
		return b.redis, nil
	}
	client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: cfg.RedisDB})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping %s: %w", cfg.RedisAddr, err)
	}
	b.redis = client
	return client, nil
}

func run(ctx context.Context, cfg config.Config, logger *slog.Logger) error {
	b := &backends{}
	defer b.close()

	catalog, err := buildCatalog(ctx, cfg, b, logger)
	if err != nil {
		return err
	}
	counter, err := buildCounter(ctx, cfg, b)
	if err != nil {
		return err
	}
	stores, err := buildStores(ctx, cfg, b)
	if err != nil {
		return err
	}

	var auth domain.AuthProvider
	if client, err := firebaseauth.NewClient(ctx, cfg.FirebaseProjectID, cfg.FirebaseCredentialsFile); err != nil {
		logger.Warn("firebase auth unavailable, all visitors are anonymous", "err", err)
	} else {
		auth = &firebaseauth.Provider{Client: client, SessionTTL: cfg.SessionTTL, RevokeOnSignOut: cfg.RevokeOnSignOut}
	}

	srv, err := httpapi.NewServer(httpapi.Deps{
		Gate:          usecase.SessionGate{Protected: cfg.ProtectedPaths, Logger: logger},
		Renderer:      usecase.ProductRenderer{Catalog: catalog, Logger: logger},
		Visitors:      usecase.TrackVisitor{Counter: counter, Logger: logger},
		Auth:          auth,
		Stores:        stores,
		Logger:        logger,
		WebDir:        cfg.WebDir,
		SessionTTL:    cfg.SessionTTL,
		SecureCookies: cfg.SecureCookies,
	})
	if err != nil {
		return err
	}

	httpSrv := &http.Server{Addr: cfg.HTTPAddr, Handler: srv.Router, ReadHeaderTimeout: 10 * time.Second}
	errCh := make(chan error, 1)
	go func() {
		logger.Info("http listening", "addr", httpSrv.Addr)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		return fmt.Errorf("http: %w", err)
	}
	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelShutdown()
	return httpSrv.Shutdown(shutdownCtx)
}

// buildCatalog: Firestore запрашивается напрямую, Postgres обслуживается из кэша, который наполняет поток товаров.
func buildCatalog(ctx context.Context, cfg config.Config, b *backends, logger *slog.Logger) (domain.ProductCatalog, error) {
	if cfg.CatalogBackend == "firestore" {
		client, err := b.firestoreClient(ctx, cfg)
		if err != nil {
			return nil, err
		}
		return fsadapter.NewProductCatalogFS(client), nil
	}

	pool, err := b.postgres(ctx, cfg)
	if err != nil {
		return nil, err
	}
	productRepo := repo.NewPostgresProductRepo(pool)
	productCache := cache.NewMemoryProductCache()
	if err := (usecase.LoadCatalog{Repo: productRepo, Cache: productCache}).Execute(ctx); err != nil {
		return nil, fmt.Errorf("load cache: %w", err)
	}

	var sub domain.MessageSubscriber
	switch cfg.FeedTransport {
	case "stan":
		sub = &natsstan.Subscriber{
			ClusterID: cfg.STANClusterID,
			ClientID:  cfg.STANClientID,
			URL:       cfg.NATSURL,
			Subject:   cfg.STANSubject,
			Durable:   cfg.STANDurable,
			Logger:    logger,
		}
	case "amqp":
		sub = &amqpfeed.Subscriber{URL: cfg.AMQPURL, Queue: cfg.AMQPQueue, Logger: logger}
	}
	if sub != nil {
		ingest := usecase.ProcessIncomingProduct{Repo: productRepo, Cache: productCache}
		if err := sub.Subscribe(ctx, ingest.Execute); err != nil {
			// лента необязательна: каталог уже загружен из базы
			logger.Error("product feed subscribe", "transport", cfg.FeedTransport, "err", err)
		}
	}
	return productCache, nil
}

func buildCounter(ctx context.Context, cfg config.Config, b *backends) (domain.VisitorCounter, error) {
	switch cfg.CounterBackend {
	case "firestore":
		client, err := b.firestoreClient(ctx, cfg)
		if err != nil {
			return nil, err
		}
		return fsadapter.NewVisitorCounterFS(client), nil
	case "postgres":
		pool, err := b.postgres(ctx, cfg)
		if err != nil {
			return nil, err
		}
		return &repo.PostgresVisitorCounter{Pool: pool, Name: "visitors"}, nil
	case "redis":
		client, err := b.redisClient(ctx, cfg)
		if err != nil {
			return nil, err
		}
		return redisstore.Counter{Client: client, Key: cfg.RedisPrefix + "analytics:visitors"}, nil
	default:
		return &memstore.Counter{}, nil
	}
}

func buildStores(ctx context.Context, cfg config.Config, b *backends) (domain.VisitorStorage, error) {
	if cfg.StorageBackend == "memory" {
		return memstore.NewStore(), nil
	}
	client, err := b.redisClient(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return redisstore.NewStore(client, cfg.RedisPrefix, cfg.StorageTTL), nil
}
