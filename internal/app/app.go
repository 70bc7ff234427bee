package app

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"cuestionarios/internal/cache"
	"cuestionarios/internal/config"
	"cuestionarios/internal/repository"
)

// App holds the storage connections and the repositories and caches built on them
type App struct {
	Mongo *mongo.Client
	Redis *redis.Client

	QuestionnaireRepo repository.QuestionnaireRepo
	AnswerRepo        repository.AnswerRepo
	FinalizationRepo  repository.FinalizationRepo
	ProfileRepo       repository.ProfileRepo
	CatalogCache      cache.CatalogCache
	SessionCache      cache.SessionCache
}

// Connect dials MongoDB and Redis and wires the storage layer
func Connect(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*App, error) {
	mongoClient, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.MongoURI))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := mongoClient.Ping(pingCtx, nil); err != nil {
		mongoClient.Disconnect(ctx)
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}
	logger.Info("connected to MongoDB", zap.String("db", cfg.MongoDB))

	rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	if _, err := rdb.Ping(pingCtx).Result(); err != nil {
		rdb.Close()
		mongoClient.Disconnect(ctx)
		return nil, fmt.Errorf("failed to ping Redis: %w", err)
	}
	logger.Info("connected to Redis", zap.String("addr", cfg.RedisAddr))

	db := mongoClient.Database(cfg.MongoDB)
	return &App{
		Mongo:             mongoClient,
		Redis:             rdb,
		QuestionnaireRepo: repository.NewQuestionnaireRepo(db),
		AnswerRepo:        repository.NewAnswerRepo(db, logger),
		FinalizationRepo:  repository.NewFinalizationRepo(db, logger),
		ProfileRepo:       repository.NewProfileRepo(db, logger),
		CatalogCache:      cache.NewCatalogCache(rdb, cfg.CatalogCacheTTL),
		SessionCache:      cache.NewSessionCache(rdb, cfg.SessionTTL),
	}, nil
}

// Close releases the connections
func (a *App) Close(ctx context.Context) {
	a.Redis.Close()
	a.Mongo.Disconnect(ctx)
}
