// Package wire 提供依赖注入配置
package wire

import (
	"context"
	"fmt"
	"os"

	"github.com/google/wire"

	"regdraft-ai-api/internal/application/activity"
	"regdraft-ai-api/internal/application/usage"
	"regdraft-ai-api/internal/application/workspace"
	"regdraft-ai-api/internal/config"
	"regdraft-ai-api/internal/domain/repository"
	"regdraft-ai-api/internal/domain/service"
	"regdraft-ai-api/internal/infrastructure/llm"
	"regdraft-ai-api/internal/infrastructure/messaging"
	"regdraft-ai-api/internal/infrastructure/persistence/postgres"
	"regdraft-ai-api/internal/infrastructure/persistence/redis"
	"regdraft-ai-api/internal/interfaces/http/handler"
	"regdraft-ai-api/internal/interfaces/http/middleware"
	"regdraft-ai-api/internal/interfaces/http/router"
	"regdraft-ai-api/internal/workflow/prompt"
	"regdraft-ai-api/pkg/logger"
	"regdraft-ai-api/pkg/utils"
)

const defaultStreamMaxLen = 100000

// App API 网关运行所需的顶层对象
type App struct {
	Router   *router.Router
	Store    *workspace.Store
	Recorder *usage.Recorder
}

// Worker 活动归档进程运行所需的顶层对象
type Worker struct {
	Consumer *messaging.Consumer
	Archiver *activity.Archiver
}

// PostgresSet PostgreSQL 提供者集合（必需连接）
var PostgresSet = wire.NewSet(
	ProvidePostgresClient,
)

// DataSet API 网关的可选数据层
var DataSet = wire.NewSet(
	ProvidePostgresClientOptional,
	ProvideRedisClientOptional,
	ProvideLLMUsageRepository,
	ProvideActivityRepository,
	ProvideRateLimiter,
	ProvideActivityPublisher,
)

// LLMSet 生成客户端与提示词
var LLMSet = wire.NewSet(
	llm.NewEinoFactory,
	ProvideGenerator,
	prompt.NewRegistry,
)

// WorkspaceSet 会话与工作流
var WorkspaceSet = wire.NewSet(
	ProvideStore,
	workspace.NewPipeline,
	workspace.NewSummaryGenerator,
	ProvideNotesTool,
	usage.NewRecorder,
)

// RouterSet 路由器提供者集合
var RouterSet = wire.NewSet(
	ProvideJWTManager,
	ProvideTokenIssuer,
	ProvideTokenParser,
	ProvideHealthHandler,
	handler.NewSessionHandler,
	handler.NewPipelineHandler,
	handler.NewSummaryHandler,
	handler.NewNotesHandler,
	handler.NewDashboardHandler,
	wire.Bind(new(handler.UsageReporter), new(*usage.Recorder)),
	wire.Struct(new(router.Handlers), "*"),
	ProvideRouterDeps,
	router.New,
	wire.Struct(new(App), "*"),
)

// WorkerSet 活动归档进程提供者集合
var WorkerSet = wire.NewSet(
	PostgresSet,
	ProvideRedisClient,
	ProvideActivityRepository,
	ProvideActivityConsumer,
	activity.NewArchiver,
	ProvideWorker,
)

// ProvidePostgresClient 提供 PostgreSQL 客户端，连接失败即返回错误
func ProvidePostgresClient(ctx context.Context, cfg *config.Config) (*postgres.Client, func(), error) {
	client, err := postgres.NewClient(ctx, &cfg.Database.Postgres)
	if err != nil {
		return nil, nil, err
	}
	cleanup := func() {
		_ = client.Close()
	}
	return client, cleanup, nil
}

// ProvidePostgresClientOptional 未启用或不可达时返回 nil，持久化功能随之关闭
func ProvidePostgresClientOptional(ctx context.Context, cfg *config.Config) (*postgres.Client, func(), error) {
	if !cfg.Database.Postgres.Enabled {
		return nil, func() {}, nil
	}
	client, err := postgres.NewClient(ctx, &cfg.Database.Postgres)
	if err != nil {
		logger.Warn(ctx, "postgres not available, usage and activity archive disabled", "error", err.Error())
		return nil, func() {}, nil
	}
	return client, func() { _ = client.Close() }, nil
}

// ProvideRedisClient 提供 Redis 客户端，连接失败即返回错误
func ProvideRedisClient(cfg *config.Config) (*redis.Client, func(), error) {
	client, err := redis.NewClient(&cfg.Cache.Redis)
	if err != nil {
		return nil, nil, err
	}
	cleanup := func() {
		_ = client.Close()
	}
	return client, cleanup, nil
}

// ProvideRedisClientOptional 未启用或不可达时返回 nil
func ProvideRedisClientOptional(ctx context.Context, cfg *config.Config) (*redis.Client, func(), error) {
	if !cfg.Cache.Redis.Enabled {
		return nil, func() {}, nil
	}
	client, err := redis.NewClient(&cfg.Cache.Redis)
	if err != nil {
		logger.Warn(ctx, "redis not available, rate limiting and activity stream disabled", "error", err.Error())
		return nil, func() {}, nil
	}
	return client, func() { _ = client.Close() }, nil
}

func ProvideLLMUsageRepository(client *postgres.Client) repository.LLMUsageEventRepository {
	if client == nil {
		return nil
	}
	return postgres.NewLLMUsageEventRepository(client)
}

func ProvideActivityRepository(client *postgres.Client) repository.ActivityEventRepository {
	if client == nil {
		return nil
	}
	return postgres.NewActivityEventRepository(client)
}

// ProvideRateLimiter 无 Redis 时返回 nil，限流中间件随之跳过
func ProvideRateLimiter(client *redis.Client) middleware.RateLimiter {
	if client == nil {
		return nil
	}
	return redis.NewRateLimiter(client)
}

// ProvideActivityPublisher 消息投递需同时开启 messaging 与 Redis
func ProvideActivityPublisher(cfg *config.Config, client *redis.Client) workspace.ActivityPublisher {
	if client == nil || !cfg.Messaging.Enabled {
		return nil
	}
	maxLen := cfg.Messaging.RedisStream.MaxLen
	if maxLen <= 0 {
		maxLen = defaultStreamMaxLen
	}
	return messaging.NewProducer(client.Redis(), int64(maxLen))
}

func ProvideGenerator(cfg *config.Config, factory *llm.EinoFactory) service.Generator {
	return llm.NewClient(factory, cfg.LLM.DefaultProvider, llm.WithCallTimeout(cfg.LLM.CallTimeout))
}

func ProvideStore(cfg *config.Config, publisher workspace.ActivityPublisher) *workspace.Store {
	return workspace.NewStore(cfg.Workspace, publisher)
}

func ProvideNotesTool(cfg *config.Config, generator service.Generator, prompts *prompt.Registry) *workspace.NotesTool {
	return workspace.NewNotesTool(generator, prompts, cfg.Workspace.GateNotes)
}

func ProvideJWTManager(cfg *config.Config) *utils.JWTManager {
	jwtCfg := cfg.Security.JWT
	return utils.NewJWTManager(jwtCfg.Secret, jwtCfg.Issuer, jwtCfg.Expiration)
}

// ProvideTokenIssuer 关闭认证时不签发令牌
func ProvideTokenIssuer(cfg *config.Config, m *utils.JWTManager) handler.TokenIssuer {
	if !cfg.Security.Auth.Enabled {
		return nil
	}
	return m
}

func ProvideTokenParser(cfg *config.Config, m *utils.JWTManager) middleware.TokenParser {
	if !cfg.Security.Auth.Enabled {
		return nil
	}
	return m
}

// ProvideHealthHandler 只登记实际建立的依赖
func ProvideHealthHandler(cfg *config.Config, pg *postgres.Client, rc *redis.Client) *handler.HealthHandler {
	checkers := make(map[string]handler.HealthChecker, 2)
	if pg != nil {
		checkers["postgres"] = pg
	}
	if rc != nil {
		checkers["redis"] = rc
	}
	return handler.NewHealthHandler(cfg.App.Version, checkers)
}

func ProvideRouterDeps(store *workspace.Store, tokens middleware.TokenParser, limiter middleware.RateLimiter) router.Deps {
	return router.Deps{
		Sessions: store,
		Tokens:   tokens,
		Limiter:  limiter,
	}
}

// ProvideActivityConsumer 创建活动流归档消费者
func ProvideActivityConsumer(cfg *config.Config, client *redis.Client) *messaging.Consumer {
	streamCfg := cfg.Messaging.RedisStream
	return messaging.NewConsumer(client.Redis(), messaging.ConsumerConfig{
		Stream:       messaging.StreamWorkspaceActivity,
		Group:        messaging.ConsumerGroupArchiver,
		ConsumerName: hostnameConsumerName(),
		BlockTimeout: streamCfg.BlockTimeout,
		BatchSize:    streamCfg.BatchSize,
	})
}

func ProvideWorker(consumer *messaging.Consumer, archiver *activity.Archiver) *Worker {
	archiver.Register(consumer)
	return &Worker{Consumer: consumer, Archiver: archiver}
}

func hostnameConsumerName() string {
	host, err := os.Hostname()
	if err != nil || host == "" {
		host = "worker"
	}
	return fmt.Sprintf("%s-%d", host, os.Getpid())
}
