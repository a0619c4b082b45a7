//go:build wireinject
// +build wireinject

package wire

import (
	"context"

	"github.com/google/wire"

	"regdraft-ai-api/internal/config"
	"regdraft-ai-api/internal/infrastructure/persistence/postgres"
)

// InitializeApp 初始化 API 网关
func InitializeApp(ctx context.Context, cfg *config.Config) (*App, func(), error) {
	wire.Build(
		DataSet,
		LLMSet,
		WorkspaceSet,
		RouterSet,
	)
	return nil, nil, nil
}

// InitializePostgres 仅初始化 PostgreSQL（用于 bootstrap）
func InitializePostgres(ctx context.Context, cfg *config.Config) (*postgres.Client, func(), error) {
	wire.Build(PostgresSet)
	return nil, nil, nil
}

// InitializeWorker 初始化活动归档进程
func InitializeWorker(ctx context.Context, cfg *config.Config) (*Worker, func(), error) {
	wire.Build(WorkerSet)
	return nil, nil, nil
}
