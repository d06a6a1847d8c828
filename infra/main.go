package infra

import (
	"github.com/helixbio/gva-annotation-orchestrator/config"
	"github.com/helixbio/gva-annotation-orchestrator/infra/produce"
)

type Infra struct {
	Logger          *LoggerClient
	Postgres        *PostgresClient
	Redis           *RedisClient
	RabbitMQ        *RabbitMQClient
	Minio           *MinioClient
	ColdStore       *ColdStoreClient
	WorkflowService *WorkflowService
	AccountService  *AccountService
	Produce         *produce.Produce
}

func InitInfra(cfg *config.Config) *Infra {
	logger := InitLoggerClient(cfg.EnvConfig)
	postgres := InitPostgresClient(cfg.EnvConfig)
	redis := InitRedisClient(cfg.EnvConfig)
	rabbitmq := InitRabbitMQClient(cfg.EnvConfig)
	minio := InitMinioClient(cfg.EnvConfig)
	coldStore := InitColdStoreClient(cfg.EnvConfig)
	workflowService := InitWorkflowService(cfg.EnvConfig)
	accountService := InitAccountService(cfg.EnvConfig, redis)
	producer := produce.InitProduce(rabbitmq.Channel)

	return &Infra{
		Logger:          logger,
		Postgres:        postgres,
		Redis:           redis,
		RabbitMQ:        rabbitmq,
		Minio:           minio,
		ColdStore:       coldStore,
		WorkflowService: workflowService,
		AccountService:  accountService,
		Produce:         producer,
	}
}

func (i *Infra) Close() {
	if i.RabbitMQ != nil {
		i.RabbitMQ.Close()
	}
	if i.Redis != nil {
		_ = i.Redis.Client.Close()
	}
}
