package config

import (
	"os"
	"strconv"
	"strings"
)

type EnvConfig struct {
	Postgres struct {
		HOST     string
		Database string
		Username string
		Password string
		Port     string
	}
	JWT struct {
		SecretKey string
		Expire    int
	}
	CORS struct {
		AllowDomains string
		GlobalDomain string
	}
	Redis struct {
		Password  string
		Database  int
		RedisHost string
		RedisPort string
	}
	RabbitMQ struct {
		Host     string
		Port     string
		Username string
		Password string
	}
	Minio struct {
		Endpoint      string
		RootUser      string
		RootPassword  string
		InputsBucket  string
		ResultsBucket string
	}
	ColdArchive struct {
		Region      string
		AccessKey   string
		SecretKey   string
		VaultBucket string
		RestoreDays int
	}
	Annotator struct {
		BinaryPath     string
		DataDir        string
		TimeoutSeconds int
		KeyPrefix      string
	}
	Archive struct {
		EligibleRoles []string
	}
	ExternalService struct {
		AccountServiceURL  string
		WorkflowServiceURL string
	}
	Grafana struct {
		OTLPEndpoint string
		ServiceName  string
	}
	PrivateKey string

	Environment struct {
		Mode  string
		Group string
	}
	DomainName string
}

func LoadEnvConfig() *EnvConfig {
	var config EnvConfig

	// Postgres
	config.Postgres.HOST = os.Getenv("PGPOOL_HOST")
	config.Postgres.Database = os.Getenv("PGPOOL_DB")
	config.Postgres.Username = os.Getenv("PGPOOL_USER")
	config.Postgres.Password = os.Getenv("PGPOOL_PASSWORD")
	config.Postgres.Port = os.Getenv("PGPOOL_PORT")

	// JWT
	config.JWT.SecretKey = os.Getenv("JWT_SECRET_KEY")
	if val := os.Getenv("JWT_EXPIRE"); val != "" {
		config.JWT.Expire, _ = strconv.Atoi(val)
	} else {
		config.JWT.Expire = 3600 * 24 * 7
	}

	config.CORS.AllowDomains = os.Getenv("ALLOWED_DOMAINS")
	config.CORS.GlobalDomain = os.Getenv("GLOBAL_DOMAIN")

	config.Redis.Password = os.Getenv("REDIS_PASSWORD")
	config.Redis.Database, _ = strconv.Atoi(os.Getenv("REDIS_DB"))
	config.Redis.RedisHost = os.Getenv("REDIS_HOST")
	config.Redis.RedisPort = os.Getenv("REDIS_PORT")

	// RabbitMQ
	config.RabbitMQ.Host = os.Getenv("RABBITMQ_HOST")
	if config.RabbitMQ.Host == "" {
		config.RabbitMQ.Host = "localhost"
	}
	config.RabbitMQ.Port = os.Getenv("RABBITMQ_PORT")
	if config.RabbitMQ.Port == "" {
		config.RabbitMQ.Port = "5672"
	}
	config.RabbitMQ.Username = os.Getenv("RABBITMQ_USER")
	if config.RabbitMQ.Username == "" {
		config.RabbitMQ.Username = "guest"
	}
	config.RabbitMQ.Password = os.Getenv("RABBITMQ_PASSWORD")
	if config.RabbitMQ.Password == "" {
		config.RabbitMQ.Password = "guest"
	}

	config.Minio.Endpoint = os.Getenv("MINIO_ENDPOINT")
	config.Minio.RootUser = os.Getenv("MINIO_ROOT_USER")
	config.Minio.RootPassword = os.Getenv("MINIO_ROOT_PASSWORD")
	config.Minio.InputsBucket = os.Getenv("ANNOTATION_INPUTS_BUCKET")
	if config.Minio.InputsBucket == "" {
		config.Minio.InputsBucket = "gva-inputs"
	}
	config.Minio.ResultsBucket = os.Getenv("ANNOTATION_RESULTS_BUCKET")
	if config.Minio.ResultsBucket == "" {
		config.Minio.ResultsBucket = "gva-results"
	}

	// Cold archive tier
	config.ColdArchive.Region = os.Getenv("COLD_ARCHIVE_REGION")
	if config.ColdArchive.Region == "" {
		config.ColdArchive.Region = "us-east-1"
	}
	config.ColdArchive.AccessKey = os.Getenv("COLD_ARCHIVE_ACCESS_KEY")
	config.ColdArchive.SecretKey = os.Getenv("COLD_ARCHIVE_SECRET_KEY")
	config.ColdArchive.VaultBucket = os.Getenv("COLD_ARCHIVE_VAULT_BUCKET")
	if config.ColdArchive.VaultBucket == "" {
		config.ColdArchive.VaultBucket = "gva-archive"
	}
	if val := os.Getenv("COLD_ARCHIVE_RESTORE_DAYS"); val != "" {
		config.ColdArchive.RestoreDays, _ = strconv.Atoi(val)
	}
	if config.ColdArchive.RestoreDays == 0 {
		config.ColdArchive.RestoreDays = 7
	}

	// Annotator process
	config.Annotator.BinaryPath = os.Getenv("ANNOTATOR_BINARY")
	if config.Annotator.BinaryPath == "" {
		config.Annotator.BinaryPath = "/usr/local/bin/gva-annotator"
	}
	config.Annotator.DataDir = os.Getenv("ANNOTATOR_DATA_DIR")
	if config.Annotator.DataDir == "" {
		config.Annotator.DataDir = "/var/lib/gva/data"
	}
	if val := os.Getenv("ANNOTATOR_TIMEOUT_SECONDS"); val != "" {
		config.Annotator.TimeoutSeconds, _ = strconv.Atoi(val)
	}
	if config.Annotator.TimeoutSeconds == 0 {
		config.Annotator.TimeoutSeconds = 1800
	}
	config.Annotator.KeyPrefix = os.Getenv("ANNOTATION_KEY_PREFIX")
	if config.Annotator.KeyPrefix == "" {
		config.Annotator.KeyPrefix = "annotations"
	}

	// Archival eligibility
	roles := os.Getenv("ARCHIVE_ELIGIBLE_ROLES")
	if roles == "" {
		roles = "free_user"
	}
	for _, role := range strings.Split(roles, ",") {
		role = strings.TrimSpace(role)
		if role != "" {
			config.Archive.EligibleRoles = append(config.Archive.EligibleRoles, role)
		}
	}

	config.PrivateKey = os.Getenv("PRIVATE_KEY")

	config.ExternalService.AccountServiceURL = os.Getenv("ACCOUNT_SERVICE_URL")
	if config.ExternalService.AccountServiceURL == "" {
		config.ExternalService.AccountServiceURL = "http://localhost:8090"
	}
	config.ExternalService.WorkflowServiceURL = os.Getenv("WORKFLOW_SERVICE_URL")
	if config.ExternalService.WorkflowServiceURL == "" {
		config.ExternalService.WorkflowServiceURL = "http://localhost:8091"
	}

	// OpenTelemetry
	otlpEndpoint := os.Getenv("GRAFANA_OTLP_ENDPOINT")
	if otlpEndpoint == "" {
		otlpEndpoint = "localhost:4318"
	}
	// Remove protocol for OpenTelemetry client to avoid duplicate protocols
	if strings.HasPrefix(otlpEndpoint, "https://") {
		config.Grafana.OTLPEndpoint = strings.TrimPrefix(otlpEndpoint, "https://")
	} else if strings.HasPrefix(otlpEndpoint, "http://") {
		config.Grafana.OTLPEndpoint = strings.TrimPrefix(otlpEndpoint, "http://")
	} else {
		config.Grafana.OTLPEndpoint = otlpEndpoint
	}
	config.Grafana.ServiceName = os.Getenv("SERVICE_NAME")
	if config.Grafana.ServiceName == "" {
		config.Grafana.ServiceName = "gva-annotation-orchestrator"
	}

	config.Environment.Mode = os.Getenv("DEPLOY_ENV")
	if config.Environment.Mode == "" {
		config.Environment.Mode = "development"
	}

	config.Environment.Group = os.Getenv("GROUP_NAME")
	if config.Environment.Group == "" {
		config.Environment.Group = "local"
	}

	config.DomainName = os.Getenv("DOMAIN_NAME")
	if config.DomainName == "" {
		config.DomainName = "localhost:8080"
	}

	return &config
}
