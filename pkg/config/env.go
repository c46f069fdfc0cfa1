package config

const (
	EnvPrefix = "BACKOFFICE"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	EnvAppEnv    = "BACKOFFICE_APP_ENV"
	EnvPort      = "BACKOFFICE_APP_PORT"
	EnvDBDSN     = "BACKOFFICE_DB_DSN"
	EnvDBHost    = "BACKOFFICE_DB_HOST"
	EnvDBUser    = "BACKOFFICE_DB_USER"
	EnvDBName    = "BACKOFFICE_DB_NAME"
	EnvRedisAddr = "BACKOFFICE_REDIS_ADDR"
	EnvJWTSecret = "BACKOFFICE_JWT_SECRET"
)

var discreteDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
