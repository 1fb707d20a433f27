package config

const EnvPrefix = "SERVICECART"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	DBDriverPostgres = "postgres"
	DBDriverSQLite   = "sqlite"

	CartBackendRedis  = "redis"
	CartBackendSQL    = "sql"
	CartBackendMemory = "memory"
)

// Environment variable names, mirrored from the struct tags for tests and error messages.
const (
	EnvAppEnv     = "SERVICECART_APP_ENV"
	EnvPort       = "SERVICECART_APP_PORT"
	EnvLogLevel   = "SERVICECART_LOG_LEVEL"
	EnvAdminToken = "SERVICECART_ADMIN_TOKEN"

	EnvAdminTokenHash = "SERVICECART_ADMIN_TOKEN_HASH"
	EnvCORSOrigins    = "SERVICECART_CORS_ORIGINS"

	EnvDBDSN    = "SERVICECART_DB_DSN"
	EnvDBDriver = "SERVICECART_DB_DRIVER"

	EnvRedisURL  = "SERVICECART_REDIS_URL"
	EnvRedisAddr = "SERVICECART_REDIS_ADDR"

	EnvCartBackend        = "SERVICECART_CART_BACKEND"
	EnvCartSlotTTL        = "SERVICECART_CART_SLOT_TTL"
	EnvCartPersistTimeout = "SERVICECART_CART_PERSIST_TIMEOUT"
	EnvCartMaxOpen        = "SERVICECART_CART_MAX_OPEN"

	EnvBookingRateWindow = "SERVICECART_RATE_LIMIT_BOOKING_WINDOW"
	EnvBookingRateLimit  = "SERVICECART_RATE_LIMIT_BOOKING_LIMIT"

	EnvBookingEmailRateLimit = "SERVICECART_RATE_LIMIT_BOOKING_EMAIL_LIMIT"
	EnvIdempotencyTTL        = "SERVICECART_IDEMPOTENCY_TTL"
)
