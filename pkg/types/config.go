package types

type Config struct {
	Environment     string `envconfig:"ENVIRONMENT" default:"development"`
	ServerPort      uint   `envconfig:"SERVER_PORT" default:"8080"`
	DatabaseURL     string `envconfig:"DATABASE_URL"`
	DatabaseSchema  string `envconfig:"DATABASE_SCHEMA" default:"smartplate"`
	ReadTimeoutSec  uint   `envconfig:"READ_TIMEOUT_SEC" default:"10"`
	WriteTimeoutSec uint   `envconfig:"WRITE_TIMEOUT_SEC" default:"15"`

	// Cognito Auth
	CognitoUserPoolID string `envconfig:"COGNITO_USER_POOL_ID"`
	CognitoClientID   string `envconfig:"COGNITO_CLIENT_ID"`
	CognitoIssuerURL  string `envconfig:"COGNITO_ISSUER_URL"`

	// Role lookup after sign-in is scheduled, not run inline with the auth event
	RoleFetchDelayMS uint `envconfig:"ROLE_FETCH_DELAY_MS" default:"50"`

	// S3 compatible blob storage. Leave the endpoint empty for AWS.
	S3Endpoint        string `envconfig:"S3_ENDPOINT"`
	S3Region          string `envconfig:"S3_REGION" default:"us-east-1"`
	S3AccessKey       string `envconfig:"S3_ACCESS_KEY"`
	S3SecretKey       string `envconfig:"S3_SECRET_KEY"`
	S3PublicURL       string `envconfig:"S3_PUBLIC_URL"`
	S3DocumentsBucket string `envconfig:"S3_DOCUMENTS_BUCKET" default:"verification-documents"`
	S3PhotosBucket    string `envconfig:"S3_PHOTOS_BUCKET" default:"food-request-photos"`
	MaxUploadBytes    int64  `envconfig:"MAX_UPLOAD_BYTES" default:"10485760"`

	// Device location fixes. Without REDIS_URL fixes are kept in memory.
	RedisURL           string `envconfig:"REDIS_URL"`
	LocationTimeoutSec uint   `envconfig:"LOCATION_TIMEOUT_SEC" default:"10"`
	LocationMaxAgeSec  uint   `envconfig:"LOCATION_MAX_AGE_SEC" default:"60"`

	// Realtime
	RealtimeChannel string   `envconfig:"REALTIME_CHANNEL" default:"smartplate_changes"`
	AllowedOrigins  []string `envconfig:"ALLOWED_ORIGINS"`

	// Cookie encryption keys (base64 encoded)
	// openssl rand -base64 32
	// to generate values
	CookieHashKey  string `envconfig:"COOKIE_HASH_KEY"`  // 32 or 64 bytes
	CookieBlockKey string `envconfig:"COOKIE_BLOCK_KEY"` // 16, 24, or 32 bytes
}
