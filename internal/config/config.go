package config

import (
	"time"

	"github.com/caarlos0/env/v10"
)

// Backends de almacenamiento primario soportados.
const (
	BackendMongo    = "mongo"
	BackendPostgres = "postgres"
	BackendFile     = "file"
)

// Config centraliza la configuración del servicio.
type Config struct {
	HTTPPort       string   `env:"HTTP_PORT" envDefault:"5000"`
	AppEnv         string   `env:"APP_ENV" envDefault:"production"`
	FrontendURL    string   `env:"FRONTEND_URL" envDefault:"http://localhost:3000"`
	PublicBaseURL  string   `env:"PUBLIC_BASE_URL" envDefault:"http://localhost:5000"`
	AllowedOrigins []string `env:"ALLOWED_ORIGINS" envSeparator:"," envDefault:"http://localhost:3000"`

	JWTSecret      string        `env:"JWT_SECRET"`
	JWTTTL         time.Duration `env:"JWT_TTL" envDefault:"168h"`
	JWTRememberTTL time.Duration `env:"JWT_REMEMBER_TTL" envDefault:"720h"`
	BcryptCost     int           `env:"BCRYPT_COST" envDefault:"12"`

	LockoutMaxAttempts int           `env:"LOCKOUT_MAX_ATTEMPTS" envDefault:"5"`
	LockoutDuration    time.Duration `env:"LOCKOUT_DURATION" envDefault:"2h"`

	StoreBackend   string `env:"STORE_BACKEND" envDefault:"mongo"`
	MongoURI       string `env:"MONGODB_URI" envDefault:"mongodb://localhost:27017"`
	MongoDatabase  string `env:"MONGODB_DATABASE" envDefault:"lexia"`
	DatabaseURL    string `env:"DATABASE_URL"`
	FallbackDBPath string `env:"FALLBACK_DB_PATH" envDefault:"data/users.json"`

	RedisAddr     string `env:"REDIS_ADDR"`
	RedisPassword string `env:"REDIS_PASSWORD"`
	RedisDB       int    `env:"REDIS_DB" envDefault:"0"`

	AMQPURL   string `env:"AMQP_URL"`
	AMQPQueue string `env:"AMQP_QUEUE" envDefault:"account.events"`

	SMTPHost     string `env:"SMTP_HOST"`
	SMTPPort     int    `env:"SMTP_PORT" envDefault:"587"`
	SMTPUser     string `env:"SMTP_USER"`
	SMTPPass     string `env:"SMTP_PASS"`
	SMTPFrom     string `env:"SMTP_FROM"`
	SMTPFromName string `env:"SMTP_FROM_NAME" envDefault:"Lexia"`
	SMTPUseTLS   bool   `env:"SMTP_USE_TLS" envDefault:"false"`

	GoogleClientID       string `env:"GOOGLE_CLIENT_ID"`
	GoogleClientSecret   string `env:"GOOGLE_CLIENT_SECRET"`
	FacebookAppID        string `env:"FACEBOOK_APP_ID"`
	FacebookAppSecret    string `env:"FACEBOOK_APP_SECRET"`
	GitHubClientID       string `env:"GITHUB_CLIENT_ID"`
	GitHubClientSecret   string `env:"GITHUB_CLIENT_SECRET"`
	LinkedInClientID     string `env:"LINKEDIN_CLIENT_ID"`
	LinkedInClientSecret string `env:"LINKEDIN_CLIENT_SECRET"`
}

// LoadConfig carga la configuración desde variables de entorno.
func LoadConfig() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// IsDevelopment habilita detalles de error y logging de desarrollo.
func (c *Config) IsDevelopment() bool {
	return c.AppEnv == "development"
}
