package config

import (
	"os"
	"strings"
	"time"
)

// Server captures process-level configuration so main stays lean.
type Server struct {
	Addr          string
	PostgresDSN   string
	RedisURL      string
	KafkaBrokers  []string
	AuditTopic    string
	JWTSigningKey string
}

// DirectoryCacheTTL bounds how long department/sub-department lookups may be
// served from cache. Directory records change rarely; transfers re-validate
// inside the transaction anyway.
var DirectoryCacheTTL = 5 * time.Minute

// RedisConfig captures redis client tuning.
type RedisConfig struct {
	URL           string
	PoolSize      int
	MinIdleConns  int
	DialTimeout   time.Duration
	ReadTimeout   time.Duration
	WriteTimeout  time.Duration
}

// FromEnv builds a Server config from environment variables.
func FromEnv() Server {
	addr := os.Getenv("SUVIDHA_ADDR")
	if addr == "" {
		addr = ":8080"
	}

	var brokers []string
	if v := os.Getenv("SUVIDHA_KAFKA_BROKERS"); v != "" {
		brokers = strings.Split(v, ",")
	}

	topic := os.Getenv("SUVIDHA_AUDIT_TOPIC")
	if topic == "" {
		topic = "suvidha.audit"
	}

	jwtSigningKey := os.Getenv("SUVIDHA_JWT_SIGNING_KEY")
	if jwtSigningKey == "" {
		// Development default - must be overridden in production.
		jwtSigningKey = "dev-secret-key-change-in-production"
	}

	return Server{
		Addr:          addr,
		PostgresDSN:   os.Getenv("SUVIDHA_POSTGRES_DSN"),
		RedisURL:      os.Getenv("SUVIDHA_REDIS_URL"),
		KafkaBrokers:  brokers,
		AuditTopic:    topic,
		JWTSigningKey: jwtSigningKey,
	}
}

// Redis builds the redis client config with sane pool defaults.
func (s Server) Redis() RedisConfig {
	return RedisConfig{
		URL:          s.RedisURL,
		PoolSize:     10,
		MinIdleConns: 2,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	}
}
