package config

import "time"

type Config struct {
	Service    *ServiceConfig
	Postgres   *PostgresConfig
	Redis      *RedisConfig
	Cloudinary *CloudinaryConfig
	Chat       *ChatConfig
	Logger     *LoggerConfig
	Tracer     *TracerConfig
	JWTSecret  string
}

type ServiceConfig struct {
	Name string
	Env  string
	Addr string
}

type PostgresConfig struct {
	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
	PingTimeout     time.Duration
}

type RedisConfig struct {
	URL          string
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	PoolSize     int
	MinIdleConns int
	PingTimeout  time.Duration
}

type CloudinaryConfig struct {
	CloudName string
	APIKey    string
	APISecret string
	Folder    string
	Timeout   time.Duration
}

// ChatConfig tunes the real-time subsystem: liveness detection, storage
// deadlines and the per-connection outbound queue.
type ChatConfig struct {
	HeartbeatInterval time.Duration
	PongWait          time.Duration
	PresenceTTL       time.Duration
	StorageTimeout    time.Duration
	OutboundQueueSize int
	ConsumerGroup     string
}

type LoggerConfig struct {
	Level  string
	Format string
}

type TracerConfig struct {
	Address string
}
