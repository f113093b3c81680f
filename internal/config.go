package internal

import (
	"time"
)

type Config struct {
	Host      string `env:"HOST,required=true"`
	Port      int    `env:"PORT,required=true"`
	DebugPort int    `env:"DEBUG_PORT,required=true"`
	LogLevel  string `env:"LOG_LEVEL,required=true"`

	EventBufferSize int   `env:"EVENT_BUFFER_SIZE,required=true"`
	SendQueueSize   int   `env:"SEND_QUEUE_SIZE,required=true"`
	ReadLimitBytes  int64 `env:"READ_LIMIT_BYTES,required=true"`

	PongTimeout  time.Duration `env:"PONG_TIMEOUT,required=true"`
	WriteTimeout time.Duration `env:"WRITE_TIMEOUT,required=true"`
	PingInterval time.Duration `env:"PING_INTERVAL,required=true"`

	HeartbeatInterval time.Duration `env:"HEARTBEAT_INTERVAL,required=true"`
	ShutdownTimeout   time.Duration `env:"SHUTDOWN_TIMEOUT,required=true"`

	// Empty means all origins are accepted (development default).
	AllowedOrigins []string `env:"ALLOWED_ORIGINS"`
}
